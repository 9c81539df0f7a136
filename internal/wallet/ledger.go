package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/univend-backend/pkg/db"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
)

// Entry describes one balance change requested of the ledger.
type Entry struct {
	UserID            string
	Amount            int64
	Description       string
	RelatedEntityType enums.RelatedEntityType
	RelatedEntityID   string
}

// Ledger applies balance changes inside a caller-owned transaction. Every
// write is a conditional update on the wallet version paired with an
// appended transaction record; a lost race surfaces as db.ErrWriteConflict
// so the caller's atomic unit can start over.
type Ledger struct {
	repo            Repository
	startingBalance int64
	now             func() time.Time
}

// GetOrCreate returns the user's wallet, creating it with the starting
// balance on first access.
func (l *Ledger) GetOrCreate(ctx context.Context, userID string) (*models.Wallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	now := l.now()
	if err := l.repo.InsertIfAbsent(ctx, &models.Wallet{
		UserID:         userID,
		Balance:        l.startingBalance,
		OpeningBalance: l.startingBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	wallet, err := l.repo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet for %s vanished after insert: %w", userID, db.ErrWriteConflict)
	}
	return wallet, nil
}

func (l *Ledger) Debit(ctx context.Context, entry Entry) (*models.WalletTransaction, error) {
	if entry.Amount <= 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidAmount, "debit amount must be positive, got %d", entry.Amount)
	}
	wallet, err := l.GetOrCreate(ctx, entry.UserID)
	if err != nil {
		return nil, err
	}
	if entry.Amount > wallet.Balance {
		return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientFunds, "balance %d is below %d", wallet.Balance, entry.Amount).
			WithDetails(map[string]any{"balance": wallet.Balance, "required": entry.Amount})
	}
	return l.apply(ctx, wallet, enums.WalletTransactionDebit, entry)
}

func (l *Ledger) Credit(ctx context.Context, entry Entry) (*models.WalletTransaction, error) {
	if entry.Amount <= 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidAmount, "credit amount must be positive, got %d", entry.Amount)
	}
	wallet, err := l.GetOrCreate(ctx, entry.UserID)
	if err != nil {
		return nil, err
	}
	return l.apply(ctx, wallet, enums.WalletTransactionCredit, entry)
}

func (l *Ledger) apply(ctx context.Context, wallet *models.Wallet, kind enums.WalletTransactionType, entry Entry) (*models.WalletTransaction, error) {
	balance := wallet.Balance + entry.Amount
	if kind == enums.WalletTransactionDebit {
		balance = wallet.Balance - entry.Amount
	}
	now := l.now()

	rows, err := l.repo.UpdateBalance(ctx, wallet.UserID, wallet.Version, balance, now)
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("wallet %s changed during %s: %w", wallet.UserID, kind, db.ErrWriteConflict)
	}

	txn := &models.WalletTransaction{
		ID:           uuid.New(),
		UserID:       wallet.UserID,
		Type:         kind,
		Amount:       entry.Amount,
		Description:  entry.Description,
		BalanceAfter: balance,
		Sequence:     wallet.Version + 1,
		CreatedAt:    now,
	}
	if entry.RelatedEntityType != "" {
		relType := entry.RelatedEntityType
		relID := entry.RelatedEntityID
		txn.RelatedEntityType = &relType
		txn.RelatedEntityID = &relID
	}
	if err := l.repo.AppendTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("append %s: %w", kind, err)
	}

	wallet.Balance = balance
	wallet.Version++
	wallet.UpdatedAt = now
	return txn, nil
}
