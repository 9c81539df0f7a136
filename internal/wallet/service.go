package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/internal/transition"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

// Service is the standalone wallet surface. Each mutating call is its own
// atomic unit; the lifecycle engine uses Ledger to join a larger one.
type Service interface {
	GetOrCreateWallet(ctx context.Context, userID string) (*WalletDTO, error)
	Debit(ctx context.Context, entry Entry) (*TransactionDTO, error)
	Credit(ctx context.Context, entry Entry) (*TransactionDTO, error)
	Fund(ctx context.Context, input FundInput) (*TransactionDTO, error)
	ListTransactions(ctx context.Context, userID string, params pagination.Params) (*TransactionList, error)
	Reconcile(ctx context.Context, userID string) (*Reconciliation, error)
	Ledger(tx *gorm.DB) *Ledger
}

type transitionRunner interface {
	Run(ctx context.Context, name string, fn transition.Func) error
}

type ServiceParams struct {
	Repository      Repository
	Runner          transitionRunner
	Outbox          outbox.Emitter
	StartingBalance int64
	Now             func() time.Time
}

// FundInput tops up a wallet from the internal pre-funding flow.
type FundInput struct {
	UserID string
	Amount int64
	Actor  outbox.ActorRef
}

type service struct {
	repo            Repository
	runner          transitionRunner
	outbox          outbox.Emitter
	startingBalance int64
	now             func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("transition runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.StartingBalance < 0 {
		return nil, fmt.Errorf("starting balance must not be negative")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:            params.Repository,
		runner:          params.Runner,
		outbox:          params.Outbox,
		startingBalance: params.StartingBalance,
		now:             now,
	}, nil
}

func (s *service) Ledger(tx *gorm.DB) *Ledger {
	return &Ledger{repo: s.repo.WithTx(tx), startingBalance: s.startingBalance, now: s.now}
}

func (s *service) GetOrCreateWallet(ctx context.Context, userID string) (*WalletDTO, error) {
	var out *models.Wallet
	err := s.runner.Run(ctx, "get_or_create_wallet", func(tx *gorm.DB) error {
		wallet, err := s.Ledger(tx).GetOrCreate(ctx, userID)
		out = wallet
		return err
	})
	if err != nil {
		return nil, err
	}
	return toWalletDTO(out), nil
}

func (s *service) Debit(ctx context.Context, entry Entry) (*TransactionDTO, error) {
	return s.record(ctx, "wallet_debit", func(l *Ledger) (*models.WalletTransaction, error) {
		return l.Debit(ctx, entry)
	})
}

func (s *service) Credit(ctx context.Context, entry Entry) (*TransactionDTO, error) {
	return s.record(ctx, "wallet_credit", func(l *Ledger) (*models.WalletTransaction, error) {
		return l.Credit(ctx, entry)
	})
}

func (s *service) Fund(ctx context.Context, input FundInput) (*TransactionDTO, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidAmount, "funding amount must be positive, got %d", input.Amount)
	}
	var out *models.WalletTransaction
	err := s.runner.Run(ctx, "wallet_fund", func(tx *gorm.DB) error {
		txn, err := s.Ledger(tx).Credit(ctx, Entry{
			UserID:            input.UserID,
			Amount:            input.Amount,
			Description:       "Wallet funding",
			RelatedEntityType: enums.RelatedEntityFunding,
			RelatedEntityID:   uuid.NewString(),
		})
		if err != nil {
			return err
		}
		actor := input.Actor
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletFunded,
			AggregateType: enums.AggregateWallet,
			AggregateID:   txn.UserID,
			Actor:         &actor,
			Data: payloads.WalletFundedEvent{
				UserID:        txn.UserID,
				TransactionID: txn.ID.String(),
				Amount:        txn.Amount,
				BalanceAfter:  txn.BalanceAfter,
			},
			OccurredAt: txn.CreatedAt,
		}); err != nil {
			return fmt.Errorf("emit wallet_funded: %w", err)
		}
		out = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toTransactionDTO(*out)
	return &dto, nil
}

func (s *service) record(ctx context.Context, name string, fn func(*Ledger) (*models.WalletTransaction, error)) (*TransactionDTO, error) {
	var out *models.WalletTransaction
	err := s.runner.Run(ctx, name, func(tx *gorm.DB) error {
		txn, err := fn(s.Ledger(tx))
		out = txn
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := toTransactionDTO(*out)
	return &dto, nil
}

func (s *service) ListTransactions(ctx context.Context, userID string, params pagination.Params) (*TransactionList, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListTransactions(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	page, next := pagination.Page(rows, params.Limit, func(t models.WalletTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	list := &TransactionList{Transactions: make([]TransactionDTO, 0, len(page)), NextCursor: next}
	for _, t := range page {
		list.Transactions = append(list.Transactions, toTransactionDTO(t))
	}
	return list, nil
}

// Reconcile replays the user's transactions from the opening balance and
// compares the result with the stored balance. Both reads share one
// transaction so they observe the same snapshot.
func (s *service) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	var result *Reconciliation
	err := s.runner.Run(ctx, "wallet_reconcile", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.Find(ctx, userID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "no wallet for user %s", userID)
		}
		txns, err := repo.AllTransactions(ctx, userID)
		if err != nil {
			return err
		}
		result = replay(wallet, txns)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func replay(wallet *models.Wallet, txns []models.WalletTransaction) *Reconciliation {
	r := &Reconciliation{
		UserID:           wallet.UserID,
		OpeningBalance:   wallet.OpeningBalance,
		Balance:          wallet.Balance,
		TransactionCount: len(txns),
	}
	for _, t := range txns {
		switch t.Type {
		case enums.WalletTransactionCredit:
			r.TotalCredits += t.Amount
		case enums.WalletTransactionDebit:
			r.TotalDebits += t.Amount
		}
	}
	r.ReplayedBalance = r.OpeningBalance + r.TotalCredits - r.TotalDebits
	r.Consistent = r.ReplayedBalance == r.Balance
	return r
}
