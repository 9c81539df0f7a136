package wallet

import (
	"time"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
)

type WalletDTO struct {
	UserID    string    `json:"userId"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TransactionDTO struct {
	ID                string                      `json:"id"`
	UserID            string                      `json:"userId"`
	Type              enums.WalletTransactionType `json:"type"`
	Amount            int64                       `json:"amount"`
	Description       string                      `json:"description"`
	RelatedEntityType *enums.RelatedEntityType    `json:"relatedEntityType,omitempty"`
	RelatedEntityID   *string                     `json:"relatedEntityId,omitempty"`
	BalanceAfter      int64                       `json:"balanceAfter"`
	CreatedAt         time.Time                   `json:"createdAt"`
}

type TransactionList struct {
	Transactions []TransactionDTO `json:"transactions"`
	NextCursor   string           `json:"next_cursor,omitempty"`
}

// Reconciliation is the result of replaying a wallet's ledger from its
// opening balance.
type Reconciliation struct {
	UserID           string `json:"userId"`
	OpeningBalance   int64  `json:"openingBalance"`
	TotalCredits     int64  `json:"totalCredits"`
	TotalDebits      int64  `json:"totalDebits"`
	ReplayedBalance  int64  `json:"replayedBalance"`
	Balance          int64  `json:"balance"`
	TransactionCount int    `json:"transactionCount"`
	Consistent       bool   `json:"consistent"`
}

func toWalletDTO(w *models.Wallet) *WalletDTO {
	return &WalletDTO{UserID: w.UserID, Balance: w.Balance, UpdatedAt: w.UpdatedAt}
}

func toTransactionDTO(t models.WalletTransaction) TransactionDTO {
	return TransactionDTO{
		ID:                t.ID.String(),
		UserID:            t.UserID,
		Type:              t.Type,
		Amount:            t.Amount,
		Description:       t.Description,
		RelatedEntityType: t.RelatedEntityType,
		RelatedEntityID:   t.RelatedEntityID,
		BalanceAfter:      t.BalanceAfter,
		CreatedAt:         t.CreatedAt,
	}
}
