package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/univend-backend/pkg/enums"
)

// Wallet holds a user's prepaid balance. Version increments on every balance
// write and guards the conditional update.
type Wallet struct {
	UserID         string    `gorm:"column:user_id;primaryKey"`
	Balance        int64     `gorm:"column:balance;not null"`
	OpeningBalance int64     `gorm:"column:opening_balance;not null"`
	Version        int64     `gorm:"column:version;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// WalletTransaction is an append-only ledger entry. Sequence is the wallet
// version the entry produced, so it orders a wallet's history even when
// several entries share a timestamp.
type WalletTransaction struct {
	ID                uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	UserID            string                      `gorm:"column:user_id;not null"`
	Type              enums.WalletTransactionType `gorm:"column:type;not null"`
	Amount            int64                       `gorm:"column:amount;not null"`
	Description       string                      `gorm:"column:description;not null"`
	RelatedEntityType *enums.RelatedEntityType    `gorm:"column:related_entity_type"`
	RelatedEntityID   *string                     `gorm:"column:related_entity_id"`
	BalanceAfter      int64                       `gorm:"column:balance_after;not null"`
	Sequence          int64                       `gorm:"column:sequence;not null"`
	CreatedAt         time.Time                   `gorm:"column:created_at;not null"`
}
