package wallet

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

// Repository persists wallets and their append-only transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIfAbsent(ctx context.Context, wallet *models.Wallet) error
	Find(ctx context.Context, userID string) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, userID string, expectedVersion, balance int64, now time.Time) (int64, error)
	AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error)
	AllTransactions(ctx context.Context, userID string) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertIfAbsent(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(wallet).Error
}

// Find returns nil without error when the user has no wallet yet.
func (r *repository) Find(ctx context.Context, userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// UpdateBalance writes balance only if the row still carries expectedVersion
// and reports how many rows matched.
func (r *repository) UpdateBalance(ctx context.Context, userID string, expectedVersion, balance int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND version = ?", userID, expectedVersion).
		Updates(map[string]any{
			"balance":    balance,
			"version":    expectedVersion + 1,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// ListTransactions pages newest first in ledger order. The cursor names the
// last row served; rows after it are those with a lower sequence.
func (r *repository) ListTransactions(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		after := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
			Select("sequence").
			Where("user_id = ? AND id = ?", userID, cursor.ID)
		query = query.Where("sequence < (?)", after)
	}
	var rows []models.WalletTransaction
	err := query.Order("sequence DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) AllTransactions(ctx context.Context, userID string) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sequence ASC").
		Find(&rows).Error
	return rows, err
}
