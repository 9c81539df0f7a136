package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

// Repository persists the in-app feed and the FCM device tokens used for push.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	List(ctx context.Context, q feedQuery) ([]models.Notification, error)
	// MarkRead reports whether the notification exists for userID; marking an
	// already-read entry is not an error.
	MarkRead(ctx context.Context, userID string, notificationID uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID string, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, readBefore, anyBefore time.Time) (int64, error)

	UpsertDeviceToken(ctx context.Context, token *models.DeviceToken) error
	DeviceTokens(ctx context.Context, userIDs []string) ([]models.DeviceToken, error)
	DeleteDeviceTokens(ctx context.Context, tokens []string) error
}

type feedQuery struct {
	UserID     string
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

// feed scopes a query to one user's notifications.
func (r *gormRepository) feed(ctx context.Context, userID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

func stamp(n *models.Notification, now time.Time) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	stamp(notification, time.Now().UTC())
	return r.db.WithContext(ctx).Create(notification).Error
}

// CreateBatch writes all recipients in one statement, so a redelivered event
// either finds every row or none.
func (r *gormRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, n := range notifications {
		stamp(n, now)
	}
	return r.db.WithContext(ctx).Create(notifications).Error
}

// List returns newest first and fetches one extra row for the next-page check.
func (r *gormRepository) List(ctx context.Context, q feedQuery) ([]models.Notification, error) {
	query := r.feed(ctx, q.UserID)
	if q.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if c := q.Cursor; c != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var rows []models.Notification
	if err := query.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) MarkRead(ctx context.Context, userID string, notificationID uuid.UUID, now time.Time) (bool, error) {
	res := r.feed(ctx, userID).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var existing int64
	err := r.feed(ctx, userID).Where("id = ?", notificationID).Count(&existing).Error
	return existing > 0, err
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID string, now time.Time) (int64, error) {
	res := r.feed(ctx, userID).Where("read_at IS NULL").UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

// DeleteExpired removes read entries older than readBefore and any entry
// older than anyBefore.
func (r *gormRepository) DeleteExpired(ctx context.Context, readBefore, anyBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", anyBefore).
		Or("read_at IS NOT NULL AND created_at < ?", readBefore).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

// UpsertDeviceToken reassigns a known token to the caller, so a handed-down
// phone keeps a single row.
func (r *gormRepository) UpsertDeviceToken(ctx context.Context, token *models.DeviceToken) error {
	onToken := clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}
	return r.db.WithContext(ctx).Clauses(onToken).Create(token).Error
}

func (r *gormRepository) DeviceTokens(ctx context.Context, userIDs []string) ([]models.DeviceToken, error) {
	var tokens []models.DeviceToken
	if len(userIDs) == 0 {
		return tokens, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("updated_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *gormRepository) DeleteDeviceTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&models.DeviceToken{}, "token IN ?", tokens).Error
}
