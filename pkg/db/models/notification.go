package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/univend-backend/pkg/enums"
)

// Notification is an in-app feed entry for one user.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID    string                 `gorm:"column:user_id;not null"`
	Type      enums.NotificationType `gorm:"column:type;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;not null"`
	Link      *string                `gorm:"column:link"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;not null"`
}

// DeviceToken is an FCM registration token for push delivery.
type DeviceToken struct {
	Token     string    `gorm:"column:token;primaryKey"`
	UserID    string    `gorm:"column:user_id;not null"`
	Platform  string    `gorm:"column:platform;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
