package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/univend-backend/pkg/logger"
)

const (
	NotificationCleanupJobName = "notification_cleanup"

	defaultReadNotificationRetention = 30 * 24 * time.Hour
	defaultNotificationRetention     = 90 * 24 * time.Hour
)

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository notificationExpirer
	// ReadRetention applies to notifications the user has opened.
	ReadRetention time.Duration
	// Retention is the hard ceiling for every notification.
	Retention time.Duration
}

type notificationExpirer interface {
	DeleteExpired(ctx context.Context, readBefore, anyBefore time.Time) (int64, error)
}

type notificationCleanupJob struct {
	logg          *logger.Logger
	repo          notificationExpirer
	readRetention time.Duration
	retention     time.Duration
	now           func() time.Time
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	job := &notificationCleanupJob{
		logg:          params.Logger,
		repo:          params.Repository,
		readRetention: params.ReadRetention,
		retention:     params.Retention,
		now:           time.Now,
	}
	if job.readRetention <= 0 {
		job.readRetention = defaultReadNotificationRetention
	}
	if job.retention <= 0 {
		job.retention = defaultNotificationRetention
	}
	if job.retention < job.readRetention {
		job.retention = job.readRetention
	}
	return job, nil
}

func (j *notificationCleanupJob) Name() string { return NotificationCleanupJobName }

// Run trims the in-app feed. Unread entries survive until the hard ceiling so
// a user returning after a break still sees what happened to their orders.
func (j *notificationCleanupJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	readBefore, anyBefore := now.Add(-j.readRetention), now.Add(-j.retention)

	deleted, err := j.repo.DeleteExpired(ctx, readBefore, anyBefore)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"read_before":  readBefore,
		"any_before":   anyBefore,
		"rows_deleted": deleted,
	}), "notification cleanup complete")
	return nil
}
