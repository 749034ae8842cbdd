package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

const (
	notificationRetention = 30 * 24 * time.Hour
	outboxRetention       = 7 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type presenceSweeper interface {
	SweepStale(ctx context.Context) (int64, error)
}

type readNotificationPruner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type publishedOutboxPruner interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// PresenceSweepJob marks pasabuyers offline once their heartbeat goes stale.
type PresenceSweepJob struct {
	logg     *logger.Logger
	presence presenceSweeper
	every    time.Duration
}

// NewPresenceSweepJob builds the presence sweep job.
func NewPresenceSweepJob(logg *logger.Logger, presence presenceSweeper, every time.Duration) (*PresenceSweepJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if presence == nil {
		return nil, fmt.Errorf("presence service required")
	}
	if every <= 0 {
		every = time.Minute
	}
	return &PresenceSweepJob{logg: logg, presence: presence, every: every}, nil
}

func (j *PresenceSweepJob) Name() string            { return "presence-sweep" }
func (j *PresenceSweepJob) Interval() time.Duration { return j.every }

func (j *PresenceSweepJob) Run(ctx context.Context) error {
	swept, err := j.presence.SweepStale(ctx)
	if err != nil {
		return fmt.Errorf("presence sweep: %w", err)
	}
	if swept > 0 {
		j.logg.Info(j.logg.WithField(ctx, "rows_updated", swept), "stale pasabuyers marked offline")
	}
	return nil
}

// NotificationCleanupJob prunes notifications read more than the retention ago.
type NotificationCleanupJob struct {
	logg      *logger.Logger
	repo      readNotificationPruner
	retention time.Duration
	now       func() time.Time
}

// NewNotificationCleanupJob builds the read-notification cleanup job.
func NewNotificationCleanupJob(logg *logger.Logger, repo readNotificationPruner, retention time.Duration) (*NotificationCleanupJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if retention <= 0 {
		retention = notificationRetention
	}
	return &NotificationCleanupJob{logg: logg, repo: repo, retention: retention, now: time.Now}, nil
}

func (j *NotificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *NotificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "notification cleanup complete")
	return nil
}

// OutboxRetentionJob removes outbox rows that were published long ago.
type OutboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      publishedOutboxPruner
	retention time.Duration
	now       func() time.Time
}

// NewOutboxRetentionJob builds the outbox retention job.
func NewOutboxRetentionJob(logg *logger.Logger, db txRunner, repo publishedOutboxPruner, retention time.Duration) (*OutboxRetentionJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if retention <= 0 {
		retention = outboxRetention
	}
	return &OutboxRetentionJob{logg: logg, db: db, repo: repo, retention: retention, now: time.Now}, nil
}

func (j *OutboxRetentionJob) Name() string { return "outbox-retention" }

func (j *OutboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "outbox retention cleanup complete")
	return nil
}
