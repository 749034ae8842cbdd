package cron

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasabuy/pasabuy-backend/pkg/db/dbtest"
	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeSweeper struct {
	swept int64
	err   error
	calls int
}

func (f *fakeSweeper) SweepStale(context.Context) (int64, error) {
	f.calls++
	return f.swept, f.err
}

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (f *fakePruner) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestPresenceSweepJob(t *testing.T) {
	sweeper := &fakeSweeper{swept: 2}
	job, err := NewPresenceSweepJob(testLogger(), sweeper, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, job.Interval())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, sweeper.calls)

	sweeper.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}

func TestNotificationCleanupJobCutoff(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	pruner := &fakePruner{}
	job, err := NewNotificationCleanupJob(testLogger(), pruner, 0)
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, pruner.cutoff.Equal(now.Add(-notificationRetention)))

	pruner.err = errors.New("boom")
	assert.Error(t, job.Run(context.Background()))
}

func TestOutboxRetentionJobDeletesPublishedRows(t *testing.T) {
	client := dbtest.Client(t)
	conn := client.DB()
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	oldPublished := now.Add(-10 * 24 * time.Hour)
	recentPublished := now.Add(-time.Hour)
	rows := []models.OutboxEvent{
		{ID: uuid.New(), PublishedAt: &oldPublished},
		{ID: uuid.New(), PublishedAt: &recentPublished},
		{ID: uuid.New()},
	}
	for i := range rows {
		rows[i].EventType = enums.EventRequestCreated
		rows[i].AggregateType = enums.AggregateRequest
		rows[i].AggregateID = uuid.New()
		rows[i].Payload = json.RawMessage(`{}`)
		require.NoError(t, conn.Create(&rows[i]).Error)
	}

	job, err := NewOutboxRetentionJob(testLogger(), client, outbox.NewRepository(conn), 0)
	require.NoError(t, err)
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run(context.Background()))

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Order("created_at").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, row := range remaining {
		assert.NotEqual(t, rows[0].ID, row.ID)
	}
}

func TestJobConstructorsValidate(t *testing.T) {
	_, err := NewPresenceSweepJob(nil, &fakeSweeper{}, 0)
	assert.Error(t, err)
	_, err = NewNotificationCleanupJob(testLogger(), nil, 0)
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(testLogger(), nil, nil, 0)
	assert.Error(t, err)
}
