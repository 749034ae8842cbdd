package chats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/pagination"
)

// Repository persists threads and their append-only messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindThread(ctx context.Context, threadID string) (*models.ChatThread, error)
	InsertThreadIfAbsent(ctx context.Context, thread *models.ChatThread) (bool, error)
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	TouchThread(ctx context.Context, threadID, preview string, at time.Time) error
	MarkRead(ctx context.Context, threadID string, readerID uuid.UUID) (int64, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatThread, error)
	ListMessages(ctx context.Context, threadID string, after *pagination.Cursor, limit int) ([]models.ChatMessage, *pagination.Cursor, error)
	CountUnread(ctx context.Context, threadIDs []string, readerID uuid.UUID) (map[string]int64, error)
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

func (r *repository) FindThread(ctx context.Context, threadID string) (*models.ChatThread, error) {
	var thread models.ChatThread
	if err := r.db.WithContext(ctx).Where("id = ?", threadID).First(&thread).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

// InsertThreadIfAbsent reports whether this call created the row. A
// concurrent creator makes it a no-op.
func (r *repository) InsertThreadIfAbsent(ctx context.Context, thread *models.ChatThread) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(thread)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *repository) TouchThread(ctx context.Context, threadID, preview string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatThread{}).
		Where("id = ?", threadID).
		Updates(map[string]any{"last_message": preview, "last_updated_at": at}).Error
}

func (r *repository) MarkRead(ctx context.Context, threadID string, readerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("thread_id = ? AND sender_id <> ? AND read = ?", threadID, readerID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatThread, error) {
	var threads []models.ChatThread
	err := r.db.WithContext(ctx).
		Where("requester_id = ? OR pasabuyer_id = ?", userID, userID).
		Order("last_updated_at DESC, id DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&threads).Error
	return threads, err
}

// ListMessages pages forward in send order; the cursor is the last message seen.
func (r *repository) ListMessages(ctx context.Context, threadID string, after *pagination.Cursor, limit int) ([]models.ChatMessage, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Where("thread_id = ?", threadID)
	if after != nil {
		clause, args := after.After("sent_at")
		query = query.Where(clause, args...)
	}
	var messages []models.ChatMessage
	if err := query.Order("sent_at ASC, id ASC").Limit(pagination.LimitWithBuffer(limit)).Find(&messages).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(messages, limit, func(m models.ChatMessage) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.SentAt, ID: m.ID}
	})
	return page, next, nil
}

// CountUnread counts messages not sent by readerID and not yet read, per
// thread, in one grouped query. Threads without unread messages are absent.
func (r *repository) CountUnread(ctx context.Context, threadIDs []string, readerID uuid.UUID) (map[string]int64, error) {
	counts := make(map[string]int64, len(threadIDs))
	if len(threadIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ThreadID string
		Unread   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Select("thread_id, COUNT(*) AS unread").
		Where("thread_id IN ? AND sender_id <> ? AND read = ?", threadIDs, readerID, false).
		Group("thread_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ThreadID] = row.Unread
	}
	return counts, nil
}
