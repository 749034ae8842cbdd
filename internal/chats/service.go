package chats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pasabuy/pasabuy-backend/internal/users"
	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox/payloads"
	"github.com/pasabuy/pasabuy-backend/pkg/pagination"
)

// DefaultMaxMessageLength is the longest message body, in characters.
const DefaultMaxMessageLength = 2000

const previewLength = 120

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type identityResolver interface {
	Identity(ctx context.Context, userID uuid.UUID) (users.Identity, error)
}

type requestReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
}

type threadNotifier interface {
	ThreadChanged(ctx context.Context, threadID string)
}

type ServiceParams struct {
	Repo             Repository
	Tx               txRunner
	Outbox           outboxPublisher
	Identities       identityResolver
	Requests         requestReader
	Changes          threadNotifier
	MaxMessageLength int
}

type Service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	identities identityResolver
	requests   requestReader
	changes    threadNotifier
	maxLength  int
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("chats repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Identities == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("request reader required")
	}
	maxLength := params.MaxMessageLength
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	return &Service{
		repo:       params.Repo,
		tx:         params.Tx,
		outbox:     params.Outbox,
		identities: params.Identities,
		requests:   params.Requests,
		changes:    params.Changes,
		maxLength:  maxLength,
		now:        time.Now,
	}, nil
}

// EnsureThread returns the thread for the triple, creating it on first use.
// Concurrent callers converge on one row and only the creator greets.
func (s *Service) EnsureThread(ctx context.Context, input EnsureThreadInput) (*ThreadDTO, error) {
	if input.RequestID == uuid.Nil || input.RequesterID == uuid.Nil || input.PasabuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request, requester and pasabuyer ids required")
	}
	if input.InitiatorID != input.RequesterID && input.InitiatorID != input.PasabuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only participants can open this thread")
	}

	threadID := ThreadID(input.RequesterID, input.PasabuyerID, input.RequestID)
	existing, err := s.repo.FindThread(ctx, threadID)
	if err == nil {
		return threadFromModel(existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat thread")
	}

	requester, err := s.identities.Identity(ctx, input.RequesterID)
	if err != nil {
		return nil, err
	}
	pasabuyer, err := s.identities.Identity(ctx, input.PasabuyerID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	thread := &models.ChatThread{
		ID:                      threadID,
		RequestID:               input.RequestID,
		RequesterID:             input.RequesterID,
		PasabuyerID:             input.PasabuyerID,
		RequesterName:           requester.DisplayName,
		RequesterAvatar:         avatarOr(requester.PhotoURL, DefaultRequesterAvatar),
		PasabuyerName:           pasabuyer.DisplayName,
		PasabuyerAvatar:         avatarOr(pasabuyer.PhotoURL, DefaultPasabuyerAvatar),
		RequestTitle:            input.Summary.Title,
		RequestStore:            input.Summary.Store,
		RequestDeliveryLocation: input.Summary.DeliveryLocation,
		RequestQuantity:         input.Summary.Quantity,
		RequestBudget:           input.Summary.Budget,
		RequestStatus:           input.Summary.Status,
		LastUpdatedAt:           now,
		CreatedAt:               now,
	}

	created := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inserted, err := repo.InsertThreadIfAbsent(ctx, thread)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		created = true
		greeting := PasabuyerGreeting
		if input.InitiatorID == input.RequesterID {
			greeting = RequesterGreeting
		}
		if err := repo.AppendMessage(ctx, &models.ChatMessage{
			ID:       uuid.New(),
			ThreadID: threadID,
			SenderID: input.InitiatorID,
			Text:     greeting,
			SentAt:   now,
		}); err != nil {
			return err
		}
		return repo.TouchThread(ctx, threadID, greeting, now)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create chat thread")
	}

	stored, err := s.repo.FindThread(ctx, threadID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload chat thread")
	}
	if created && s.changes != nil {
		s.changes.ThreadChanged(ctx, threadID)
	}
	dto := threadFromModel(stored)
	dto.Created = created
	return dto, nil
}

// EnsureForRequest opens the thread of a claimed request for one of its
// participants.
func (s *Service) EnsureForRequest(ctx context.Context, requestID, userID uuid.UUID) (*ThreadDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	if req.AcceptedBy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request has no pasabuyer yet")
	}
	if req.RequesterID != userID && !req.IsAcceptedBy(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this request")
	}
	return s.EnsureThread(ctx, EnsureThreadInput{
		RequestID:   req.ID,
		RequesterID: req.RequesterID,
		PasabuyerID: *req.AcceptedBy,
		InitiatorID: userID,
		Summary:     SummaryFromRequest(req),
	})
}

func (s *Service) AppendMessage(ctx context.Context, input AppendMessageInput) (*MessageDTO, error) {
	if input.SenderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"text": "message cannot be empty"})
	}
	if utf8.RuneCountInString(text) > s.maxLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"text": fmt.Sprintf("message exceeds %d characters", s.maxLength)})
	}

	var msg *models.ChatMessage
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		thread, err := s.participantThread(ctx, repo, input.ThreadID, input.SenderID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		msg = &models.ChatMessage{
			ID:       uuid.New(),
			ThreadID: thread.ID,
			SenderID: input.SenderID,
			Text:     text,
			SentAt:   now,
		}
		if err := repo.AppendMessage(ctx, msg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append message")
		}
		if err := repo.TouchThread(ctx, thread.ID, text, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update thread preview")
		}

		recipient, senderName := thread.PasabuyerID, thread.RequesterName
		if input.SenderID == thread.PasabuyerID {
			recipient, senderName = thread.RequesterID, thread.PasabuyerName
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventMessageSent,
			AggregateType: enums.AggregateChatThread,
			AggregateID:   thread.RequestID,
			Actor:         &outbox.ActorRef{UserID: input.SenderID},
			OccurredAt:    now,
			Data: payloads.MessageSentEvent{
				ThreadID:    thread.ID,
				RequestID:   thread.RequestID,
				MessageID:   msg.ID,
				SenderID:    input.SenderID,
				RecipientID: recipient,
				SenderName:  senderName,
				Preview:     preview(text),
				SentAt:      now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit message sent")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.changes != nil {
		s.changes.ThreadChanged(ctx, msg.ThreadID)
	}
	dto := messageFromModel(msg)
	return &dto, nil
}

// MarkRead flips every message the reader did not send and returns the count.
func (s *Service) MarkRead(ctx context.Context, threadID string, readerID uuid.UUID) (int64, error) {
	if _, err := s.participantThread(ctx, s.repo, threadID, readerID); err != nil {
		return 0, err
	}
	rows, err := s.repo.MarkRead(ctx, threadID, readerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
	}
	if rows > 0 && s.changes != nil {
		s.changes.ThreadChanged(ctx, threadID)
	}
	return rows, nil
}

func (s *Service) Get(ctx context.Context, threadID string, userID uuid.UUID) (*ThreadDTO, error) {
	thread, err := s.participantThread(ctx, s.repo, threadID, userID)
	if err != nil {
		return nil, err
	}
	return threadFromModel(thread), nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]ThreadDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	threads, err := s.repo.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list threads")
	}
	ids := make([]string, len(threads))
	for i := range threads {
		ids[i] = threads[i].ID
	}
	unread, err := s.repo.CountUnread(ctx, ids, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	out := make([]ThreadDTO, 0, len(threads))
	for i := range threads {
		dto := threadFromModel(&threads[i])
		dto.Unread = unread[threads[i].ID]
		out = append(out, *dto)
	}
	return out, nil
}

func (s *Service) ListMessages(ctx context.Context, threadID string, userID uuid.UUID, params pagination.Params) (*MessagePage, error) {
	if _, err := s.participantThread(ctx, s.repo, threadID, userID); err != nil {
		return nil, err
	}
	after, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	messages, next, err := s.repo.ListMessages(ctx, threadID, after, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	page := &MessagePage{Items: make([]MessageDTO, 0, len(messages))}
	for i := range messages {
		page.Items = append(page.Items, messageFromModel(&messages[i]))
	}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// ParticipantThreadIDs returns the ids of threads a watcher may subscribe to.
func (s *Service) ParticipantThreadIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	threads, err := s.repo.ListForUser(ctx, userID, pagination.MaxLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list threads")
	}
	ids := make([]string, 0, len(threads))
	for _, thread := range threads {
		ids = append(ids, thread.ID)
	}
	return ids, nil
}

func (s *Service) participantThread(ctx context.Context, repo Repository, threadID string, userID uuid.UUID) (*models.ChatThread, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thread id required")
	}
	thread, err := repo.FindThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "chat thread not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat thread")
	}
	if !thread.HasParticipant(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this thread")
	}
	return thread, nil
}

func avatarOr(photo *string, fallback string) string {
	if photo != nil && strings.TrimSpace(*photo) != "" {
		return *photo
	}
	return fallback
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "…"
}
