package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/api/middleware"
	"github.com/pasabuy/pasabuy-backend/api/responses"
	"github.com/pasabuy/pasabuy-backend/api/validators"
	"github.com/pasabuy/pasabuy-backend/internal/chats"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/pagination"
)

type chatService interface {
	EnsureForRequest(ctx context.Context, requestID, userID uuid.UUID) (*chats.ThreadDTO, error)
	AppendMessage(ctx context.Context, input chats.AppendMessageInput) (*chats.MessageDTO, error)
	MarkRead(ctx context.Context, threadID string, readerID uuid.UUID) (int64, error)
	Get(ctx context.Context, threadID string, userID uuid.UUID) (*chats.ThreadDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]chats.ThreadDTO, error)
	ListMessages(ctx context.Context, threadID string, userID uuid.UUID, params pagination.Params) (*chats.MessagePage, error)
}

// threadCaller resolves the caller and the {threadId} path parameter. Thread
// ids are derived strings, not uuids.
func threadCaller(r *http.Request) (uuid.UUID, string, error) {
	userID, err := middleware.AuthenticatedUserID(r.Context())
	if err != nil {
		return uuid.Nil, "", err
	}
	threadID := strings.TrimSpace(chi.URLParam(r, "threadId"))
	if threadID == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeValidation, "path parameter required").WithDetails(map[string]any{"field": "threadId"})
	}
	return userID, threadID, nil
}

func ListChatThreads(svc chatService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.AuthenticatedUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		threads, err := svc.ListForUser(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": threads})
	}
}

// OpenRequestChat returns the request's conversation, creating it on first use.
func OpenRequestChat(svc chatService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, requestID, err := requestCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		thread, err := svc.EnsureForRequest(r.Context(), requestID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if thread.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, thread)
	}
}

func GetChatThread(svc chatService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, threadID, err := threadCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		thread, err := svc.Get(r.Context(), threadID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, thread)
	}
}

func ListChatMessages(svc chatService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, threadID, err := threadCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListMessages(r.Context(), threadID, userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func SendChatMessage(svc chatService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, threadID, err := threadCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithThreadID(r.Context(), threadID)

		var body chats.AppendMessageInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		body.ThreadID = threadID
		body.SenderID = userID

		msg, err := svc.AppendMessage(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

func MarkChatRead(svc chatService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, threadID, err := threadCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.MarkRead(r.Context(), threadID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
