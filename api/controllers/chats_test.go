package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/internal/chats"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/pagination"
)

type stubChatService struct {
	thread     *chats.ThreadDTO
	appended   chats.AppendMessageInput
	readBy     uuid.UUID
	listLimit  int
	pageParams pagination.Params
	err        error
}

func (s *stubChatService) EnsureForRequest(ctx context.Context, requestID, userID uuid.UUID) (*chats.ThreadDTO, error) {
	return s.thread, s.err
}

func (s *stubChatService) AppendMessage(ctx context.Context, input chats.AppendMessageInput) (*chats.MessageDTO, error) {
	s.appended = input
	if s.err != nil {
		return nil, s.err
	}
	return &chats.MessageDTO{ID: uuid.New(), ThreadID: input.ThreadID, SenderID: input.SenderID, Text: input.Text}, nil
}

func (s *stubChatService) MarkRead(ctx context.Context, threadID string, readerID uuid.UUID) (int64, error) {
	s.readBy = readerID
	return 3, s.err
}

func (s *stubChatService) Get(ctx context.Context, threadID string, userID uuid.UUID) (*chats.ThreadDTO, error) {
	return s.thread, s.err
}

func (s *stubChatService) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]chats.ThreadDTO, error) {
	s.listLimit = limit
	return []chats.ThreadDTO{}, s.err
}

func (s *stubChatService) ListMessages(ctx context.Context, threadID string, userID uuid.UUID, params pagination.Params) (*chats.MessagePage, error) {
	s.pageParams = params
	return &chats.MessagePage{Items: []chats.MessageDTO{}}, s.err
}

func TestOpenRequestChatCreatedStatus(t *testing.T) {
	requestID := uuid.New()
	svc := &stubChatService{thread: &chats.ThreadDTO{ID: "p_r_q", RequestID: requestID, Created: true}}
	req := newAuthedRequest(http.MethodPost, "/chat", "", uuid.New(), map[string]string{"requestId": requestID.String()})
	rec := httptest.NewRecorder()

	OpenRequestChat(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
}

func TestOpenRequestChatExistingThread(t *testing.T) {
	requestID := uuid.New()
	svc := &stubChatService{thread: &chats.ThreadDTO{ID: "p_r_q", RequestID: requestID}}
	req := newAuthedRequest(http.MethodPost, "/chat", "", uuid.New(), map[string]string{"requestId": requestID.String()})
	rec := httptest.NewRecorder()

	OpenRequestChat(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestSendChatMessage(t *testing.T) {
	sender := uuid.New()
	svc := &stubChatService{}
	req := newAuthedRequest(http.MethodPost, "/messages", `{"text":"Nasa tindahan na ako"}`, sender, map[string]string{"threadId": "p_r_q"})
	rec := httptest.NewRecorder()

	SendChatMessage(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.appended.ThreadID != "p_r_q" || svc.appended.SenderID != sender {
		t.Fatalf("unexpected append input %+v", svc.appended)
	}
}

func TestSendChatMessageForbidden(t *testing.T) {
	svc := &stubChatService{err: pkgerrors.New(pkgerrors.CodeForbidden, "not a participant")}
	req := newAuthedRequest(http.MethodPost, "/messages", `{"text":"hi"}`, uuid.New(), map[string]string{"threadId": "p_r_q"})
	rec := httptest.NewRecorder()

	SendChatMessage(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestMarkChatRead(t *testing.T) {
	reader := uuid.New()
	svc := &stubChatService{}
	req := newAuthedRequest(http.MethodPost, "/read", "", reader, map[string]string{"threadId": "p_r_q"})
	rec := httptest.NewRecorder()

	MarkChatRead(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body map[string]int64
	decodeData(t, rec, &body)
	if body["updated"] != 3 || svc.readBy != reader {
		t.Fatalf("unexpected mark read result %v", body)
	}
}

func TestListChatMessagesPagination(t *testing.T) {
	svc := &stubChatService{}
	req := newAuthedRequest(http.MethodGet, "/messages?limit=5", "", uuid.New(), map[string]string{"threadId": "p_r_q"})
	rec := httptest.NewRecorder()

	ListChatMessages(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.pageParams.Limit != 5 {
		t.Fatalf("expected limit 5 got %d", svc.pageParams.Limit)
	}
}

func TestListChatThreadsRejectsLargeLimit(t *testing.T) {
	svc := &stubChatService{}
	req := newAuthedRequest(http.MethodGet, "/chats?limit=1000", "", uuid.New(), nil)
	rec := httptest.NewRecorder()

	ListChatThreads(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
