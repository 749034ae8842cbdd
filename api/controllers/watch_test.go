package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestWatchUpgraderOrigins(t *testing.T) {
	upgrader := NewWatchUpgrader([]string{"https://pasabuy.app"})

	allowed := httptest.NewRequest(http.MethodGet, "/api/v1/watch", nil)
	allowed.Header.Set("Origin", "https://pasabuy.app")
	if !upgrader.CheckOrigin(allowed) {
		t.Fatalf("expected configured origin allowed")
	}

	denied := httptest.NewRequest(http.MethodGet, "/api/v1/watch", nil)
	denied.Header.Set("Origin", "https://evil.example")
	if upgrader.CheckOrigin(denied) {
		t.Fatalf("expected foreign origin denied")
	}

	wildcard := NewWatchUpgrader([]string{"*"})
	if !wildcard.CheckOrigin(denied) {
		t.Fatalf("expected wildcard to allow any origin")
	}
}

func TestWatchRequiresAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	req := newAuthedRequest(http.MethodGet, "/api/v1/watch", "", uuid.Nil, nil)

	Watch(nil, nil, NewWatchUpgrader(nil), nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestWatchWithoutFeed(t *testing.T) {
	rec := httptest.NewRecorder()
	req := newAuthedRequest(http.MethodGet, "/api/v1/watch", "", uuid.New(), nil)

	Watch(nil, nil, NewWatchUpgrader(nil), nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
