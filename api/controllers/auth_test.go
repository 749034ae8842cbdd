package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/internal/auth"
	"github.com/pasabuy/pasabuy-backend/internal/users"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
)

type stubAuthService struct {
	lastLogin    auth.LoginRequest
	lastRegister auth.RegisterRequest
	resp         *auth.LoginResponse
	err          error
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.lastLogin = req
	return s.resp, s.err
}

func (s *stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	s.lastRegister = req
	return s.resp, s.err
}

func loginResponse() *auth.LoginResponse {
	return &auth.LoginResponse{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		User:         &users.UserDTO{ID: uuid.New(), Email: "ana@example.com", Role: enums.UserRoleRequester},
	}
}

func TestAuthLoginSetsTokenHeader(t *testing.T) {
	svc := &stubAuthService{resp: loginResponse()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"ana@example.com","password":"secret"}`))
	rec := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get(TokenHeader); got != "access-token" {
		t.Fatalf("expected token header, got %q", got)
	}
	if svc.lastLogin.Email != "ana@example.com" {
		t.Fatalf("unexpected login email %q", svc.lastLogin.Email)
	}
}

func TestAuthLoginRejectsInvalidBody(t *testing.T) {
	svc := &stubAuthService{resp: loginResponse()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	rec := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.lastLogin.Email != "" {
		t.Fatalf("service should not be called on invalid body")
	}
}

func TestAuthLoginPropagatesUnauthorized(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"ana@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthRegisterReturnsCreated(t *testing.T) {
	svc := &stubAuthService{resp: loginResponse()}
	body := `{"email":"ben@example.com","password":"secret1","display_name":"Ben","role":"pasabuyer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	AuthRegister(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.lastRegister.Role != enums.UserRolePasabuyer {
		t.Fatalf("expected pasabuyer role, got %q", svc.lastRegister.Role)
	}
	if rec.Header().Get(TokenHeader) == "" {
		t.Fatalf("expected token header on register")
	}
}
