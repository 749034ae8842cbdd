package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeAlreadyClaimed, status: http.StatusConflict, publicMsg: "request already claimed", detailsOK: true},
		{code: CodeGeolocationUnavailable, status: http.StatusUnprocessableEntity, publicMsg: "location unavailable"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeWalksChain(t *testing.T) {
	inner := New(CodeAlreadyClaimed, "taken")
	wrapped := fmt.Errorf("accept: %w", inner)
	if !IsCode(wrapped, CodeAlreadyClaimed) {
		t.Fatalf("expected IsCode to find wrapped code")
	}
	if IsCode(wrapped, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestDumpCollectsChainAndPGDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_users_email", TableName: "users"}
	err := fmt.Errorf("register: %w", Wrap(CodeConflict, pgErr, "email taken"))

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %q", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain links, got %v", dump.Chain)
	}
	if dump.PG == nil || dump.PG.Code != "23505" || dump.PG.Constraint != "ux_users_email" {
		t.Fatalf("unexpected pg diagnostics %+v", dump.PG)
	}

	if plain := Dump(stdErrors.New("boom")); plain.PG != nil || plain.Code != "" {
		t.Fatalf("unexpected dump for plain error %+v", plain)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Wrap(CodeDependency, stdErrors.New("redis down"), "cache")) {
		t.Fatalf("dependency errors should be retryable")
	}
	if IsRetryable(fmt.Errorf("accept: %w", New(CodeAlreadyClaimed, "taken"))) {
		t.Fatalf("claim conflicts are final")
	}
	if !IsRetryable(stdErrors.New("untyped")) {
		t.Fatalf("untyped errors count as internal")
	}
	if IsRetryable(nil) {
		t.Fatalf("nil is not a failure")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "load request")
	if got, want := err.Error(), "DEPENDENCY_ERROR: load request: dial tcp: refused"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := Newf(CodeNotFound, "request %d", 7).Error(); got != "NOT_FOUND: request 7" {
		t.Fatalf("unexpected %q", got)
	}
}
