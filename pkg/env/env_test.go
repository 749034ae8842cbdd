package env

import "testing"

func TestGetFallsBackWhenUnsetOrBlank(t *testing.T) {
	t.Setenv("PASABUY_ENV_TEST", "   ")
	if got := Get("PASABUY_ENV_TEST", "8080"); got != "8080" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("PASABUY_ENV_TEST", " 9000 ")
	if got := Get("PASABUY_ENV_TEST", "8080"); got != "9000" {
		t.Fatalf("expected trimmed env value, got %q", got)
	}
}

func TestFirstHonoursOrder(t *testing.T) {
	t.Setenv("PASABUY_ENV_A", "")
	t.Setenv("PASABUY_ENV_B", "b")
	t.Setenv("PASABUY_ENV_C", "c")
	if got := First("x", "PASABUY_ENV_A", "PASABUY_ENV_B", "PASABUY_ENV_C"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := First("x"); got != "x" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
