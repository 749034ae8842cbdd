package enums

import (
	"sort"
	"testing"
)

func TestNormalizeRequestStatusSynonyms(t *testing.T) {
	tests := map[string]RequestStatus{
		"":                   RequestStatusActive,
		"  ":                 RequestStatusActive,
		"Pending":            RequestStatusActive,
		"OPEN":               RequestStatusActive,
		"available":          RequestStatusActive,
		"Approved":           RequestStatusAccepted,
		"taken":              RequestStatusAccepted,
		"In Progress":        RequestStatusAccepted,
		"shipped":            RequestStatusDelivered,
		" Out for delivery ": RequestStatusDelivered,
		"ready for pickup":   RequestStatusDelivered,
		"finished":           RequestStatusCompleted,
		"done":               RequestStatusCompleted,
		"fulfilled":          RequestStatusCompleted,
		"closed":             RequestStatusCompleted,
		"canceled":           RequestStatusCancelled,
		"rejected":           RequestStatusCancelled,
		"declined":           RequestStatusCancelled,
		"failed":             RequestStatusCancelled,
		"teleported":         RequestStatusUnknown,
	}
	for raw, want := range tests {
		if got := NormalizeRequestStatus(raw); got != want {
			t.Fatalf("NormalizeRequestStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeRequestStatusIdempotent(t *testing.T) {
	inputs := []string{"", "pending", "In Progress", "shipped", "done", "Canceled", "weird"}
	for _, raw := range inputs {
		once := NormalizeRequestStatus(raw)
		twice := NormalizeRequestStatus(string(once))
		if once != twice {
			t.Fatalf("normalization not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestRawRequestStatusesRoundTrip(t *testing.T) {
	for _, status := range validRequestStatuses {
		raws := RawRequestStatuses(status)
		if len(raws) == 0 {
			t.Fatalf("expected raw spellings for %s", status)
		}
		for _, raw := range raws {
			if got := NormalizeRequestStatus(raw); got != status {
				t.Fatalf("raw %q normalizes to %q, want %q", raw, got, status)
			}
		}
	}

	active := RawRequestStatuses(RequestStatusActive)
	sort.Strings(active)
	if active[0] != "" {
		t.Fatalf("expected empty status to be an active spelling, got %v", active)
	}
}

func TestParseRequestStatusRejectsSynonyms(t *testing.T) {
	if _, err := ParseRequestStatus("pending"); err == nil {
		t.Fatal("expected synonyms to be rejected by ParseRequestStatus")
	}
	if got, err := ParseRequestStatus("delivered"); err != nil || got != RequestStatusDelivered {
		t.Fatalf("unexpected parse result %q %v", got, err)
	}
	if !RequestStatusCancelled.IsTerminal() || RequestStatusAccepted.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}

func TestNormalizeClaimedRequestStatus(t *testing.T) {
	if got := NormalizeClaimedRequestStatus("", true); got != RequestStatusAccepted {
		t.Fatalf("empty claimed status: got %q", got)
	}
	if got := NormalizeClaimedRequestStatus("  ", false); got != RequestStatusActive {
		t.Fatalf("empty unclaimed status: got %q", got)
	}
	if got := NormalizeClaimedRequestStatus("Shipped", true); got != RequestStatusDelivered {
		t.Fatalf("explicit status should win: got %q", got)
	}
}
