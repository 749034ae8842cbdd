package enums

import "strings"

// RequestStatus is the canonical lifecycle state of a pasabuy request.
type RequestStatus string

const (
	RequestStatusActive    RequestStatus = "active"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusDelivered RequestStatus = "delivered"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"

	// RequestStatusUnknown is what unrecognised stored text normalizes to.
	// No transition accepts it and no listing filter matches it.
	RequestStatusUnknown RequestStatus = "unknown"
)

var validRequestStatuses = members[RequestStatus]{
	RequestStatusActive,
	RequestStatusAccepted,
	RequestStatusDelivered,
	RequestStatusCompleted,
	RequestStatusCancelled,
}

var requestStatusSynonyms = map[string]RequestStatus{
	"active":    RequestStatusActive,
	"pending":   RequestStatusActive,
	"open":      RequestStatusActive,
	"available": RequestStatusActive,

	"accepted":    RequestStatusAccepted,
	"approved":    RequestStatusAccepted,
	"taken":       RequestStatusAccepted,
	"in progress": RequestStatusAccepted,

	"delivered":        RequestStatusDelivered,
	"shipped":          RequestStatusDelivered,
	"out for delivery": RequestStatusDelivered,
	"ready for pickup": RequestStatusDelivered,

	"completed": RequestStatusCompleted,
	"finished":  RequestStatusCompleted,
	"done":      RequestStatusCompleted,
	"fulfilled": RequestStatusCompleted,
	"closed":    RequestStatusCompleted,

	"cancelled": RequestStatusCancelled,
	"canceled":  RequestStatusCancelled,
	"rejected":  RequestStatusCancelled,
	"declined":  RequestStatusCancelled,
	"failed":    RequestStatusCancelled,
}

// NormalizeRequestStatus maps raw stored status text onto a canonical state.
// Empty text is an unset record and counts as active.
func NormalizeRequestStatus(raw string) RequestStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return RequestStatusActive
	}
	if status, ok := requestStatusSynonyms[key]; ok {
		return status
	}
	return RequestStatusUnknown
}

// NormalizeClaimedRequestStatus is NormalizeRequestStatus for a record whose
// claim is known: empty text on a claimed record reads as accepted.
func NormalizeClaimedRequestStatus(raw string, claimed bool) RequestStatus {
	if claimed && strings.TrimSpace(raw) == "" {
		return RequestStatusAccepted
	}
	return NormalizeRequestStatus(raw)
}

// RawRequestStatuses returns every stored spelling that normalizes to status,
// including the empty string for active. Used to build SQL IN filters.
func RawRequestStatuses(status RequestStatus) []string {
	out := []string{}
	if status == RequestStatusActive {
		out = append(out, "")
	}
	for raw, canonical := range requestStatusSynonyms {
		if canonical == status {
			out = append(out, raw)
		}
	}
	return out
}

func (s RequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is one of the five canonical states.
func (s RequestStatus) IsValid() bool { return validRequestStatuses.has(s) }

// IsTerminal reports whether no further transition leaves the state.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

// ParseRequestStatus accepts canonical names only.
func ParseRequestStatus(value string) (RequestStatus, error) {
	return validRequestStatuses.parse("request status", value)
}
