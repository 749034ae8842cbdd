package redis

import "strings"

// Every key and channel the platform touches lives under "pb:".
const keyNamespace = "pb"

const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	sessionPrefix     = "session"
	changesPrefix     = "changes"
	presencePrefix    = "presence"
)

// key joins non-empty parts under the namespace.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// IdempotencyKey namespaces a client-supplied idempotency key within scope.
func (c *Client) IdempotencyKey(scope, id string) string {
	return key(idempotencyPrefix, scope, id)
}

// RateLimitKey names the counter of one rate-limit window.
func (c *Client) RateLimitKey(scope string) string {
	return key(rateLimitPrefix, scope)
}

// AccessSessionKey names the refresh record bound to an access token id.
func (c *Client) AccessSessionKey(accessID string) string {
	return key(sessionPrefix, "access", accessID)
}

// RequestChangesChannel carries every request create/update/delete.
func (c *Client) RequestChangesChannel() string {
	return key(changesPrefix, "requests")
}

// ThreadChangesChannel carries new messages and reads for one chat thread.
func (c *Client) ThreadChangesChannel(threadID string) string {
	return key(changesPrefix, "thread", threadID)
}

// PresenceGeocodeKey caches a reverse geocode for a rounded coordinate.
func (c *Client) PresenceGeocodeKey(coord string) string {
	return key(presencePrefix, "geocode", coord)
}
