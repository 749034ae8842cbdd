package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/pasabuy/pasabuy-backend/api/responses"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour

	// how long an in-flight marker survives a crashed handler
	inflightTTL = time.Minute

	idempotencyHeader = "Idempotency-Key"
)

// ReplayStore is the redis surface the replay cache needs.
type ReplayStore interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Del(context.Context, ...string) error
	IdempotencyKey(scope, id string) string
}

// replayable maps "METHOD template" to the retention of stored responses.
// Template segments in braces match any single path segment.
var replayable = map[string]time.Duration{
	"POST /api/v1/auth/register":           defaultIdempotencyTTL,
	"POST /api/v1/requests":                defaultIdempotencyTTL,
	"POST /api/v1/chats/{id}/messages":     defaultIdempotencyTTL,
	"POST /api/v1/notifications/{id}/read": defaultIdempotencyTTL,
	"POST /api/v1/notifications/read-all":  defaultIdempotencyTTL,
	"POST /api/v1/requests/{id}/accept":    criticalIdempotencyTTL,
	"POST /api/v1/requests/{id}/deliver":   criticalIdempotencyTTL,
	"POST /api/v1/requests/{id}/confirm":   criticalIdempotencyTTL,
	"POST /api/v1/requests/{id}/cancel":    criticalIdempotencyTTL,
	"POST /api/v1/requests/{id}/report":    criticalIdempotencyTTL,
}

type entryState string

const (
	entryInflight entryState = "inflight"
	entryDone     entryState = "done"
)

type replayEntry struct {
	State       entryState `json:"state"`
	RequestHash string     `json:"request_hash"`
	Status      int        `json:"status,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	Body        []byte     `json:"body,omitempty"`
}

// Idempotency replays the stored response when a client retries a mutating
// call with the same Idempotency-Key. Calls without the header pass through.
// A retry that arrives while the first attempt is still running gets 409.
func Idempotency(store ReplayStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ttl, ok := routeTTL(r.Method, routePattern(r))
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !ok || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashBody(body)
			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)

			marker, _ := json.Marshal(replayEntry{State: entryInflight, RequestHash: hash})
			acquired, err := store.SetNX(ctx, key, string(marker), inflightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !acquired {
				replayExisting(ctx, store, logg, w, key, hash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			stored := false
			defer func() {
				if !stored {
					if delErr := store.Del(context.WithoutCancel(ctx), key); delErr != nil && logg != nil {
						logg.Error(ctx, "release idempotency marker", delErr)
					}
				}
			}()

			next.ServeHTTP(capture, r)
			status := capture.statusCode()
			if status >= http.StatusInternalServerError {
				return
			}

			entry, _ := json.Marshal(replayEntry{
				State:       entryDone,
				RequestHash: hash,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(context.WithoutCancel(ctx), key, string(entry), ttl); err != nil {
				if logg != nil {
					logg.Error(ctx, "persist idempotency record", err)
				}
				return
			}
			stored = true
		})
	}
}

func replayExisting(ctx context.Context, store ReplayStore, logg *logger.Logger, w http.ResponseWriter, key, hash string) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// the first attempt finished with a 5xx between our SetNX and Get
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request is being retried, try again"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	var entry replayEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case entry.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case entry.State != entryDone:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
	default:
		if entry.ContentType != "" {
			w.Header().Set("Content-Type", entry.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(entry.Status)
		_, _ = w.Write(entry.Body)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// routePattern prefers the chi pattern; group middleware only sees a partial
// pattern ending in "/*", so it falls back to the concrete path.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" && !strings.Contains(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, path string) (time.Duration, bool) {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return 0, false
	}
	for rule, ttl := range replayable {
		ruleMethod, template, _ := strings.Cut(rule, " ")
		if ruleMethod == method && matchTemplate(template, path) {
			return ttl, true
		}
	}
	return 0, false
}

func matchTemplate(template, path string) bool {
	want := strings.Split(template, "/")
	got := strings.Split(path, "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
