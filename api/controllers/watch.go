package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pasabuy/pasabuy-backend/api/middleware"
	"github.com/pasabuy/pasabuy-backend/api/responses"
	"github.com/pasabuy/pasabuy-backend/pkg/changefeed"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

const (
	watchPingInterval = 30 * time.Second
	watchPongWait     = 60 * time.Second
	watchWriteWait    = 10 * time.Second
	watchReadLimit    = 512
)

type threadLister interface {
	ParticipantThreadIDs(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// NewWatchUpgrader builds the websocket upgrader. An empty or wildcard origin
// list accepts any origin.
func NewWatchUpgrader(origins []string) *websocket.Upgrader {
	allowed := map[string]struct{}{}
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}
	_, wildcard := allowed["*"]
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || wildcard || len(allowed) == 0 {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// Watch streams request and chat change events to the caller over a
// websocket. Clients re-read the affected resource when an event arrives.
func Watch(source changefeed.Source, threads threadLister, upgrader *websocket.Upgrader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.AuthenticatedUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if source == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "change feed unavailable"))
			return
		}

		threadIDs, err := threads.ParticipantThreadIDs(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied with an HTTP error.
			logg.Warn(r.Context(), "watch.upgrade_failed: "+err.Error())
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub, err := changefeed.Watch(ctx, source, threadIDs, logg)
		if err != nil {
			logg.Error(ctx, "watch.subscribe_failed", err)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
				time.Now().Add(watchWriteWait))
			return
		}
		defer sub.Close()

		logg.Info(ctx, "watch.connected")
		go readUntilClosed(conn, cancel)
		writeEvents(ctx, conn, sub.Events(), userID)
		logg.Info(ctx, "watch.disconnected")
	}
}

// readUntilClosed drains client frames so pongs and close frames are handled.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(watchReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeEvents(ctx context.Context, conn *websocket.Conn, events <-chan changefeed.ChangeEvent, userID uuid.UUID) {
	ticker := time.NewTicker(watchPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(watchWriteWait))
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteJSON(event.VisibleTo(userID)); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteWait)); err != nil {
				return
			}
		}
	}
}
