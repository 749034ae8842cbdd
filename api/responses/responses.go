// Package responses writes the JSON envelopes shared by every handler.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

// WriteError maps err onto its code's status and public message. Internal
// causes never reach the body; they go to the log with the pg diagnostics.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := APIError{
		Code:      string(typed.Code()),
		Message:   publicMessage(typed, meta),
		RequestID: requestIDFrom(ctx),
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		logError(ctx, logg, err, meta)
	}
	writeJSON(w, meta.HTTPStatus, ErrorEnvelope{Error: body})
}

// publicMessage keeps the caller-facing text for client errors and the
// generic text for anything retryable on the server side.
func publicMessage(typed *pkgerrors.Error, meta pkgerrors.Metadata) string {
	if meta.HTTPStatus >= http.StatusInternalServerError && typed.Code() != pkgerrors.CodeDependency {
		return meta.PublicMessage
	}
	if msg := typed.Message(); msg != "" {
		return msg
	}
	return meta.PublicMessage
}

func logError(ctx context.Context, logg *logger.Logger, err error, meta pkgerrors.Metadata) {
	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
		"status":      meta.HTTPStatus,
	}
	if dump.PG != nil {
		fields["pg"] = dump.PG
	}
	ctx = logg.WithFields(ctx, fields)
	if meta.HTTPStatus < http.StatusInternalServerError {
		logg.Warn(ctx, "request.rejected: "+dump.TopMessage)
		return
	}
	logg.Error(ctx, "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Int("status", status).Msg("encode response")
	}
}
