package controllers

import (
	"context"
	"net/http"

	"github.com/pasabuy/pasabuy-backend/api/responses"
	"github.com/pasabuy/pasabuy-backend/api/validators"
	"github.com/pasabuy/pasabuy-backend/internal/auth"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

// TokenHeader mirrors the access token for clients that read headers.
const TokenHeader = "X-PB-Token"

// AuthLogin exchanges email and password for a token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return signIn(svc.Login, http.StatusOK, logg)
}

// AuthRegister creates a requester or pasabuyer account and signs it in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return signIn(svc.Register, http.StatusCreated, logg)
}

// signIn decodes Req, runs call, and returns the issued tokens in both the
// body and TokenHeader.
func signIn[Req any](call func(context.Context, Req) (*auth.LoginResponse, error), status int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body Req
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := call(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set(TokenHeader, result.AccessToken)
		responses.WriteSuccessStatus(w, status, result)
	}
}
