package controllers

import (
	"context"
	stdErrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/api/middleware"
	"github.com/pasabuy/pasabuy-backend/api/responses"
	"github.com/pasabuy/pasabuy-backend/api/validators"
	pkgAuth "github.com/pasabuy/pasabuy-backend/pkg/auth"
	"github.com/pasabuy/pasabuy-backend/pkg/auth/session"
	"github.com/pasabuy/pasabuy-backend/pkg/config"
	"github.com/pasabuy/pasabuy-backend/pkg/errors"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

type sessionTokenRotator interface {
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (session.Pair, error)
	Revoke(ctx context.Context, accessID string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"notblank"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// sessionClaims reads the bearer token without enforcing expiry: logout and
// refresh are exactly the calls made with a stale access token.
func sessionClaims(r *http.Request, cfg config.JWTConfig) (*pkgAuth.AccessTokenClaims, error) {
	token := middleware.BearerToken(r)
	if token == "" {
		return nil, errors.New(errors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, errors.New(errors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

// AuthLogout revokes the refresh session tied to the presented access token.
func AuthLogout(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		claims, err := sessionClaims(r, cfg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := manager.Revoke(ctx, claims.ID); err != nil {
			responses.WriteError(ctx, logg, w, errors.Wrap(errors.CodeDependency, err, "revoke session"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh spends the refresh token and returns a new access/refresh pair.
func AuthRefresh(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		claims, err := sessionClaims(r, cfg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := manager.Rotate(ctx, claims.ID, claims.UserID, body.RefreshToken)
		switch {
		case stdErrors.Is(err, session.ErrInvalidRefreshToken):
			responses.WriteError(ctx, logg, w, errors.New(errors.CodeUnauthorized, "invalid refresh token"))
			return
		case err != nil:
			responses.WriteError(ctx, logg, w, errors.Wrap(errors.CodeDependency, err, "rotate session"))
			return
		}

		accessToken, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
			UserID: claims.UserID,
			Role:   claims.Role,
			JTI:    pair.AccessID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, errors.Wrap(errors.CodeInternal, err, "mint jwt"))
			return
		}

		w.Header().Set(TokenHeader, accessToken)
		responses.WriteSuccess(w, refreshResponse{AccessToken: accessToken, RefreshToken: pair.RefreshToken})
	}
}
