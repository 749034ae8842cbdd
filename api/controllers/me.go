package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/api/middleware"
	"github.com/pasabuy/pasabuy-backend/api/responses"
	"github.com/pasabuy/pasabuy-backend/api/validators"
	"github.com/pasabuy/pasabuy-backend/internal/users"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

type profileService interface {
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, input users.UpdateProfileInput) (*users.UserDTO, error)
}

func GetMe(svc profileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.AuthenticatedUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Me(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// UpdateMe patches the caller's display name, photo or phone.
func UpdateMe(svc profileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.AuthenticatedUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body users.UpdateProfileInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.UpdateMe(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
