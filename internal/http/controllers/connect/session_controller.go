package connect

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/authhub/authhub/internal/http/errors"
	"github.com/authhub/authhub/internal/http/helpers"
	svc "github.com/authhub/authhub/internal/http/services/connect"
	"github.com/authhub/authhub/internal/observability/logger"
)

// SessionController exposes the ephemeral client session to the asset picker.
type SessionController struct {
	service svc.SessionService
}

func NewSessionController(service svc.SessionService) *SessionController {
	return &SessionController{service: service}
}

// Get handles GET /v1/connect/sessions/{sessionID}
func (c *SessionController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing session id"))
		return
	}

	view, err := c.service.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, svc.ErrSessionGone) {
			httperrors.WriteError(w, httperrors.ErrSessionExpired)
			return
		}
		logger.From(ctx).Error("session read failed", logger.SessionID(sessionID), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, view)
}

type finalizeBody struct {
	AgencyID            string   `json:"agency_id"`
	ExternalAccountID   string   `json:"external_account_id"`
	ExternalAccountName string   `json:"external_account_name"`
	Scopes              []string `json:"scopes"`
}

// Finalize handles POST /v1/connect/sessions/{sessionID}/finalize
func (c *SessionController) Finalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SessionController.Finalize"))

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing session id"))
		return
	}

	var body finalizeBody
	if !helpers.ReadJSON(w, r, &body) {
		return
	}
	if body.AgencyID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("agency_id required"))
		return
	}
	if body.ExternalAccountID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("external_account_id required"))
		return
	}

	result, err := c.service.Finalize(ctx, svc.FinalizeRequest{
		SessionID:           sessionID,
		AgencyID:            body.AgencyID,
		ExternalAccountID:   body.ExternalAccountID,
		ExternalAccountName: body.ExternalAccountName,
		Scopes:              body.Scopes,
	})
	if err != nil {
		if errors.Is(err, svc.ErrSessionGone) {
			httperrors.WriteError(w, httperrors.ErrSessionExpired)
			return
		}
		log.Error("finalize failed", logger.SessionID(sessionID), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, map[string]string{"connection_id": result.ConnectionID})
}

// Cancel handles DELETE /v1/connect/sessions/{sessionID}
func (c *SessionController) Cancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing session id"))
		return
	}
	if err := c.service.Cancel(r.Context(), sessionID); err != nil {
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
