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

// RequestsController manages agency access requests.
type RequestsController struct {
	service svc.RequestsService
}

func NewRequestsController(service svc.RequestsService) *RequestsController {
	return &RequestsController{service: service}
}

type createRequestBody struct {
	AgencyID       string   `json:"agency_id"`
	AgencyName     string   `json:"agency_name"`
	ClientEmail    string   `json:"client_email"`
	Platforms      []string `json:"platforms"`
	KitTeamJoinURL string   `json:"kit_team_join_url,omitempty"`
}

// Create handles POST /v1/access-requests
func (c *RequestsController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RequestsController.Create"))

	var body createRequestBody
	if !helpers.ReadJSON(w, r, &body) {
		return
	}
	if body.AgencyID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("agency_id required"))
		return
	}

	result, err := c.service.Create(ctx, svc.CreateAccessRequest{
		AgencyID:       body.AgencyID,
		AgencyName:     body.AgencyName,
		ClientEmail:    body.ClientEmail,
		Platforms:      body.Platforms,
		KitTeamJoinURL: body.KitTeamJoinURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrRequestInvalidEmail):
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid client email"))
		case errors.Is(err, svc.ErrRequestNoPlatforms):
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("at least one platform required"))
		case errors.Is(err, svc.ErrRequestUnknownPlatform):
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail(err.Error()))
		default:
			log.Error("create access request failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":           result.ID,
		"connect_urls": result.ConnectURLs,
	})
}

// Get handles GET /v1/access-requests/{requestID}
func (c *RequestsController) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestID")
	if id == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing request id"))
		return
	}

	ar, err := c.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, svc.ErrRequestNotFound) {
			httperrors.WriteError(w, httperrors.ErrNotFound)
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"id":           ar.ID,
		"agency_id":    ar.AgencyID,
		"client_email": ar.ClientEmail,
		"platforms":    ar.Platforms,
		"status":       ar.Status,
		"created_at":   ar.CreatedAt,
	})
}

// Cancel handles DELETE /v1/access-requests/{requestID}
func (c *RequestsController) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestID")
	if id == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing request id"))
		return
	}
	if err := c.service.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, svc.ErrRequestNotFound) {
			httperrors.WriteError(w, httperrors.ErrNotFound)
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
