package connect

import (
	"errors"
	"net/http"

	"github.com/authhub/authhub/internal/connectors"
	httperrors "github.com/authhub/authhub/internal/http/errors"
	"github.com/authhub/authhub/internal/http/helpers"
	svc "github.com/authhub/authhub/internal/http/services/connect"
	"github.com/authhub/authhub/internal/observability/logger"
)

// VerifyController answers token and access verification queries.
type VerifyController struct {
	service svc.VerifyService
}

func NewVerifyController(service svc.VerifyService) *VerifyController {
	return &VerifyController{service: service}
}

type verifyTokenBody struct {
	Platform    string `json:"platform"`
	AccessToken string `json:"access_token"`
}

// VerifyToken handles POST /v1/verify/token
func (c *VerifyController) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var body verifyTokenBody
	if !helpers.ReadJSON(w, r, &body) {
		return
	}
	if body.Platform == "" || body.AccessToken == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("platform and access_token required"))
		return
	}

	valid, err := c.service.VerifyToken(r.Context(), body.Platform, body.AccessToken)
	if err != nil {
		if errors.Is(err, svc.ErrVerifyUnknownPlatform) {
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("unknown platform"))
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

type verifyAccessBody struct {
	Platform      string `json:"platform"`
	AgencyToken   string `json:"agency_token"`
	ClientEmail   string `json:"client_email,omitempty"`
	ClientBizID   string `json:"client_business_id,omitempty"`
	RequiredLevel string `json:"required_level,omitempty"`
}

// VerifyAccess handles POST /v1/verify/access
func (c *VerifyController) VerifyAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("VerifyController.VerifyAccess"))

	var body verifyAccessBody
	if !helpers.ReadJSON(w, r, &body) {
		return
	}
	if body.Platform == "" || body.AgencyToken == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("platform and agency_token required"))
		return
	}
	if body.ClientEmail == "" && body.ClientBizID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("client_email or client_business_id required"))
		return
	}

	result, err := c.service.VerifyAccess(ctx, svc.VerifyAccessRequest{
		Platform:      body.Platform,
		AgencyToken:   body.AgencyToken,
		ClientEmail:   body.ClientEmail,
		ClientBizID:   body.ClientBizID,
		RequiredLevel: connectors.AccessLevel(body.RequiredLevel),
	})
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrVerifyUnknownPlatform):
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("unknown platform"))
		case errors.Is(err, svc.ErrVerifyNotSupported):
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("platform has no access-verification API"))
		default:
			log.Error("verify access failed", logger.Platform(body.Platform), logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrUpstreamExchange.WithDetail("platform query failed"))
		}
		return
	}

	helpers.WriteJSON(w, http.StatusOK, result)
}
