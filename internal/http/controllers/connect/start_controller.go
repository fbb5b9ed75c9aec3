package connect

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/authhub/authhub/internal/http/errors"
	svc "github.com/authhub/authhub/internal/http/services/connect"
	"github.com/authhub/authhub/internal/observability/logger"
)

// StartController handles the connect-start endpoint.
type StartController struct {
	service svc.StartService
}

func NewStartController(service svc.StartService) *StartController {
	return &StartController{service: service}
}

// baseURL rebuilds the public origin of this request, honoring proxies.
func baseURL(r *http.Request) string {
	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "https"
		if strings.HasPrefix(r.Host, "localhost") || strings.HasPrefix(r.Host, "127.0.0.1") {
			scheme = "http"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
	}
	return scheme + "://" + r.Host
}

// Start handles GET /v1/connect/{platform}/start
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	platform := chi.URLParam(r, "platform")
	if platform == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing platform"))
		return
	}

	accessRequestID := strings.TrimSpace(r.URL.Query().Get("access_request_id"))
	if accessRequestID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("access_request_id required"))
		return
	}

	redirectURI := baseURL(r) + "/v1/connect/" + platform + "/callback"

	result, err := c.service.Start(ctx, svc.StartRequest{
		Platform:        platform,
		AccessRequestID: accessRequestID,
		RedirectURI:     redirectURI,
	})
	if err != nil {
		log.Error("start failed", logger.Platform(platform), logger.Err(err))
		switch err {
		case svc.ErrStartUnknownPlatform:
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("unknown platform"))
		case svc.ErrStartRequestNotFound:
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("access request not found"))
		case svc.ErrStartRequestClosed:
			httperrors.WriteError(w, httperrors.ErrConflict.WithDetail("access request no longer pending"))
		default:
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	http.Redirect(w, r, result.RedirectURL, http.StatusFound)

	log.Debug("redirect to platform", logger.Platform(platform))
}
