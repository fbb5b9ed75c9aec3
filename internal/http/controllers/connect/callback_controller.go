package connect

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/authhub/authhub/internal/http/errors"
	svc "github.com/authhub/authhub/internal/http/services/connect"
	"github.com/authhub/authhub/internal/observability/logger"
)

// CallbackController handles the platform redirect back to us.
type CallbackController struct {
	service svc.CallbackService
	// errorURL receives the client when the platform reports a denial;
	// empty means respond with JSON instead.
	errorURL string
}

func NewCallbackController(service svc.CallbackService, errorURL string) *CallbackController {
	return &CallbackController{service: service, errorURL: errorURL}
}

// Callback handles GET /v1/connect/{platform}/callback
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	platform := chi.URLParam(r, "platform")
	if platform == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing platform"))
		return
	}

	q := r.URL.Query()

	// a denial arrives as error params, not a code
	if platformErr := strings.TrimSpace(q.Get("error")); platformErr != "" {
		desc := strings.TrimSpace(q.Get("error_description"))
		log.Warn("platform returned error",
			logger.Platform(platform),
			logger.String("error", platformErr),
			logger.String("description", desc),
		)
		c.redirectError(w, r, platform, platformErr, desc)
		return
	}

	state := strings.TrimSpace(q.Get("state"))
	code := strings.TrimSpace(q.Get("code"))
	if state == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("state required"))
		return
	}
	if code == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("code required"))
		return
	}

	redirectURI := baseURL(r) + "/v1/connect/" + platform + "/callback"

	result, err := c.service.Callback(ctx, svc.CallbackRequest{
		Platform:    platform,
		State:       state,
		Code:        code,
		RedirectURI: redirectURI,
	})
	if err != nil {
		log.Error("callback failed", logger.Platform(platform), logger.Err(err))
		switch {
		case errors.Is(err, svc.ErrCallbackInvalidState):
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid state"))
		case errors.Is(err, svc.ErrCallbackExpiredState):
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("state expired, restart the flow"))
		case errors.Is(err, svc.ErrCallbackPlatformMismatch):
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("platform mismatch"))
		case errors.Is(err, svc.ErrCallbackExchangeFailed):
			httperrors.WriteError(w, httperrors.ErrUpstreamExchange)
		default:
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	if result.RedirectURL != "" {
		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"session_id":"` + result.SessionID + `"}`))
}

func (c *CallbackController) redirectError(w http.ResponseWriter, r *http.Request, platform, code, desc string) {
	if c.errorURL == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("authorization denied: "+code))
		return
	}
	u, err := url.Parse(c.errorURL)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	q := u.Query()
	q.Set("platform", platform)
	q.Set("error", code)
	if desc != "" {
		q.Set("error_description", desc)
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}
