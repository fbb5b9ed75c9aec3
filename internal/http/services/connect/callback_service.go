package connect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/authhub/authhub/internal/connectors"
	"github.com/authhub/authhub/internal/metrics"
	"github.com/authhub/authhub/internal/observability/logger"
	"github.com/authhub/authhub/internal/session"
)

var (
	ErrCallbackInvalidState     = errors.New("callback: invalid state")
	ErrCallbackExpiredState     = errors.New("callback: expired state")
	ErrCallbackPlatformMismatch = errors.New("callback: platform mismatch")
	ErrCallbackExchangeFailed   = errors.New("callback: code exchange failed")
)

// CallbackRequest carries what the platform sent back to the redirect URI.
type CallbackRequest struct {
	Platform    string
	State       string
	Code        string
	RedirectURI string // must match the one used at start
}

type CallbackResult struct {
	SessionID   string
	RedirectURL string // asset-picker UI, session id attached
}

// CallbackService finishes the authorization: exchange the code, stash the
// token in an ephemeral session, hand the token to the sink.
type CallbackService interface {
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

type callbackService struct {
	registry *connectors.Registry
	sessions *session.Store
	signer   StateSigner
	sink     TokenSink
	// pickerURL is where the client lands to choose which assets to share.
	pickerURL string
}

func NewCallbackService(registry *connectors.Registry, sessions *session.Store, signer StateSigner, sink TokenSink, pickerURL string) CallbackService {
	if sink == nil {
		sink = LogSink{}
	}
	return &callbackService{
		registry:  registry,
		sessions:  sessions,
		signer:    signer,
		sink:      sink,
		pickerURL: pickerURL,
	}
}

func (s *callbackService) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Callback"))

	claims, err := s.signer.ParseState(req.State)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			return nil, ErrCallbackExpiredState
		}
		return nil, ErrCallbackInvalidState
	}
	if claims.Platform != req.Platform {
		return nil, ErrCallbackPlatformMismatch
	}

	platform, err := connectors.ParsePlatform(req.Platform)
	if err != nil {
		return nil, ErrCallbackInvalidState
	}
	conn, err := s.registry.Get(platform)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	token, err := conn.ExchangeCode(ctx, req.Code, req.RedirectURI, req.State)
	metrics.ExchangeDuration.WithLabelValues(string(platform)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExchangesTotal.WithLabelValues(string(platform), "error").Inc()
		log.Error("code exchange failed", logger.Platform(string(platform)), logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrCallbackExchangeFailed, err)
	}
	metrics.ExchangesTotal.WithLabelValues(string(platform), "ok").Inc()

	// Identity is best effort: some tokens lack profile scopes, and the
	// asset picker works without a display name.
	user, err := conn.GetUserInfo(ctx, token.AccessToken)
	if err != nil {
		log.Warn("user info fetch failed", logger.Platform(string(platform)), logger.Err(err))
		user = nil
	}

	data := session.Data{
		AccessRequestID: claims.AccessRequestID,
		Platform:        string(platform),
		AccessToken:     token.AccessToken,
		RefreshToken:    token.RefreshToken,
		ClientEmail:     claims.ClientEmail,
	}
	if !token.ExpiresAt.IsZero() {
		exp := token.ExpiresAt
		data.ExpiresAt = &exp
	}
	sessionID, err := s.sessions.Create(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	metrics.SessionsCreatedTotal.Inc()

	if err := s.sink.Deliver(ctx, TokenDelivery{
		Platform:        platform,
		AccessRequestID: claims.AccessRequestID,
		Token:           token,
		User:            user,
	}); err != nil {
		// the session already holds the token; sink failure must not kill the flow
		log.Error("token sink delivery failed", logger.Platform(string(platform)), logger.Err(err))
	}

	redirect := s.pickerURL
	if redirect != "" {
		u, perr := url.Parse(redirect)
		if perr == nil {
			q := u.Query()
			q.Set("session_id", sessionID)
			q.Set("platform", string(platform))
			u.RawQuery = q.Encode()
			redirect = u.String()
		}
	}

	log.Info("authorization completed",
		logger.Platform(string(platform)),
		logger.AccessRequestID(claims.AccessRequestID),
		logger.SessionID(sessionID),
	)
	return &CallbackResult{SessionID: sessionID, RedirectURL: redirect}, nil
}
