package connect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/authhub/authhub/internal/metrics"
	"github.com/authhub/authhub/internal/observability/logger"
	"github.com/authhub/authhub/internal/session"
	"github.com/authhub/authhub/internal/store/core"
)

var ErrSessionGone = errors.New("session: expired or missing")

// SessionView is what the asset-picker UI may see. Tokens stay server-side.
type SessionView struct {
	SessionID       string     `json:"session_id"`
	AccessRequestID string     `json:"access_request_id"`
	Platform        string     `json:"platform"`
	ClientEmail     string     `json:"client_email"`
	ExpiresIn       int64      `json:"expires_in_seconds"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
}

// FinalizeRequest completes a session: the client picked assets, so the
// connection becomes durable and the session dies.
type FinalizeRequest struct {
	SessionID           string
	AgencyID            string
	ExternalAccountID   string
	ExternalAccountName string
	Scopes              []string
}

type FinalizeResult struct {
	ConnectionID string
}

// SessionService reads and completes ephemeral client sessions.
type SessionService interface {
	Get(ctx context.Context, sessionID string) (*SessionView, error)
	Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error)
	Cancel(ctx context.Context, sessionID string) error
}

type sessionService struct {
	sessions *session.Store
	store    core.Store
}

func NewSessionService(sessions *session.Store, st core.Store) SessionService {
	return &sessionService{sessions: sessions, store: st}
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*SessionView, error) {
	data, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		metrics.SessionsExpiredLookups.Inc()
		return nil, ErrSessionGone
	}

	view := &SessionView{
		SessionID:       data.SessionID,
		AccessRequestID: data.AccessRequestID,
		Platform:        data.Platform,
		ClientEmail:     data.ClientEmail,
		TokenExpiresAt:  data.ExpiresAt,
	}
	if ttl, err := s.sessions.TTL(ctx, sessionID); err == nil && ttl != nil {
		view.ExpiresIn = int64(ttl.Seconds())
	}
	return view, nil
}

func (s *sessionService) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Finalize"))

	data, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		metrics.SessionsExpiredLookups.Inc()
		return nil, ErrSessionGone
	}

	conn := &core.Connection{
		ID:                  uuid.NewString(),
		AgencyID:            req.AgencyID,
		Platform:            data.Platform,
		ExternalAccountID:   req.ExternalAccountID,
		ExternalAccountName: req.ExternalAccountName,
		Scopes:              req.Scopes,
		Status:              core.ConnectionActive,
	}
	if data.ExpiresAt != nil {
		conn.TokenExpiresAt = *data.ExpiresAt
	}
	if err := s.store.CreateConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	if err := s.store.UpdateAccessRequestStatus(ctx, data.AccessRequestID, core.AccessRequestGranted); err != nil && !errors.Is(err, core.ErrNotFound) {
		log.Warn("access request status update failed",
			logger.AccessRequestID(data.AccessRequestID), logger.Err(err))
	}

	// session is done; the token has been handed over
	if err := s.sessions.Delete(ctx, req.SessionID); err != nil {
		log.Warn("session delete failed", logger.SessionID(req.SessionID), logger.Err(err))
	}

	log.Info("connection established",
		logger.Platform(data.Platform),
		logger.AgencyID(req.AgencyID),
		logger.AccessRequestID(data.AccessRequestID),
	)
	return &FinalizeResult{ConnectionID: conn.ID}, nil
}

func (s *sessionService) Cancel(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}
