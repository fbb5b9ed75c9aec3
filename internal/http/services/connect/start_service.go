package connect

import (
	"context"
	"errors"
	"fmt"

	"github.com/authhub/authhub/internal/connectors"
	"github.com/authhub/authhub/internal/observability/logger"
	"github.com/authhub/authhub/internal/security/tokens"
	"github.com/authhub/authhub/internal/store/core"
)

var (
	ErrStartUnknownPlatform = errors.New("start: unknown platform")
	ErrStartRequestNotFound = errors.New("start: access request not found")
	ErrStartRequestClosed   = errors.New("start: access request no longer pending")
)

// StartRequest begins the connect flow for one platform of an access request.
type StartRequest struct {
	Platform        string
	AccessRequestID string
	RedirectURI     string // callback URL, derived from the service base URL
}

type StartResult struct {
	RedirectURL string
}

// StartService builds the platform authorization redirect.
type StartService interface {
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
}

type startService struct {
	registry *connectors.Registry
	store    core.Store
	signer   StateSigner
}

func NewStartService(registry *connectors.Registry, st core.Store, signer StateSigner) StartService {
	return &startService{registry: registry, store: st, signer: signer}
}

func (s *startService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Start"))

	platform, err := connectors.ParsePlatform(req.Platform)
	if err != nil {
		return nil, ErrStartUnknownPlatform
	}

	ar, err := s.store.GetAccessRequest(ctx, req.AccessRequestID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrStartRequestNotFound
		}
		return nil, fmt.Errorf("load access request: %w", err)
	}
	if ar.Status != core.AccessRequestPending {
		return nil, ErrStartRequestClosed
	}

	conn, err := s.registry.Get(platform)
	if err != nil {
		return nil, err
	}

	nonce, err := tokens.GenerateOpaqueToken(16)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	state, err := s.signer.SignState(StateClaims{
		Platform:        string(platform),
		AccessRequestID: ar.ID,
		ClientEmail:     ar.ClientEmail,
		Nonce:           nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("sign state: %w", err)
	}

	// nil scopes: each connector falls back to its platform defaults
	authURL, err := conn.AuthURL(ctx, state, nil, req.RedirectURI)
	if err != nil {
		return nil, err
	}

	log.Debug("authorization redirect built",
		logger.Platform(string(platform)),
		logger.AccessRequestID(ar.ID),
	)
	return &StartResult{RedirectURL: authURL}, nil
}
