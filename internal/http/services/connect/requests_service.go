package connect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/authhub/authhub/internal/connectors"
	"github.com/authhub/authhub/internal/email"
	"github.com/authhub/authhub/internal/observability/logger"
	"github.com/authhub/authhub/internal/store/core"
	"github.com/authhub/authhub/internal/util"
)

var (
	ErrRequestInvalidEmail    = errors.New("access request: invalid client email")
	ErrRequestNoPlatforms     = errors.New("access request: at least one platform required")
	ErrRequestUnknownPlatform = errors.New("access request: unknown platform")
	ErrRequestNotFound        = errors.New("access request: not found")
)

// CreateAccessRequest is an agency asking a client to share access.
type CreateAccessRequest struct {
	AgencyID    string
	AgencyName  string
	ClientEmail string
	Platforms   []string
	// KitTeamJoinURL, when set and "kit" is requested, switches the Kit
	// invitation to the team-membership flow: the client joins the agency's
	// Kit team instead of granting an OAuth token. The OAuth connector
	// stays available as a fallback path.
	KitTeamJoinURL string
}

type AccessRequestResult struct {
	ID          string
	ConnectURLs map[string]string // platform -> connect start URL
}

// RequestsService creates access requests and sends the invitations.
type RequestsService interface {
	Create(ctx context.Context, req CreateAccessRequest) (*AccessRequestResult, error)
	Get(ctx context.Context, id string) (*core.AccessRequest, error)
	Cancel(ctx context.Context, id string) error
}

type requestsService struct {
	store       core.Store
	invitations *email.Invitations
	baseURL     string
}

// NewRequestsService builds the service. invitations may be nil; then no
// emails are sent and the agency shares the connect URLs itself.
func NewRequestsService(st core.Store, invitations *email.Invitations, baseURL string) RequestsService {
	return &requestsService{store: st, invitations: invitations, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *requestsService) Create(ctx context.Context, req CreateAccessRequest) (*AccessRequestResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("CreateAccessRequest"))

	addr := strings.TrimSpace(req.ClientEmail)
	if addr == "" || !strings.Contains(addr, "@") {
		return nil, ErrRequestInvalidEmail
	}
	if len(req.Platforms) == 0 {
		return nil, ErrRequestNoPlatforms
	}
	for _, p := range req.Platforms {
		if _, err := connectors.ParsePlatform(p); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrRequestUnknownPlatform, p)
		}
	}

	ar := &core.AccessRequest{
		ID:          uuid.NewString(),
		AgencyID:    req.AgencyID,
		ClientEmail: addr,
		Platforms:   req.Platforms,
		Status:      core.AccessRequestPending,
	}
	if err := s.store.CreateAccessRequest(ctx, ar); err != nil {
		return nil, fmt.Errorf("create access request: %w", err)
	}

	urls := make(map[string]string, len(req.Platforms))
	for _, p := range req.Platforms {
		link := fmt.Sprintf("%s/v1/connect/%s/start?access_request_id=%s",
			s.baseURL, p, url.QueryEscape(ar.ID))
		if p == string(connectors.PlatformKit) && req.KitTeamJoinURL != "" {
			link = req.KitTeamJoinURL
		}
		urls[p] = link

		if s.invitations != nil {
			if err := s.invitations.SendAccessRequest(addr, email.InvitationVars{
				AgencyName: req.AgencyName,
				Platform:   p,
				Link:       link,
			}); err != nil {
				// a bounced invite doesn't invalidate the request; the URLs
				// are returned so the agency can re-share them
				log.Warn("invitation send failed",
					logger.Platform(p),
					logger.Email(util.MaskEmail(addr)),
					logger.Err(err),
				)
			}
		}
	}

	log.Info("access request created",
		logger.AccessRequestID(ar.ID),
		logger.AgencyID(req.AgencyID),
		logger.Count(len(req.Platforms)),
	)
	return &AccessRequestResult{ID: ar.ID, ConnectURLs: urls}, nil
}

func (s *requestsService) Get(ctx context.Context, id string) (*core.AccessRequest, error) {
	ar, err := s.store.GetAccessRequest(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	return ar, err
}

func (s *requestsService) Cancel(ctx context.Context, id string) error {
	err := s.store.UpdateAccessRequestStatus(ctx, id, core.AccessRequestCancelled)
	if errors.Is(err, core.ErrNotFound) {
		return ErrRequestNotFound
	}
	return err
}
