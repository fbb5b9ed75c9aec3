package connect

import (
	"context"
	"errors"
	"strconv"

	"github.com/authhub/authhub/internal/connectors"
	"github.com/authhub/authhub/internal/metrics"
	"github.com/authhub/authhub/internal/observability/logger"
)

var (
	ErrVerifyUnknownPlatform = errors.New("verify: unknown platform")
	ErrVerifyNotSupported    = errors.New("verify: platform has no access-verification API")
)

// VerifyAccessRequest asks whether an agency token can already reach a
// client's account on a platform, skipping the whole connect flow if so.
type VerifyAccessRequest struct {
	Platform      string
	AgencyToken   string
	ClientEmail   string
	ClientBizID   string
	RequiredLevel connectors.AccessLevel
}

// VerifyService answers token-validity and pre-existing-access questions.
type VerifyService interface {
	// VerifyToken is advisory: false means "likely bad", never an error.
	VerifyToken(ctx context.Context, platform, accessToken string) (bool, error)
	VerifyAccess(ctx context.Context, req VerifyAccessRequest) (*connectors.ClientAccessResult, error)
}

type verifyService struct {
	registry *connectors.Registry
}

func NewVerifyService(registry *connectors.Registry) VerifyService {
	return &verifyService{registry: registry}
}

func (s *verifyService) VerifyToken(ctx context.Context, platform, accessToken string) (bool, error) {
	p, err := connectors.ParsePlatform(platform)
	if err != nil {
		return false, ErrVerifyUnknownPlatform
	}
	conn, err := s.registry.Get(p)
	if err != nil {
		return false, err
	}

	valid := conn.VerifyToken(ctx, accessToken)
	metrics.VerifiesTotal.WithLabelValues(string(p), strconv.FormatBool(valid)).Inc()
	return valid, nil
}

func (s *verifyService) VerifyAccess(ctx context.Context, req VerifyAccessRequest) (*connectors.ClientAccessResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("VerifyAccess"))

	p, err := connectors.ParsePlatform(req.Platform)
	if err != nil {
		return nil, ErrVerifyUnknownPlatform
	}
	conn, err := s.registry.Get(p)
	if err != nil {
		return nil, err
	}

	verifier, ok := conn.(connectors.ClientAccessVerifier)
	if !ok {
		return nil, ErrVerifyNotSupported
	}

	result, err := verifier.VerifyClientAccess(ctx, connectors.ClientAccessRequest{
		AgencyToken:   req.AgencyToken,
		ClientEmail:   req.ClientEmail,
		ClientBizID:   req.ClientBizID,
		RequiredLevel: req.RequiredLevel,
	})
	if err != nil {
		return nil, err
	}

	log.Debug("client access verified",
		logger.Platform(string(p)),
		logger.String("has_access", strconv.FormatBool(result.HasAccess)),
	)
	return result, nil
}
