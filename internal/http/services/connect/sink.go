package connect

import (
	"context"

	"github.com/authhub/authhub/internal/connectors"
	"github.com/authhub/authhub/internal/observability/logger"
	"github.com/authhub/authhub/internal/util"
)

// TokenDelivery is what the callback hands to the configured sink once an
// exchange succeeds.
type TokenDelivery struct {
	Platform        connectors.Platform
	AccessRequestID string
	Token           *connectors.TokenResponse
	User            *connectors.UserInfo
}

// TokenSink receives exchanged tokens. Production deployments plug in a
// secret-manager sink; the default only logs masked diagnostics, so tokens
// never land anywhere durable by accident.
type TokenSink interface {
	Deliver(ctx context.Context, d TokenDelivery) error
}

// LogSink is the default sink: masked log entry, nothing stored.
type LogSink struct{}

func (LogSink) Deliver(ctx context.Context, d TokenDelivery) error {
	log := logger.From(ctx).With(
		logger.Platform(string(d.Platform)),
		logger.AccessRequestID(d.AccessRequestID),
	)
	log.Info("token exchanged",
		logger.String("access_token", util.MaskToken(d.Token.AccessToken)),
		logger.String("refresh_token", util.MaskToken(d.Token.RefreshToken)),
		logger.String("token_type", d.Token.TokenType),
	)
	return nil
}
