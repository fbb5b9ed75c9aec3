// Package refresh runs the periodic token-refresh sweep: connections whose
// token expires soon get refreshed, and connections on platforms without
// refresh tokens get flagged for reauthorization.
package refresh

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/authhub/authhub/internal/connectors"
	"github.com/authhub/authhub/internal/metrics"
	"github.com/authhub/authhub/internal/observability/logger"
	"github.com/authhub/authhub/internal/store/core"
)

// Config tunes the sweep.
type Config struct {
	Interval    time.Duration // how often the sweep runs
	Lead        time.Duration // refresh tokens expiring within this window
	Concurrency int           // parallel refreshes per sweep
}

// Job is the refresh sweeper.
type Job struct {
	cfg      Config
	store    core.Store
	registry *connectors.Registry
	vault    Vault
}

func New(cfg Config, st core.Store, registry *connectors.Registry, vault Vault) *Job {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Lead <= 0 {
		cfg.Lead = time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Job{cfg: cfg, store: st, registry: registry, vault: vault}
}

// Run blocks until ctx is cancelled, sweeping every Interval.
func (j *Job) Run(ctx context.Context) error {
	log := logger.L().Named("refresh")
	log.Info("refresh sweep started",
		logger.Duration(j.cfg.Interval),
		logger.Int("concurrency", j.cfg.Concurrency),
	)

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("refresh sweep stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := j.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("sweep failed", logger.Err(err))
			}
		}
	}
}

// Sweep runs one pass. Exported so an operator endpoint or test can trigger
// it directly.
func (j *Job) Sweep(ctx context.Context) error {
	log := logger.From(ctx).Named("refresh")

	conns, err := j.store.ListConnectionsExpiring(ctx, time.Now().Add(j.cfg.Lead))
	if err != nil {
		return err
	}
	if len(conns) == 0 {
		return nil
	}
	log.Info("sweeping connections", logger.Count(len(conns)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Concurrency)
	for _, conn := range conns {
		conn := conn
		g.Go(func() error {
			j.refreshOne(gctx, conn)
			return nil // one bad connection must not abort the sweep
		})
	}
	return g.Wait()
}

func (j *Job) refreshOne(ctx context.Context, conn *core.Connection) {
	log := logger.From(ctx).Named("refresh").With(
		logger.Platform(conn.Platform),
		logger.String("connection_id", conn.ID),
	)

	platform, err := connectors.ParsePlatform(conn.Platform)
	if err != nil {
		log.Error("connection references unknown platform", logger.Err(err))
		return
	}

	cfg, err := connectors.GetPlatformConfig(platform)
	if err != nil {
		log.Error("platform config missing", logger.Err(err))
		return
	}
	if !cfg.SupportsRefreshTokens {
		// nothing to refresh: the client has to authorize again
		j.markReauth(ctx, conn, log)
		metrics.RefreshesTotal.WithLabelValues(conn.Platform, "unsupported").Inc()
		return
	}

	refreshToken, err := j.vault.Get(ctx, conn.ID)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			j.markReauth(ctx, conn, log)
			metrics.RefreshesTotal.WithLabelValues(conn.Platform, "error").Inc()
			return
		}
		log.Error("vault read failed", logger.Err(err))
		return
	}

	c, err := j.registry.Get(platform)
	if err != nil {
		log.Error("connector unavailable", logger.Err(err))
		return
	}

	token, err := c.RefreshToken(ctx, refreshToken)
	if err != nil {
		if connectors.IsCode(err, connectors.CodeRefreshNotSupported) {
			j.markReauth(ctx, conn, log)
			metrics.RefreshesTotal.WithLabelValues(conn.Platform, "unsupported").Inc()
			return
		}
		metrics.RefreshesTotal.WithLabelValues(conn.Platform, "error").Inc()
		log.Warn("refresh failed", logger.Err(err))
		return
	}
	metrics.RefreshesTotal.WithLabelValues(conn.Platform, "ok").Inc()

	if !token.ExpiresAt.IsZero() {
		if err := j.store.UpdateConnectionExpiry(ctx, conn.ID, token.ExpiresAt); err != nil {
			log.Error("expiry update failed", logger.Err(err))
		}
	}
	// some platforms rotate the refresh token on every use
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		if err := j.vault.Put(ctx, conn.ID, token.RefreshToken); err != nil {
			log.Error("vault rotate failed", logger.Err(err))
		}
	}

	log.Debug("token refreshed")
}

func (j *Job) markReauth(ctx context.Context, conn *core.Connection, log *zap.Logger) {
	if err := j.store.UpdateConnectionStatus(ctx, conn.ID, core.ConnectionReauthRequired); err != nil {
		log.Error("status update failed", logger.Err(err))
		return
	}
	log.Info("connection flagged for reauthorization")
}
