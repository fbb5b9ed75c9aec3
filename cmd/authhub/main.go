package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/authhub/authhub/internal/cache"
	credis "github.com/authhub/authhub/internal/cache/redis"
	"github.com/authhub/authhub/internal/config"
	"github.com/authhub/authhub/internal/connectors"
	"github.com/authhub/authhub/internal/connectors/catalog"
	"github.com/authhub/authhub/internal/email"
	httpserver "github.com/authhub/authhub/internal/http"
	connectctrl "github.com/authhub/authhub/internal/http/controllers/connect"
	"github.com/authhub/authhub/internal/http/router"
	connectsvc "github.com/authhub/authhub/internal/http/services/connect"
	"github.com/authhub/authhub/internal/infra/cachefactory"
	"github.com/authhub/authhub/internal/jobs/refresh"
	"github.com/authhub/authhub/internal/metrics"
	"github.com/authhub/authhub/internal/observability/logger"
	"github.com/authhub/authhub/internal/rate"
	"github.com/authhub/authhub/internal/session"
	"github.com/authhub/authhub/internal/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "authhub",
		Short: "OAuth access-grant collection service for marketing agencies",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (optional)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serve(configPath string) error {
	// .env is for dev convenience; absence is fine
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "authhub"})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// cache: sessions, PKCE verifiers, rate limiting, refresh vault
	cacheClient := cachefactory.Open(cache.Config{
		Driver: cfg.Cache.Driver,
		Addr:   cfg.Cache.Redis.Addr,
		DB:     cfg.Cache.Redis.DB,
		Prefix: cfg.Cache.Redis.Prefix,
	})
	defer func() { _ = cacheClient.Close() }()

	st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	registry := catalog.NewRegistry(connectors.Deps{
		Verifiers: connectors.NewVerifierStore(cacheClient),
	})

	sessions := session.New(cacheClient, session.WithTTL(cfg.Connect.SessionTTL))

	signer := connectsvc.NewHS256Signer(cfg.Connect.StateSecret, cfg.Server.BaseURL, cfg.Connect.StateTTL)

	var invitations *email.Invitations
	if cfg.SMTP.Host != "" {
		invitations, err = email.NewInvitations(email.NewSMTPSender(email.SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.SMTP.FromEmail,
			TLSMode:   cfg.SMTP.TLSMode,
		}))
		if err != nil {
			return fmt.Errorf("email templates: %w", err)
		}
	}

	services := connectsvc.NewServices(connectsvc.Deps{
		Registry:    registry,
		Store:       st,
		Sessions:    sessions,
		Signer:      signer,
		Invitations: invitations,
		BaseURL:     cfg.Server.BaseURL,
		PickerURL:   cfg.Server.BaseURL + "/picker",
	})
	controllers := connectctrl.NewControllers(services, cfg.Server.BaseURL+"/picker/error")

	if err := metrics.RegisterConnect(nil); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	metricsHandler, err := httpserver.RegisterMetrics(nil)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	mux := router.New(router.Deps{
		Connect:        controllers,
		MetricsHandler: metricsHandler,
		Store:          st,
		CachePing:      cacheClient.Ping,
	})

	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		window, perr := time.ParseDuration(cfg.Rate.Window)
		if perr != nil {
			window = time.Minute
		}
		if rc, ok := cacheClient.(*credis.Cache); ok {
			limiter = rate.NewRedisLimiter(rc.Client(), cfg.Cache.Redis.Prefix+"rl:", cfg.Rate.Limit, window)
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.Limit, window)
		}
	}

	handler := httpserver.WithRequestID(
		httpserver.WithRecover(
			httpserver.WithSecurityHeaders(
				httpserver.WithRateLimit(
					httpserver.WithMetrics(
						httpserver.WithLogging(mux),
					),
					limiter,
				),
			),
		),
	)

	if cfg.Refresh.Enabled {
		job := refresh.New(refresh.Config{
			Interval:    cfg.Refresh.Interval,
			Lead:        cfg.Refresh.Lead,
			Concurrency: cfg.Refresh.Concurrency,
		}, st, registry, refresh.NewCacheVault(cacheClient))
		go func() {
			if err := job.Run(ctx); err != nil && err != context.Canceled {
				log.Error("refresh job exited", logger.Err(err))
			}
		}()
	}

	log.Info("listening",
		logger.String("addr", cfg.Server.Addr),
		logger.String("env", cfg.App.Env),
		logger.Count(len(registry.Available())),
	)
	return httpserver.Start(cfg.Server.Addr, handler)
}
