package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomaszsb/Game-alpha-sub005/internal/cache"
	"github.com/tomaszsb/Game-alpha-sub005/internal/config"
	"github.com/tomaszsb/Game-alpha-sub005/internal/database"
	"github.com/tomaszsb/Game-alpha-sub005/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket game server",
		Long: `Serve games over HTTP and WebSocket. Settings come from TURNENGINE_*
environment variables or a .env file. Redis and Postgres are optional:
leave TURNENGINE_REDIS_ADDR or TURNENGINE_POSTGRES_DSN empty to run without
the action-log mirror or snapshot store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := cfg.Log.NewLogger()
			if err != nil {
				return err
			}
			cat, err := rootOpts.loadCatalog(cfg.Catalog.Dir, cfg.Catalog.Format)
			if err != nil {
				return err
			}
			if issues := cat.Validate(); len(issues) > 0 {
				for _, is := range issues {
					logger.Warnf("Catalog: %s", is)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Redis.Addr != "" {
				if err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
					logger.WithError(err).Warn("Redis unavailable; action log will not be mirrored.")
				} else {
					defer cache.Close()
					logger.Infof("Connected to Redis at %s.", cfg.Redis.Addr)
				}
			}
			if cfg.Postgres.DSN != "" {
				if err := connectPostgres(ctx, cfg.Postgres.DSN); err != nil {
					logger.WithError(err).Warn("Postgres unavailable; snapshots will not be stored.")
				} else {
					defer database.Close()
					logger.Info("Connected to Postgres.")
				}
			}

			tokens, err := server.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			srv := server.New(cat, tokens, server.Options{
				Rules:        cfg.Rules.EngineRules(),
				Seed:         cfg.Rules.Seed,
				WriteTimeout: cfg.Server.WriteTimeout,
				PingInterval: cfg.Server.PingInterval,
			}, logger)
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
}

func connectPostgres(ctx context.Context, dsn string) error {
	if err := database.Connect(ctx, dsn); err != nil {
		return err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return err
	}
	return nil
}
