package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/gsarma/mailgate/internal/api"
	"github.com/gsarma/mailgate/internal/apikey"
	"github.com/gsarma/mailgate/internal/config"
	"github.com/gsarma/mailgate/internal/crypto"
	"github.com/gsarma/mailgate/internal/draft"
	"github.com/gsarma/mailgate/internal/email"
	"github.com/gsarma/mailgate/internal/health"
	"github.com/gsarma/mailgate/internal/journal"
	"github.com/gsarma/mailgate/internal/logger"
	"github.com/gsarma/mailgate/internal/oauth"
	"github.com/gsarma/mailgate/internal/pipeline"
	"github.com/gsarma/mailgate/internal/validate"
	"github.com/gsarma/mailgate/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mailgate:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{
		Level:             level,
		SentryDSN:         cfg.Sentry.DSN,
		SentryEnvironment: cfg.Sentry.Environment,
	}, logger.RequestID, logger.Caller)
	defer logger.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := os.Getenv("MODE")
	if err := checkMode(mode, cfg); err != nil {
		return err
	}

	checks := health.Checks{}

	var store draft.Store
	if cfg.Stores.RedisURL != "" {
		client, err := draft.OpenRedis(ctx, cfg.Stores.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		store = draft.NewRedis(client, cfg.Drafts.Expiry, draft.WithClaimTTL(2*cfg.Graph.SendTimeout))
		checks["redis"] = health.Redis(client)
		log.Info("draft store: redis")
	} else {
		store = draft.NewMemory(cfg.Drafts.Expiry)
		log.Info("draft store: memory")
	}

	opts := []pipeline.Option{pipeline.WithLogger(log)}
	if cfg.Stores.DatabaseURL != "" {
		pool, err := journal.Open(ctx, cfg.Stores.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		j := journal.NewPostgres(pool)
		if err := j.EnsureSchema(ctx); err != nil {
			return err
		}
		opts = append(opts, pipeline.WithJournal(j))
		checks["postgres"] = health.Postgres(pool)
	}

	var sealer *crypto.Sealer
	if cfg.Auth.TokenCacheKey != "" {
		if sealer, err = crypto.NewSealer(cfg.Auth.TokenCacheKey); err != nil {
			return err
		}
	}
	tokens := oauth.NewCachedProvider(oauth.MicrosoftConfig{
		ClientID: cfg.Auth.ClientID,
		TenantID: cfg.Auth.TenantID,
		Scopes:   cfg.Auth.Scopes,
	}, oauth.NewFileCache(cfg.Auth.TokenCacheFile, sealer))

	provider := email.NewGraphProvider(email.GraphConfig{
		BaseURL: cfg.Graph.APIURL,
		Timeout: cfg.Graph.SendTimeout,
	})
	policy := validate.NewPolicy(cfg.Policy.MaxRecipients, cfg.Policy.MaxBodyChars, cfg.Policy.AllowedDomains)
	svc := pipeline.New(policy, store, provider, tokens, opts...)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, api.Deps{
		Pipeline:        svc,
		Keys:            apikey.NewSet(cfg.APIKeys),
		Checks:          checks,
		EnableTestTools: cfg.App.EnableTestTools,
		Logger:          log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	if mode != "api" && cfg.Drafts.SweepSchedule != "" {
		w, err := worker.New(store, cfg.Drafts.SweepSchedule, log)
		if err != nil {
			return err
		}
		g.Go(func() error {
			w.Start(ctx)
			return nil
		})
	}

	if mode != "worker" {
		g.Go(func() error {
			log.Info("listening", slog.String("addr", srv.Addr), slog.String("env", cfg.App.Env))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	log.Info("stopped")
	return err
}

// checkMode rejects process modes with nothing to do. MODE=api leaves sweeping
// to a separate MODE=worker process, which only has something to sweep when
// the drafts live in Redis.
func checkMode(mode string, cfg *config.Config) error {
	switch mode {
	case "", "api":
		return nil
	case "worker":
		if cfg.Stores.RedisURL == "" {
			return errors.New("MODE=worker needs REDIS_URL: the memory store is private to one process")
		}
		if cfg.Drafts.SweepSchedule == "" {
			return errors.New("MODE=worker needs DRAFT_SWEEP_SCHEDULE")
		}
		return nil
	default:
		return fmt.Errorf("unknown MODE %q (want api or worker)", mode)
	}
}
