// Command concento is the main entry point for the Concento consent-summary
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/evalden/concento/internal/audit"
	"github.com/evalden/concento/internal/config"
	"github.com/evalden/concento/internal/health"
	"github.com/evalden/concento/internal/observe"
	"github.com/evalden/concento/internal/orchestrator"
	"github.com/evalden/concento/internal/provider"
	"github.com/evalden/concento/internal/provider/anyllm"
	"github.com/evalden/concento/internal/provider/openai"
	"github.com/evalden/concento/internal/server"
	"github.com/evalden/concento/internal/session"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// sweepInterval is how often the in-memory session store evicts idle sessions.
const sweepInterval = 10 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "concento: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "concento: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("concento starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Metrics ───────────────────────────────────────────────────────────────
	mp, err := observe.InitProvider("concento", version)
	if err != nil {
		slog.Error("failed to initialise metrics provider", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics provider shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Providers ─────────────────────────────────────────────────────────────
	oaiClient, err := buildOpenAIClient(cfg)
	if err != nil {
		slog.Error("failed to build openai client", "err", err)
		return 1
	}
	lm, err := buildLanguageModel(cfg, oaiClient)
	if err != nil {
		slog.Error("failed to build language model", "err", err)
		return 1
	}

	// ── Session store ─────────────────────────────────────────────────────────
	store, memStore, err := buildSessionStore(ctx, cfg, metrics)
	if err != nil {
		slog.Error("failed to build session store", "err", err)
		return 1
	}
	if err := observe.ObserveSessionCount(mp, store.Len); err != nil {
		slog.Warn("failed to register session gauge", "err", err)
	}

	// ── Consent store ─────────────────────────────────────────────────────────
	audits, err := buildAuditStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to build audit store", "err", err)
		return 1
	}
	defer func() {
		if err := audits.Close(); err != nil {
			slog.Warn("audit store close error", "err", err)
		}
	}()

	// ── Orchestrator ──────────────────────────────────────────────────────────
	var orcOpts []orchestrator.Option
	orcOpts = append(orcOpts, orchestrator.WithLogger(logger), orchestrator.WithMetrics(metrics))
	if cfg.History.MaxPairs > 0 {
		orcOpts = append(orcOpts, orchestrator.WithHistoryPairs(cfg.History.MaxPairs))
	}
	orc, err := orchestrator.New(lm, oaiClient, oaiClient, store, orcOpts...)
	if err != nil {
		slog.Error("failed to build orchestrator", "err", err)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	checkers := []health.Checker{
		{Name: "sessions", Check: func(ctx context.Context) error {
			_, err := store.Len(ctx)
			return err
		}},
	}
	srv, err := server.New(orc, audits,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithHealth(health.New(checkers...)),
		server.WithDefaultLanguage(cfg.DefaultLanguage),
	)
	if err != nil {
		slog.Error("failed to build server", "err", err)
		return 1
	}

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	httpSrv := &http.Server{
		Addr:              listenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)
		var err error
		if cfg.Server.TLS != nil {
			err = httpSrv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if memStore != nil {
		g.Go(func() error {
			err := memStore.Run(gctx, sweepInterval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// openAIAPIKey selects the key for the shared OpenAI audio client. The
// configured LLM key belongs to this client only when the generative backend
// is OpenAI itself; for any other backend the key is that backend's and the
// audio client reads its own from the environment.
func openAIAPIKey(cfg *config.Config) string {
	name := cfg.Providers.LLM.Name
	if (name == "" || name == "openai") && cfg.Providers.LLM.APIKey != "" {
		return cfg.Providers.LLM.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// buildOpenAIClient constructs the shared OpenAI client used for
// transcription, synthesis, and (by default) the generative side.
func buildOpenAIClient(cfg *config.Config) (*openai.Client, error) {
	apiKey := openAIAPIKey(cfg)
	models := openai.Models{
		Transcribe: cfg.Providers.STT.Model,
		Speech:     cfg.Providers.TTS.Model,
		Voice:      cfg.Providers.TTS.Voice,
	}
	if cfg.Providers.LLM.Name == "" || cfg.Providers.LLM.Name == "openai" {
		models.Chat = cfg.Providers.LLM.Model
	}
	var opts []openai.Option
	if cfg.Providers.LLM.Name == "openai" && cfg.Providers.LLM.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Providers.LLM.BaseURL))
	}
	return openai.New(apiKey, models, opts...)
}

// buildLanguageModel selects the generative backend: the shared OpenAI client
// by default, any-llm-go for everything else.
func buildLanguageModel(cfg *config.Config, oaiClient *openai.Client) (provider.LanguageModel, error) {
	name := cfg.Providers.LLM.Name
	if name == "" || name == "openai" {
		return oaiClient, nil
	}
	var opts []anyllmlib.Option
	if cfg.Providers.LLM.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.Providers.LLM.APIKey))
	}
	if cfg.Providers.LLM.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.Providers.LLM.BaseURL))
	}
	p, err := anyllm.New(name, cfg.Providers.LLM.Model, opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("language model backend created", "name", name, "model", cfg.Providers.LLM.Model)
	return p, nil
}

// buildSessionStore constructs the configured session store. The second
// return value is non-nil only for the in-memory store, whose sweeper the
// caller must run.
func buildSessionStore(ctx context.Context, cfg *config.Config, metrics *observe.Metrics) (session.Store, *session.MemoryStore, error) {
	ttl := time.Duration(cfg.Sessions.TTLHours) * time.Hour

	switch cfg.Sessions.Backend {
	case "", "memory":
		var opts []session.MemoryOption
		if ttl > 0 {
			opts = append(opts, session.WithTTL(ttl))
		}
		if cfg.Sessions.MaxSessions > 0 {
			opts = append(opts, session.WithMaxSessions(cfg.Sessions.MaxSessions))
		}
		opts = append(opts, session.WithEvictionHook(func(string) {
			metrics.SessionEvictions.Add(context.Background(), 1)
		}))
		ms := session.NewMemoryStore(opts...)
		return ms, ms, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Sessions.Redis.Addr,
			Password: cfg.Sessions.Redis.Password,
			DB:       cfg.Sessions.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("ping redis %q: %w", cfg.Sessions.Redis.Addr, err)
		}
		slog.Info("session store connected", "backend", "redis", "addr", cfg.Sessions.Redis.Addr)
		return session.NewRedisStore(client, ttl), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown sessions backend %q", cfg.Sessions.Backend)
	}
}

// buildAuditStore constructs the configured consent-record store.
func buildAuditStore(ctx context.Context, cfg *config.Config) (audit.Store, error) {
	switch cfg.Audit.Backend {
	case "", "file":
		path := cfg.Audit.Path
		if path == "" {
			path = "consent.jsonl"
		}
		return audit.NewFileStore(path), nil

	case "postgres":
		store, err := audit.Connect(ctx, cfg.Audit.PostgresDSN)
		if err != nil {
			return nil, err
		}
		slog.Info("audit store connected", "backend", "postgres")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
