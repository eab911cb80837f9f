package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmtsu/supablog/internal/auth"
	"github.com/jmtsu/supablog/internal/blog"
	"github.com/jmtsu/supablog/internal/cache"
	"github.com/jmtsu/supablog/internal/config"
	"github.com/jmtsu/supablog/internal/handlers"
	"github.com/jmtsu/supablog/internal/logging"
	"github.com/jmtsu/supablog/internal/metrics"
	"github.com/jmtsu/supablog/internal/ratelimit"
	"github.com/jmtsu/supablog/internal/server"
	"github.com/jmtsu/supablog/internal/supabase"
	"github.com/jmtsu/supablog/internal/tasks"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to server configuration file")
		envFile    = flag.String("env-file", ".env", "dotenv file loaded before configuration")
		envPrefix  = flag.String("env-prefix", "SUPABLOG", "environment variable prefix")
	)
	flag.Parse()

	// Missing dotenv files are fine; containers inject real environment.
	_ = godotenv.Load(*envFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*envPrefix, *configFile)
	cfg, err := loader.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Server.Logging)
	if err != nil {
		log.Fatalf("failed to configure logger: %v", err)
	}

	promRegistry := prometheus.NewRegistry()
	metricsRecorder := metrics.NewRecorder(promRegistry)

	store := buildCacheStore(logger.With(slog.String("agent", "cache_factory")), cfg.Cache)
	appCache := cache.New(store, logger, cache.Options{
		DefaultTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		OpTimeout:  time.Duration(cfg.Cache.OpTimeoutMs) * time.Millisecond,
		Observer:   metricsRecorder,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := appCache.Close(shutdownCtx); err != nil {
			logger.Error("cache shutdown failed", slog.Any("error", err))
		}
	}()

	limiter := buildLimiter(logger, cfg, metricsRecorder)

	var verifier *auth.Verifier
	if cfg.Supabase.JWTSecret != "" {
		verifier, err = auth.NewVerifier(cfg.Supabase.JWTSecret)
		if err != nil {
			logger.Error("token verifier setup failed", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Warn("jwt secret not configured; protected routes will reject every request")
	}

	var identity *supabase.Client
	if cfg.Supabase.URL != "" && cfg.Supabase.Key != "" {
		identity, err = supabase.New(supabase.Config{
			URL:            cfg.Supabase.URL,
			Key:            cfg.Supabase.Key,
			ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
			Timeout:        time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
		})
		if err != nil {
			logger.Error("identity provider setup failed", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Warn("identity provider not configured; auth routes will return errors")
	}

	var blogService *blog.Service
	if cfg.Database.URL != "" {
		blogStore, closeStore, err := blog.NewPostgresStore(cfg.Database.URL)
		if err != nil {
			logger.Error("blog store setup failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := closeStore(); err != nil {
				logger.Error("blog store shutdown failed", slog.Any("error", err))
			}
		}()
		var storage blog.ObjectFetcher
		if identity != nil {
			storage = identity
		}
		blogService = blog.NewService(blogStore, storage, cfg.Blog.Bucket, appCache, logger)
	} else {
		logger.Warn("database not configured; blog routes will return errors")
	}

	var taskClient *tasks.Client
	if cfg.Tasks.URL != "" {
		queue, closeQueue, err := tasks.NewQueue(cfg.Tasks.URL, cfg.Tasks.Queue)
		if err != nil {
			logger.Warn("task queue unavailable; task submission disabled", slog.Any("error", err))
		} else {
			defer closeQueue()
			taskClient = tasks.NewClient(queue, logger)
		}
	}

	router := server.NewRouter(server.RouterOptions{
		Logger:         logger,
		API:            cfg.API,
		Verifier:       verifier,
		Limiter:        limiter,
		Metrics:        metricsRecorder,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
		AuthHandler:    handlers.NewAuth(identity, logger),
		APIHandler:     handlers.NewAPI(cfg.API, taskClient, metricsRecorder, logger),
		BlogHandler:    handlers.NewBlog(blogService, logger),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsRecorder.Handler())
	mux.Handle("/", router)

	srv, err := server.New(cfg, logger, mux)
	if err != nil {
		logger.Error("unable to construct server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated unexpectedly", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}

func buildCacheStore(logger *slog.Logger, cfg config.CacheConfig) cache.Store {
	backend := strings.TrimSpace(strings.ToLower(cfg.Backend))
	switch backend {
	case "", "memory":
		logger.Info("using memory cache")
		return cache.NewMemory()
	case "redis":
		redisStore, err := cache.NewRedis(cfg.URL)
		if err != nil {
			logger.Error("redis cache initialization failed", slog.Any("error", err))
			logger.Info("falling back to memory cache")
			return cache.NewMemory()
		}
		logger.Info("using redis cache", slog.String("url", cfg.URL))
		return redisStore
	default:
		logger.Warn("unsupported cache backend, defaulting to memory", slog.String("backend", cfg.Backend))
		return cache.NewMemory()
	}
}

func buildLimiter(logger *slog.Logger, cfg config.Config, observer ratelimit.Observer) *ratelimit.Limiter {
	limits, err := ratelimit.ParseLimits(cfg.RateLimit.Limits)
	if err != nil {
		logger.Error("rate limit configuration invalid", slog.Any("error", err))
		os.Exit(1)
	}

	store := ratelimit.NewMemoryCounterStore()
	if strings.EqualFold(strings.TrimSpace(cfg.Cache.Backend), "redis") {
		redisStore, closeStore, err := ratelimit.NewRedisCounterStore(cfg.Cache.URL)
		if err != nil {
			logger.Warn("redis counter store unavailable, using memory counters", slog.Any("error", err))
		} else {
			// Closed with the process; counters need no graceful drain.
			_ = closeStore
			store = redisStore
		}
	}

	limiter, err := ratelimit.New(store, logger, ratelimit.Options{
		Enabled:    cfg.RateLimit.Enabled,
		Limits:     limits,
		FailClosed: cfg.RateLimit.FailClosed,
		OpTimeout:  time.Duration(cfg.Cache.OpTimeoutMs) * time.Millisecond,
		Observer:   observer,
	})
	if err != nil {
		logger.Error("rate limiter setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	return limiter
}
