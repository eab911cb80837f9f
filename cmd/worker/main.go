package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jmtsu/supablog/internal/blog"
	"github.com/jmtsu/supablog/internal/config"
	"github.com/jmtsu/supablog/internal/logging"
	"github.com/jmtsu/supablog/internal/tasks"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to worker configuration file")
		envFile    = flag.String("env-file", ".env", "dotenv file loaded before configuration")
		envPrefix  = flag.String("env-prefix", "SUPABLOG", "environment variable prefix")
	)
	flag.Parse()

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

	if cfg.Tasks.URL == "" {
		logger.Error("task queue url not configured")
		os.Exit(1)
	}
	queue, closeQueue, err := tasks.NewQueue(cfg.Tasks.URL, cfg.Tasks.Queue)
	if err != nil {
		logger.Error("task queue unavailable", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeQueue()

	var blogStore blog.Store
	if cfg.Database.URL != "" {
		store, closeStore, err := blog.NewPostgresStore(cfg.Database.URL)
		if err != nil {
			logger.Error("blog store setup failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := closeStore(); err != nil {
				logger.Error("blog store shutdown failed", slog.Any("error", err))
			}
		}()
		blogStore = store
	} else {
		logger.Warn("database not configured; blog post tasks will fail")
	}

	worker := tasks.NewWorker(queue, logger)
	mustRegister(logger, worker, tasks.TaskExample, handleExample(logger))
	mustRegister(logger, worker, tasks.TaskProcessBlogPost, handleProcessBlogPost(logger, blogStore))

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker terminated unexpectedly", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shutdown complete")
}

func mustRegister(logger *slog.Logger, worker *tasks.Worker, name tasks.Name, handler tasks.Handler) {
	if err := worker.Register(name, handler); err != nil {
		logger.Error("handler registration failed", slog.String("task", string(name)), slog.Any("error", err))
		os.Exit(1)
	}
}

func handleExample(logger *slog.Logger) tasks.Handler {
	return func(_ context.Context, envelope tasks.Envelope) error {
		var payload tasks.ExamplePayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		logger.Info("example task processed",
			slog.String("task_id", envelope.ID),
			slog.Int("data_keys", len(payload.Data)))
		return nil
	}
}

func handleProcessBlogPost(logger *slog.Logger, store blog.Store) tasks.Handler {
	return func(ctx context.Context, envelope tasks.Envelope) error {
		var payload tasks.ProcessBlogPostPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		if store == nil {
			return errors.New("blog store not configured")
		}
		post, found, err := store.GetByID(ctx, payload.PostID)
		if err != nil {
			return fmt.Errorf("load post %s: %w", payload.PostID, err)
		}
		if !found {
			logger.Warn("blog post task for unknown post",
				slog.String("task_id", envelope.ID),
				slog.String("post_id", payload.PostID))
			return nil
		}
		logger.Info("blog post processed",
			slog.String("task_id", envelope.ID),
			slog.String("post_id", post.ID),
			slog.String("slug", post.Slug))
		return nil
	}
}
