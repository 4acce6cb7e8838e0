package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	taskhttp "github.com/aliskhannn/media-uniquer/internal/api/handlers/task"
	"github.com/aliskhannn/media-uniquer/internal/api/router"
	"github.com/aliskhannn/media-uniquer/internal/api/server"
	"github.com/aliskhannn/media-uniquer/internal/config"
	"github.com/aliskhannn/media-uniquer/internal/infra/kafka/consumer"
	"github.com/aliskhannn/media-uniquer/internal/infra/kafka/producer"
	taskmsg "github.com/aliskhannn/media-uniquer/internal/kafka/handlers/task"
	"github.com/aliskhannn/media-uniquer/internal/processor"
	"github.com/aliskhannn/media-uniquer/internal/repository/status"
	"github.com/aliskhannn/media-uniquer/internal/runner"
	tasksvc "github.com/aliskhannn/media-uniquer/internal/service/task"
	"github.com/aliskhannn/media-uniquer/internal/storage/archive"
	"github.com/aliskhannn/media-uniquer/internal/storage/file"
	"github.com/aliskhannn/media-uniquer/internal/sweeper"
)

const defaultConfigPath = "./config/config.yml"

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()

	configPath := defaultConfigPath
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}
	cfg := config.MustLoad(configPath)

	// Retry strategy for downloads, Kafka and terminal status writes.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Local file areas for uploads and outputs.
	storage := file.NewStorage(cfg.Storage.UploadsDir, cfg.Storage.ProcessedDir)
	if err := storage.Init(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	store, err := status.Open(ctx, cfg)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Str("backend", cfg.StatusStore.Backend).Msg("failed to open status store")
	}
	zlog.Logger.Info().Str("backend", cfg.StatusStore.Backend).Msg("status store ready")

	// Optional listeners notified when a task finishes.
	var (
		listeners []runner.Listener
		p         *producer.Producer
	)

	if cfg.Kafka.Enabled {
		p = producer.New(&cfg.Kafka, strategy)
		listeners = append(listeners, p)
	}

	if cfg.Archive.Enabled {
		a, err := archive.New(ctx, cfg.Archive, cfg.Storage.ProcessedDir)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to archive")
		}
		listeners = append(listeners, a)
	}

	// Transform engine, job runner and intake service.
	engine := processor.New(cfg.FFmpeg, cfg.Video, cfg.Image)
	jobs := runner.New(store, engine, runner.Options{
		OutputDir:     cfg.Storage.ProcessedDir,
		MaxConcurrent: cfg.Runner.MaxConcurrent,
		Strategy:      strategy,
	}, listeners...)
	service := tasksvc.NewService(storage, jobs, nil, cfg.Storage.UploadsDir, strategy)

	var wg sync.WaitGroup

	// Retention sweeper.
	sw := sweeper.NewFromConfig(cfg.Storage, cfg.Retention, store)
	wg.Add(1)
	go sw.Run(ctx, &wg)

	// Kafka consumer for URL submissions.
	var c *consumer.Consumer
	if cfg.Kafka.Enabled {
		c = consumer.New(&cfg.Kafka, strategy, taskmsg.NewSubmitHandler(service))
		wg.Add(1)
		go c.Consume(ctx, &wg)
	}

	// Start HTTP server in a separate goroutine.
	r := router.Setup(taskhttp.NewHandler(service))
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("starting server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Wait for the sweeper and the consumer.
	wg.Wait()

	// Let running jobs write their terminal status.
	jobsDone := make(chan struct{})
	go func() {
		jobs.Wait()
		close(jobsDone)
	}()

	select {
	case <-jobsDone:
	case <-time.After(30 * time.Second):
		zlog.Logger.Warn().Msg("jobs still running at exit")
	}

	// Close Kafka clients and the status store.
	if p != nil {
		if err := p.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
	if c != nil {
		if err := c.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
		}
	}
	if err := store.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close status store")
	}
}
