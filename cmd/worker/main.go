package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/meetnotes/recording-transcriber/internal/audio"
	"github.com/meetnotes/recording-transcriber/internal/config"
	"github.com/meetnotes/recording-transcriber/internal/metrics"
	"github.com/meetnotes/recording-transcriber/internal/recognition"
	"github.com/meetnotes/recording-transcriber/internal/server"
	"github.com/meetnotes/recording-transcriber/internal/store"
	"github.com/meetnotes/recording-transcriber/internal/worker"
)

const (
	serviceName    = "recording-transcriber"
	serviceVersion = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (defaults apply when omitted)")
	envPath := flag.String("env", "", "Path to .env file with environment overrides")
	flag.Parse()

	// Load environment overrides before the config reads them
	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load env file %s: %v\n", *envPath, err)
			os.Exit(1)
		}
	} else {
		// A local .env is optional
		_ = godotenv.Load()
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.String("store_path", cfg.Store.Path),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.String("model_path", cfg.Recognition.ModelPath),
		slog.Float64("chunk_duration", cfg.Recognition.ChunkDuration),
		slog.Float64("poll_interval", cfg.Worker.PollInterval),
		slog.Float64("claim_timeout", cfg.Worker.ClaimTimeout),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Open the recording store
	recStore, err := store.NewBadger(store.BadgerOptions{
		Dir:    cfg.Store.Path,
		Logger: logger,
	})
	if err != nil {
		logger.Error("Failed to open recording store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer recStore.Close()
	logger.Info("Recording store opened", slog.String("path", cfg.Store.Path))

	// Load the speech recognition model. This is the expensive startup
	// step: models run hundreds of megabytes.
	engine, err := recognition.NewVoskEngine(cfg.Recognition.ModelPath, logger)
	if err != nil {
		logger.Error("Failed to load recognition model",
			slog.String("model_path", cfg.Recognition.ModelPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer engine.Close()
	logger.Info("Recognition model loaded", slog.String("model_path", cfg.Recognition.ModelPath))

	// Build the processing pipeline
	decoder := audio.NewFFmpegDecoder(cfg.Audio.FFmpegPath, "")
	normalizer := audio.NewNormalizer(decoder, cfg.Audio.SampleRate, cfg.Audio.DebugDumpDir, logger)
	transcriber := recognition.NewTranscriber(engine, cfg.Recognition.GetChunkDuration(), logger)

	loop := worker.NewLoop(recStore, normalizer, transcriber, worker.Config{
		PollInterval: cfg.Worker.GetPollInterval(),
		ErrorBackoff: cfg.Worker.GetErrorBackoff(),
		ClaimTimeout: cfg.Worker.GetClaimTimeout(),
	}, logger, appMetrics)

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, loop, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Start the processing loop
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.Run(ctx)
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the processing loop and wait for the in-flight recording
	cancel()
	wg.Wait()

	// Get final statistics
	stats := loop.GetStats()
	logger.Info("Final processing statistics",
		slog.Uint64("cycles", stats.Cycles),
		slog.Uint64("processed", stats.Processed),
		slog.Uint64("failed", stats.Failed),
		slog.Uint64("requeued", stats.Requeued),
		slog.Uint64("store_errors", stats.StoreErrors),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
