// Package main provides the ocean regrid HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.ngs.io/ocean-regrid/internal/adapter/dataset"
	"go.ngs.io/ocean-regrid/internal/adapter/export"
	"go.ngs.io/ocean-regrid/internal/cache"
	"go.ngs.io/ocean-regrid/internal/config"
	httpHandler "go.ngs.io/ocean-regrid/internal/http"
	"go.ngs.io/ocean-regrid/internal/observability"
	"go.ngs.io/ocean-regrid/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("ocean-regrid version %s\n", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	metrics := observability.NewMetrics()

	decoders, err := dataset.DecodersByName(cfg.Dataset.Backends)
	if err != nil {
		logger.Error("invalid dataset backends", "error", err)
		os.Exit(1)
	}
	encoder, err := export.EncoderFor(cfg.Output.Format)
	if err != nil {
		logger.Error("invalid output format", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize caches.
	cacheManager, err := cache.NewManager(ctx, cache.Config{
		BatchCacheSizeMB: cfg.Cache.BatchSizeMB,
		BatchTTL:         cfg.Cache.BatchTTL,
		InspectCacheSize: cfg.Cache.InspectSize,
	})
	if err != nil {
		logger.Error("failed to create cache", "error", err)
		os.Exit(1)
	}
	defer cacheManager.Close()

	// Initialize use cases.
	regridUC := usecase.NewRegridUseCase(decoders, encoder, usecase.Options{
		Workers:     cfg.Regrid.Workers,
		GridSpacing: cfg.Regrid.GridSpacing,
		Previews:    cfg.Output.Previews,
	}, logger, metrics)
	inspectUC := usecase.NewInspectUseCase(decoders, cacheManager, logger, metrics)

	// Setup router.
	handler := httpHandler.NewHandler(regridUC, inspectUC, cacheManager, cfg.MaxUploadBytes(), logger)
	router := httpHandler.SetupRouter(handler, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			"addr", srv.Addr,
			"backends", cfg.Dataset.Backends,
			"format", cfg.Output.Format,
			"workers", cfg.Regrid.Workers,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Ocean Regrid Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  ocean-regrid [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -config <path>  YAML config file (optional)")
	fmt.Println("  -help           Show this help message")
	fmt.Println("  -version        Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  LOG_LEVEL               debug, info, warn or error (default: info)")
	fmt.Println("  LOG_FORMAT              json or text (default: json)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  MAX_UPLOAD_MB           Request size limit in MB (default: 512)")
	fmt.Println("  REGRID_WORKERS          Files processed concurrently (default: 1)")
	fmt.Println("  OUTPUT_FORMAT           xlsx or csv (default: xlsx)")
	fmt.Println("  OUTPUT_PREVIEWS         Add a PNG preview per table (default: false)")
	fmt.Println("  DATASET_BACKENDS        Decoders in fallback order (default: netcdf,native)")
	fmt.Println("  BATCH_CACHE_MB          Memory for finished batches (default: 512)")
	fmt.Println("  BATCH_TTL               How long batches stay downloadable (default: 1h)")
	fmt.Println("  INSPECT_CACHE_SIZE      Cached file summaries (default: 128)")
	fmt.Println("  SHUTDOWN_TIMEOUT        Graceful shutdown limit (default: 10s)")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health                           Health check")
	fmt.Println("  GET  /metrics                          Prometheus metrics")
	fmt.Println("  POST /v1/inspect                       List variables and extents of uploads")
	fmt.Println("  POST /v1/regrid                        Regrid uploads to 0.125° tables")
	fmt.Println("  GET  /v1/batches/:id/archive           Download a batch zip")
	fmt.Println("  GET  /v1/batches/:id/artifacts/:name   Download one table")
	fmt.Println()
}
