package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/api"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/config"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/engine"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configFile := pflag.StringP("config", "c", "", "path to qsapi.yaml (default: ./configs/qsapi.yaml or ./qsapi.yaml)")
	pflag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "qsapi: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "qsapi: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("qsapi exited with error", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// ── Engine ───────────────────────────────────────────────────────────────
	eng, err := engine.New(cfg.EngineFactoryConfig(), logger)
	if err != nil {
		return fmt.Errorf("engine setup: %w", err)
	}
	logger.Info("analysis engine ready",
		zap.String("kind", string(cfg.Engine.Kind)),
		zap.String("command", cfg.Engine.Command),
		zap.String("url", cfg.Engine.URL),
		zap.Duration("timeout", cfg.Engine.Timeout),
		zap.Int64("max_concurrent", cfg.Engine.MaxConcurrent),
	)

	scanner := engine.NewScanner(eng, cfg.ScannerConfig(), logger)
	scanner.SetMetrics(api.RecordScan)

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := api.NewRouter(ctx, api.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	},
		api.NewAnalyzeHandler(scanner, logger),
		api.NewInfoHandler(version, scanner),
		logger,
	)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("qsapi HTTP listening", zap.Int("port", cfg.Server.Port), zap.String("version", version))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down qsapi...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("qsapi stopped")
	return nil
}
