package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/duelforge/matchengine/internal/adminhttp"
	"github.com/duelforge/matchengine/internal/clock"
	"github.com/duelforge/matchengine/internal/config"
	"github.com/duelforge/matchengine/internal/match"
	"github.com/duelforge/matchengine/internal/persist"
	"github.com/duelforge/matchengine/internal/settlement"
	"github.com/duelforge/matchengine/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run boots the ambient services a match engine process needs regardless
// of how matches enter it: durable settlement storage, the settlement
// worker pool, and the admin health/metrics surface. Gameplay transport
// that would create matches and submit player actions is explicitly out
// of scope (spec.md §1) — match.Registry is the embedding point a
// transport layer calls into.
func run() error {
	cfgPath := "config/matchengine.toml"
	if p := os.Getenv("MATCHENGINE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting match engine",
		zap.String("server_name", cfg.Server.Name),
		zap.Int("server_id", cfg.Server.ID))

	signingKey, err := loadOrGenerateSigningKey(cfg.Server.SigningKeyPath, log)
	if err != nil {
		return fmt.Errorf("signing key: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := persist.NewDB(ctx, cfg.Database, log)
	cancel()
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	log.Info("database connected")

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = persist.RunMigrations(migrateCtx, db.Pool)
	migrateCancel()
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	metricsReg := prometheus.NewRegistry()
	metric := telemetry.New(metricsReg)
	clk := clock.Real{}

	registry := match.NewRegistry(clk, metric, log)

	settleRepo := persist.NewSettlementRepo(db)
	backend := newLoopbackBackend()
	// No process-wide settlement event bus is wired here: each match
	// Runtime owns its own per-match bus (spec.md §4.6), and publishing
	// MatchSettled/MatchDisputed further is the job of a transport or
	// operator-dashboard layer, both out of scope.
	pipeline := settlement.NewPipeline(settleRepo, backend, cfg.Settlement, nil, metric, log, signingKey)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	go pipeline.Run(runCtx, 500*time.Millisecond)

	admin := adminhttp.New(cfg.Admin.BindAddress, registry, metricsReg, log)
	go func() {
		if err := admin.ListenAndServe(); err != nil {
			log.Error("admin http server exited", zap.Error(err))
		}
	}()

	log.Info("match engine ready",
		zap.String("admin_addr", cfg.Admin.BindAddress),
		zap.Int("settlement_workers", cfg.Settlement.MaxConcurrentJobs))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdownCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	runCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		log.Warn("admin http shutdown", zap.Error(err))
	}
	log.Info("match engine stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// loadOrGenerateSigningKey reads a 64-byte ed25519 private key from path, or
// generates and persists a fresh one on first boot (SPEC_FULL.md §4.13).
func loadOrGenerateSigningKey(path string, log *zap.Logger) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("signing key %s: want %d bytes, got %d", path, ed25519.PrivateKeySize, len(data))
		}
		return ed25519.PrivateKey(data), nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read signing key %s: %w", path, err)
	}

	_, priv, genErr := ed25519.GenerateKey(nil)
	if genErr != nil {
		return nil, fmt.Errorf("generate signing key: %w", genErr)
	}
	if dir := filepath.Dir(path); dir != "." {
		if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
			return nil, fmt.Errorf("create signing key dir: %w", mkErr)
		}
	}
	if writeErr := os.WriteFile(path, priv, 0o600); writeErr != nil {
		return nil, fmt.Errorf("write signing key %s: %w", path, writeErr)
	}
	log.Warn("generated new operator signing key", zap.String("path", path))
	return priv, nil
}
