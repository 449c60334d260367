// MuleCatcher - Money-mule ring detection workbench.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opensource-finance/mulecatcher/internal/analyzer"
	"github.com/opensource-finance/mulecatcher/internal/api"
	"github.com/opensource-finance/mulecatcher/internal/bus"
	"github.com/opensource-finance/mulecatcher/internal/cache"
	"github.com/opensource-finance/mulecatcher/internal/detect"
	"github.com/opensource-finance/mulecatcher/internal/domain"
	"github.com/opensource-finance/mulecatcher/internal/fixtures"
	"github.com/opensource-finance/mulecatcher/internal/repository"
	"github.com/opensource-finance/mulecatcher/internal/rules"
	"github.com/opensource-finance/mulecatcher/internal/workbench"
	"github.com/opensource-finance/mulecatcher/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("MULECATCHER_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting mulecatcher",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()
	if os.Getenv("MULECATCHER_CLUSTER") == "true" {
		cfg = domain.ClusterConfig()
		slog.Info("running in cluster mode")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"analyzer", cfg.Analyzer.Mode,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Rule Engine
	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	// Load rules from database (no hardcoded defaults - configure via API)
	if err := loadRulesFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Initialize Analyzer
	var scorer workbench.Analyzer
	switch cfg.Analyzer.Mode {
	case domain.ModeRemote:
		scorer = analyzer.NewClient(cfg.Analyzer)
		slog.Info("remote analyzer configured", "url", cfg.Analyzer.URL)
	default:
		detectEngine := detect.NewEngine(engine)
		scorer = detectEngine
		slog.Info("embedded detection engine configured")

		// Optionally expose the scoring surface on its own port so external
		// clients (and the benchmark tool) can POST /analyze directly.
		if v := os.Getenv("MULECATCHER_SCORING_PORT"); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				go func() {
					addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
					slog.Info("starting scoring server", "addr", addr)
					router := detect.NewRouter(detectEngine, cfg.Server.MaxUploadBytes)
					if err := http.ListenAndServe(addr, router); err != nil && err != http.ErrServerClosed {
						slog.Error("scoring server failed", "error", err)
					}
				}()
			}
		}
	}

	// Initialize Workbench
	wb := workbench.New(workbench.Options{
		Analyzer:         scorer,
		Repo:             repo,
		Cache:            cacheImpl,
		Bus:              busImpl,
		AnalysisCacheTTL: time.Duration(cfg.Analyzer.CacheTTLSecs) * time.Second,
		Sample:           fixtures.SampleCase,
	})
	wb.LoadHistory(ctx)

	// Initialize audit Worker
	auditWorker := worker.NewWorker(busImpl, repo)
	if err := auditWorker.Start(); err != nil {
		slog.Error("failed to start audit worker", "error", err)
	} else {
		slog.Info("audit worker started")
	}

	// Initialize Server
	handler := api.NewHandler(wb, repo, cacheImpl, busImpl, engine, cfg.Server.MaxUploadBytes, Version)
	srv := api.NewServer(cfg.Server, handler)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("mulecatcher is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	if err := auditWorker.Stop(); err != nil {
		slog.Error("failed to stop audit worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("mulecatcher shutdown complete")
}

// applyEnvOverrides layers MULECATCHER_* environment settings over the
// selected base configuration.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("MULECATCHER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MULECATCHER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MULECATCHER_DB_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("MULECATCHER_ANALYZER_URL"); v != "" {
		cfg.Analyzer.Mode = domain.ModeRemote
		cfg.Analyzer.URL = v
	}
	if v := os.Getenv("MULECATCHER_NATS_URL"); v != "" {
		cfg.EventBus.Type = "nats"
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("MULECATCHER_REDIS_ADDR"); v != "" {
		cfg.Cache.Type = "redis"
		cfg.Cache.RedisAddr = v
	}
}

// loadRulesFromDatabase loads rules from the database into the engine.
// All rules must be configured via POST /rules API - no hardcoded defaults.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	dbRules, err := repo.ListRuleConfigs(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no rules in database - configure via POST /rules API")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║             🐴 MULECATCHER                ║")
	fmt.Println("  ║     Money-Mule Ring Detection Engine      ║")
	fmt.Println("  ║       Follow the money in circles.        ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Analyzer: %s\n", cfg.Analyzer.Mode)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /case/file            - Stage a CSV upload")
	fmt.Println("    POST /case/validate        - Validate the staged file")
	fmt.Println("    POST /case/analyze         - Run the analysis")
	fmt.Println("    POST /case/sample          - Load the demo case")
	fmt.Println("    GET  /case                 - Full workbench snapshot")
	fmt.Println("    GET  /case/history         - Case history")
	fmt.Println("    POST /interventions        - Add a what-if action")
	fmt.Println("    POST /interventions/preview - Project mitigation")
	fmt.Println("    POST /interventions/apply  - Commit the projection")
	fmt.Println("    GET  /rules                - List loaded rules")
	fmt.Println("    POST /rules                - Create a rule")
	fmt.Println("    POST /rules/reload         - Hot-reload rules")
	fmt.Println("    GET  /health               - Health check")
	fmt.Println()
}
