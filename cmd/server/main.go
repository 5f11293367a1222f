package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platformbuilds/vigil-core/internal/alerting"
	"github.com/platformbuilds/vigil-core/internal/api"
	"github.com/platformbuilds/vigil-core/internal/config"
	"github.com/platformbuilds/vigil-core/internal/intelligence"
	"github.com/platformbuilds/vigil-core/internal/tracing"
	"github.com/platformbuilds/vigil-core/pkg/cache"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	logger.Info("Starting VIGIL-CORE", "version", "v1.0.0", "environment", cfg.Environment)

	// Initialize Valkey caching; fall back to in-memory when no addr configured
	var valkeyCache cache.ValkeyCache
	if cfg.Cache.Addr != "" {
		valkeyCache, err = cache.NewValkeySingle(cfg.Cache.Addr, cfg.Cache.DB, cfg.Cache.Password, time.Duration(cfg.Cache.TTL)*time.Second)
		if err != nil {
			logger.Warn("Valkey unavailable, using in-memory cache", "addr", cfg.Cache.Addr, "error", err)
			valkeyCache = cache.NewNoopValkeyCache(logger)
		} else {
			logger.Info("Valkey cache initialized", "addr", cfg.Cache.Addr)
		}
	} else {
		valkeyCache = cache.NewNoopValkeyCache(logger)
		logger.Info("No cache addr configured, using in-memory cache")
	}

	// Optional OTLP tracing
	if cfg.Tracing.Enabled {
		tp, err := tracing.NewTracerProvider(cfg.Tracing.ServiceName, "v1.0.0", cfg.Tracing.OTLPEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracing", "error", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Tracer shutdown failed", "error", err)
			}
		}()
		logger.Info("OTLP tracing enabled", "endpoint", cfg.Tracing.OTLPEndpoint)
	}

	// Notification transport (simulated; swap for real senders in production)
	transport := alerting.NewSimulatedTransport(cfg.Alerting.Transport.Seed)
	transport.FailureRate = cfg.Alerting.Transport.FailureRate
	if cfg.Alerting.Transport.MaxJitterMS > 0 {
		transport.MaxJitter = time.Duration(cfg.Alerting.Transport.MaxJitterMS) * time.Millisecond
	}

	// Alert manager with rules loaded from the YAML file
	manager := alerting.NewManager(cfg.Alerting.HistoryLimit, transport, logger)
	if rf, err := alerting.LoadRulesFile(cfg.Alerting.RulesPath); err != nil {
		logger.Warn("Failed to load alert rules, starting with none", "path", cfg.Alerting.RulesPath, "error", err)
	} else {
		manager.ReplaceRules(rf.Rules)
		manager.ReplaceChannels(rf.Channels)
		logger.Info("Alert rules loaded", "path", cfg.Alerting.RulesPath, "rules", len(rf.Rules), "channels", len(rf.Channels))
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hot reload of the rules file
	if cfg.Alerting.WatchRules {
		watcher := alerting.NewRulesWatcher(cfg.Alerting.RulesPath, manager, logger)
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.Warn("Rules watcher stopped", "error", err)
			}
		}()
	}

	// Intelligence engines
	ic := cfg.Intelligence
	engines := api.Engines{
		Anomaly: intelligence.NewAnomalyDetector(intelligence.AnomalyDetectorConfig{
			WindowSize: ic.Anomaly.WindowSize,
			Threshold:  ic.Anomaly.Threshold,
		}),
		Predictive: intelligence.NewPredictiveAlertGenerator(intelligence.PredictiveConfig{
			Horizon:          time.Duration(ic.Predict.HorizonMinutes) * time.Minute,
			DangerThresholds: ic.Predict.Thresholds,
			DefaultThreshold: ic.Predict.DefaultThreshold,
		}),
		RootCause: intelligence.NewRootCauseAnalyzer(manager, intelligence.RootCauseConfig{
			OverlapWindow: time.Duration(ic.RCA.OverlapWindowMinutes) * time.Minute,
			ClusterWindow: time.Duration(ic.RCA.ClusterWindowMinutes) * time.Minute,
		}),
		Capacity: intelligence.NewCapacityPlanner(
			intelligence.NewSimulatedUsageSource(ic.Capacity.SimulationSeed),
			intelligence.CapacityConfig{
				HistoryWindow: time.Duration(ic.Capacity.HistoryWindowHours) * time.Hour,
				MonthlyCost:   intelligence.DefaultCapacityConfig().MonthlyCost,
				ScaleUpAt:     ic.Capacity.ScaleUpAt,
				ScaleDownAt:   ic.Capacity.ScaleDownAt,
				SafetyMargin:  ic.Capacity.SafetyMargin,
			},
		),
	}

	// Initialize API server
	apiServer := api.NewServer(cfg, logger, valkeyCache, manager, engines)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Start server
	if err := apiServer.Start(ctx); err != nil {
		logger.Fatal("Server failed to start", "error", err)
	}

	logger.Info("VIGIL-CORE shutdown complete")
}
