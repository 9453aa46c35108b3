package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Lux-EE464H/Lux/internal/lighting"
	"github.com/Lux-EE464H/Lux/internal/predictor"
	"github.com/Lux-EE464H/Lux/internal/statestore"
	"github.com/Lux-EE464H/Lux/pkg/config"
	"github.com/Lux-EE464H/Lux/pkg/health"
	"github.com/Lux-EE464H/Lux/pkg/influx"
	"github.com/Lux-EE464H/Lux/pkg/lifx"
	"github.com/Lux-EE464H/Lux/pkg/mqtt"
	"github.com/Lux-EE464H/Lux/pkg/postgres"
	"github.com/Lux-EE464H/Lux/pkg/redis"
	"github.com/Lux-EE464H/Lux/pkg/sqlite"
	"github.com/Lux-EE464H/Lux/pkg/weather"
)

// startupTimeout bounds connecting to backing services
const startupTimeout = 30 * time.Second

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	// Load configuration with hierarchy: defaults → file → env → flags
	cfg, err := config.Load(pflag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting Lux lighting agent",
		"service_name", cfg.ServiceName,
		"location", cfg.Location,
		"state_backend", cfg.StateBackend,
		"cycle_interval", cfg.CycleInterval,
		"once", cfg.Once,
		"log_level", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	startCtx, startCancel := context.WithTimeout(ctx, startupTimeout)
	defer startCancel()

	// Predictor memory. Cycles fall back to the last prediction until it is reachable.
	db := postgres.NewClient(cfg, logger)
	defer db.Disconnect()

	colorPredictor := predictor.NewStore(db, cfg.Location, cfg.PredictorNeighbours, logger)
	if err := colorPredictor.Prepare(startCtx); err != nil {
		logger.Warn("PostgreSQL unavailable, predictor will retry each cycle", "error", err)
	}

	// Controller state
	store, storePinger, closeStore, err := openStateStore(startCtx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open state store", "backend", cfg.StateBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	lifxClient := lifx.NewClient(cfg.LIFXBaseURL, cfg.LIFXToken, cfg.LIFXSelector, cfg.CallTimeout, logger)
	weatherClient := weather.NewClient(cfg.WeatherURL, cfg.Latitude, cfg.Longitude, cfg.CallTimeout, logger)

	deps := lighting.Dependencies{
		Lights:    lighting.NewLIFXDevice(lifxClient, cfg.LIFXDuration),
		Predictor: colorPredictor,
		Weather:   weatherClient,
		Daylight:  weatherClient,
		Store:     store,
	}

	var mqttClient mqtt.Client
	if cfg.MQTTEnabled {
		mqttClient = mqtt.NewClient(cfg, logger)
		if err := mqttClient.Connect(startCtx); err != nil {
			// Paho keeps retrying in the background and restores subscriptions on connect
			logger.Warn("MQTT broker unavailable, reports and commands resume on reconnect", "error", err)
		}
		defer mqttClient.Disconnect()
		deps.Reporters = append(deps.Reporters, lighting.NewMQTTReporter(mqttClient))
	}

	var influxClient *influx.Client
	if cfg.InfluxEnabled {
		influxClient, err = influx.Connect(startCtx, cfg, logger)
		if err != nil {
			// Telemetry is optional, the lights are not
			logger.Warn("InfluxDB unavailable, cycle telemetry disabled", "error", err)
		} else {
			defer influxClient.Close()
			deps.Reporters = append(deps.Reporters, lighting.NewInfluxReporter(influxClient))
		}
	}
	startCancel()

	settings := lighting.Settings{
		Location:        cfg.Location,
		DeltaEThreshold: cfg.DeltaEThreshold,
		DecayRate:       cfg.DecayRate,
		MaxRetries:      cfg.MaxRetries,
		CallTimeout:     cfg.CallTimeout,
		Tolerance: lighting.Tolerance{
			Hue:        cfg.ToleranceHue,
			Saturation: cfg.ToleranceSat,
			Brightness: cfg.ToleranceBri,
			Kelvin:     cfg.ToleranceKelvin,
		},
	}
	controller := lighting.NewController(deps, settings, logger)
	agent := lighting.NewAgent(controller, cfg.CycleInterval, logger)

	if cfg.Once {
		report := agent.RunOnce(ctx)
		if report == nil || report.Outcome != lighting.OutcomeActuated {
			logger.Warn("Single cycle did not actuate")
		}
		logger.Info("Single cycle complete")
		return
	}

	if mqttClient != nil {
		topic := mqtt.LightingCommandTopic(cfg.Location)
		if err := mqttClient.Subscribe(topic, 0, agent.CommandHandler(cfg.Location, logger)); err != nil {
			logger.Warn("Lighting command subscription pending until MQTT connects", "topic", topic, "error", err)
		}
	}

	// Start health check server
	healthChecker := health.NewChecker(mqttClient, agent, logger)
	healthChecker.AddDependency("state", storePinger)
	healthChecker.AddDependency("postgres", db)
	if influxClient != nil {
		healthChecker.AddDependency("influx", influxClient)
	}
	httpServer := startHealthServer(cfg.HealthPort, healthChecker, logger)

	agentErr := make(chan error, 1)
	go func() {
		if err := agent.Start(ctx); err != nil {
			logger.Error("Agent error", "error", err)
			agentErr <- err
		}
	}()

	// Wait for shutdown signal or agent error
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
	case err := <-agentErr:
		logger.Error("Agent failed", "error", err)
	}

	logger.Info("Initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", "error", err)
	}

	logger.Info("Lighting agent shutdown complete", "cycles", agent.CycleCount())
}

// openStateStore opens the configured backend and returns it with a health pinger and a closer
func openStateStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (lighting.StateStore, health.Pinger, func(), error) {
	switch cfg.StateBackend {
	case "redis":
		client := redis.NewClient(cfg, logger)
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		store := statestore.NewRedisStore(client, cfg.RedisPrefix, cfg.Location, cfg.LockTTL, logger)
		return store, client, func() { client.Close() }, nil

	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		store := statestore.NewSQLiteStore(db, cfg.Location, cfg.LockTTL, logger)
		return store, pingFunc(db.PingContext), func() { db.Close() }, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown state backend: %s", cfg.StateBackend)
}

func startHealthServer(port int, checker *health.Checker, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HandlerFunc())
	mux.HandleFunc("/health/detailed", checker.DetailedHandlerFunc())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Starting health check server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()

	return server
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
