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

	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/adapters/cache"
	"github.com/bedfinder/backend/internal/adapters/database"
	"github.com/bedfinder/backend/internal/adapters/events"
	"github.com/bedfinder/backend/internal/adapters/providers/registry"
	"github.com/bedfinder/backend/internal/adapters/providers/session"
	"github.com/bedfinder/backend/internal/api/handlers"
	"github.com/bedfinder/backend/internal/api/routes"
	"github.com/bedfinder/backend/internal/application/services"
	"github.com/bedfinder/backend/internal/application/tasks"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/internal/infrastructure/clients/postgres"
	"github.com/bedfinder/backend/internal/infrastructure/clients/redis"
	"github.com/bedfinder/backend/internal/infrastructure/observability"
	"github.com/bedfinder/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Str("host", cfg.Database.Host).Msg("PostgreSQL client initialized")

	// Redis backs caching and change notifications; the API still serves
	// without it.
	var (
		cacheProvider providers.CacheProvider
		notifier      providers.ChangeNotifier
		eventBus      *events.RedisEventBus
	)
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without cache and change notifications")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient, "bedfinder")
		eventBus = events.NewRedisEventBus(redisClient)
		notifier = eventBus
		log.Info().Str("host", cfg.Redis.Host).Msg("Redis client initialized")
	}

	facilityRepo := database.NewFacilityAdapter(pgClient)
	if cacheProvider != nil {
		facilityRepo = database.NewCachedFacilityAdapter(facilityRepo, cacheProvider)
	}
	bookingRepo := database.NewBookingAdapter(pgClient)
	emergencyRepo := database.NewEmergencyAdapter(pgClient)
	futureRepo := database.NewFutureRequestAdapter(pgClient)
	favoriteRepo := database.NewFavoriteAdapter(pgClient)

	facilityRegistry := registry.NewFacilityRegistry(registry.FacilityRegistryConfig{
		Provider:     cfg.Registry.Provider,
		Endpoint:     cfg.Registry.Endpoint,
		QueryTimeout: cfg.Registry.QueryTimeout,
		HTTPTimeout:  cfg.Registry.HTTPTimeout,
		CacheTTL:     cfg.Registry.CacheTTL,
	}, cacheProvider)

	var sessions providers.SessionProvider
	if cfg.Auth.JWTSecret != "" {
		sessions = session.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		log.Warn().Msg("AUTH_JWT_SECRET is not set; every request is anonymous")
	}

	runner := tasks.NewRunner(tasks.Config{
		Workers:   cfg.Discovery.SyncWorkers,
		QueueSize: cfg.Discovery.SyncQueueSize,
		Timeout:   cfg.Discovery.SyncTimeout,
		OnError: func(name string, err error) {
			log.Error().Err(err).Str("task", name).Msg("background task failed")
		},
	})

	reconciler := services.NewReconciliationService(facilityRepo, notifier, metrics, cfg.Discovery.DedupLatTolerance)
	external := services.NewExternalDiscoveryService(facilityRegistry, reconciler, runner, metrics)
	discovery := services.NewDiscoveryService(facilityRepo, external, reconciler, cfg.Discovery.DefaultRadiusKm)
	facilityService := services.NewFacilityService(facilityRepo, notifier)
	bookingService := services.NewBookingService(bookingRepo, facilityRepo, notifier)
	emergencyService := services.NewEmergencyService(emergencyRepo, futureRepo, notifier)
	favoriteService := services.NewFavoriteService(favoriteRepo, facilityRepo)

	checks := map[string]handlers.HealthCheck{"postgres": pgClient.Ping}
	if redisClient != nil {
		checks["redis"] = redisClient.Ping
	}

	var sseHandler *handlers.SSEHandler
	if notifier != nil {
		sseHandler = handlers.NewSSEHandler(notifier)
	}

	router := routes.NewRouter(
		handlers.NewFacilityHandler(facilityService, discovery),
		handlers.NewBookingHandler(bookingService),
		handlers.NewEmergencyHandler(emergencyService),
		handlers.NewFavoriteHandler(favoriteService),
		sseHandler,
		handlers.NewHealthHandler(checks),
		routes.Config{
			Sessions:       sessions,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Metrics:        metrics,
		},
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// WriteTimeout stays zero so change streams are not cut off.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("background sync did not drain")
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}

	log.Info().Msg("server stopped")
}
