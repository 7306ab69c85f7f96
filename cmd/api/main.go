package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"pulse-core-analytics-layer/internal/application"
	"pulse-core-analytics-layer/internal/application/populators"
	"pulse-core-analytics-layer/internal/domain"
	rediscache "pulse-core-analytics-layer/internal/infrastructure/cache"
	"pulse-core-analytics-layer/internal/infrastructure/insight"
	"pulse-core-analytics-layer/internal/infrastructure/metrics"
	"pulse-core-analytics-layer/internal/infrastructure/pubsub"
	"pulse-core-analytics-layer/internal/infrastructure/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	mongoDatabase := os.Getenv("MONGODB_DATABASE")
	if mongoDatabase == "" {
		mongoDatabase = "analytics_engine"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	// Connect to MongoDB (explicit lifecycle: opened here, closed at shutdown)
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(mongoDatabase)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()

	// Initialize metrics
	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(collectors.NewGoCollector())
	recorder := metrics.NewRecorder(metricsRegistry)

	// Initialize repositories
	rawRecordRepo := repository.NewMongoRawRecordRepository(db)
	organizedRepo := repository.NewMongoOrganizedEntityRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)
	productRepo := repository.NewMongoProductRepository(db)
	integrationRepo := repository.NewMongoIntegrationRepository(db)
	settingsRepo := repository.NewMongoSettingsRepository(db)
	cacheStore := rediscache.NewRedisCacheStore(redisClient)

	// Initialize insight generator (best-effort collaborator)
	insightGenerator := insight.NewNoopInsightGenerator()
	if endpoint := os.Getenv("INSIGHT_API_URL"); endpoint != "" {
		insightGenerator = insight.NewHTTPInsightGenerator(endpoint, os.Getenv("INSIGHT_API_KEY"), logger)
	}

	// Initialize populator registry and register platforms
	populatorRegistry := populators.NewRegistry(logger)
	populatorRegistry.Register(populators.NewShopifyPopulator(rawRecordRepo, orderRepo, productRepo, logger))
	populatorRegistry.Register(populators.NewAmazonPopulator(rawRecordRepo, orderRepo, productRepo, logger))

	// Initialize application services
	organizerService := application.NewOrganizerService(rawRecordRepo, organizedRepo, logger)

	analyticsService := application.NewAnalyticsService(
		orderRepo,
		productRepo,
		rawRecordRepo,
		settingsRepo,
		insightGenerator,
		logger,
	)

	cacheService := application.NewCacheService(
		cacheStore,
		analyticsService,
		integrationRepo,
		recorder,
		logger,
	)

	refreshPubSub := pubsub.NewRefreshPubSub(logger)

	// Operational listener: surfaces failed refresh jobs in the logs without
	// coupling the scheduler to logging concerns.
	jobEvents := refreshPubSub.Subscribe(context.Background(), nil)
	go func() {
		for result := range jobEvents.Results {
			if result.Success {
				continue
			}
			logger.Warn().
				Str("clientId", result.ClientID).
				Str("platform", string(result.PlatformType)).
				Str("error", result.Error).
				Msg("Refresh job failed")
		}
	}()

	schedulerService := application.NewSchedulerService(
		integrationRepo,
		populatorRegistry,
		organizerService,
		cacheService,
		refreshPubSub,
		recorder,
		envInt("REFRESH_MAX_CONCURRENCY", 4),
		time.Duration(envInt("REFRESH_JOB_TIMEOUT_SECONDS", 120))*time.Second,
		logger,
	)

	integrationService := application.NewIntegrationService(integrationRepo, populatorRegistry, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))

	// Dashboard read path and operational endpoints
	r.Get("/api/v1/analytics/{clientId}", analyticsHandler(cacheService, logger))
	r.Post("/api/v1/refresh", refreshHandler(schedulerService, logger))
	r.Post("/api/v1/integrations", registerIntegrationHandler(integrationService, logger))

	// Scheduled trigger: the ticker and the manual endpoint share the same
	// batch entry point.
	refreshInterval := time.Duration(envInt("REFRESH_INTERVAL_MINUTES", 60)) * time.Minute
	tickerCtx, stopTicker := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := schedulerService.RunFullRefresh(tickerCtx); err != nil {
					logger.Error().Err(err).Msg("Scheduled refresh batch failed")
				}
			case <-tickerCtx.Done():
				return
			}
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		logger.Info().Str("port", port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown: stop the ticker, let in-flight jobs finish, close
	// the storage handles via the deferred disconnects.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")
	stopTicker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}

// analyticsHandler serves the dashboard read path: cached analytics with
// force_refresh and fast_mode request-level overrides.
func analyticsHandler(cacheService *application.CacheService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientId")
		if clientID == "" {
			http.Error(w, "clientId is required", http.StatusBadRequest)
			return
		}

		platform := r.URL.Query().Get("platform")
		if platform == "" {
			platform = string(domain.PlatformAll)
		}
		forceRefresh := r.URL.Query().Get("force_refresh") == "true"
		fastMode := r.URL.Query().Get("fast_mode") == "true"

		params := map[string]string{"platform": platform}

		response, err := cacheService.GetOrCompute(r.Context(), clientID, "dashboard_analytics", params, forceRefresh, fastMode)
		if err != nil {
			logger.Error().Err(err).Str("clientId", clientID).Msg("Failed to serve analytics")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"error": "analytics temporarily unavailable"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// refreshHandler triggers a manual batch refresh with the same semantics as
// the scheduled trigger.
func refreshHandler(scheduler *application.SchedulerService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := scheduler.RunFullRefresh(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("Manual refresh batch failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

// registerIntegrationHandler registers a client's platform integration.
func registerIntegrationHandler(integrations *application.IntegrationService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input application.RegisterIntegrationInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if input.ClientID == "" || input.PlatformType == "" {
			http.Error(w, "client_id and platform_type are required", http.StatusBadRequest)
			return
		}

		integration, err := integrations.RegisterIntegration(r.Context(), input)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to register integration")
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(integration)
	}
}

// envInt reads an integer environment variable with a default.
func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
