package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/cache"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/config"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/database"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/handlers"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/ingest"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/middleware"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/repository"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting Isis DICOM core service")

	// Metadata store: database-backed when configured, in-memory
	// otherwise.
	var store repository.MetadataStore
	if cfg.Database.Enabled {
		dbConfig := database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			LogLevel: cfg.Database.LogLevel,
		}
		if err := database.Connect(dbConfig); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()
		store = repository.NewGormStore()
	} else {
		store = repository.NewMemoryStore()
		log.Info().Msg("Database disabled, using in-memory metadata store")
	}

	// Rendered-image cache
	var renderCache cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		renderCache, err = cache.NewRedisCache(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis render cache initialized")
	} else {
		renderCache = cache.NewMemoryCache()
		log.Info().Msg("Memory render cache initialized")
	}

	// Ingest service and handlers
	ingestService := ingest.New(store, cfg.Viewer.VOICoverageThreshold, cfg.Viewer.PrefetchWorkers)

	healthHandler := handlers.NewHealthHandler(cfg.Database.Enabled)
	viewerHandler := handlers.NewViewerHandler(ingestService, store, renderCache, cfg.Cache.TTL)
	ingestHandler := handlers.NewIngestHandler(ingestService)

	// Setup router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest", ingestHandler.Ingest)

		r.Get("/patients", viewerHandler.ListPatients)
		r.Get("/patients/{patientID}/studies", viewerHandler.ListStudies)
		r.Get("/studies/{studyUID}/series", viewerHandler.ListSeries)
		r.Get("/series/{seriesUID}/images", viewerHandler.ListImages)

		r.Get("/images/{sopUID}", viewerHandler.GetImage)
		r.Get("/images/{sopUID}/frames/{frameIndex}/rendered", viewerHandler.RenderFrame)
		r.Post("/images/{sopUID}/prefetch", viewerHandler.Prefetch)
		r.Get("/images/{sopUID}/cache", viewerHandler.CacheStats)
		r.Delete("/images/{sopUID}", viewerHandler.CloseImage)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
