package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bazaar/bazaar-api/internal/config"
	"github.com/bazaar/bazaar-api/internal/db"
	"github.com/bazaar/bazaar-api/internal/domain/flashsale"
	"github.com/bazaar/bazaar-api/internal/middleware"
	"github.com/bazaar/bazaar-api/internal/pkg/catalog"
	"github.com/bazaar/bazaar-api/internal/pkg/database"
	"github.com/bazaar/bazaar-api/internal/pkg/jwt"
	"github.com/bazaar/bazaar-api/internal/pkg/logger"
	"github.com/bazaar/bazaar-api/internal/pkg/media"
	"github.com/bazaar/bazaar-api/internal/pkg/metrics"
	"github.com/bazaar/bazaar-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
	})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Bazaar flash sale API")

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	pg, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(pg)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	m := metrics.New("bazaar_flashsale")

	catalogClient := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogToken, cfg.CatalogTimeout)

	var mediaStore flashsale.MediaStore
	if cfg.MediaAccessKey != "" {
		s3Store, err := media.NewS3Storage(media.S3Config{
			Endpoint:  cfg.MediaEndpoint,
			Region:    cfg.MediaRegion,
			AccessKey: cfg.MediaAccessKey,
			SecretKey: cfg.MediaSecretKey,
			Bucket:    cfg.MediaBucket,
			PublicURL: cfg.MediaPublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create media storage")
		}
		mediaStore = &mediaStoreAdapter{storage: s3Store}
	} else {
		log.Warn().Msg("Media storage not configured, banner cleanup disabled")
	}

	// ---------- Repositories ----------
	repo := flashsale.NewRepository(pg)

	// ---------- Services ----------
	var traffic flashsale.TrafficCounter
	var worker *flashsale.Worker
	if redis != nil {
		buffer := flashsale.NewRedisTrafficBuffer(redis)
		traffic = buffer
		worker = flashsale.NewWorker(repo, buffer, cfg.StatsFlushInterval)
		worker.Start()
		defer worker.Stop()
	} else {
		log.Warn().Msg("Redis not configured, traffic counters write through to PostgreSQL")
	}

	service := flashsale.NewService(repo, &catalogAdapter{client: catalogClient}, mediaStore, traffic, m)

	// ---------- Handlers ----------
	handler := flashsale.NewHandler(service)
	storefrontHandler := flashsale.NewStorefrontHandler(service)
	checkoutHandler := flashsale.NewCheckoutHandler(service)

	authMiddleware := middleware.Auth(jwtService)
	serviceTokenMiddleware := middleware.ServiceToken(cfg.CheckoutServiceToken)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.PingContext(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
			return
		}
		response.OK(w, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/flash-sales", handler.Routes(authMiddleware))
		r.Mount("/storefront/flash-sales", storefrontHandler.Routes())
	})
	r.Mount("/internal/checkout", checkoutHandler.Routes(serviceTokenMiddleware))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// Adapter implementations to bridge interface mismatches

// catalogAdapter adapts catalog.Client to flashsale.ProductCatalog
type catalogAdapter struct {
	client *catalog.Client
}

func (a *catalogAdapter) ProductSnapshot(ctx context.Context, productID uuid.UUID) (*flashsale.ProductInfo, error) {
	product, err := a.client.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &flashsale.ProductInfo{
		Price: product.Price,
		Stock: product.Stock,
	}, nil
}

// mediaStoreAdapter adapts media.Storage to flashsale.MediaStore
type mediaStoreAdapter struct {
	storage media.Storage
}

func (a *mediaStoreAdapter) Remove(ctx context.Context, publicURL string) error {
	key, ok := a.storage.ObjectKey(publicURL)
	if !ok {
		// URL is not ours to manage
		return nil
	}
	return a.storage.Delete(ctx, key)
}
