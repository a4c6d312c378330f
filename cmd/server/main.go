package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/travelog-app/server/internal/config"
	"github.com/travelog-app/server/internal/database"
	"github.com/travelog-app/server/internal/handlers"
	"github.com/travelog-app/server/internal/httpserver"
	"github.com/travelog-app/server/internal/ingest"
	"github.com/travelog-app/server/internal/metrics"
	"github.com/travelog-app/server/internal/ratelimit"
	"github.com/travelog-app/server/internal/storage"
	"github.com/travelog-app/server/internal/store"
	"github.com/travelog-app/server/internal/validate"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db, err := database.NewPostgresDB(logger, database.PostgresConfig{
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		DBName:   cfg.PostgresDatabase,
		SSLMode:  cfg.PostgresSSLMode,
	})
	if err != nil {
		logger.WithError(err).Fatal("Database setup failed")
	}

	var fileStore storage.Storage
	uploadsDir := ""
	switch cfg.StorageBackend {
	case "s3":
		fileStore = storage.NewS3Storage(storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		local, err := storage.NewLocalStorage(cfg.UploadDir)
		if err != nil {
			logger.WithError(err).Fatal("Upload storage setup failed")
		}
		fileStore = local
		uploadsDir = local.Dir()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := ratelimit.New(logger, db, cfg.RateLimitMax, cfg.RateLimitWindow)
	go limiter.StartPurger(ctx, time.Minute)

	throttle := handlers.NewThrottle(cfg.GlobalRateLimit, int(cfg.GlobalRateLimit), cfg.TrustProxy)
	go throttle.StartJanitor(ctx)

	m := metrics.New(prometheus.DefaultRegisterer)
	ingestor := ingest.New(logger, fileStore, cfg.MaxUploadBytes, cfg.UploadURLBase)
	validator := validate.New(cfg.UploadURLBase)
	entries := store.NewEntryStore(logger, db)

	handler := handlers.NewLogsHandler(logger, cfg, ingestor, validator, entries, limiter, m)

	r := mux.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-KEY"},
		AllowCredentials: true,
	}))
	r.Use(handlers.LoggingMiddleware(logger, db, cfg.TrustProxy))
	r.Use(throttle.Middleware)
	handlers.RegisterRoutes(r, handler, promhttp.Handler(), uploadsDir)

	if err := httpserver.Run(logger, cfg.ListenAddr, r, cfg.ReadTimeout, cfg.WriteTimeout); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
