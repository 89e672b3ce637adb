// Package main is the entrypoint for the imgpress API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/imgpress/imgpress/internal/blob"
	"github.com/imgpress/imgpress/internal/cache"
	"github.com/imgpress/imgpress/internal/config"
	"github.com/imgpress/imgpress/internal/handler"
	"github.com/imgpress/imgpress/internal/metrics"
	"github.com/imgpress/imgpress/internal/middleware"
	"github.com/imgpress/imgpress/internal/repository"
	"github.com/imgpress/imgpress/internal/server"
	"github.com/imgpress/imgpress/internal/service"
	"github.com/imgpress/imgpress/internal/transform"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize session store
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize blob storage
	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize blob storage", "error", err, "backend", cfg.StorageBackend)
		os.Exit(1)
	}
	logger.Info("blob storage ready", "backend", cfg.StorageBackend)

	// Initialize services
	metricsRecorder := metrics.NewNoop()
	engine := transform.NewEngine(cfg.MaxImageDimension, cfg.JPEGQuality)

	authService, err := service.NewAuthService(repo, cacheClient, cfg.SessionTTL, metricsRecorder)
	if err != nil {
		logger.Error("failed to initialize auth service", "error", err)
		os.Exit(1)
	}
	galleryService := service.NewGalleryService(repo, blobs, engine, cfg.TransformTimeout, metricsRecorder)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	authHandler := handler.NewAuthHandler(authService, logger)
	galleryHandler := handler.NewGalleryHandler(galleryService, logger)
	imageHandler := handler.NewImageHandler(galleryService, logger)

	// Setup router
	r := setupRouter(h, healthHandler, authHandler, galleryHandler, imageHandler, authService, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
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

// newBlobStore builds the configured storage backend.
func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendFS:
		return blob.NewFSStore(cfg.FSStorageDir, cfg.BaseURL)
	case config.StorageBackendS3:
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	authHandler *handler.AuthHandler,
	galleryHandler *handler.GalleryHandler,
	imageHandler *handler.ImageHandler,
	authService *service.AuthService,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.GetCORSAllowedOrigins())))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(cfg.MaxUploadSize))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Account endpoints (no auth required)
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)

	// Stored image fetch; the content hash in the path is the capability.
	r.Get("/images/{key}", imageHandler.Get)

	// Gallery endpoints (require a session token)
	authCfg := middleware.AuthConfig{
		Logger:    logger,
		Validator: authService,
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(authCfg))
		r.Get("/get_images", galleryHandler.List)
		r.Post("/compress_img", galleryHandler.Upload)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
