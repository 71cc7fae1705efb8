package main

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/damacus/delta-commander/internal/cache"
	"github.com/damacus/delta-commander/internal/config"
	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/handlers"
	customMiddleware "github.com/damacus/delta-commander/internal/middleware"
	"github.com/damacus/delta-commander/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	var snapshots *cache.SnapshotStore
	if cfg.SnapshotPath != "" {
		snapshots, err = cache.OpenSnapshotStore(cfg.SnapshotPath, cfg.SnapshotTTL)
		if err != nil {
			log.Fatalf("snapshot store: %v", err)
		}
		defer snapshots.Close()
	}

	profiles, err := config.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		log.Fatalf("credential profiles: %v", err)
	}

	factory := &deltaglider.S3Factory{}
	e := newServer(cfg, factory, profiles, snapshots)

	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}

func newServer(cfg config.Config, factory deltaglider.StoreFactory, profiles []config.Profile, snapshots *cache.SnapshotStore) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = handlers.ErrorHandler

	// Services
	authService := services.NewAuthService()
	registry := cache.NewRegistry()
	catalog := services.NewCatalog(registry, snapshots)
	savings := services.NewSavingsJobs(registry)
	downloads := services.NewDownloads()

	// The monitor probes with whatever profile credentials exist; without
	// any it only reports endpoint reachability as unknown until a user
	// reconnects explicitly.
	monitor := services.NewHealthMonitor(func(ctx context.Context) error {
		if len(profiles) == 0 {
			return nil
		}
		store, err := factory.NewStore(profiles[0].Credentials)
		if err != nil {
			return err
		}
		_, err = store.ListBuckets(ctx)
		return err
	})
	monitor.Start(context.Background())

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, factory, profiles, cfg.DefaultEndpoint, cfg.DefaultRegion)
	bucketsHandler := handlers.NewBucketsHandler(factory, catalog, savings)
	objectsHandler := handlers.NewObjectsHandler(factory, catalog, registry)
	uploadsHandler := handlers.NewUploadsHandler(factory, catalog)
	downloadsHandler := handlers.NewDownloadsHandler(factory, downloads, authService)
	connectionHandler := handlers.NewConnectionHandler(factory, monitor, authService)

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("REQUEST: uri: %v, status: %v\n", v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(customMiddleware.SecurityHeaders())
	e.Use(customMiddleware.RateLimit(customMiddleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	// Applied globally; public routes are skipped internally.
	e.Use(customMiddleware.AuthMiddleware(authService))

	// Routes
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.POST("/api/auth/login", authHandler.Login)
	e.POST("/api/auth/logout", authHandler.Logout)
	e.GET("/api/auth/profiles", authHandler.Profiles)

	e.GET("/api/buckets", bucketsHandler.ListBuckets)
	e.POST("/api/buckets", bucketsHandler.CreateBucket)
	e.DELETE("/api/buckets/:bucket", bucketsHandler.DeleteBucket)
	e.GET("/api/buckets/:bucket/stats", bucketsHandler.BucketStats)
	e.POST("/api/buckets/:bucket/compute-savings", bucketsHandler.ComputeSavings)
	e.POST("/api/buckets/:bucket/refresh-cache", bucketsHandler.RefreshCache)

	e.GET("/api/objects/:bucket", objectsHandler.ListObjects)
	e.GET("/api/objects/:bucket/counts", objectsHandler.Counts)
	e.GET("/api/objects/:bucket/metadata", objectsHandler.Metadata)
	e.DELETE("/api/objects/:bucket", objectsHandler.DeleteObject)
	e.POST("/api/objects/:bucket/bulk-delete", objectsHandler.BulkDelete)

	e.POST("/api/upload/:bucket", uploadsHandler.Upload)

	e.POST("/api/download/:bucket", downloadsHandler.Prepare)
	e.GET("/api/download/:bucket/presign", downloadsHandler.PresignedURL)
	e.POST("/api/download/:bucket/zip", downloadsHandler.Zip)
	e.GET("/api/download/token/:token", downloadsHandler.Redeem)

	e.GET("/api/connection/status", connectionHandler.Status)
	e.POST("/api/connection/reconnect", connectionHandler.Reconnect)
	e.POST("/api/connection/rotate", connectionHandler.Rotate)

	return e
}
