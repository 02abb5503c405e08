// Package main starts the resource portal HTTP server.
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

	"github.com/gin-gonic/gin"

	"resource-portal-go/internal/config"
	"resource-portal-go/internal/pipeline"
	"resource-portal-go/internal/repository"
	"resource-portal-go/internal/router"
	"resource-portal-go/internal/service"
	"resource-portal-go/pkg/database"
	"resource-portal-go/pkg/kafka"
	"resource-portal-go/pkg/log"
	"resource-portal-go/pkg/storage"
	"resource-portal-go/pkg/token"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	// 1. configuration
	path := os.Getenv("PORTAL_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("Logger initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. database, Redis and object storage
	db, err := database.OpenSQL(cfg.Database.SQL)
	if err != nil {
		log.Fatal("open database", err)
	}
	defer database.Close(db)
	if cfg.Database.SQL.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			log.Fatal("migrate database", err)
		}
	}

	rdb, err := database.OpenRedis(ctx, cfg.Database.Redis)
	if err != nil {
		log.Fatal("connect redis", err)
	}
	defer rdb.Close()

	store, err := storage.NewMinIOStore(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("connect object storage", err)
	}

	// 4. repositories and the cleanup queue
	repos := repository.New(db)
	unread := repository.NewUnreadCountCache(rdb)

	var queue service.CleanupQueue = kafka.DiscardQueue{}
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		queue = producer

		consumer := kafka.NewConsumer(cfg.Kafka, rdb, pipeline.NewJanitor(store, repos.Resources))
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil {
				log.Error("kafka cleanup consumer stopped", err)
			}
		}()
	} else {
		close(consumerDone)
		log.Warnf("Kafka disabled, storage cleanup tasks will be dropped")
	}

	// 5. services
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	svc := router.Services{
		Users: service.NewUserService(repos.Users, repository.NewTokenBlacklist(rdb), jwtManager),
		Resources: service.NewResourceService(repos, store, queue, unread, service.ResourceOptions{
			MaxUploadBytes: cfg.Upload.MaxSizeBytes,
			Folder:         cfg.MinIO.Folder,
			PresignExpiry:  cfg.MinIO.PresignExpiry(),
			PDFViewerURL:   cfg.Viewer.PDFURLTemplate,
		}),
		Ratings:       service.NewRatingService(repos, unread),
		Favorites:     service.NewFavoriteService(repos),
		Notifications: service.NewNotificationService(repos.Notifications, unread, cfg.Notification.ListLimit, cfg.Notification.UnreadCacheTTL()),
		Tags:          service.NewTagService(repos),
		Admin:         service.NewAdminService(repos, store, queue, unread, cfg.MinIO.Folder),
	}

	// 6. HTTP server with graceful shutdown
	gin.SetMode(cfg.Server.Mode)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router.New(cfg, svc),
	}

	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown", err)
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warnf("Kafka consumer did not stop before the shutdown timeout")
	}
	log.Info("Server stopped")
}
