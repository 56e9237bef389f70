package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"

	"sinedi/config"
	"sinedi/internal/database"
	"sinedi/internal/router"
	"sinedi/internal/service"
	"sinedi/internal/session"
	"sinedi/internal/store"
	"sinedi/pkg/cloudinary"
	"sinedi/pkg/logger"
	"sinedi/pkg/queue"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.LogLevel)
	ctx := context.Background()

	var app *firebase.App
	if cfg.Store.Driver == "firestore" || cfg.Firebase.PushEnabled {
		a, err := store.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Fatalf("firebase: %v", err)
		}
		app = a
	}

	st, err := openStore(ctx, cfg, app)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer st.Close()

	deps := router.Deps{Store: st}

	if cfg.Cloudinary.CloudName != "" {
		cloud, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			logger.Fatalf("cloudinary: %v", err)
		}
		deps.Cloud = cloud
	} else {
		logger.Warn("[upload] cloudinary disabled: set CLOUDINARY_CLOUD_NAME to enable")
	}

	if cfg.Firebase.PushEnabled {
		deps.FCM = service.NewFCMService(ctx, app)
	}
	if deps.FCM != nil {
		logger.Info("[fcm] push notifications enabled")
	} else {
		logger.Info("[fcm] push notifications disabled: set FCM_ENABLED=true to enable")
	}

	if cfg.Redis.Addr != "" {
		rdb, err := session.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		deps.Sessions = session.NewRedisKV(rdb)
	} else {
		logger.Info("[session] redis not configured, sessions kept in process")
	}

	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()
	deps.Events = producer

	a := router.Setup(cfg, deps)
	defer a.Close()

	if err := a.Auth.SeedAdmin(ctx); err != nil {
		logger.Errorf("[auth] seed admin: %v", err)
	}
	if err := a.Feed.Start(ctx); err != nil {
		logger.Fatalf("feed: %v", err)
	}
	auditor, err := service.StartDriftAuditor(cfg.Audit.Schedule, a.Wallet)
	if err != nil {
		logger.Fatalf("audit: %v", err)
	}
	defer auditor.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("server listening on :%s (store=%s)", cfg.Server.Port, cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, app *firebase.App) (store.Store, error) {
	switch cfg.Store.Driver {
	case "firestore":
		return store.NewFirestoreStore(ctx, app)
	case "mysql", "postgres":
		db, err := database.NewDB(&cfg.Store)
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
		return store.NewSQLStore(db), nil
	case "memory", "":
		logger.Warn("[store] using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	return nil, errors.New("unknown STORE_DRIVER " + cfg.Store.Driver)
}
