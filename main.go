package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/config"
	"github.com/yeremiapane/canteenkart/database"
	"github.com/yeremiapane/canteenkart/notify"
	"github.com/yeremiapane/canteenkart/realtime"
	"github.com/yeremiapane/canteenkart/recommend"
	"github.com/yeremiapane/canteenkart/router"
	"github.com/yeremiapane/canteenkart/services"
	"github.com/yeremiapane/canteenkart/storage"
	"github.com/yeremiapane/canteenkart/utils"
	"golang.org/x/sync/errgroup"
)

const notifyTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLoggerWithLevel(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret, cfg.JWTTTL)
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate database: %v", err)
	}

	if cfg.Owner.Phone != "" && cfg.Owner.Password != "" {
		owner, created, err := services.NewAuthService(db).EnsureOwner(ctx, cfg.Owner.Phone, cfg.Owner.Name, cfg.Owner.Password)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to bootstrap owner: %v", err)
		}
		if created {
			utils.InfoLogger.Infof("Owner account %s created", owner.Phone)
		}
	}

	hub := realtime.NewHub()
	notifiers := notify.Multi{hub}
	if cfg.AMQP.URL != "" {
		publisher, err := notify.NewAMQPNotifier(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			utils.ErrorLogger.Errorf("AMQP disabled: %v", err)
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, publisher)
		}
	}
	notifier := notify.Async(notifiers, notifyTimeout)

	var recommender recommend.Recommender
	if cfg.Gemini.APIKey != "" {
		gemini, err := recommend.NewGeminiRecommender(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			utils.ErrorLogger.Errorf("Gemini recommendations disabled: %v", err)
		} else {
			defer gemini.Close()
			recommender = gemini
		}
	}

	var images storage.ImageStore = storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.URLPrefix)
	if cfg.Storage.S3Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage.S3Region, cfg.Storage.S3Bucket, cfg.Storage.S3Prefix, cfg.Storage.S3PublicURL)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to set up S3 image store: %v", err)
		}
		images = s3Store
	}

	r, err := router.SetupRouter(db, router.Options{
		Config:      cfg,
		Hub:         hub,
		Notifier:    notifier,
		Recommender: recommender,
		Images:      images,
	})
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.InfoLogger.Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.InfoLogger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		notifier.Wait()
		return err
	})
	if err := g.Wait(); err != nil {
		utils.ErrorLogger.Fatalf("Server error: %v", err)
	}
}
