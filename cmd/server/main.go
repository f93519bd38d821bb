package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/archiver"
	"bookshelf/internal/auth"
	"bookshelf/internal/catalog"
	"bookshelf/internal/config"
	apphttp "bookshelf/internal/http"
	"bookshelf/internal/repository/sqlite"
	"bookshelf/internal/service"
	"bookshelf/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	bookRepo := sqlite.NewBookRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := bookRepo.Init(ctx); err != nil {
		logger.Fatalf("init book repository: %v", err)
	}

	userService := service.NewUserService(userRepo)
	bookService := service.NewBookService(bookRepo)

	sessions := auth.NewSessions(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	catalogClient := catalog.NewClient(
		cfg.Catalog.BaseURL,
		cfg.Catalog.CoversURL,
		time.Duration(cfg.Catalog.TimeoutSeconds)*time.Second,
		logger,
	)

	var storageSvc storage.Service
	var coverArchiver archiver.Manager
	if cfg.Storage.Bucket != "" {
		storageSvc, err = buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}

		coverArchiver = archiver.NewManager(archiver.Config{
			MaxConcurrent: 3,
			FetchTimeout:  15 * time.Second,
			UploadOptions: storage.UploadOptions{
				Bucket:    cfg.Storage.Bucket,
				KeyPrefix: cfg.Storage.KeyPrefix,
			},
			Logger: logger,
		}, bookService, storageSvc)

		if err := coverArchiver.Start(ctx); err != nil {
			logger.Fatalf("start cover archiver: %v", err)
		}
		if err := coverArchiver.Resume(ctx); err != nil {
			logger.Warnf("resume cover archiving: %v", err)
		}
	} else {
		logger.Info("cover archiving disabled, storage bucket not configured")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.CustomRecovery(apphttp.RecoveryHandler(logger)))
	router.LoadHTMLGlob(cfg.Server.TemplatesGlob)

	handler := apphttp.NewHandler(
		userService,
		bookService,
		catalogClient,
		sessions,
		coverArchiver,
		storageSvc,
		cfg.Storage.Bucket,
		cfg.Auth.SecureCookie,
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if coverArchiver != nil {
		coverArchiver.Shutdown()
	}

	logger.Info("bye")
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
