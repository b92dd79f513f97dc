package main

import (
	"context"
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

	"little-stars/internal/config"
	"little-stars/internal/domain"
	apphttp "little-stars/internal/http"
	"little-stars/internal/repository"
	"little-stars/internal/repository/rediscache"
	"little-stars/internal/repository/sqlite"
	"little-stars/internal/service"
	"little-stars/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel())

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

	studentRepo := sqlite.NewStudentRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)

	if err := studentRepo.Init(ctx); err != nil {
		logger.Fatalf("init student repository: %v", err)
	}
	if err := sessionRepo.Init(ctx); err != nil {
		logger.Fatalf("init session repository: %v", err)
	}
	if err := service.SeedStudents(ctx, studentRepo, domain.DemoStudent()); err != nil {
		logger.Fatalf("seed students: %v", err)
	}

	var revocations repository.RevocationCache
	if cfg.Redis.Addr != "" {
		client, err := rediscache.Open(ctx, rediscache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warnf("redis unavailable, checking revocations in sqlite only: %v", err)
		} else {
			defer client.Close()
			revocations = rediscache.NewRevocationCache(client)
			logger.Infof("using redis revocation cache at %s", cfg.Redis.Addr)
		}
	}

	authService, err := service.NewAuthService(studentRepo, sessionRepo, revocations, service.AuthConfig{
		JWTSecret: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		TokenTTL:  cfg.TokenTTL(),
		DemoCode:  cfg.Auth.DemoCode,
	}, logger)
	if err != nil {
		logger.Fatalf("setup auth: %v", err)
	}

	var photoService service.PhotoService
	if cfg.Storage.Bucket != "" {
		storageSvc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		photoService = service.NewPhotoService(studentRepo, storageSvc, service.PhotoConfig{
			Bucket:    cfg.Storage.Bucket,
			KeyPrefix: cfg.Storage.KeyPrefix,
			URLExpiry: cfg.PresignTTL(),
		}, logger)
	} else {
		logger.Info("no storage bucket configured, photo uploads disabled")
	}

	go service.RunSessionJanitor(ctx, sessionRepo, time.Hour, 24*time.Hour, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(authService, photoService, logger)
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

	logger.Info("bye")
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
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
