package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"account-api/internal/config"
	apphttp "account-api/internal/http"
	"account-api/internal/repository"
	"account-api/internal/repository/postgres"
	rediscache "account-api/internal/repository/redis"
	"account-api/internal/repository/sqlite"
	"account-api/internal/service"
	"account-api/internal/snapshot"
	"account-api/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	accountRepo, closeRepo, err := buildRepository(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatalf("setup repository: %v", err)
	}
	defer closeRepo()

	if err := accountRepo.Init(ctx); err != nil {
		logger.Fatalf("init account repository: %v", err)
	}

	accountService := service.NewAccountService(accountRepo)

	var snapshots snapshot.Manager
	if cfg.Storage.Bucket != "" {
		storageSvc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		snapshots = snapshot.NewManager(snapshot.Config{
			Bucket:    cfg.Storage.Bucket,
			KeyPrefix: cfg.Storage.KeyPrefix,
			Interval:  cfg.Snapshot.Interval,
			Logger:    logger,
		}, accountService, storageSvc)
		if err := snapshots.Start(ctx); err != nil {
			logger.Fatalf("start snapshot manager: %v", err)
		}
	} else {
		logger.Info("storage bucket not configured, snapshots disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(accountService, snapshots, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
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
	if snapshots != nil {
		snapshots.Shutdown()
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return postgres.Open(ctx, cfg.Database.URL)
	default:
		return sqlite.Open(ctx, cfg.Database.Path)
	}
}

// buildRepository picks the account store for the configured driver and
// puts the redis cache in front of it when an address is set.
func buildRepository(ctx context.Context, cfg config.Config, db *sql.DB, logger *logrus.Logger) (repository.AccountRepository, func(), error) {
	var repo repository.AccountRepository
	switch cfg.Database.Driver {
	case "postgres":
		repo = postgres.NewAccountRepository(db)
	default:
		repo = sqlite.NewAccountRepository(db)
	}
	logger.Infof("using %s account store", cfg.Database.Driver)

	if cfg.Redis.Addr == "" {
		return repo, func() {}, nil
	}

	client, err := rediscache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("caching accounts in redis at %s (ttl %s)", cfg.Redis.Addr, cfg.Redis.TTL)

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warnf("close redis: %v", err)
		}
	}
	return rediscache.NewCachedAccountRepository(repo, client, cfg.Redis.TTL, logger), closeFn, nil
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
