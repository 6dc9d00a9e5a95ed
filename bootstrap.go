package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cmrp/broadcast"
	"cmrp/config"
	"cmrp/repository"
	"cmrp/schema"
	"cmrp/service"
	"cmrp/storage"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// deps is everything the commands share: connections, stores and services
type deps struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *sql.DB
	rdb    *redis.Client

	hub   *broadcast.Hub
	relay *broadcast.RedisRelay
	files storage.FileStore
	local *storage.LocalStore

	complaints *service.ComplaintService
	officers   *service.OfficerService
	users      *service.UserService
	auth       *service.AuthService
	analytics  *service.AnalyticsService
	reconciler *service.ReconcileService
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("log_level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	dsn, err := cfg.Database.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

func openFileStore(ctx context.Context, cfg config.StorageConfig) (storage.FileStore, *storage.LocalStore, error) {
	if cfg.Driver != "s3" {
		local := storage.NewLocalStore(cfg.UploadBasePath, cfg.UploadURLPrefix)
		return local, local, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3PublicBaseURL), nil, nil
}

// bootstrap connects to MySQL (and Redis when configured), prepares the schema and
// wires the service layer.
func bootstrap(ctx context.Context) (*deps, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connection established")

	d := &deps{cfg: cfg, logger: logger, db: db}

	if err := schema.InitializeDatabase(db, logger); err != nil {
		d.close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := schema.ValidateRequiredColumns(db, nil); err != nil {
		d.close()
		return nil, err
	}

	d.files, d.local, err = openFileStore(ctx, cfg.Storage)
	if err != nil {
		d.close()
		return nil, err
	}

	complaintRepo := repository.NewComplaintRepository(db)
	officerRepo := repository.NewOfficerRepository(db)
	userRepo := repository.NewUserRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	noteRepo := repository.NewWorkNoteRepository(db)

	d.hub = broadcast.NewHub(logger)
	var publisher broadcast.Publisher = d.hub
	var cache service.AnalyticsCacher

	if cfg.Redis.Addr != "" {
		d.rdb, err = openRedis(ctx, cfg.Redis)
		if err != nil {
			d.close()
			return nil, err
		}
		d.relay = broadcast.NewRedisRelay(d.rdb, d.hub, logger)
		publisher = d.relay
		cache = repository.NewAnalyticsCache(d.rdb, cfg.Redis.AnalyticsCacheTTL)
		logger.WithField("addr", cfg.Redis.Addr).Info("Redis enabled for live updates and analytics cache")
	}

	resolver := service.NewAssignmentService(officerRepo)
	d.analytics = service.NewAnalyticsService(complaintRepo, cache, logger)
	d.reconciler = service.NewReconcileService(complaintRepo, officerRepo, resolver, d.analytics, logger)
	d.officers = service.NewOfficerService(officerRepo, d.reconciler, logger)
	d.users = service.NewUserService(userRepo, d.files, logger)
	d.complaints = service.NewComplaintService(
		complaintRepo,
		commentRepo,
		noteRepo,
		officerRepo,
		resolver,
		d.files,
		publisher,
		d.analytics,
		logger,
	)
	d.auth = service.NewAuthService(userRepo, d.officers, service.AuthSettings{
		Secret:        []byte(cfg.Auth.JWTSecret),
		TokenTTL:      cfg.Auth.TokenTTL,
		AdminUsername: cfg.Auth.AdminUsername,
		AdminPassword: cfg.Auth.AdminPassword,
		EmailDomain:   cfg.Auth.OfficerEmailDomain,
	})

	return d, nil
}

func (d *deps) close() {
	if d.rdb != nil {
		d.rdb.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}
