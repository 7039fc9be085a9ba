// Package app initializes and runs the job application service.
// It configures logging, storage, object storage, authentication and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/jobtracker/internal/auth"
	"github.com/patric-chuzhbe/jobtracker/internal/config"
	"github.com/patric-chuzhbe/jobtracker/internal/db/jsondb"
	"github.com/patric-chuzhbe/jobtracker/internal/db/memorystorage"
	"github.com/patric-chuzhbe/jobtracker/internal/db/postgresdb"
	"github.com/patric-chuzhbe/jobtracker/internal/ipchecker"
	"github.com/patric-chuzhbe/jobtracker/internal/jobapplication"
	"github.com/patric-chuzhbe/jobtracker/internal/logger"
	"github.com/patric-chuzhbe/jobtracker/internal/metrics"
	"github.com/patric-chuzhbe/jobtracker/internal/models"
	"github.com/patric-chuzhbe/jobtracker/internal/objectstorage/diskstorage"
	"github.com/patric-chuzhbe/jobtracker/internal/objectstorage/s3storage"
	"github.com/patric-chuzhbe/jobtracker/internal/ratelimiter"
	"github.com/patric-chuzhbe/jobtracker/internal/router"
	"github.com/patric-chuzhbe/jobtracker/internal/service"
	"github.com/patric-chuzhbe/jobtracker/internal/user"
)

const (
	rateLimiterCleanupInterval = time.Minute
	rateLimiterMaxIdle         = 10 * time.Minute
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error)
	GetUserBySubject(ctx context.Context, subject string, transaction *sql.Tx) (*user.User, bool, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type applicationKeeper interface {
	GetUserApplications(
		ctx context.Context,
		userID string,
		transaction *sql.Tx,
	) ([]*jobapplication.JobApplication, error)

	GetApplicationByID(
		ctx context.Context,
		applicationID string,
		transaction *sql.Tx,
	) (*jobapplication.JobApplication, bool, error)

	GetApplicationByIDForUpdate(
		ctx context.Context,
		applicationID string,
		transaction *sql.Tx,
	) (*jobapplication.JobApplication, bool, error)

	InsertApplication(
		ctx context.Context,
		app *jobapplication.JobApplication,
		transaction *sql.Tx,
	) (string, error)

	UpdateApplication(
		ctx context.Context,
		app *jobapplication.JobApplication,
		transaction *sql.Tx,
	) error

	DeleteApplication(ctx context.Context, applicationID string, transaction *sql.Tx) error

	GetNumberOfApplications(ctx context.Context) (int64, error)
}

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	applicationKeeper
	transactioner
	pinger
	Close() error
}

type objectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// App encapsulates the configuration, HTTP handler, storage backends
// and background services needed to run the job application service.
type App struct {
	cfg             *config.Config
	db              storage
	rateLimiter     *ratelimiter.RateLimiter
	stopRateLimiter context.CancelFunc
	httpHandler     http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage and object storage
// - setting up the rate limiter cleanup loop
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	objects, err := getObjectStorageByType(app.cfg)
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}

	signingKey, err := app.cfg.SigningKey()
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}
	if checker.IsTrustedSubnetEmpty() {
		logger.Log.Infoln("TRUSTED_SUBNET is empty, internal endpoints are disabled")
	}

	app.rateLimiter = ratelimiter.New(app.cfg.RateLimitRPS, app.cfg.RateLimitBurst, checker)
	rateLimiterRunCtx, stopRateLimiter := context.WithCancel(context.Background())
	app.stopRateLimiter = stopRateLimiter
	go app.rateLimiter.Run(rateLimiterRunCtx, rateLimiterCleanupInterval, rateLimiterMaxIdle)

	svc := service.New(
		app.db,
		objects,
		app.cfg.BaseURL,
		service.WithMetrics(metrics.Recorder{}),
	)

	app.httpHandler = router.New(
		svc,
		auth.New(
			signingKey,
			auth.WithIssuer(app.cfg.AuthIssuer),
			auth.WithAudience(app.cfg.AuthAudience),
		),
		router.WithCORSAllowedOrigins(app.cfg.CORSAllowedOrigins),
		router.WithMaxRequestBodySize(app.cfg.MaxRequestBodySize),
		router.WithRateLimiter(app.rateLimiter),
		router.WithTrustedSubnet(checker),
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr, "BaseURL", a.cfg.BaseURL)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		a.stopRateLimiter()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		a.stopRateLimiter()
		return errors.Join(fmt.Errorf("server error: %w", err), a.db.Close())
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch cfg.StorageType() {
	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}

func getObjectStorageByType(cfg *config.Config) (objectStore, error) {
	switch cfg.ObjectStorageType {
	case models.ObjectStorageTypeS3:
		return s3storage.New(
			context.Background(),
			cfg.S3Bucket,
			cfg.S3Region,
			s3storage.WithEndpoint(cfg.S3Endpoint),
			s3storage.WithPathStyle(cfg.S3UsePathStyle),
			s3storage.WithStaticCredentials(cfg.S3AccessKeyID, cfg.S3SecretAccessKey),
		)

	case models.ObjectStorageTypeDisk:
		return diskstorage.New(cfg.ObjectStorageDir)
	}

	return nil, fmt.Errorf("unknown object storage type %q", cfg.ObjectStorageType)
}
