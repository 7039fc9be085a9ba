// Package service implements the job application workflow: identity
// resolution, ownership checks, partial updates and attachment handling.
// HTTP handlers call it with an already verified identity subject.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/patric-chuzhbe/jobtracker/internal/jobapplication"
	"github.com/patric-chuzhbe/jobtracker/internal/user"
)

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

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

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	transactioner
	userKeeper
	applicationKeeper
	pinger
}

type objectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type metricsRecorder interface {
	ApplicationCreated(status string)
	StatusChanged(from, to string)
	FileUploaded(folder string)
}

// Clock supplies the current time for timestamps and application dates.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type noopMetrics struct{}

func (noopMetrics) ApplicationCreated(string)    {}
func (noopMetrics) StatusChanged(string, string) {}
func (noopMetrics) FileUploaded(string)          {}

type Service struct {
	db          storage
	objects     objectStore
	clock       Clock
	metrics     metricsRecorder
	fileURLBase string
}

type initOptions struct {
	clock   Clock
	metrics metricsRecorder
}

// InitOption configures optional collaborators of the Service.
type InitOption func(*initOptions)

// WithClock replaces the wall clock.
func WithClock(clock Clock) InitOption {
	return func(options *initOptions) {
		options.clock = clock
	}
}

// WithMetrics reports workflow events to recorder.
func WithMetrics(recorder metricsRecorder) InitOption {
	return func(options *initOptions) {
		options.metrics = recorder
	}
}

// New builds the workflow. fileURLBase prefixes the download links of
// attachments in application views.
func New(
	db storage,
	objects objectStore,
	fileURLBase string,
	optionsProto ...InitOption,
) *Service {
	options := &initOptions{
		clock:   systemClock{},
		metrics: noopMetrics{},
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	return &Service{
		db:          db,
		objects:     objects,
		clock:       options.clock,
		metrics:     options.metrics,
		fileURLBase: fileURLBase,
	}
}

// Ping checks the health of the database/storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) inTransaction(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTransaction()
	if err != nil {
		return fmt.Errorf("in internal/service/service.go/inTransaction(): error while `s.db.BeginTransaction()` calling: %w", err)
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return s.db.CommitTransaction(tx)
}

func (s *Service) now() time.Time {
	return s.clock.Now()
}
