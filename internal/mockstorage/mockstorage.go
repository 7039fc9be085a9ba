// Package mockstorage provides a testify-based mock implementation
// of the storage interfaces consumed by the service and router packages.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/jobtracker/internal/jobapplication"
	"github.com/patric-chuzhbe/jobtracker/internal/user"
)

// StorageMock is a testify mock of the user and job application store.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers, when set, replaces the generic mock handler of
	// GetNumberOfUsers.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfApplications, when set, replaces the generic mock handler
	// of GetNumberOfApplications.
	OnGetNumberOfApplications func(ctx context.Context) (int64, error)
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User, tx *sql.Tx) (string, error) {
	args := m.Called(ctx, usr, tx)
	return args.String(0), args.Error(1)
}

func (m *StorageMock) GetUserBySubject(ctx context.Context, subject string, tx *sql.Tx) (*user.User, bool, error) {
	args := m.Called(ctx, subject, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *StorageMock) GetUserApplications(
	ctx context.Context,
	userID string,
	tx *sql.Tx,
) ([]*jobapplication.JobApplication, error) {
	args := m.Called(ctx, userID, tx)
	apps, _ := args.Get(0).([]*jobapplication.JobApplication)
	return apps, args.Error(1)
}

func (m *StorageMock) GetApplicationByID(
	ctx context.Context,
	applicationID string,
	tx *sql.Tx,
) (*jobapplication.JobApplication, bool, error) {
	args := m.Called(ctx, applicationID, tx)
	app, _ := args.Get(0).(*jobapplication.JobApplication)
	return app, args.Bool(1), args.Error(2)
}

func (m *StorageMock) GetApplicationByIDForUpdate(
	ctx context.Context,
	applicationID string,
	tx *sql.Tx,
) (*jobapplication.JobApplication, bool, error) {
	args := m.Called(ctx, applicationID, tx)
	app, _ := args.Get(0).(*jobapplication.JobApplication)
	return app, args.Bool(1), args.Error(2)
}

func (m *StorageMock) InsertApplication(
	ctx context.Context,
	app *jobapplication.JobApplication,
	tx *sql.Tx,
) (string, error) {
	args := m.Called(ctx, app, tx)
	return args.String(0), args.Error(1)
}

func (m *StorageMock) UpdateApplication(ctx context.Context, app *jobapplication.JobApplication, tx *sql.Tx) error {
	args := m.Called(ctx, app, tx)
	return args.Error(0)
}

func (m *StorageMock) DeleteApplication(ctx context.Context, applicationID string, tx *sql.Tx) error {
	args := m.Called(ctx, applicationID, tx)
	return args.Error(0)
}

// GetNumberOfUsers returns the number of registered users, delegating to
// OnGetNumberOfUsers when it is set.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfApplications returns the number of stored applications,
// delegating to OnGetNumberOfApplications when it is set.
func (m *StorageMock) GetNumberOfApplications(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfApplications != nil {
		return m.OnGetNumberOfApplications(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Close mocks releasing the store.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ObjectStoreMock is a testify mock of the attachment object store.
type ObjectStoreMock struct {
	mock.Mock
}

func (m *ObjectStoreMock) Put(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *ObjectStoreMock) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}
