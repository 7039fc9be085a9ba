// Package jsondb keeps users and job applications in memory and snapshots
// them to a JSON file on Close.
package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
	"github.com/patric-chuzhbe/jobtracker/internal/jobapplication"
	"github.com/patric-chuzhbe/jobtracker/internal/user"
)

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

type CacheStruct struct {
	Users           map[string]*user.User
	SubjectToUserID map[string]string
	Applications    map[string]*jobapplication.JobApplication

	// ApplicationsOrder keeps insertion order, which is the order listings
	// are returned in.
	ApplicationsOrder []string
}

// NewCache returns an empty cache ready for use.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:             map[string]*user.User{},
		SubjectToUserID:   map[string]string{},
		Applications:      map[string]*jobapplication.JobApplication{},
		ApplicationsOrder: []string{},
	}
}

// NewInMemory returns a store that never touches the file system.
func NewInMemory() *JSONDB {
	return &JSONDB{Cache: NewCache()}
}

func (db *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	tmpName := fileName + ".tmp"
	if err := os.WriteFile(tmpName, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	if err := os.Rename(tmpName, fileName); err != nil {
		return fmt.Errorf("error replacing file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cache)
	if err != nil {
		return err
	}

	return nil
}

// New loads the snapshot stored in fileName. A missing file starts an empty
// store that is created on Close.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(fileName, &db.Cache)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
	}

	db.Cache.fillMissing()

	return db, nil
}

func (c *CacheStruct) fillMissing() {
	if c.Users == nil {
		c.Users = map[string]*user.User{}
	}
	if c.SubjectToUserID == nil {
		c.SubjectToUserID = map[string]string{}
	}
	if c.Applications == nil {
		c.Applications = map[string]*jobapplication.JobApplication{}
	}
	if c.ApplicationsOrder == nil {
		c.ApplicationsOrder = []string{}
	}
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close writes the snapshot when the store is file backed.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.SubjectToUserID[usr.Subject]; exists {
		return "", apperror.ErrUserAlreadyExists
	}
	for _, existing := range db.Cache.Users {
		if existing.Email == usr.Email {
			return "", apperror.ErrUserAlreadyExists
		}
	}

	stored := *usr
	stored.ID = uuid.New().String()
	db.Cache.Users[stored.ID] = &stored
	db.Cache.SubjectToUserID[stored.Subject] = stored.ID

	return stored.ID, nil
}

func (db *JSONDB) GetUserBySubject(ctx context.Context, subject string, transaction *sql.Tx) (*user.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	userID, found := db.Cache.SubjectToUserID[subject]
	if !found {
		return nil, false, nil
	}
	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, false, nil
	}

	result := *usr
	return &result, true, nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) GetNumberOfApplications(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Applications)), nil
}

func (db *JSONDB) GetUserApplications(
	ctx context.Context,
	userID string,
	transaction *sql.Tx,
) ([]*jobapplication.JobApplication, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	owned := funk.Filter(db.Cache.ApplicationsOrder, func(id string) bool {
		app, ok := db.Cache.Applications[id]
		return ok && app.UserID == userID
	}).([]string)

	result := make([]*jobapplication.JobApplication, 0, len(owned))
	for _, id := range owned {
		result = append(result, db.loadApplication(id))
	}

	return result, nil
}

func (db *JSONDB) GetApplicationByID(
	ctx context.Context,
	applicationID string,
	transaction *sql.Tx,
) (*jobapplication.JobApplication, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if _, found := db.Cache.Applications[applicationID]; !found {
		return nil, false, nil
	}

	return db.loadApplication(applicationID), true, nil
}

// GetApplicationByIDForUpdate is GetApplicationByID: the file store has no
// row locks.
func (db *JSONDB) GetApplicationByIDForUpdate(
	ctx context.Context,
	applicationID string,
	transaction *sql.Tx,
) (*jobapplication.JobApplication, bool, error) {
	return db.GetApplicationByID(ctx, applicationID, transaction)
}

func (db *JSONDB) InsertApplication(
	ctx context.Context,
	app *jobapplication.JobApplication,
	transaction *sql.Tx,
) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Users[app.UserID]; !found {
		return "", fmt.Errorf("in internal/db/jsondb/jsondb.go/InsertApplication(): unknown owner %q", app.UserID)
	}

	stored := *app
	stored.ID = uuid.New().String()
	db.Cache.Applications[stored.ID] = &stored
	db.Cache.ApplicationsOrder = append(db.Cache.ApplicationsOrder, stored.ID)

	return stored.ID, nil
}

func (db *JSONDB) UpdateApplication(
	ctx context.Context,
	app *jobapplication.JobApplication,
	transaction *sql.Tx,
) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	current, found := db.Cache.Applications[app.ID]
	if !found {
		return apperror.ErrApplicationNotFound
	}

	stored := *app
	stored.UserID = current.UserID
	stored.CreatedAt = current.CreatedAt
	db.Cache.Applications[stored.ID] = &stored

	return nil
}

func (db *JSONDB) DeleteApplication(ctx context.Context, applicationID string, transaction *sql.Tx) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Applications[applicationID]; !found {
		return apperror.ErrApplicationNotFound
	}

	delete(db.Cache.Applications, applicationID)
	db.Cache.ApplicationsOrder = funk.Filter(db.Cache.ApplicationsOrder, func(id string) bool {
		return id != applicationID
	}).([]string)

	return nil
}

// loadApplication returns a copy of the stored record with its owner subject
// filled in. The caller must hold the lock.
func (db *JSONDB) loadApplication(applicationID string) *jobapplication.JobApplication {
	result := *db.Cache.Applications[applicationID]
	if owner, found := db.Cache.Users[result.UserID]; found {
		result.OwnerSubject = owner.Subject
	}

	return &result
}
