// Package memorystorage is the volatile store used when neither a database
// nor a storage file is configured.
package memorystorage

import (
	"github.com/patric-chuzhbe/jobtracker/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: jsondb.NewInMemory(),
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}
