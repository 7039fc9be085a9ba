// Package objectstorage holds what the object storage backends share.
// Backends store opaque byte blobs under string keys; they do no validation,
// no content type inference and no deduplication.
package objectstorage

import "errors"

// ErrNotFound is returned by Get when no object is stored under the key.
var ErrNotFound = errors.New("object not found")
