package storage

import (
	"context"
	"errors"
	"io"

	"mdm/internal/models"
)

// ErrInvalidAddress is returned when a namespace, object id or location
// cannot be mapped to a path inside a tier root.
var ErrInvalidAddress = errors.New("invalid storage address")

// PutResult describes one persisted payload.
type PutResult struct {
	Location  string
	SizeBytes int64
	SHA256    string
}

// Backend is the byte-storage abstraction used by the ingest orchestrator.
//
// Put is whole-or-nothing: on error no partial file is visible. Put does not
// enforce id uniqueness, but each call returns its own location, so bytes
// already referenced by a record are never replaced.
type Backend interface {
	Put(ctx context.Context, tier models.StorageTier, namespace, objectID string, r io.Reader) (PutResult, error)
	Open(ctx context.Context, tier models.StorageTier, location string) (io.ReadCloser, error)
}
