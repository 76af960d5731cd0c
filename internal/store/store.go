// Package store defines the device store contract (C3) and its two
// interchangeable backends: an embedded JSON file and a relational Postgres
// table, selected at startup by presence of POSTGRES_URL.
package store

import (
	"context"

	"github.com/dc4eu/vc-attest/pkg/model"
)

// Store is the device store capability shared by both backends. Get and
// FindByAddress return (nil, nil) on a miss, never a sentinel error — only
// I/O failures are errors here; "not found" is a caller-level concern
// (internal/attest maps a nil Get result to ErrDeviceUnknown).
type Store interface {
	// Get looks up a record by its primary key.
	Get(ctx context.Context, credentialID string) (*model.DeviceRecord, error)

	// Put upserts a record, overwriting any existing row with the same
	// credentialId.
	Put(ctx context.Context, record *model.DeviceRecord) error

	// Update applies patch to the existing record for credentialID inside
	// the per-row critical section required by SPEC_FULL.md §5, and
	// persists the result. patch runs while the row lock (sqlstore) or
	// store-wide mutex (filestore) is held, and its return value is the
	// compare-and-swap decision: if patch returns an error (e.g. a replay
	// check failing), Update aborts without persisting any change and
	// returns that error unwrapped. Returns an error if no such record
	// exists.
	Update(ctx context.Context, credentialID string, patch func(*model.DeviceRecord) error) error

	// FindByAddress performs a case-insensitive secondary lookup. sqlstore
	// resolves ties to the most recently updated row; filestore returns an
	// arbitrary one of the matching records.
	FindByAddress(ctx context.Context, evmAddress string) (*model.DeviceRecord, error)
}
