// Package sqlstore is the relational device store backend: a gorm-managed
// Postgres table with upsert-on-conflict writes and row-locked counter
// updates.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dc4eu/vc-attest/pkg/apierror"
	"github.com/dc4eu/vc-attest/pkg/logger"
	"github.com/dc4eu/vc-attest/pkg/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is a Postgres-backed device store.
type Store struct {
	db  *gorm.DB
	log *logger.Log
}

// New opens dsn and migrates the devices table idempotently.
func New(ctx context.Context, dsn string, log *logger.Log) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("%w: opening postgres: %v", apierror.ErrStoreUnavailable, err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&model.DeviceRecord{}); err != nil {
		return nil, fmt.Errorf("%w: migrating devices table: %v", apierror.ErrStoreUnavailable, err)
	}

	return &Store{db: db, log: log}, nil
}

// Get looks up a record by its primary key.
func (s *Store) Get(ctx context.Context, credentialID string) (*model.DeviceRecord, error) {
	var record model.DeviceRecord
	err := s.db.WithContext(ctx).First(&record, "key_id = ?", credentialID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierror.ErrStoreUnavailable, err)
	}
	return &record, nil
}

// Put performs a single INSERT ... ON CONFLICT (key_id) DO UPDATE so that
// concurrent enrollments for the same key collapse deterministically.
func (s *Store) Put(ctx context.Context, record *model.DeviceRecord) error {
	record.SchemaVersion = 1
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"public_key_der", "counter", "evm_address", "passport_hash", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("%w: %v", apierror.ErrStoreUnavailable, err)
	}
	return nil
}

// Update runs patch inside a transaction that holds a row lock
// (SELECT ... FOR UPDATE) on the target record for the duration of the
// compare-and-swap, satisfying the per-credentialId serialisation
// SPEC_FULL.md §5 requires. patch's own decision — e.g. aborting with
// ErrReplay when a counter isn't strictly greater — is made while the row
// lock is held, so the decision and the write are atomic: patch returning
// an error rolls back the transaction and nothing is persisted.
func (s *Store) Update(ctx context.Context, credentialID string, patch func(*model.DeviceRecord) error) error {
	var patchErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.DeviceRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, "key_id = ?", credentialID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.ErrDeviceUnknown
		}
		if err != nil {
			return fmt.Errorf("%w: %v", apierror.ErrStoreUnavailable, err)
		}

		if err := patch(&record); err != nil {
			patchErr = err
			return err
		}

		return tx.Model(&model.DeviceRecord{}).Where("key_id = ?", credentialID).Updates(map[string]any{
			"counter":       record.Counter,
			"evm_address":   record.EVMAddress,
			"passport_hash": record.PassportHash,
		}).Error
	})
	if patchErr != nil {
		return patchErr
	}
	if err != nil && !errors.Is(err, apierror.ErrDeviceUnknown) && !errors.Is(err, apierror.ErrReplay) {
		return fmt.Errorf("%w: %v", apierror.ErrStoreUnavailable, err)
	}
	return err
}

// FindByAddress performs a case-insensitive secondary lookup. Multiple
// matches resolve to the most recently updated row.
func (s *Store) FindByAddress(ctx context.Context, evmAddress string) (*model.DeviceRecord, error) {
	var record model.DeviceRecord
	err := s.db.WithContext(ctx).
		Where("LOWER(evm_address) = LOWER(?)", strings.ToLower(evmAddress)).
		Order("updated_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierror.ErrStoreUnavailable, err)
	}
	return &record, nil
}
