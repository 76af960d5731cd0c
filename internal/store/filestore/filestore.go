// Package filestore is the embedded single-process device store backend: a
// single JSON document rewritten atomically (temp file + rename) under one
// process-wide mutex.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dc4eu/vc-attest/pkg/apierror"
	"github.com/dc4eu/vc-attest/pkg/logger"
	"github.com/dc4eu/vc-attest/pkg/model"
)

// Store is a JSON-file-backed device store. Single-process only — no
// locking beyond the in-process mutex, per SPEC_FULL.md §4.3.
type Store struct {
	mu   sync.Mutex
	path string
	log  *logger.Log
}

// New returns a Store persisting to path. The parent directory is created
// on first write, not here.
func New(path string, log *logger.Log) *Store {
	return &Store{path: path, log: log}
}

type document map[string]*model.DeviceRecord

func (s *Store) readLocked() (document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading device store: %v", apierror.ErrStoreUnavailable, err)
	}
	if len(data) == 0 {
		return document{}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decoding device store: %v", apierror.ErrStoreUnavailable, err)
	}
	return doc, nil
}

func (s *Store) writeLocked(doc document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: creating device store dir: %v", apierror.ErrStoreUnavailable, err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encoding device store: %v", apierror.ErrStoreUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".devices-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", apierror.ErrStoreUnavailable, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing temp file: %v", apierror.ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing temp file: %v", apierror.ErrStoreUnavailable, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: renaming temp file into place: %v", apierror.ErrStoreUnavailable, err)
	}
	return nil
}

// Get looks up a record by its primary key.
func (s *Store) Get(ctx context.Context, credentialID string) (*model.DeviceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	record, ok := doc[credentialID]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}

// Put upserts a record by primary key.
func (s *Store) Put(ctx context.Context, record *model.DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	doc[record.CredentialID] = record.Clone()
	return s.writeLocked(doc)
}

// Update applies patch to the existing record for credentialID and
// persists the result. The read-patch-write happens under the same lock
// that guards every other store call, which is the single-writer critical
// section SPEC_FULL.md §5 requires of this backend: if patch returns an
// error (e.g. a replay check failing), the record is left untouched and
// nothing is written to disk.
func (s *Store) Update(ctx context.Context, credentialID string, patch func(*model.DeviceRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	record, ok := doc[credentialID]
	if !ok {
		return apierror.ErrDeviceUnknown
	}
	if err := patch(record); err != nil {
		return err
	}
	doc[credentialID] = record
	return s.writeLocked(doc)
}

// FindByAddress performs a case-insensitive linear scan over the document.
// The document keeps no write order: when several records carry the same
// address, the one returned is whichever the map iteration visits last, so
// which of them is returned is not defined and is not the most recent write.
func (s *Store) FindByAddress(ctx context.Context, evmAddress string) (*model.DeviceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	target := strings.ToLower(evmAddress)
	var found *model.DeviceRecord
	for _, record := range doc {
		if strings.ToLower(record.EVMAddress) == target {
			found = record
		}
	}
	if found == nil {
		return nil, nil
	}
	return found.Clone(), nil
}
