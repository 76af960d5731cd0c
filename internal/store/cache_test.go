package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dc4eu/vc-attest/pkg/model"
)

// fakeStore is an in-memory Store used only to observe how many times
// CachingStore actually reaches the backing store.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*model.DeviceRecord
	finds   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*model.DeviceRecord)}
}

func (f *fakeStore) Get(ctx context.Context, credentialID string) (*model.DeviceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[credentialID], nil
}

func (f *fakeStore) Put(ctx context.Context, record *model.DeviceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.CredentialID] = record.Clone()
	return nil
}

func (f *fakeStore) Update(ctx context.Context, credentialID string, patch func(*model.DeviceRecord) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[credentialID]
	if !ok {
		return nil
	}
	return patch(r)
}

func (f *fakeStore) FindByAddress(ctx context.Context, evmAddress string) (*model.DeviceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	for _, r := range f.records {
		if r.EVMAddress == evmAddress {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func TestCachingStore_FindByAddressServesFromCache(t *testing.T) {
	backing := newFakeStore()
	_ = backing.Put(context.Background(), &model.DeviceRecord{
		CredentialID: "cred-1",
		EVMAddress:   "0xabc",
	})

	cache := NewCachingStore(backing, 50*time.Millisecond)
	defer cache.Stop()

	ctx := context.Background()
	if _, err := cache.FindByAddress(ctx, "0xabc"); err != nil {
		t.Fatalf("FindByAddress() error = %v", err)
	}
	if _, err := cache.FindByAddress(ctx, "0xabc"); err != nil {
		t.Fatalf("FindByAddress() error = %v", err)
	}
	if backing.finds != 1 {
		t.Fatalf("backing store hit %d times, want 1 (second call should be served from cache)", backing.finds)
	}
}

func TestCachingStore_UpdateInvalidatesCache(t *testing.T) {
	backing := newFakeStore()
	_ = backing.Put(context.Background(), &model.DeviceRecord{
		CredentialID: "cred-1",
		EVMAddress:   "0xabc",
	})

	cache := NewCachingStore(backing, time.Minute)
	defer cache.Stop()

	ctx := context.Background()
	if _, err := cache.FindByAddress(ctx, "0xabc"); err != nil {
		t.Fatalf("FindByAddress() error = %v", err)
	}

	if err := cache.Update(ctx, "cred-1", func(r *model.DeviceRecord) error {
		r.EVMAddress = "0xabc"
		r.PassportHash = "new-hash"
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if _, err := cache.FindByAddress(ctx, "0xabc"); err != nil {
		t.Fatalf("FindByAddress() error = %v", err)
	}
	if backing.finds != 2 {
		t.Fatalf("backing store hit %d times, want 2 (cache should have been invalidated by Update)", backing.finds)
	}
}
