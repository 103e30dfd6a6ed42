package store

import (
	"context"
	"sync"

	"qrwallet/internal/domain"
)

// MemoryStore is an in-process Store used in tests and for running without
// a database. Snapshots are copied on the way in and out.
type MemoryStore struct {
	mu    sync.Mutex
	snaps map[uint]Snapshot
	saves int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[uint]Snapshot)}
}

// Load returns the snapshot for accountID, if any.
func (s *MemoryStore) Load(_ context.Context, accountID uint) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[accountID]
	if !ok {
		return Snapshot{}, false, nil
	}
	return copySnapshot(snap), true, nil
}

// Save stores a copy of the snapshot under accountID.
func (s *MemoryStore) Save(_ context.Context, accountID uint, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[accountID] = copySnapshot(snap)
	s.saves++
	return nil
}

// SaveCount reports how many saves have been performed.
func (s *MemoryStore) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func copySnapshot(snap Snapshot) Snapshot {
	return Snapshot{
		Wallet:  snap.Wallet,
		Settled: append([]domain.Transaction(nil), snap.Settled...),
	}
}
