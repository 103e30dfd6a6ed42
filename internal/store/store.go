// Package store is the durable snapshot adapter for wallets. Snapshots are
// keyed by account id and hold the wallet plus its settled history; pending
// transactions live only in memory for the session, matching the offline
// exchange model where a pending transfer is finalized on the same device
// that created it.
package store

import (
	"context"

	"qrwallet/internal/domain"
)

// Snapshot is the persisted state for one account.
type Snapshot struct {
	Wallet  domain.Wallet
	Settled []domain.Transaction // most recent first
}

// Store loads and saves wallet snapshots. Load reports absence through its
// boolean, not an error: an account without a wallet is a normal state.
type Store interface {
	Load(ctx context.Context, accountID uint) (Snapshot, bool, error)
	Save(ctx context.Context, accountID uint, snap Snapshot) error
}
