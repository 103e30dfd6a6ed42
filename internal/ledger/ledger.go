// Package ledger owns a wallet's balance and its pending and settled
// transaction collections, and applies debit, credit and confirm operations
// atomically under a single lock. It is the one place balance changes.
package ledger

import (
	"sync"
	"time"

	"qrwallet/internal/codec"
	"qrwallet/internal/domain"
	"qrwallet/internal/keyvault"
	"qrwallet/internal/signer"
)

// Ledger is the single-writer state machine for one wallet. All mutations
// serialize on the internal mutex; callers hold a *Ledger and never touch
// the collections directly. Both collections are kept most-recent-first.
//
// Transaction lifecycle: an outgoing transaction is debited and appended to
// pending at send time, then moved unchanged to settled on confirm. An
// incoming transaction is credited and appended straight to settled; the
// receiving wallet never authored the debit, so it has no pending phase.
type Ledger struct {
	mu      sync.Mutex
	wallet  domain.Wallet
	pending []domain.Transaction
	settled []domain.Transaction
}

// New builds a ledger around an existing wallet and its settled history,
// typically loaded from the snapshot store. The settled slice is adopted
// as-is and expected to be most-recent-first.
func New(wallet domain.Wallet, settled []domain.Transaction) *Ledger {
	return &Ledger{
		wallet:  wallet,
		settled: append([]domain.Transaction(nil), settled...),
	}
}

// Send debits amount from the balance and records a signed pending
// transaction addressed to recipient. The transaction is signed with the
// wallet's private key over its canonical bytes; the id is derived from the
// same bytes. Precondition failures and signing failures mutate nothing.
func (l *Ledger) Send(recipient string, amount int64) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return domain.Transaction{}, ErrInvalidAmount
	}
	if amount > l.wallet.Balance {
		return domain.Transaction{}, ErrInsufficientBalance
	}

	now := time.Now().UnixMilli()
	tx := domain.Transaction{
		ID:        codec.DeriveID(l.wallet.PublicKey, recipient, amount, now),
		Sender:    l.wallet.PublicKey,
		Recipient: recipient,
		Amount:    amount,
		Timestamp: now,
	}

	priv, err := keyvault.ImportPrivate(l.wallet.PrivateKey)
	if err != nil {
		return domain.Transaction{}, err
	}
	sig, err := signer.Sign(codec.Canonicalize(tx), priv)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.Signature = sig

	// Commit point: debit and record together, under the lock.
	l.wallet.Balance -= amount
	l.pending = append([]domain.Transaction{tx}, l.pending...)
	return tx, nil
}

// Confirm moves the pending transaction with the given id to settled,
// fields unchanged. The debit was already applied at send time, so the
// balance is not touched. A second confirm of the same id finds nothing in
// pending and fails with ErrTransactionNotFound without mutating state.
func (l *Ledger) Confirm(txID string) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, tx := range l.pending {
		if tx.ID == txID {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			l.settled = append([]domain.Transaction{tx}, l.settled...)
			return tx, nil
		}
	}
	return domain.Transaction{}, ErrTransactionNotFound
}

// Receive credits an incoming transaction and appends it directly to
// settled. When the sender string imports as a public key the signature is
// verified against the canonical bytes and a failed verification rejects
// the transaction; senders that are not key encodings skip verification.
// Re-delivery of an id already settled is a no-op: no double credit, no
// duplicate entry.
func (l *Ledger) Receive(tx domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tx.Amount <= 0 {
		return ErrInvalidAmount
	}
	for _, existing := range l.settled {
		if existing.ID == tx.ID {
			return nil // already settled, idempotent
		}
	}
	if pub, err := keyvault.ImportPublic(tx.Sender); err == nil {
		if !signer.Verify(codec.Canonicalize(tx), tx.Signature, pub) {
			return ErrInvalidSignature
		}
	}

	l.wallet.Balance += tx.Amount
	l.settled = append([]domain.Transaction{tx}, l.settled...)
	return nil
}

// Wallet returns a copy of the wallet state.
func (l *Ledger) Wallet() domain.Wallet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wallet
}

// Balance returns the current balance.
func (l *Ledger) Balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wallet.Balance
}

// Pending returns a copy of the pending collection, most recent first.
func (l *Ledger) Pending() []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Transaction(nil), l.pending...)
}

// Settled returns a copy of the settled collection, most recent first.
func (l *Ledger) Settled() []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Transaction(nil), l.settled...)
}
