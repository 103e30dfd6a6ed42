// Package wallet orchestrates the ledger core for authenticated accounts:
// identity generation, transaction signing, settlement, snapshot
// persistence and event notification.
package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"qrwallet/internal/codec"
	"qrwallet/internal/domain"
	"qrwallet/internal/keyvault"
	"qrwallet/internal/ledger"
	"qrwallet/internal/notify"
	"qrwallet/internal/store"
)

// DefaultStartingBalance is the allotment granted to a new wallet.
const DefaultStartingBalance int64 = 1000

// Service owns one ledger per account. Ledgers are created lazily from the
// snapshot store on first touch and stay live for the rest of the process;
// the in-memory ledger is the source of truth during a session, with the
// store trailing behind as a snapshot.
type Service struct {
	store           store.Store
	notifier        notify.Notifier
	startingBalance int64

	mu      sync.Mutex
	ledgers map[uint]*ledger.Ledger
}

// NewService builds a Service on the given store and notifier. A
// startingBalance of 0 selects the default allotment.
func NewService(st store.Store, notifier notify.Notifier, startingBalance int64) *Service {
	if startingBalance <= 0 {
		startingBalance = DefaultStartingBalance
	}
	return &Service{
		store:           st,
		notifier:        notifier,
		startingBalance: startingBalance,
		ledgers:         make(map[uint]*ledger.Ledger),
	}
}

// CreateWallet generates a fresh identity for the account and grants the
// starting allotment. An account that already has a wallet, live or stored,
// is rejected: re-creation would silently discard the existing keys.
func (s *Service) CreateWallet(ctx context.Context, accountID uint) (domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledgers[accountID]; ok {
		return domain.Wallet{}, ledger.ErrWalletAlreadyExists
	}
	if _, found, err := s.store.Load(ctx, accountID); err != nil {
		return domain.Wallet{}, err
	} else if found {
		return domain.Wallet{}, ledger.ErrWalletAlreadyExists
	}

	pair, err := keyvault.GenerateIdentity()
	if err != nil {
		return domain.Wallet{}, err
	}
	pub, err := keyvault.ExportPublic(pair.Public)
	if err != nil {
		return domain.Wallet{}, err
	}
	priv, err := keyvault.ExportPrivate(pair.Private)
	if err != nil {
		return domain.Wallet{}, err
	}

	w := domain.Wallet{PublicKey: pub, PrivateKey: priv, Balance: s.startingBalance}
	l := ledger.New(w, nil)
	s.ledgers[accountID] = l
	s.persist(ctx, accountID, l)

	logrus.WithFields(logrus.Fields{
		"account_id": accountID,
		"balance":    w.Balance,
	}).Info("Wallet created")
	return w, nil
}

// Send debits the account's wallet and returns the signed pending
// transaction together with its transport payload.
func (s *Service) Send(ctx context.Context, accountID uint, recipient string, amount int64) (domain.Transaction, string, error) {
	l, err := s.ledgerFor(ctx, accountID)
	if err != nil {
		return domain.Transaction{}, "", err
	}
	tx, err := l.Send(recipient, amount)
	if err != nil {
		return domain.Transaction{}, "", err
	}
	payload, err := codec.EncodeForTransport(tx)
	if err != nil {
		return domain.Transaction{}, "", err
	}
	s.persist(ctx, accountID, l)
	s.notifier.Notify(ctx, notify.Event{
		Type:          "send",
		AccountID:     accountID,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Timestamp:     time.Now().UnixMilli(),
	})
	logrus.WithFields(logrus.Fields{
		"account_id":     accountID,
		"transaction_id": tx.ID,
		"amount":         tx.Amount,
	}).Info("Transaction created")
	return tx, payload, nil
}

// Confirm finalizes a pending outgoing transaction.
func (s *Service) Confirm(ctx context.Context, accountID uint, txID string) (domain.Transaction, error) {
	l, err := s.ledgerFor(ctx, accountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx, err := l.Confirm(txID)
	if err != nil {
		return domain.Transaction{}, err
	}
	s.persist(ctx, accountID, l)
	s.notifier.Notify(ctx, notify.Event{
		Type:          "confirm",
		AccountID:     accountID,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Timestamp:     time.Now().UnixMilli(),
	})
	logrus.WithFields(logrus.Fields{
		"account_id":     accountID,
		"transaction_id": tx.ID,
	}).Info("Transaction confirmed")
	return tx, nil
}

// Receive decodes a scanned transport payload, validates and verifies it,
// credits the wallet and settles the transaction.
func (s *Service) Receive(ctx context.Context, accountID uint, payload string) (domain.Transaction, error) {
	l, err := s.ledgerFor(ctx, accountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx, err := codec.DecodeFromTransport(payload)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := l.Receive(tx); err != nil {
		return domain.Transaction{}, err
	}
	s.persist(ctx, accountID, l)
	s.notifier.Notify(ctx, notify.Event{
		Type:          "receive",
		AccountID:     accountID,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Timestamp:     time.Now().UnixMilli(),
	})
	logrus.WithFields(logrus.Fields{
		"account_id":     accountID,
		"transaction_id": tx.ID,
		"amount":         tx.Amount,
	}).Info("Transaction received")
	return tx, nil
}

// Wallet returns the account's wallet state.
func (s *Service) Wallet(ctx context.Context, accountID uint) (domain.Wallet, error) {
	l, err := s.ledgerFor(ctx, accountID)
	if err != nil {
		return domain.Wallet{}, err
	}
	return l.Wallet(), nil
}

// Identity returns the account's exported public key, the string a client
// renders as a QR symbol to share the wallet's address.
func (s *Service) Identity(ctx context.Context, accountID uint) (string, error) {
	l, err := s.ledgerFor(ctx, accountID)
	if err != nil {
		return "", err
	}
	return l.Wallet().PublicKey, nil
}

// Transactions returns the pending and settled collections, both most
// recent first.
func (s *Service) Transactions(ctx context.Context, accountID uint) (pending, settled []domain.Transaction, err error) {
	l, err := s.ledgerFor(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	return l.Pending(), l.Settled(), nil
}

// ledgerFor returns the live ledger for an account, loading its snapshot
// from the store on first touch. Absence means no wallet.
func (s *Service) ledgerFor(ctx context.Context, accountID uint) (*ledger.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.ledgers[accountID]; ok {
		return l, nil
	}
	snap, found, err := s.store.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ledger.ErrNoWallet
	}
	l := ledger.New(snap.Wallet, snap.Settled)
	s.ledgers[accountID] = l
	return l, nil
}

// persist writes the ledger's snapshot after an in-memory commit. A failed
// write is surfaced as a warning only: the in-memory ledger stays the
// source of truth and is not rolled back.
func (s *Service) persist(ctx context.Context, accountID uint, l *ledger.Ledger) {
	snap := store.Snapshot{Wallet: l.Wallet(), Settled: l.Settled()}
	if err := s.store.Save(ctx, accountID, snap); err != nil {
		logrus.WithFields(logrus.Fields{
			"account_id": accountID,
			"error":      err.Error(),
		}).Warn("Failed to persist wallet snapshot")
	}
}
