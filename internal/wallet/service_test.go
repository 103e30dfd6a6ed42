package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrwallet/internal/codec"
	"qrwallet/internal/ledger"
	"qrwallet/internal/notify"
	"qrwallet/internal/store"
)

func newTestService(st store.Store) *Service {
	return NewService(st, notify.NoopNotifier{}, 0)
}

func TestCreateWallet(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newTestService(st)
	ctx := context.Background()

	w, err := svc.CreateWallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultStartingBalance, w.Balance)
	assert.NotEmpty(t, w.PublicKey)
	assert.NotEmpty(t, w.PrivateKey)

	snap, found, err := st.Load(ctx, 1)
	require.NoError(t, err)
	require.True(t, found, "wallet must be persisted on creation")
	assert.Equal(t, w, snap.Wallet)
	assert.Equal(t, 1, st.SaveCount())
}

func TestCreateWalletRejectsExisting(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newTestService(st)
	ctx := context.Background()

	_, err := svc.CreateWallet(ctx, 1)
	require.NoError(t, err)

	_, err = svc.CreateWallet(ctx, 1)
	assert.ErrorIs(t, err, ledger.ErrWalletAlreadyExists)
}

func TestCreateWalletRejectsStoredWallet(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	_, err := newTestService(st).CreateWallet(ctx, 1)
	require.NoError(t, err)

	// A fresh service instance over the same store must still refuse:
	// re-creation would discard the stored identity.
	_, err = newTestService(st).CreateWallet(ctx, 1)
	assert.ErrorIs(t, err, ledger.ErrWalletAlreadyExists)
}

func TestOperationsRequireWallet(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	ctx := context.Background()

	_, _, err := svc.Send(ctx, 9, "bob", 10)
	assert.ErrorIs(t, err, ledger.ErrNoWallet)

	_, err = svc.Confirm(ctx, 9, "some-id")
	assert.ErrorIs(t, err, ledger.ErrNoWallet)

	_, err = svc.Receive(ctx, 9, `{"id":"x","sender":"s","recipient":"r","amount":10}`)
	assert.ErrorIs(t, err, ledger.ErrNoWallet)

	_, err = svc.Wallet(ctx, 9)
	assert.ErrorIs(t, err, ledger.ErrNoWallet)
}

func TestSendProducesDecodablePayload(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.CreateWallet(ctx, 1)
	require.NoError(t, err)

	tx, payload, err := svc.Send(ctx, 1, "bob", 150)
	require.NoError(t, err)

	decoded, err := codec.DecodeFromTransport(payload)
	require.NoError(t, err)
	assert.Equal(t, tx, decoded, "payload must round-trip unchanged")

	w, err := svc.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultStartingBalance-150, w.Balance)

	pending, settled, err := svc.Transactions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Empty(t, settled)
}

func TestOfflineExchangeBetweenAccounts(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newTestService(st)
	ctx := context.Background()

	_, err := svc.CreateWallet(ctx, 1)
	require.NoError(t, err)
	_, err = svc.CreateWallet(ctx, 2)
	require.NoError(t, err)

	recipientKey, err := svc.Identity(ctx, 2)
	require.NoError(t, err)

	// Sender's device: create and hand over the payload as a QR symbol
	tx, payload, err := svc.Send(ctx, 1, recipientKey, 150)
	require.NoError(t, err)

	// Recipient's device: scan and credit. The sender is a real public key,
	// so the signature is verified.
	received, err := svc.Receive(ctx, 2, payload)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, received.ID)

	w2, err := svc.Wallet(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, DefaultStartingBalance+150, w2.Balance)

	// Re-scanning the same QR must not credit twice
	_, err = svc.Receive(ctx, 2, payload)
	require.NoError(t, err)
	w2, err = svc.Wallet(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, DefaultStartingBalance+150, w2.Balance)

	// Sender finalizes its side
	_, err = svc.Confirm(ctx, 1, tx.ID)
	require.NoError(t, err)
	w1, err := svc.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultStartingBalance-150, w1.Balance)
}

func TestReceiveRejectsMalformedPayload(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.CreateWallet(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Receive(ctx, 1, "not a transaction")
	assert.ErrorIs(t, err, codec.ErrMalformedTransaction)

	w, err := svc.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultStartingBalance, w.Balance, "failed receive must not touch the balance")
}

func TestStateSurvivesRestart(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	svc := newTestService(st)
	_, err := svc.CreateWallet(ctx, 1)
	require.NoError(t, err)
	tx, _, err := svc.Send(ctx, 1, "bob", 150)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, 1, tx.ID)
	require.NoError(t, err)

	// A new service over the same store sees the settled history and the
	// debited balance.
	restarted := newTestService(st)
	w, err := restarted.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultStartingBalance-150, w.Balance)

	pending, settled, err := restarted.Transactions(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending, "pending transfers are session-local")
	require.Len(t, settled, 1)
	assert.Equal(t, tx, settled[0])
}

// flakyStore simulates snapshot write failures after wallet creation.
type flakyStore struct {
	*store.MemoryStore
	failSaves bool
}

func (s *flakyStore) Save(ctx context.Context, accountID uint, snap store.Snapshot) error {
	if s.failSaves {
		return errors.New("store unavailable")
	}
	return s.MemoryStore.Save(ctx, accountID, snap)
}

func TestPersistenceFailureDoesNotRollBack(t *testing.T) {
	st := &flakyStore{MemoryStore: store.NewMemoryStore()}
	svc := newTestService(st)
	ctx := context.Background()

	_, err := svc.CreateWallet(ctx, 1)
	require.NoError(t, err)

	// Snapshot writes start failing; the in-memory ledger stays the source
	// of truth and the operation still succeeds.
	st.failSaves = true
	_, _, err = svc.Send(ctx, 1, "bob", 150)
	require.NoError(t, err)

	w, err := svc.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultStartingBalance-150, w.Balance)
}

func TestCustomStartingBalance(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), notify.NoopNotifier{}, 250)
	w, err := svc.CreateWallet(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(250), w.Balance)
}
