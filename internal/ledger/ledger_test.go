package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrwallet/internal/codec"
	"qrwallet/internal/domain"
	"qrwallet/internal/keyvault"
	"qrwallet/internal/signer"
)

// newTestLedger builds a ledger around a real generated identity so the
// signing path in Send is exercised end to end.
func newTestLedger(t *testing.T, balance int64) *Ledger {
	t.Helper()
	pair, err := keyvault.GenerateIdentity()
	require.NoError(t, err)
	pub, err := keyvault.ExportPublic(pair.Public)
	require.NoError(t, err)
	priv, err := keyvault.ExportPrivate(pair.Private)
	require.NoError(t, err)
	return New(domain.Wallet{PublicKey: pub, PrivateKey: priv, Balance: balance}, nil)
}

func TestSendDebitsAndSigns(t *testing.T) {
	l := newTestLedger(t, 1000)

	tx, err := l.Send("bob", 150)
	require.NoError(t, err)

	assert.Equal(t, int64(850), l.Balance())
	assert.Equal(t, int64(150), tx.Amount)
	assert.Equal(t, "bob", tx.Recipient)
	assert.Equal(t, l.Wallet().PublicKey, tx.Sender)
	assert.Equal(t, codec.DeriveID(tx.Sender, tx.Recipient, tx.Amount, tx.Timestamp), tx.ID)

	pending := l.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, tx, pending[0])
	assert.Empty(t, l.Settled())

	pub, err := keyvault.ImportPublic(tx.Sender)
	require.NoError(t, err)
	assert.True(t, signer.Verify(codec.Canonicalize(tx), tx.Signature, pub),
		"outgoing transaction must carry a real signature")
}

func TestSendBoundaries(t *testing.T) {
	l := newTestLedger(t, 1000)

	_, err := l.Send("bob", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Send("bob", -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Send("bob", 1001)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Every failure leaves state exactly as before
	assert.Equal(t, int64(1000), l.Balance())
	assert.Empty(t, l.Pending())
	assert.Empty(t, l.Settled())
}

func TestBalanceConservation(t *testing.T) {
	l := newTestLedger(t, 1000)
	amounts := []int64{100, 250, 1, 49}
	var sum int64
	for _, a := range amounts {
		_, err := l.Send("bob", a)
		require.NoError(t, err)
		sum += a
	}
	assert.Equal(t, 1000-sum, l.Balance())
	assert.Len(t, l.Pending(), len(amounts))
}

func TestPendingOrderMostRecentFirst(t *testing.T) {
	l := newTestLedger(t, 1000)
	first, err := l.Send("bob", 10)
	require.NoError(t, err)
	second, err := l.Send("carol", 20)
	require.NoError(t, err)

	pending := l.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, first.ID, pending[1].ID)
}

func TestConfirmMovesPendingToSettled(t *testing.T) {
	l := newTestLedger(t, 1000)
	tx, err := l.Send("bob", 150)
	require.NoError(t, err)
	require.Equal(t, int64(850), l.Balance())

	settled, err := l.Confirm(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx, settled, "fields must be preserved unchanged")

	// The debit was applied at send time; confirm only marks finality
	assert.Equal(t, int64(850), l.Balance())
	assert.Empty(t, l.Pending())
	require.Len(t, l.Settled(), 1)
	assert.Equal(t, tx, l.Settled()[0])
}

func TestConfirmIsIdempotent(t *testing.T) {
	l := newTestLedger(t, 1000)
	tx, err := l.Send("bob", 150)
	require.NoError(t, err)

	_, err = l.Confirm(tx.ID)
	require.NoError(t, err)

	_, err = l.Confirm(tx.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	// Exactly one settled entry, nothing pending, balance untouched
	assert.Len(t, l.Settled(), 1)
	assert.Empty(t, l.Pending())
	assert.Equal(t, int64(850), l.Balance())
}

func TestConfirmUnknownID(t *testing.T) {
	l := newTestLedger(t, 1000)
	_, err := l.Confirm("does-not-exist")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.Equal(t, int64(1000), l.Balance())
}

func TestReceiveCreditsAndSettlesDirectly(t *testing.T) {
	l := newTestLedger(t, 850)
	// Sender identifier that is not a key encoding: verification is skipped
	tx := domain.Transaction{
		ID:        codec.DeriveID("carol", l.Wallet().PublicKey, 50, 1700000000000),
		Sender:    "carol",
		Recipient: l.Wallet().PublicKey,
		Amount:    50,
		Timestamp: 1700000000000,
	}

	require.NoError(t, l.Receive(tx))
	assert.Equal(t, int64(900), l.Balance())
	assert.Empty(t, l.Pending(), "incoming transactions never enter pending")
	require.Len(t, l.Settled(), 1)
	assert.Equal(t, tx, l.Settled()[0])
}

func TestReceiveIsIdempotent(t *testing.T) {
	l := newTestLedger(t, 100)
	tx := domain.Transaction{
		ID:        codec.DeriveID("carol", "me", 50, 1),
		Sender:    "carol",
		Recipient: "me",
		Amount:    50,
		Timestamp: 1,
	}

	require.NoError(t, l.Receive(tx))
	require.NoError(t, l.Receive(tx), "re-delivery must be a silent no-op")

	assert.Equal(t, int64(150), l.Balance(), "no double credit")
	assert.Len(t, l.Settled(), 1, "no duplicate ledger entry")
}

func TestReceiveVerifiesResolvableSender(t *testing.T) {
	sender := newTestLedger(t, 1000)
	receiver := newTestLedger(t, 0)

	tx, err := sender.Send(receiver.Wallet().PublicKey, 150)
	require.NoError(t, err)

	require.NoError(t, receiver.Receive(tx))
	assert.Equal(t, int64(150), receiver.Balance())
}

func TestReceiveRejectsTamperedTransaction(t *testing.T) {
	sender := newTestLedger(t, 1000)
	receiver := newTestLedger(t, 0)

	tx, err := sender.Send(receiver.Wallet().PublicKey, 150)
	require.NoError(t, err)

	tampered := tx
	tampered.Amount = 900

	err = receiver.Receive(tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, int64(0), receiver.Balance())
	assert.Empty(t, receiver.Settled())
}

func TestReceiveRejectsMissingSignatureFromResolvableSender(t *testing.T) {
	sender := newTestLedger(t, 1000)
	receiver := newTestLedger(t, 0)

	tx, err := sender.Send(receiver.Wallet().PublicKey, 150)
	require.NoError(t, err)
	tx.Signature = ""

	err = receiver.Receive(tx)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestReceiveRejectsNonPositiveAmount(t *testing.T) {
	l := newTestLedger(t, 100)
	err := l.Receive(domain.Transaction{ID: "x", Sender: "carol", Recipient: "me", Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, int64(100), l.Balance())
}

// The full scenario from the wallet's point of view: send, confirm, then an
// unrelated incoming transaction.
func TestSendConfirmReceiveScenario(t *testing.T) {
	l := newTestLedger(t, 1000)

	tx, err := l.Send("bob", 150)
	require.NoError(t, err)
	assert.Equal(t, int64(850), l.Balance())

	_, err = l.Confirm(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(850), l.Balance())

	incoming := domain.Transaction{
		ID:        codec.DeriveID("carol", "me", 50, 7),
		Sender:    "carol",
		Recipient: "me",
		Amount:    50,
		Timestamp: 7,
	}
	require.NoError(t, l.Receive(incoming))

	assert.Equal(t, int64(900), l.Balance())
	assert.Empty(t, l.Pending())
	require.Len(t, l.Settled(), 2)
	assert.Equal(t, incoming.ID, l.Settled()[0].ID, "newest settled entry first")
	assert.Equal(t, tx.ID, l.Settled()[1].ID)
}
