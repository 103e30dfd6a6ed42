// Package codec fixes the wire forms of a transaction: the canonical byte
// encoding of its signable fields, the content-derived identifier, and the
// transport string embedded in a QR payload.
package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"qrwallet/internal/domain"
)

// ErrMalformedTransaction indicates a transport payload that is missing
// required fields, carries wrong types, or has a non-positive amount.
var ErrMalformedTransaction = errors.New("malformed transaction")

// idHexLen is the truncated identifier length. Collisions are accepted at
// demo scale; a production ledger would keep the full hash.
const idHexLen = 32

// signable is the subset of transaction fields covered by the signature.
// Field order is fixed: the signature is computed over these exact bytes and
// must be reproducible by any verifier.
type signable struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// Canonicalize returns the deterministic byte encoding of the signable
// subset of tx. The id and signature are excluded.
func Canonicalize(tx domain.Transaction) []byte {
	b, err := json.Marshal(signable{
		Sender:    tx.Sender,
		Recipient: tx.Recipient,
		Amount:    tx.Amount,
		Timestamp: tx.Timestamp,
	})
	if err != nil {
		// A flat struct of strings and integers cannot fail to marshal.
		panic(err)
	}
	return b
}

// DeriveID computes the transaction identifier from the canonical bytes:
// the first 32 hex characters of their SHA-256 digest. Identical inputs
// always derive identical ids, which is what makes re-delivery detectable.
func DeriveID(sender, recipient string, amount, timestamp int64) string {
	canonical := Canonicalize(domain.Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Timestamp: timestamp,
	})
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:])[:idHexLen]
}

// EncodeForTransport serializes the full transaction, signature included,
// to the plaintext string rendered as a QR symbol.
func EncodeForTransport(tx domain.Transaction) (string, error) {
	b, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}
	return string(b), nil
}

// DecodeFromTransport parses a scanned payload back into a transaction.
// Required fields are id, sender, recipient and a positive amount.
func DecodeFromTransport(payload string) (domain.Transaction, error) {
	var raw struct {
		ID        *string `json:"id"`
		Sender    *string `json:"sender"`
		Recipient *string `json:"recipient"`
		Amount    *int64  `json:"amount"`
		Timestamp *int64  `json:"timestamp"`
		Signature *string `json:"signature"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	if raw.ID == nil || *raw.ID == "" {
		return domain.Transaction{}, fmt.Errorf("%w: missing id", ErrMalformedTransaction)
	}
	if raw.Sender == nil || *raw.Sender == "" {
		return domain.Transaction{}, fmt.Errorf("%w: missing sender", ErrMalformedTransaction)
	}
	if raw.Recipient == nil || *raw.Recipient == "" {
		return domain.Transaction{}, fmt.Errorf("%w: missing recipient", ErrMalformedTransaction)
	}
	if raw.Amount == nil {
		return domain.Transaction{}, fmt.Errorf("%w: missing amount", ErrMalformedTransaction)
	}
	if *raw.Amount <= 0 {
		return domain.Transaction{}, fmt.Errorf("%w: amount must be positive", ErrMalformedTransaction)
	}
	tx := domain.Transaction{
		ID:        *raw.ID,
		Sender:    *raw.Sender,
		Recipient: *raw.Recipient,
		Amount:    *raw.Amount,
	}
	if raw.Timestamp != nil {
		tx.Timestamp = *raw.Timestamp
	}
	if raw.Signature != nil {
		tx.Signature = *raw.Signature
	}
	return tx, nil
}
