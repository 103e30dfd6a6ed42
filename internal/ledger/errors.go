package ledger

import "errors"

// Precondition failures surfaced to callers. None of these leave the ledger
// in a partially mutated state; after any error the balance and both
// transaction collections are exactly as they were before the call.
var (
	ErrNoWallet            = errors.New("no wallet for this account")
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidSignature    = errors.New("transaction signature is invalid")
)
