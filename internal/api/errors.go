package api

import (
	"errors"
	"net/http"

	"qrwallet/internal/codec"
	"qrwallet/internal/keyvault"
	"qrwallet/internal/ledger"
)

// statusFor maps core errors to HTTP status codes and client messages.
// Precondition violations are the caller's fault; anything unmapped is an
// environment fault and reported as a 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNoWallet):
		return http.StatusNotFound, "No wallet for this account"
	case errors.Is(err, ledger.ErrWalletAlreadyExists):
		return http.StatusConflict, "Wallet already exists"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, "Amount must be greater than zero"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusBadRequest, "Insufficient balance"
	case errors.Is(err, ledger.ErrTransactionNotFound):
		return http.StatusNotFound, "Transaction not found"
	case errors.Is(err, ledger.ErrInvalidSignature):
		return http.StatusUnprocessableEntity, "Transaction signature is invalid"
	case errors.Is(err, codec.ErrMalformedTransaction):
		return http.StatusUnprocessableEntity, "Malformed transaction payload"
	case errors.Is(err, keyvault.ErrKeyImport):
		return http.StatusUnprocessableEntity, "Invalid key encoding"
	case errors.Is(err, keyvault.ErrKeyGeneration):
		return http.StatusInternalServerError, "Key generation failed"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
