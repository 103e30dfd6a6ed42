// Package signer signs and verifies canonical transaction bytes with
// ECDSA/SHA-256. Signatures are the 64-byte r||s form, base64 encoded, the
// same shape produced by WebCrypto's ECDSA implementation.
package signer

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// ErrSigning indicates the private key could not produce a signature.
var ErrSigning = errors.New("signing failed")

const sigLen = 64 // two 32-byte scalars for P-256

// Sign produces a base64 r||s signature over the SHA-256 digest of data.
func Sign(data []byte, priv *ecdsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", fmt.Errorf("%w: nil private key", ErrSigning)
	}
	digest := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	sig := make([]byte, sigLen)
	r.FillBytes(sig[:sigLen/2])
	s.FillBytes(sig[sigLen/2:])
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether signature was produced by the private key matching
// pub over exactly these bytes. Structurally invalid signatures yield false,
// never an error, so callers can use it directly in validation branches.
func Verify(data []byte, signature string, pub *ecdsa.PublicKey) bool {
	if pub == nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(sig) != sigLen {
		return false
	}
	r := new(big.Int).SetBytes(sig[:sigLen/2])
	s := new(big.Int).SetBytes(sig[sigLen/2:])
	digest := sha256.Sum256(data)
	return ecdsa.Verify(pub, digest[:], r, s)
}
