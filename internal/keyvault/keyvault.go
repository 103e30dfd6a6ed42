// Package keyvault manages the asymmetric signing key pairs that form a
// wallet's cryptographic identity. Keys are ECDSA over P-256 and travel as
// base64-encoded standard DER structures: SPKI for public keys, PKCS#8 for
// private keys, so any holder of the encoding can reconstruct the key.
package keyvault

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrKeyGeneration indicates the underlying crypto primitive failed.
	ErrKeyGeneration = errors.New("key generation failed")
	// ErrKeyImport indicates a malformed or mismatched key encoding.
	ErrKeyImport = errors.New("key import failed")
)

// KeyPair is a freshly generated signing identity.
type KeyPair struct {
	Private *ecdsa.PrivateKey
	Public  *ecdsa.PublicKey
}

// GenerateIdentity produces a new P-256 key pair from a cryptographically
// secure random source.
func GenerateIdentity() (*KeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	return &KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// ExportPublic serializes a public key to base64 SPKI DER. The encoding is
// deterministic for a given key.
func ExportPublic(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("export public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ExportPrivate serializes a private key to base64 PKCS#8 DER. The result is
// a secret and is only written to the wallet snapshot store.
func ExportPrivate(priv *ecdsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("export private key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ImportPublic is the inverse of ExportPublic.
func ImportPublic(encoded string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64", ErrKeyImport)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyImport, err)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA public key", ErrKeyImport)
	}
	return pub, nil
}

// ImportPrivate is the inverse of ExportPrivate.
func ImportPrivate(encoded string) (*ecdsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64", ErrKeyImport)
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyImport, err)
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA private key", ErrKeyImport)
	}
	return priv, nil
}
