package domain

// Wallet holds a cryptographic identity and a unit balance.
// Balance changes only through ledger operations and never goes negative.
type Wallet struct {
	PublicKey  string `json:"public_key"`  // Base64 SPKI encoding of the signing public key
	PrivateKey string `json:"private_key"` // Base64 PKCS#8 encoding of the signing private key
	Balance    int64  `json:"balance"`     // Current balance in units
}
