package domain

// Transaction is a signed unit transfer exchanged between wallets.
// The ID is derived from the signable fields (sender, recipient, amount,
// timestamp), so an identical re-delivery carries an identical ID.
type Transaction struct {
	ID        string `json:"id"`                  // Content-derived identifier
	Sender    string `json:"sender"`              // Sender's exported public key
	Recipient string `json:"recipient"`           // Recipient identifier supplied by the caller
	Amount    int64  `json:"amount"`              // Transfer amount in units, always > 0
	Timestamp int64  `json:"timestamp"`           // Creation instant, milliseconds since epoch
	Signature string `json:"signature,omitempty"` // Base64 signature, present once signed
}
