package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"qrwallet/internal/domain"
)

// WalletRow is the persisted wallet, one per account.
type WalletRow struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"uniqueIndex"` // Owning account
	PublicKey  string `gorm:"type:text;not null"`
	PrivateKey string `gorm:"type:text;not null"`
	Balance    int64  `gorm:"not null;default:0"`
}

// TransactionRow is one settled transaction. Rows are inserted oldest-first
// so the autoincrement id preserves settlement order.
type TransactionRow struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index:idx_user_tx,unique"`
	TxID      string `gorm:"size:64;index:idx_user_tx,unique"`
	Sender    string `gorm:"type:text"`
	Recipient string
	Amount    int64
	Timestamp int64
	Signature string `gorm:"type:text"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}

// GormStore persists snapshots to a relational database through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Load reassembles an account's snapshot from its wallet row and settled
// transaction rows, newest first.
func (s *GormStore) Load(ctx context.Context, accountID uint) (Snapshot, bool, error) {
	var row WalletRow
	err := s.db.WithContext(ctx).Where("user_id = ?", accountID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, false, nil // no wallet yet, not an error
	}
	if err != nil {
		return Snapshot{}, false, err
	}

	var txRows []TransactionRow
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", accountID).
		Order("id desc").
		Find(&txRows).Error; err != nil {
		return Snapshot{}, false, err
	}

	snap := Snapshot{
		Wallet: domain.Wallet{
			PublicKey:  row.PublicKey,
			PrivateKey: row.PrivateKey,
			Balance:    row.Balance,
		},
		Settled: make([]domain.Transaction, len(txRows)),
	}
	for i, r := range txRows {
		snap.Settled[i] = domain.Transaction{
			ID:        r.TxID,
			Sender:    r.Sender,
			Recipient: r.Recipient,
			Amount:    r.Amount,
			Timestamp: r.Timestamp,
			Signature: r.Signature,
		}
	}
	return snap, true, nil
}

// Save upserts the wallet row and inserts any settled transactions not yet
// stored. Settled history is append-only, so rows are never updated or
// removed. The whole write runs in one database transaction.
func (s *GormStore) Save(ctx context.Context, accountID uint, snap Snapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row WalletRow
		err := tx.Where("user_id = ?", accountID).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = WalletRow{
				UserID:     accountID,
				PublicKey:  snap.Wallet.PublicKey,
				PrivateKey: snap.Wallet.PrivateKey,
				Balance:    snap.Wallet.Balance,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// Identity keys never change after creation; only the balance moves.
			if err := tx.Model(&row).Update("balance", snap.Wallet.Balance).Error; err != nil {
				return err
			}
		}

		// Walk oldest-first so insertion order matches settlement order.
		for i := len(snap.Settled) - 1; i >= 0; i-- {
			t := snap.Settled[i]
			txRow := TransactionRow{
				UserID:    accountID,
				TxID:      t.ID,
				Sender:    t.Sender,
				Recipient: t.Recipient,
				Amount:    t.Amount,
				Timestamp: t.Timestamp,
				Signature: t.Signature,
			}
			if err := tx.Where("user_id = ? AND tx_id = ?", accountID, t.ID).
				FirstOrCreate(&txRow).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
