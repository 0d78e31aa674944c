package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

// PayLinkSettlement the receiver identity bound at redemption time.
// Pointer fields map directly onto the nullable receiver columns.
type PayLinkSettlement struct {
	ReceiverMemberID      *int64
	ReceiverDid           *string
	ReceiverWalletAddress *string
}

// PayLinkRepository data access for escrow pay links
type PayLinkRepository interface {
	GetByCode(ctx context.Context, transactionCode string) (*models.PayLink, error)
	// CreateIfAbsent inserts the link unless one already exists for the
	// code; always returns the stored record, plus whether it was created
	// by this call.
	CreateIfAbsent(ctx context.Context, link *models.PayLink) (*models.PayLink, bool, error)
	// Settle atomically stores the chain hash on the link, advances the
	// owning transaction PENDING -> ACCEPTED, and binds the receiver
	// identity. All writes land together or not at all; the hash write is
	// guarded so a second settle attempt is a no-op. Returns whether this
	// call performed the settlement.
	Settle(ctx context.Context, link *models.PayLink, transactionID uint, hash string, settlement PayLinkSettlement) (bool, error)
}

type payLinkRepository struct {
	db *gorm.DB
}

// NewPayLinkRepository creates a PayLinkRepository backed by gorm.
func NewPayLinkRepository(db *gorm.DB) PayLinkRepository {
	return &payLinkRepository{db: db}
}

func (r *payLinkRepository) GetByCode(ctx context.Context, transactionCode string) (*models.PayLink, error) {
	var link models.PayLink
	err := r.db.WithContext(ctx).Where("transaction_code = ?", transactionCode).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *payLinkRepository) CreateIfAbsent(ctx context.Context, link *models.PayLink) (*models.PayLink, bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PayLink
		err := tx.Where("transaction_code = ?", link.TransactionCode).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			return tx.Create(link).Error
		case err != nil:
			return err
		default:
			*link = existing
			return nil
		}
	})
	if err != nil {
		return nil, false, err
	}
	return link, created, nil
}

func (r *payLinkRepository) Settle(ctx context.Context, link *models.PayLink, transactionID uint, hash string, settlement PayLinkSettlement) (bool, error) {
	var settled bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PayLink{}).
			Where("id = ? AND (transaction_hash IS NULL OR transaction_hash = '')", link.ID).
			Update("transaction_hash", hash)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race; leave the transaction untouched.
			return nil
		}

		res = tx.Model(&models.TransactionHistory{}).
			Where("id = ? AND transaction_status = ?", transactionID, models.StatusPending).
			Updates(map[string]interface{}{
				"transaction_status":      models.StatusAccepted,
				"transaction_confirm_at":  time.Now(),
				"receiver_member_id":      settlement.ReceiverMemberID,
				"receiver_did":            settlement.ReceiverDid,
				"receiver_wallet_address": settlement.ReceiverWalletAddress,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Hash landed but the owner was not pending: internal
			// inconsistency, roll everything back.
			return gorm.ErrInvalidTransaction
		}
		settled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return settled, nil
}
