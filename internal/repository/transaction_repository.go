package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

// TransactionQuery filters for paging transaction history.
type TransactionQuery struct {
	MemberID            int64
	Platform            *models.BlockChainPlatform
	ChainID             *int64
	Network             *models.BlockChainNetwork
	TokenSymbol         *string
	TransactionCategory *models.TransactionCategory
	TransactionType     *models.TransactionType
	TransactionStatus   *models.TransactionStatus
	TransactionTimeFrom *time.Time
	TransactionTimeTo   *time.Time
	CounterpartyIDs     []int64 // restrict to rows involving these members
	Subject             string  // "INCOME", "EXPEND", or empty for both
	Page                int
	PageSize            int
}

// TransactionRepository data access for transactions and fee estimates
type TransactionRepository interface {
	Create(ctx context.Context, trans *models.TransactionHistory) error
	GetByID(ctx context.Context, id uint) (*models.TransactionHistory, error)
	GetByCode(ctx context.Context, code string) (*models.TransactionHistory, error)
	Page(ctx context.Context, q TransactionQuery) ([]*models.TransactionHistory, int64, error)

	// Settle records the chain hash and applies the accompanying updates
	// (status advance, late-bound sender identity) in one guarded UPDATE:
	// the write only lands while transaction_hash is still empty. Returns
	// whether this call performed the settlement.
	Settle(ctx context.Context, id uint, hash string, updates map[string]interface{}) (bool, error)

	// AdvanceStatus moves status from->to with a guarded UPDATE; returns
	// whether the transition was applied.
	AdvanceStatus(ctx context.Context, id uint, from, to models.TransactionStatus) (bool, error)

	GetFeeEstimate(ctx context.Context, transactionCode string) (*models.TransactionFeeEstimate, error)
	ListFeeEstimates(ctx context.Context, transactionHistoryIDs []uint) ([]*models.TransactionFeeEstimate, error)
	// ReplaceFeeEstimate fully replaces any prior estimate for the code.
	ReplaceFeeEstimate(ctx context.Context, estimate *models.TransactionFeeEstimate) error
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a TransactionRepository backed by gorm.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, trans *models.TransactionHistory) error {
	return r.db.WithContext(ctx).Create(trans).Error
}

func (r *transactionRepository) GetByID(ctx context.Context, id uint) (*models.TransactionHistory, error) {
	var trans models.TransactionHistory
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trans).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trans, nil
}

func (r *transactionRepository) GetByCode(ctx context.Context, code string) (*models.TransactionHistory, error) {
	var trans models.TransactionHistory
	err := r.db.WithContext(ctx).Where("transaction_code = ?", code).First(&trans).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trans, nil
}

func (r *transactionRepository) Page(ctx context.Context, q TransactionQuery) ([]*models.TransactionHistory, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TransactionHistory{})

	switch q.Subject {
	case "INCOME":
		query = query.Where("receiver_member_id = ?", q.MemberID)
	case "EXPEND":
		query = query.Where("sender_member_id = ?", q.MemberID)
	default:
		query = query.Where("sender_member_id = ? OR receiver_member_id = ?", q.MemberID, q.MemberID)
	}
	if q.Subject != "" {
		// The income/expend view hides deposits and withdrawals.
		query = query.Where("transaction_category NOT IN ?", []models.TransactionCategory{
			models.CategoryDeposit, models.CategoryWithdraw,
		})
	}
	if len(q.CounterpartyIDs) > 0 {
		query = query.Where("sender_member_id IN ? OR receiver_member_id IN ?", q.CounterpartyIDs, q.CounterpartyIDs)
	}
	if q.Platform != nil {
		query = query.Where("platform = ?", *q.Platform)
	}
	if q.ChainID != nil {
		query = query.Where("chain_id = ?", *q.ChainID)
	}
	if q.Network != nil {
		query = query.Where("network = ?", *q.Network)
	}
	if q.TokenSymbol != nil {
		query = query.Where("token_symbol = ?", *q.TokenSymbol)
	}
	if q.TransactionCategory != nil {
		query = query.Where("transaction_category = ?", *q.TransactionCategory)
	}
	if q.TransactionType != nil {
		query = query.Where("transaction_type = ?", *q.TransactionType)
	}
	if q.TransactionStatus != nil {
		query = query.Where("transaction_status = ?", *q.TransactionStatus)
	}
	if q.TransactionTimeFrom != nil {
		query = query.Where("transaction_time >= ?", *q.TransactionTimeFrom)
	}
	if q.TransactionTimeTo != nil {
		query = query.Where("transaction_time <= ?", *q.TransactionTimeTo)
	}
	// Unsettled one-sided rows stay hidden except for pending requests.
	query = query.Where("transaction_hash <> '' OR transaction_category = ?", models.CategoryRequest)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []*models.TransactionHistory
	offset := (q.Page - 1) * q.PageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(q.PageSize).Find(&list).Error
	return list, total, err
}

func (r *transactionRepository) Settle(ctx context.Context, id uint, hash string, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{
		"transaction_hash":       hash,
		"transaction_confirm_at": time.Now(),
	}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.TransactionHistory{}).
		Where("id = ? AND (transaction_hash IS NULL OR transaction_hash = '')", id).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *transactionRepository) AdvanceStatus(ctx context.Context, id uint, from, to models.TransactionStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.TransactionHistory{}).
		Where("id = ? AND transaction_status = ?", id, from).
		Update("transaction_status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *transactionRepository) GetFeeEstimate(ctx context.Context, transactionCode string) (*models.TransactionFeeEstimate, error) {
	var estimate models.TransactionFeeEstimate
	err := r.db.WithContext(ctx).Where("transaction_code = ?", transactionCode).First(&estimate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &estimate, nil
}

func (r *transactionRepository) ListFeeEstimates(ctx context.Context, transactionHistoryIDs []uint) ([]*models.TransactionFeeEstimate, error) {
	if len(transactionHistoryIDs) == 0 {
		return nil, nil
	}
	var estimates []*models.TransactionFeeEstimate
	err := r.db.WithContext(ctx).
		Where("transaction_history_id IN ?", transactionHistoryIDs).
		Find(&estimates).Error
	return estimates, err
}

func (r *transactionRepository) ReplaceFeeEstimate(ctx context.Context, estimate *models.TransactionFeeEstimate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.TransactionFeeEstimate
		err := tx.Where("transaction_code = ?", estimate.TransactionCode).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(estimate).Error
		case err != nil:
			return err
		default:
			estimate.ID = existing.ID
			estimate.CreatedAt = existing.CreatedAt
			return tx.Save(estimate).Error
		}
	})
}
