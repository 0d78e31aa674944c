// Package repository provides data access interfaces and implementations.
// The storage boundary enforces exactly two cross-cutting invariants: hash
// fields are write-once, and transaction status only advances forward. Both
// are implemented as guarded UPDATEs so they hold under concurrent callers.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

// ChainRepository data access for chains, tokens, and business contracts
type ChainRepository interface {
	ListBlockChain(ctx context.Context, platform models.BlockChainPlatform, network *models.BlockChainNetwork) ([]*models.BlockChain, error)
	FindBlockChain(ctx context.Context, platform models.BlockChainPlatform, chainID int64) (*models.BlockChain, error)
	UpdateNativePrice(ctx context.Context, platform models.BlockChainPlatform, chainID int64, price string) error

	ListTokenContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64) ([]*models.TokenContract, error)
	FindTokenContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64, address string) (*models.TokenContract, error)
	CreateTokenContract(ctx context.Context, token *models.TokenContract) error
	UpdateTokenPrice(ctx context.Context, id uint, currency, value string) error

	FindBizContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64, business models.Business) (*models.BizContract, error)
	ListBizContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64) ([]*models.BizContract, error)
}

type chainRepository struct {
	db *gorm.DB
}

// NewChainRepository creates a ChainRepository backed by gorm.
func NewChainRepository(db *gorm.DB) ChainRepository {
	return &chainRepository{db: db}
}

func (r *chainRepository) ListBlockChain(ctx context.Context, platform models.BlockChainPlatform, network *models.BlockChainNetwork) ([]*models.BlockChain, error) {
	var chains []*models.BlockChain
	q := r.db.WithContext(ctx).Where("platform = ? AND show = ?", platform, true)
	if network != nil {
		q = q.Where("network = ?", *network)
	}
	err := q.Order("sort ASC").Find(&chains).Error
	return chains, err
}

func (r *chainRepository) FindBlockChain(ctx context.Context, platform models.BlockChainPlatform, chainID int64) (*models.BlockChain, error) {
	var chain models.BlockChain
	err := r.db.WithContext(ctx).
		Where("platform = ? AND chain_id = ?", platform, chainID).
		First(&chain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chain, nil
}

func (r *chainRepository) UpdateNativePrice(ctx context.Context, platform models.BlockChainPlatform, chainID int64, price string) error {
	return r.db.WithContext(ctx).Model(&models.BlockChain{}).
		Where("platform = ? AND chain_id = ?", platform, chainID).
		Update("token_price", price).Error
}

func (r *chainRepository) ListTokenContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64) ([]*models.TokenContract, error) {
	var tokens []*models.TokenContract
	err := r.db.WithContext(ctx).
		Where("platform = ? AND chain_id = ? AND show = ?", platform, chainID, true).
		Order("sort ASC, token_name ASC").
		Find(&tokens).Error
	return tokens, err
}

func (r *chainRepository) FindTokenContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64, address string) (*models.TokenContract, error) {
	var token models.TokenContract
	err := r.db.WithContext(ctx).
		Where("platform = ? AND chain_id = ? AND address = ?", platform, chainID, address).
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *chainRepository) CreateTokenContract(ctx context.Context, token *models.TokenContract) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *chainRepository) UpdateTokenPrice(ctx context.Context, id uint, currency, value string) error {
	return r.db.Model(&models.TokenContract{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"price_currency":  currency,
			"price_value":     value,
			"price_update_at": gorm.Expr("NOW()"),
		}).Error
}

// FindBizContract selects the enabled contract with the highest version for
// (platform, chainId, business). Nil when none is deployed.
func (r *chainRepository) FindBizContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64, business models.Business) (*models.BizContract, error) {
	var contract models.BizContract
	err := r.db.WithContext(ctx).
		Where("platform = ? AND chain_id = ? AND business = ? AND enabled = ?", platform, chainID, business, true).
		Order("ver DESC").
		First(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *chainRepository) ListBizContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64) ([]*models.BizContract, error) {
	var contracts []*models.BizContract
	err := r.db.WithContext(ctx).
		Where("platform = ? AND chain_id = ? AND enabled = ?", platform, chainID, true).
		Order("ver DESC").
		Find(&contracts).Error
	return contracts, err
}
