package services

import (
	"context"

	"github.com/EZGGdotxyz/ezgg-service/internal/core"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/repository"
)

// ContractService resolves which deployed business contract serves a
// transaction.
type ContractService struct {
	chainRepo repository.ChainRepository
}

// NewContractService creates a ContractService.
func NewContractService(chainRepo repository.ChainRepository) *ContractService {
	return &ContractService{chainRepo: chainRepo}
}

// BusinessFor maps a transaction type to the contract kind that executes it.
// Every type maps somewhere; an unknown type is a parameter error, never a
// silent default.
func BusinessFor(transactionType models.TransactionType) (models.Business, error) {
	switch transactionType {
	case models.TypePayLink:
		return models.BizLink, nil
	case models.TypeDeposit, models.TypeWithdraw:
		return models.BizVault, nil
	case models.TypeSend, models.TypeRequest, models.TypeQRCode,
		models.TypeRequestLink, models.TypeRequestQRCode:
		return models.BizTransfer, nil
	default:
		return "", core.ParameterError("unknown transaction type %s", transactionType)
	}
}

// Resolve returns the enabled contract of the given kind on a chain,
// preferring the highest version.
func (s *ContractService) Resolve(ctx context.Context, platform models.BlockChainPlatform, chainID int64, business models.Business) (*models.BizContract, error) {
	contract, err := s.chainRepo.FindBizContract(ctx, platform, chainID, business)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, core.NotFoundError("no enabled %s contract on %s/%d", business, platform, chainID)
	}
	return contract, nil
}

// ResolveForType resolves the contract serving a transaction type.
func (s *ContractService) ResolveForType(ctx context.Context, platform models.BlockChainPlatform, chainID int64, transactionType models.TransactionType) (*models.BizContract, error) {
	business, err := BusinessFor(transactionType)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, platform, chainID, business)
}

// List returns all contracts deployed on a chain.
func (s *ContractService) List(ctx context.Context, platform models.BlockChainPlatform, chainID int64) ([]*models.BizContract, error) {
	return s.chainRepo.ListBizContract(ctx, platform, chainID)
}
