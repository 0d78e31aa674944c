package services

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/cache"
	"github.com/EZGGdotxyz/ezgg-service/internal/clients"
	"github.com/EZGGdotxyz/ezgg-service/internal/core"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/repository"
)

// TokenMetadataReader the on-chain lookups ChainService needs; implemented
// by clients.ChainClient.
type TokenMetadataReader interface {
	FetchTokenMetadata(ctx context.Context, rpcURL string, token common.Address) (*clients.TokenMetadata, error)
}

type chainKey struct {
	platform models.BlockChainPlatform
	chainID  int64
}

type tokenKey struct {
	platform models.BlockChainPlatform
	chainID  int64
	address  string
}

// ChainService serves the chain registry and token catalog. Lookups are
// cached briefly; the database stays authoritative.
type ChainService struct {
	chainRepo repository.ChainRepository
	reader    TokenMetadataReader

	chainCache *cache.TTL[chainKey, *models.BlockChain]
	tokenCache *cache.TTL[tokenKey, *models.TokenContract]
}

// NewChainService creates a ChainService.
func NewChainService(chainRepo repository.ChainRepository, reader TokenMetadataReader) *ChainService {
	return &ChainService{
		chainRepo:  chainRepo,
		reader:     reader,
		chainCache: cache.NewTTL[chainKey, *models.BlockChain](5 * time.Minute),
		tokenCache: cache.NewTTL[tokenKey, *models.TokenContract](5 * time.Minute),
	}
}

// ListBlockChain returns visible chains for a platform, optionally filtered
// by network tier, in display order.
func (s *ChainService) ListBlockChain(ctx context.Context, platform models.BlockChainPlatform, network *models.BlockChainNetwork) ([]*models.BlockChain, error) {
	return s.chainRepo.ListBlockChain(ctx, platform, network)
}

// FindBlockChain returns the chain or a parameter error when the pair is not
// supported. Hidden chains still resolve: hiding affects listing only.
func (s *ChainService) FindBlockChain(ctx context.Context, platform models.BlockChainPlatform, chainID int64) (*models.BlockChain, error) {
	key := chainKey{platform: platform, chainID: chainID}
	if chain, ok := s.chainCache.Get(key); ok {
		return chain, nil
	}
	chain, err := s.chainRepo.FindBlockChain(ctx, platform, chainID)
	if err != nil {
		return nil, err
	}
	if chain == nil {
		return nil, core.ParameterError("unsupported chain %s/%d", platform, chainID)
	}
	s.chainCache.Set(key, chain)
	return chain, nil
}

// ListTokenContract returns the token catalog for a chain in display order.
func (s *ChainService) ListTokenContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64) ([]*models.TokenContract, error) {
	if _, err := s.FindBlockChain(ctx, platform, chainID); err != nil {
		return nil, err
	}
	return s.chainRepo.ListTokenContract(ctx, platform, chainID)
}

// ResolveToken returns the catalog entry for a token address, creating a
// minimal row on first sight. Metadata is read from the chain when
// reachable; a row with unknown decimals is still usable but not
// fee-eligible.
func (s *ChainService) ResolveToken(ctx context.Context, platform models.BlockChainPlatform, chainID int64, address string) (*models.TokenContract, error) {
	key := tokenKey{platform: platform, chainID: chainID, address: address}
	if token, ok := s.tokenCache.Get(key); ok {
		return token, nil
	}

	token, err := s.chainRepo.FindTokenContract(ctx, platform, chainID, address)
	if err != nil {
		return nil, err
	}
	if token == nil {
		chain, err := s.FindBlockChain(ctx, platform, chainID)
		if err != nil {
			return nil, err
		}
		token = &models.TokenContract{
			Platform: platform,
			ChainID:  chainID,
			Address:  address,
			Network:  chain.Network,
			ERC:      models.ERC20,
			Show:     false,
		}
		if platform == models.PlatformETH && s.reader != nil && chain.RPCURL != "" {
			if meta, err := s.reader.FetchTokenMetadata(ctx, chain.RPCURL, common.HexToAddress(address)); err == nil {
				decimals := int32(meta.Decimals)
				token.TokenName = &meta.Name
				token.TokenSymbol = &meta.Symbol
				token.TokenDecimals = &decimals
			} else {
				logrus.WithError(err).WithFields(logrus.Fields{
					"chain_id": chainID,
					"address":  address,
				}).Warn("token metadata lookup failed, recording bare entry")
			}
		}
		// FeeSupport is curated per token; discovered tokens start without
		// it (no USD price is known for the percent margin anyway).
		token.FeeSupport = false
		if err := s.chainRepo.CreateTokenContract(ctx, token); err != nil {
			return nil, err
		}
	}

	s.tokenCache.Set(key, token)
	return token, nil
}

// UpdateTokenPrice refreshes a token's USD price and drops stale cache.
func (s *ChainService) UpdateTokenPrice(ctx context.Context, platform models.BlockChainPlatform, chainID int64, address, value string) error {
	token, err := s.chainRepo.FindTokenContract(ctx, platform, chainID, address)
	if err != nil {
		return err
	}
	if token == nil {
		return core.NotFoundError("token %s not found on %s/%d", address, platform, chainID)
	}
	if err := s.chainRepo.UpdateTokenPrice(ctx, token.ID, "USD", value); err != nil {
		return err
	}
	s.tokenCache.Delete(tokenKey{platform: platform, chainID: chainID, address: address})
	return nil
}

// UpdateNativePrice refreshes a chain's native token USD price.
func (s *ChainService) UpdateNativePrice(ctx context.Context, platform models.BlockChainPlatform, chainID int64, price string) error {
	if err := s.chainRepo.UpdateNativePrice(ctx, platform, chainID, price); err != nil {
		return err
	}
	s.chainCache.Delete(chainKey{platform: platform, chainID: chainID})
	return nil
}
