package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EZGGdotxyz/ezgg-service/internal/config"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

type chainRef struct {
	platform models.BlockChainPlatform
	chainID  int64
}

// chainNetworks maps each seeded chain to its network tier so token and
// contract rows inherit it.
func chainNetworks(chains []config.ChainSeed) map[chainRef]models.BlockChainNetwork {
	networks := make(map[chainRef]models.BlockChainNetwork, len(chains))
	for _, c := range chains {
		networks[chainRef{platform: c.Platform, chainID: c.ChainID}] = c.Network
	}
	return networks
}

func seedNetwork(networks map[chainRef]models.BlockChainNetwork, platform models.BlockChainPlatform, chainID int64) models.BlockChainNetwork {
	if network, ok := networks[chainRef{platform: platform, chainID: chainID}]; ok {
		return network
	}
	return models.NetworkMain
}

// tokenRow builds the TokenContract row for a seed entry. FeeSupport is a
// curated flag; it is forced off when decimals or price are missing because
// a percent margin cannot be priced without them.
func tokenRow(t config.TokenSeed, network models.BlockChainNetwork, now time.Time) models.TokenContract {
	decimals := t.TokenDecimals
	name := t.TokenName
	symbol := t.TokenSymbol
	price := t.PriceValue
	currency := "usd"
	return models.TokenContract{
		Platform:      t.Platform,
		ChainID:       t.ChainID,
		Address:       t.Address,
		Network:       network,
		ERC:           models.ERC20,
		TokenName:     &name,
		TokenSymbol:   &symbol,
		TokenDecimals: &decimals,
		PriceCurrency: &currency,
		PriceValue:    &price,
		PriceUpdateAt: &now,
		FeeSupport:    t.FeeSupport && t.TokenDecimals > 0 && t.PriceValue != "",
		Show:          t.Show,
		Sort:          t.Sort,
	}
}

// Seed upserts the configured chains, tokens, and business contracts.
// Chains are never deleted; rerunning refreshes the cached native price and
// visibility flags only. Token decimals are immutable once set, so token
// upserts leave existing decimals untouched.
func Seed(db *gorm.DB, seed config.SeedConfig) error {
	networks := chainNetworks(seed.Chains)

	for _, c := range seed.Chains {
		chain := models.BlockChain{
			Platform:             c.Platform,
			ChainID:              c.ChainID,
			Network:              c.Network,
			Name:                 c.Name,
			TokenSymbol:          c.TokenSymbol,
			TokenPrice:           c.TokenPrice,
			RPCURL:               c.RPCURL,
			BundlerURL:           c.BundlerURL,
			SmartWalletType:      c.SmartWalletType,
			GasEstimateSupported: c.GasEstimateSupported,
			Show:                 c.Show,
			Sort:                 c.Sort,
		}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "platform"}, {Name: "chain_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "token_symbol", "token_price", "rpc_url", "bundler_url",
				"smart_wallet_type", "gas_estimate_supported", "show", "sort", "updated_at",
			}),
		}).Create(&chain).Error
		if err != nil {
			return err
		}
	}

	now := time.Now()
	for _, t := range seed.Tokens {
		token := tokenRow(t, seedNetwork(networks, t.Platform, t.ChainID), now)
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "platform"}, {Name: "chain_id"}, {Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"token_name", "token_symbol", "price_currency", "price_value",
				"price_update_at", "fee_support", "show", "sort", "updated_at",
			}),
		}).Create(&token).Error
		if err != nil {
			return err
		}
	}

	for _, c := range seed.Contracts {
		contract := models.BizContract{
			Platform: c.Platform,
			ChainID:  c.ChainID,
			Business: c.Business,
			Network:  seedNetwork(networks, c.Platform, c.ChainID),
			Address:  c.Address,
			Enabled:  c.Enabled,
			Ver:      c.Ver,
		}
		var existing models.BizContract
		err := db.Where("platform = ? AND chain_id = ? AND business = ? AND ver = ?",
			c.Platform, c.ChainID, c.Business, c.Ver).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&contract).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// Contracts are immutable once referenced; only the enabled
			// flag may change.
			if existing.Enabled != c.Enabled {
				if err := db.Model(&existing).Update("enabled", c.Enabled).Error; err != nil {
					return err
				}
			}
		}
	}

	return nil
}
