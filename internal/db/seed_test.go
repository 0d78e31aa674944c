package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/EZGGdotxyz/ezgg-service/internal/config"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

func testChainSeeds() []config.ChainSeed {
	return []config.ChainSeed{
		{Platform: models.PlatformETH, ChainID: 8453, Network: models.NetworkMain, Name: "Base"},
		{Platform: models.PlatformETH, ChainID: 84532, Network: models.NetworkTest, Name: "Base Sepolia"},
	}
}

func TestSeedTokensInheritChainNetwork(t *testing.T) {
	networks := chainNetworks(testChainSeeds())

	assert.Equal(t, models.NetworkMain, seedNetwork(networks, models.PlatformETH, 8453))
	assert.Equal(t, models.NetworkTest, seedNetwork(networks, models.PlatformETH, 84532))
	// No owning chain seeded: default stands.
	assert.Equal(t, models.NetworkMain, seedNetwork(networks, models.PlatformETH, 1))

	token := tokenRow(config.TokenSeed{
		Platform: models.PlatformETH, ChainID: 84532,
		Address: "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		TokenSymbol: "USDC", TokenDecimals: 6, PriceValue: "1",
	}, seedNetwork(networks, models.PlatformETH, 84532), time.Now())

	assert.Equal(t, models.NetworkTest, token.Network)
}

func TestSeedTokenFeeSupportIsCurated(t *testing.T) {
	now := time.Now()
	base := config.TokenSeed{
		Platform: models.PlatformETH, ChainID: 84532,
		Address: "0xusdc", TokenSymbol: "USDC",
		TokenDecimals: 6, PriceValue: "1",
	}

	// Not opted in: flag stays off even though the token is fully priced.
	assert.False(t, tokenRow(base, models.NetworkTest, now).FeeSupport)

	opted := base
	opted.FeeSupport = true
	assert.True(t, tokenRow(opted, models.NetworkTest, now).FeeSupport)

	// Opting in cannot override missing decimals or price.
	noDecimals := opted
	noDecimals.TokenDecimals = 0
	assert.False(t, tokenRow(noDecimals, models.NetworkTest, now).FeeSupport)

	noPrice := opted
	noPrice.PriceValue = ""
	assert.False(t, tokenRow(noPrice, models.NetworkTest, now).FeeSupport)
}
