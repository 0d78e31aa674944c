package services

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EZGGdotxyz/ezgg-service/internal/chainops"
	"github.com/EZGGdotxyz/ezgg-service/internal/clients"
	"github.com/EZGGdotxyz/ezgg-service/internal/core"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

func onePercentPolicy() FeePolicy {
	return FeePolicy{
		Scale: decimal.NewFromInt(1),
		Flat:  decimal.NewFromInt(1),
	}
}

func TestComputeFeeWorkedExample(t *testing.T) {
	// 50k+80k+60k gas at 1 gwei on a $2500 native token, paying 100 units
	// of a six-decimal $1.00 token at a 1% margin.
	result, err := computeFee(feeInput{
		PreVerificationGas:   big.NewInt(50_000),
		VerificationGasLimit: big.NewInt(80_000),
		CallGasLimit:         big.NewInt(60_000),
		GasPrice:             big.NewInt(1_000_000_000),
		EthToUsd:             decimal.NewFromInt(2500),
		TokenPrice:           decimal.NewFromInt(1),
		TokenDecimals:        6,
		Amount:               decimal.NewFromInt(100_000_000),
		FeeSupport:           true,
	}, onePercentPolicy())
	require.NoError(t, err)

	assert.Equal(t, "190000000000000", result.TotalWei.String())
	assert.Equal(t, "0.00019", result.TotalEth.String())
	assert.Equal(t, "0.475", result.TotalUsd.String())
	assert.Equal(t, "1", result.PlatformFee.String())
	assert.Equal(t, "1475000", result.TotalTokenCost.String())
}

func TestComputeFeeZeroGasChain(t *testing.T) {
	// Chains without bundler estimation still charge the platform margin.
	result, err := computeFee(feeInput{
		PreVerificationGas:   big.NewInt(0),
		VerificationGasLimit: big.NewInt(0),
		CallGasLimit:         big.NewInt(0),
		GasPrice:             big.NewInt(0),
		EthToUsd:             decimal.NewFromInt(2500),
		TokenPrice:           decimal.NewFromInt(1),
		TokenDecimals:        6,
		Amount:               decimal.NewFromInt(100_000_000),
		FeeSupport:           true,
	}, onePercentPolicy())
	require.NoError(t, err)

	assert.Equal(t, "0", result.TotalWei.String())
	assert.Equal(t, "1", result.PlatformFee.String())
	assert.Equal(t, "1000000", result.TotalTokenCost.String())
}

func TestComputeFeeUnsupportedTokenUsesFlatFee(t *testing.T) {
	result, err := computeFee(feeInput{
		PreVerificationGas:   big.NewInt(0),
		VerificationGasLimit: big.NewInt(0),
		CallGasLimit:         big.NewInt(0),
		GasPrice:             big.NewInt(0),
		TokenPrice:           decimal.NewFromInt(2),
		TokenDecimals:        6,
		Amount:               decimal.NewFromInt(5_000_000),
		FeeSupport:           false,
	}, FeePolicy{Scale: decimal.NewFromInt(1), Flat: decimal.RequireFromString("0.50")})
	require.NoError(t, err)

	assert.Equal(t, "0.5", result.PlatformFee.String())
	// $0.50 at $2.00/token = 0.25 tokens = 250000 units
	assert.Equal(t, "250000", result.TotalTokenCost.String())
}

func TestComputeFeeRoundsHalfUpAtTokenDecimals(t *testing.T) {
	// $1.0000005 at $1/token with 6 decimals sits exactly on the midpoint.
	result, err := computeFee(feeInput{
		PreVerificationGas:   big.NewInt(0),
		VerificationGasLimit: big.NewInt(0),
		CallGasLimit:         big.NewInt(0),
		GasPrice:             big.NewInt(0),
		TokenPrice:           decimal.NewFromInt(1),
		TokenDecimals:        6,
		Amount:               decimal.NewFromInt(1),
		FeeSupport:           false,
	}, FeePolicy{Scale: decimal.NewFromInt(1), Flat: decimal.RequireFromString("1.0000005")})
	require.NoError(t, err)
	assert.Equal(t, "1000001", result.TotalTokenCost.String())
}

func TestComputeFeeUnknownTokenPrice(t *testing.T) {
	_, err := computeFee(feeInput{
		PreVerificationGas:   big.NewInt(0),
		VerificationGasLimit: big.NewInt(0),
		CallGasLimit:         big.NewInt(0),
		GasPrice:             big.NewInt(0),
		TokenDecimals:        6,
		Amount:               decimal.NewFromInt(1),
	}, onePercentPolicy())
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindParameter))
}

func feeTestFixture(t *testing.T, gasSupported bool) (*FeeEstimateService, *fakeTransRepo, *models.TransactionHistory) {
	t.Helper()
	price := "1"
	decimals := int32(6)
	symbol := "USDC"
	chainRepo := &fakeChainRepo{
		chains: []*models.BlockChain{{
			ID: 1, Platform: models.PlatformETH, ChainID: 84532,
			Network: models.NetworkTest, Name: "Base Sepolia",
			TokenSymbol: "ETH", TokenPrice: "2500",
			RPCURL: "http://rpc.test", BundlerURL: "http://bundler.test",
			GasEstimateSupported: gasSupported, Show: true,
		}},
		tokens: []*models.TokenContract{{
			ID: 1, Platform: models.PlatformETH, ChainID: 84532,
			Address: "0xusdc", Network: models.NetworkTest, ERC: models.ERC20,
			TokenSymbol: &symbol, TokenDecimals: &decimals, PriceValue: &price,
			FeeSupport: true, Show: true,
		}},
		contracts: []*models.BizContract{{
			ID: 1, Platform: models.PlatformETH, ChainID: 84532,
			Business: models.BizTransfer, Network: models.NetworkTest,
			Address: "0x2222222222222222222222222222222222222222",
			Enabled: true, Ver: 1,
		}},
		nextID: 10,
	}
	transRepo := newFakeTransRepo()
	sender := "0x4444444444444444444444444444444444444444"
	receiver := "0x5555555555555555555555555555555555555555"
	biz := models.BizTransfer
	bizAddr := "0x2222222222222222222222222222222222222222"
	trans := &models.TransactionHistory{
		TransactionCode:       "code-fee-1",
		TransactionCategory:   models.CategorySend,
		TransactionType:       models.TypeSend,
		TransactionStatus:     models.StatusPending,
		Platform:              models.PlatformETH,
		ChainID:               84532,
		Network:               models.NetworkTest,
		MemberID:              1,
		Business:              &biz,
		BizContractAddress:    &bizAddr,
		SenderWalletAddress:   &sender,
		ReceiverWalletAddress: &receiver,
		TokenContractAddress:  "0xusdc",
		TokenDecimals:         &decimals,
		TokenFeeSupport:       true,
		Amount:                "100000000",
		TransactionTime:       time.Now(),
	}
	require.NoError(t, transRepo.Create(context.Background(), trans))

	chains := NewChainService(chainRepo, nil)
	contracts := NewContractService(chainRepo)
	svc := NewFeeEstimateService(
		transRepo, chains, contracts, chainops.NewEncoder(),
		&fakeGasPricer{price: big.NewInt(1_000_000_000)},
		&fakeGasEstimator{estimate: &clients.GasEstimate{
			PreVerificationGas:   big.NewInt(50_000),
			VerificationGasLimit: big.NewInt(80_000),
			CallGasLimit:         big.NewInt(60_000),
		}},
		onePercentPolicy(),
	)
	return svc, transRepo, trans
}

func TestEstimatePersistsSnapshot(t *testing.T) {
	svc, transRepo, trans := feeTestFixture(t, true)

	estimate, err := svc.Estimate(context.Background(), trans.TransactionCode, "")
	require.NoError(t, err)
	assert.Equal(t, "190000", estimate.Gas)
	assert.Equal(t, "1000000000", estimate.GasPrice)
	assert.Equal(t, "1475000", estimate.TotalTokenCost)
	assert.Equal(t, trans.ID, estimate.TransactionHistoryID)

	stored, err := transRepo.GetFeeEstimate(context.Background(), trans.TransactionCode)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, estimate.TotalTokenCost, stored.TotalTokenCost)
}

func TestEstimateReplacesPriorSnapshot(t *testing.T) {
	svc, transRepo, trans := feeTestFixture(t, true)

	first, err := svc.Estimate(context.Background(), trans.TransactionCode, "")
	require.NoError(t, err)
	second, err := svc.Estimate(context.Background(), trans.TransactionCode, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := transRepo.ListFeeEstimates(context.Background(), []uint{trans.ID})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEstimateUnsupportedChainSkipsBundler(t *testing.T) {
	svc, _, trans := feeTestFixture(t, false)

	estimate, err := svc.Estimate(context.Background(), trans.TransactionCode, "")
	require.NoError(t, err)
	assert.Equal(t, "0", estimate.Gas)
	assert.Equal(t, "0", estimate.TotalWeiCost)
	// the margin still applies
	assert.Equal(t, "1000000", estimate.TotalTokenCost)
}

func TestEstimateFlatFeeWhenTokenNotFeeSupported(t *testing.T) {
	// A priced token whose curated fee_support flag is off takes the flat
	// platform fee, not the percent margin.
	svc, _, trans := feeTestFixture(t, true)
	// 200 tokens: the percent branch would charge $2, the flat fee is $1.
	trans.Amount = "200000000"
	trans.TokenFeeSupport = false

	estimate, err := svc.Estimate(context.Background(), trans.TransactionCode, "")
	require.NoError(t, err)
	// 0.475 gas USD + 1 flat USD at $1/token, 6 decimals
	assert.Equal(t, "1", estimate.PlatformFee)
	assert.Equal(t, "1475000", estimate.TotalTokenCost)
}

func TestEstimateUnknownTransaction(t *testing.T) {
	svc, _, _ := feeTestFixture(t, true)

	_, err := svc.Estimate(context.Background(), "missing", "")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindNotFound))
}
