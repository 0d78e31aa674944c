package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

// BalanceReader reads ERC-20 balances; implemented by clients.ChainClient.
type BalanceReader interface {
	BalanceOf(ctx context.Context, rpcURL string, token, owner common.Address) (*big.Int, error)
}

// TokenBalance one token's balance for a wallet. Balance is in smallest
// units; DisplayValue is the fiat value in the requested currency, empty
// when the token has no known price.
type TokenBalance struct {
	Token           *models.TokenContract `json:"token"`
	Balance         string                `json:"balance"`
	DisplayCurrency string                `json:"display_currency"`
	DisplayValue    string                `json:"display_value,omitempty"`
}

// BalanceService reads wallet balances across the token catalog.
type BalanceService struct {
	chains *ChainService
	rates  *ExchangeRateService
	reader BalanceReader
}

// NewBalanceService creates a BalanceService.
func NewBalanceService(chains *ChainService, rates *ExchangeRateService, reader BalanceReader) *BalanceService {
	return &BalanceService{chains: chains, rates: rates, reader: reader}
}

// ListBalances returns the wallet's balance for every visible catalog token
// on the chain, valued in the given display currency (USD when empty). An
// unreachable token reports "0" rather than failing the whole listing.
func (s *BalanceService) ListBalances(ctx context.Context, platform models.BlockChainPlatform, chainID int64, wallet, currency string) ([]*TokenBalance, error) {
	chain, err := s.chains.FindBlockChain(ctx, platform, chainID)
	if err != nil {
		return nil, err
	}
	tokens, err := s.chains.ListTokenContract(ctx, platform, chainID)
	if err != nil {
		return nil, err
	}
	if currency == "" {
		currency = "USD"
	}

	owner := common.HexToAddress(wallet)
	balances := make([]*TokenBalance, 0, len(tokens))
	for _, token := range tokens {
		balance := "0"
		if platform == models.PlatformETH && chain.RPCURL != "" {
			v, err := s.reader.BalanceOf(ctx, chain.RPCURL, common.HexToAddress(token.Address), owner)
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"token":  token.Address,
					"wallet": wallet,
				}).Warn("balance lookup failed")
			} else {
				balance = v.String()
			}
		}
		entry := &TokenBalance{Token: token, Balance: balance, DisplayCurrency: currency}
		if value := s.displayValue(ctx, token, balance, currency); value != "" {
			entry.DisplayValue = value
		}
		balances = append(balances, entry)
	}
	return balances, nil
}

// displayValue prices the balance in the display currency. Tokens without
// a USD price or decimals yield no value; a rate failure degrades to USD.
func (s *BalanceService) displayValue(ctx context.Context, token *models.TokenContract, balance, currency string) string {
	if token.TokenDecimals == nil || token.PriceValue == nil || *token.PriceValue == "" {
		return ""
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return ""
	}
	price, err := decimal.NewFromString(*token.PriceValue)
	if err != nil {
		return ""
	}
	usd := amount.Shift(-*token.TokenDecimals).Mul(price)
	if s.rates == nil || currency == "USD" {
		return usd.StringFixed(2)
	}
	value, err := s.rates.ConvertUSD(ctx, usd, currency)
	if err != nil {
		logrus.WithError(err).WithField("currency", currency).Debug("display conversion failed, reporting USD")
		return usd.StringFixed(2)
	}
	return value.StringFixed(2)
}
