package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/EZGGdotxyz/ezgg-service/internal/cache"
	"github.com/EZGGdotxyz/ezgg-service/internal/core"
)

// RatesSource fetches the USD-base fiat rate table; implemented by
// clients.ExchangeRatesClient.
type RatesSource interface {
	LatestRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// ExchangeRateService converts USD amounts into display currencies. The
// rate table refreshes every eight hours; display conversion tolerates that
// staleness.
type ExchangeRateService struct {
	source RatesSource
	rates  *cache.TTL[string, map[string]decimal.Decimal]
}

// NewExchangeRateService creates an ExchangeRateService.
func NewExchangeRateService(source RatesSource, opts ...cache.Option[string, map[string]decimal.Decimal]) *ExchangeRateService {
	return &ExchangeRateService{
		source: source,
		rates:  cache.NewTTL[string, map[string]decimal.Decimal](8*time.Hour, opts...),
	}
}

// Rate returns how many units of currency one USD buys.
func (s *ExchangeRateService) Rate(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if currency == "USD" {
		return decimal.NewFromInt(1), nil
	}
	table, err := s.rates.GetOrLoad("USD", func() (map[string]decimal.Decimal, error) {
		return s.source.LatestRates(ctx)
	})
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := table[currency]
	if !ok {
		return decimal.Zero, core.ParameterError("unknown currency %s", currency)
	}
	return rate, nil
}

// ConvertUSD converts a USD amount into the target currency.
func (s *ExchangeRateService) ConvertUSD(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	rate, err := s.Rate(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}
