package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

// PriceUpdateService refreshes native token prices from the exchange rate
// table. Open Exchange Rates quotes everything against USD, so the native
// price is the inverse of the symbol's rate.
type PriceUpdateService struct {
	chains   *ChainService
	rates    *ExchangeRateService
	interval time.Duration

	mu        sync.Mutex
	done      chan struct{}
	isRunning bool
}

// NewPriceUpdateService creates a PriceUpdateService.
func NewPriceUpdateService(chains *ChainService, rates *ExchangeRateService, interval time.Duration) *PriceUpdateService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &PriceUpdateService{
		chains:   chains,
		rates:    rates,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the refresh loop. Prices update immediately, then on the
// configured interval.
func (s *PriceUpdateService) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.updatePrices()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.updatePrices()
			}
		}
	}()
}

// Stop halts the refresh loop.
func (s *PriceUpdateService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.done)
}

func (s *PriceUpdateService) updatePrices() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chains, err := s.chains.ListBlockChain(ctx, models.PlatformETH, nil)
	if err != nil {
		logrus.WithError(err).Warn("price update: failed to list chains")
		return
	}

	one := decimal.NewFromInt(1)
	for _, chain := range chains {
		rate, err := s.rates.Rate(ctx, chain.TokenSymbol)
		if err != nil {
			logrus.WithError(err).WithField("symbol", chain.TokenSymbol).Debug("price update: no rate for native token")
			continue
		}
		if rate.IsZero() {
			continue
		}
		// rate is units per USD; price is USD per unit
		price := one.DivRound(rate, 8)
		if err := s.chains.UpdateNativePrice(ctx, chain.Platform, chain.ChainID, price.String()); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"platform": chain.Platform,
				"chain_id": chain.ChainID,
			}).Warn("price update: failed to store native price")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"chain_id": chain.ChainID,
			"symbol":   chain.TokenSymbol,
			"price":    price.String(),
		}).Debug("native price updated")
	}
}
