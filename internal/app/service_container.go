package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/EZGGdotxyz/ezgg-service/internal/chainops"
	"github.com/EZGGdotxyz/ezgg-service/internal/clients"
	"github.com/EZGGdotxyz/ezgg-service/internal/config"
	"github.com/EZGGdotxyz/ezgg-service/internal/db"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/repository"
	"github.com/EZGGdotxyz/ezgg-service/internal/services"
)

// ServiceContainer owns every long-lived dependency of the process.
type ServiceContainer struct {
	DB *gorm.DB

	// Repositories
	ChainRepo       repository.ChainRepository
	TransactionRepo repository.TransactionRepository
	PayLinkRepo     repository.PayLinkRepository
	MemberRepo      repository.MemberRepository

	// Clients
	ChainClient         *clients.ChainClient
	BundlerClient       *clients.BundlerClient
	ExchangeRatesClient *clients.ExchangeRatesClient
	MemberClient        *clients.MemberClient
	NATSClient          *clients.NATSClient

	// Services
	Encoder             *chainops.Encoder
	ChainService        *services.ChainService
	ContractService     *services.ContractService
	MemberService       *services.MemberService
	NotificationService *services.NotificationService
	TransactionService  *services.TransactionService
	PayLinkService      *services.PayLinkService
	FeeEstimateService  *services.FeeEstimateService
	BalanceService      *services.BalanceService
	ExchangeRateService *services.ExchangeRateService
	PriceUpdateService  *services.PriceUpdateService
}

var Container *ServiceContainer
var containerOnce sync.Once

// memberIdentityProvider adapts the account service client to the identity
// lookups the services need.
type memberIdentityProvider struct {
	client *clients.MemberClient
}

func (p *memberIdentityProvider) Resolve(ctx context.Context, memberID int64, platform models.BlockChainPlatform) (*services.MemberIdentity, error) {
	wallet, err := p.client.GetWallet(ctx, memberID, string(platform))
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, nil
	}
	return &services.MemberIdentity{
		MemberID:      wallet.MemberID,
		Did:           wallet.Did,
		WalletAddress: wallet.WalletAddress,
	}, nil
}

// InitializeContainer wires repositories, clients, and services. Safe to
// call more than once; only the first call does work.
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		cfg := config.AppConfig
		if cfg == nil {
			initErr = fmt.Errorf("config not loaded")
			return
		}

		c := &ServiceContainer{DB: db.DB}

		c.ChainRepo = repository.NewChainRepository(c.DB)
		c.TransactionRepo = repository.NewTransactionRepository(c.DB)
		c.PayLinkRepo = repository.NewPayLinkRepository(c.DB)
		c.MemberRepo = repository.NewMemberRepository(c.DB)

		c.ChainClient = clients.NewChainClient()
		c.BundlerClient = clients.NewBundlerClient(cfg.Bundler.EntryPoint, time.Duration(cfg.Bundler.Timeout)*time.Second)
		c.ExchangeRatesClient = clients.NewExchangeRatesClient(cfg.ExchangeRates.AppID, cfg.ExchangeRates.BaseURL)
		c.MemberClient = clients.NewMemberClient(cfg.Account.BaseURL, cfg.Account.APIKey, time.Duration(cfg.Account.Timeout)*time.Second)

		if cfg.NATS.URL != "" {
			nats, err := clients.NewNATSClient(cfg.NATS.URL, cfg.NATS.SubjectPrefix, time.Duration(cfg.NATS.Timeout)*time.Second)
			if err != nil {
				logrus.WithError(err).Warn("NATS unavailable, notifications will not be published")
			} else {
				c.NATSClient = nats
			}
		}

		policy, err := feePolicy(cfg.Fee)
		if err != nil {
			initErr = err
			return
		}

		c.Encoder = chainops.NewEncoder()
		c.ChainService = services.NewChainService(c.ChainRepo, c.ChainClient)
		c.ContractService = services.NewContractService(c.ChainRepo)
		c.MemberService = services.NewMemberService(c.MemberRepo, &memberIdentityProvider{client: c.MemberClient})
		var publisher services.Publisher
		if c.NATSClient != nil {
			publisher = c.NATSClient
		}
		c.NotificationService = services.NewNotificationService(c.MemberRepo, publisher)
		c.TransactionService = services.NewTransactionService(c.TransactionRepo, c.ChainService, c.ContractService, c.MemberService, c.NotificationService, c.Encoder)
		c.PayLinkService = services.NewPayLinkService(c.PayLinkRepo, c.TransactionRepo, c.MemberService, c.NotificationService, c.Encoder)
		c.FeeEstimateService = services.NewFeeEstimateService(c.TransactionRepo, c.ChainService, c.ContractService, c.Encoder, c.ChainClient, c.BundlerClient, policy)
		c.ExchangeRateService = services.NewExchangeRateService(c.ExchangeRatesClient)
		c.BalanceService = services.NewBalanceService(c.ChainService, c.ExchangeRateService, c.ChainClient)
		c.PriceUpdateService = services.NewPriceUpdateService(c.ChainService, c.ExchangeRateService, 10*time.Minute)

		Container = c
		logrus.Info("service container initialized")
	})

	return Container, initErr
}

func feePolicy(cfg config.FeeConfig) (services.FeePolicy, error) {
	scale, err := decimal.NewFromString(cfg.PlatformFeeScale)
	if err != nil {
		return services.FeePolicy{}, fmt.Errorf("invalid platformFeeScale %q: %w", cfg.PlatformFeeScale, err)
	}
	flat, err := decimal.NewFromString(cfg.PlatformFee)
	if err != nil {
		return services.FeePolicy{}, fmt.Errorf("invalid platformFee %q: %w", cfg.PlatformFee, err)
	}
	return services.FeePolicy{Scale: scale, Flat: flat}, nil
}

// Close releases client connections.
func (c *ServiceContainer) Close() {
	if c.PriceUpdateService != nil {
		c.PriceUpdateService.Stop()
	}
	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
	if c.ChainClient != nil {
		c.ChainClient.Close()
	}
}
