package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

// Config application configuration structure
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	NATS          NATSConfig          `yaml:"nats"`
	Auth          AuthConfig          `yaml:"auth"`
	Fee           FeeConfig           `yaml:"fee"`
	ExchangeRates ExchangeRatesConfig `yaml:"exchangeRates"`
	Bundler       BundlerConfig       `yaml:"bundler"`
	Account       AccountConfig       `yaml:"account"`
	Seed          SeedConfig          `yaml:"seed"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`       // seconds
	ReconnectWait int    `yaml:"reconnectWait"` // seconds
	MaxReconnects int    `yaml:"maxReconnects"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// AuthConfig JWT auth configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

// FeeConfig platform fee policy. PlatformFeeScale is the percent applied to
// fee-eligible tokens; PlatformFee is the flat USD fallback for ineligible
// tokens. Both are decimal strings to avoid float drift.
type FeeConfig struct {
	PlatformFeeScale string `yaml:"platformFeeScale"`
	PlatformFee      string `yaml:"platformFee"`
}

// ExchangeRatesConfig open exchange rates API configuration
type ExchangeRatesConfig struct {
	AppID   string `yaml:"appId"`
	BaseURL string `yaml:"baseUrl"`
}

// BundlerConfig account-abstraction bundler configuration
type BundlerConfig struct {
	EntryPoint string `yaml:"entryPoint"`
	Timeout    int    `yaml:"timeout"` // seconds
}

// AccountConfig account service (member profiles and smart wallets)
type AccountConfig struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
	Timeout int    `yaml:"timeout"` // seconds
}

// SeedConfig initial chains, tokens, and business contracts loaded at boot.
type SeedConfig struct {
	Chains    []ChainSeed    `yaml:"chains"`
	Tokens    []TokenSeed    `yaml:"tokens"`
	Contracts []ContractSeed `yaml:"contracts"`
}

// ChainSeed seeded BlockChain row
type ChainSeed struct {
	Platform             models.BlockChainPlatform `yaml:"platform"`
	ChainID              int64                     `yaml:"chainId"`
	Network              models.BlockChainNetwork  `yaml:"network"`
	Name                 string                    `yaml:"name"`
	TokenSymbol          string                    `yaml:"tokenSymbol"`
	TokenPrice           string                    `yaml:"tokenPrice"`
	RPCURL               string                    `yaml:"rpcUrl"`
	BundlerURL           string                    `yaml:"bundlerUrl"`
	SmartWalletType      models.SmartWalletType    `yaml:"smartWalletType"`
	GasEstimateSupported bool                      `yaml:"gasEstimateSupported"`
	Show                 bool                      `yaml:"show"`
	Sort                 int                       `yaml:"sort"`
}

// TokenSeed seeded TokenContract row
type TokenSeed struct {
	Platform      models.BlockChainPlatform `yaml:"platform"`
	ChainID       int64                     `yaml:"chainId"`
	Address       string                    `yaml:"address"`
	TokenName     string                    `yaml:"tokenName"`
	TokenSymbol   string                    `yaml:"tokenSymbol"`
	TokenDecimals int32                     `yaml:"tokenDecimals"`
	PriceValue    string                    `yaml:"priceValue"`
	FeeSupport    bool                      `yaml:"feeSupport"`
	Show          bool                      `yaml:"show"`
	Sort          int                       `yaml:"sort"`
}

// ContractSeed seeded BizContract row
type ContractSeed struct {
	Platform models.BlockChainPlatform `yaml:"platform"`
	ChainID  int64                     `yaml:"chainId"`
	Business models.Business           `yaml:"business"`
	Address  string                    `yaml:"address"`
	Ver      int                       `yaml:"ver"`
	Enabled  bool                      `yaml:"enabled"`
}

var AppConfig *Config

// LoadConfig loads the YAML configuration file, then applies environment
// overrides. A config.local.yaml next to the default path wins when present.
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)
	applyDefaults(&config)

	AppConfig = &config
	return nil
}

func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if scale := os.Getenv("PLATFORM_FEE_SCALE"); scale != "" {
		config.Fee.PlatformFeeScale = scale
	}
	if fee := os.Getenv("PLATFORM_FEE"); fee != "" {
		config.Fee.PlatformFee = fee
	}
	if appID := os.Getenv("OPEN_EXCHANGE_RATES_APP_ID"); appID != "" {
		config.ExchangeRates.AppID = appID
	}
	if entryPoint := os.Getenv("BUNDLER_ENTRY_POINT"); entryPoint != "" {
		config.Bundler.EntryPoint = entryPoint
	}
	if accountURL := os.Getenv("ACCOUNT_SERVICE_URL"); accountURL != "" {
		config.Account.BaseURL = accountURL
	}
	if accountKey := os.Getenv("ACCOUNT_SERVICE_API_KEY"); accountKey != "" {
		config.Account.APIKey = accountKey
	}
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.NATS.Timeout == 0 {
		config.NATS.Timeout = 10
	}
	if config.NATS.ReconnectWait == 0 {
		config.NATS.ReconnectWait = 2
	}
	if config.NATS.MaxReconnects == 0 {
		config.NATS.MaxReconnects = 60
	}
	if config.NATS.SubjectPrefix == "" {
		config.NATS.SubjectPrefix = "ezgg"
	}
	if config.Fee.PlatformFeeScale == "" {
		config.Fee.PlatformFeeScale = "1"
	}
	if config.Fee.PlatformFee == "" {
		config.Fee.PlatformFee = "1"
	}
	if config.ExchangeRates.BaseURL == "" {
		config.ExchangeRates.BaseURL = "https://openexchangerates.org/api"
	}
	if config.Bundler.EntryPoint == "" {
		// ERC-4337 v0.6 canonical entry point
		config.Bundler.EntryPoint = "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"
	}
	if config.Bundler.Timeout == 0 {
		config.Bundler.Timeout = 15
	}
	if config.Account.Timeout == 0 {
		config.Account.Timeout = 10
	}
}
