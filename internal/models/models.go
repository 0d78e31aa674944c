package models

import (
	"time"
)

// BlockChainPlatform blockchain platform enum
type BlockChainPlatform string

const (
	PlatformETH    BlockChainPlatform = "ETH"
	PlatformSolana BlockChainPlatform = "SOLANA"
)

// BlockChainNetwork network tier enum
type BlockChainNetwork string

const (
	NetworkMain BlockChainNetwork = "MAIN"
	NetworkTest BlockChainNetwork = "TEST"
	NetworkDev  BlockChainNetwork = "DEV"
)

// SmartWalletType smart wallet deployment strategy for a chain
type SmartWalletType string

const (
	SmartWalletPrivy SmartWalletType = "PRIVY" // wallet managed by the identity provider
	SmartWalletLocal SmartWalletType = "LOCAL" // wallet address recorded by this service
)

// Business on-chain business contract kind
type Business string

const (
	BizTransfer Business = "TRANSFER" // plain token transfer contract
	BizLink     Business = "LINK"     // escrow pay-link contract
	BizVault    Business = "VAULT"    // deposit/withdraw vault contract
)

// ERC token standard enum
type ERC string

const (
	ERC20 ERC = "ERC20"
)

// TransactionCategory coarse transaction grouping
type TransactionCategory string

const (
	CategorySend     TransactionCategory = "SEND"
	CategoryRequest  TransactionCategory = "REQUEST"
	CategoryDeposit  TransactionCategory = "DEPOSIT"
	CategoryWithdraw TransactionCategory = "WITHDRAW"
)

// TransactionType concrete transaction flavor
type TransactionType string

const (
	TypeSend          TransactionType = "SEND"
	TypeRequest       TransactionType = "REQUEST"
	TypeDeposit       TransactionType = "DEPOSIT"
	TypeWithdraw      TransactionType = "WITHDRAW"
	TypePayLink       TransactionType = "PAY_LINK"
	TypeQRCode        TransactionType = "QR_CODE"
	TypeRequestLink   TransactionType = "REQUEST_LINK"
	TypeRequestQRCode TransactionType = "REQUEST_QR_CODE"
)

// TransactionStatus lifecycle state; ACCEPTED and DECLINED are terminal
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusAccepted TransactionStatus = "ACCEPTED"
	StatusDeclined TransactionStatus = "DECLINED"
)

// Terminal reports whether no further status transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusDeclined
}

// RecentAction direction of the last interaction in a recent-contacts row
type RecentAction string

const (
	RecentActionSend    RecentAction = "SEND"
	RecentActionReceive RecentAction = "RECEIVE"
)

// ToMemberRole role of a notification recipient within the transaction
type ToMemberRole string

const (
	RoleNone     ToMemberRole = "NONE"
	RoleSender   ToMemberRole = "SENDER"
	RoleReceiver ToMemberRole = "RECEIVER"
)

// BlockChain supported chain metadata. Rows are seeded from configuration;
// only the cached native price is mutated afterwards. Chains are never
// deleted, only hidden via Show.
type BlockChain struct {
	ID                   uint               `json:"id" gorm:"primaryKey"`
	Platform             BlockChainPlatform `json:"platform" gorm:"size:16;not null;uniqueIndex:idx_chain_platform_chain_id"`
	ChainID              int64              `json:"chain_id" gorm:"not null;uniqueIndex:idx_chain_platform_chain_id"`
	Network              BlockChainNetwork  `json:"network" gorm:"size:8;not null"`
	Name                 string             `json:"name" gorm:"size:64;not null"`
	TokenSymbol          string             `json:"token_symbol" gorm:"size:16;not null"` // native token symbol
	TokenPrice           string             `json:"token_price" gorm:"size:64"`           // native token USD price, decimal string
	RPCURL               string             `json:"rpc_url" gorm:"size:255"`
	BundlerURL           string             `json:"bundler_url" gorm:"size:255"`
	SmartWalletType      SmartWalletType    `json:"smart_wallet_type" gorm:"size:16;not null;default:'PRIVY'"`
	GasEstimateSupported bool               `json:"gas_estimate_supported" gorm:"not null;default:true"`
	Show                 bool               `json:"show" gorm:"not null;default:true"`
	Sort                 int                `json:"sort" gorm:"not null;default:0"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// TokenContract token metadata keyed by (platform, chainId, address).
// Created lazily on first observation of an unknown address; decimals are
// immutable once set, price may be refreshed.
type TokenContract struct {
	ID            uint               `json:"id" gorm:"primaryKey"`
	Platform      BlockChainPlatform `json:"platform" gorm:"size:16;not null;uniqueIndex:idx_token_identity"`
	ChainID       int64              `json:"chain_id" gorm:"not null;uniqueIndex:idx_token_identity"`
	Address       string             `json:"address" gorm:"size:66;not null;uniqueIndex:idx_token_identity"`
	Network       BlockChainNetwork  `json:"network" gorm:"size:8;not null"`
	ERC           ERC                `json:"erc" gorm:"size:8;not null;default:'ERC20'"`
	TokenName     *string            `json:"token_name" gorm:"size:128"`
	TokenSymbol   *string            `json:"token_symbol" gorm:"size:32"`
	TokenDecimals *int32             `json:"token_decimals"`
	Logo          *string            `json:"logo" gorm:"size:255"`
	PriceCurrency *string            `json:"price_currency" gorm:"size:8"`
	PriceValue    *string            `json:"price_value" gorm:"size:64"` // USD price, decimal string
	PriceUpdateAt *time.Time         `json:"price_update_at"`
	FeeSupport    bool               `json:"fee_support" gorm:"not null;default:false"`
	Show          bool               `json:"show" gorm:"not null;default:true"`
	Sort          int                `json:"sort" gorm:"not null;default:0"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// FeeEligible reports whether the percent platform margin can be priced
// for this token: both decimals and a USD price must be known. FeeSupport
// is the curated flag; eligibility is the floor it is ANDed with.
func (t *TokenContract) FeeEligible() bool {
	return t.TokenDecimals != nil && t.PriceValue != nil && *t.PriceValue != ""
}

// BizContract deployed business contract keyed by
// (platform, chainId, business). At most one enabled contract per key is
// selected, preferring the highest version. Immutable once referenced by a
// transaction.
type BizContract struct {
	ID        uint               `json:"id" gorm:"primaryKey"`
	Platform  BlockChainPlatform `json:"platform" gorm:"size:16;not null;index:idx_biz_identity"`
	ChainID   int64              `json:"chain_id" gorm:"not null;index:idx_biz_identity"`
	Business  Business           `json:"business" gorm:"size:16;not null;index:idx_biz_identity"`
	Network   BlockChainNetwork  `json:"network" gorm:"size:8;not null"`
	Address   string             `json:"address" gorm:"size:66;not null"`
	Enabled   bool               `json:"enabled" gorm:"not null;default:true"`
	Ver       int                `json:"ver" gorm:"not null;default:1"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// TransactionHistory the unit of work. TransactionHash is write-once: an
// empty value means unsettled; once set it is never overwritten.
type TransactionHistory struct {
	ID                    uint                `json:"id" gorm:"primaryKey"`
	TransactionCode       string              `json:"transaction_code" gorm:"size:64;not null;uniqueIndex"`
	TransactionCategory   TransactionCategory `json:"transaction_category" gorm:"size:16;not null;index"`
	TransactionType       TransactionType     `json:"transaction_type" gorm:"size:24;not null;index"`
	TransactionStatus     TransactionStatus   `json:"transaction_status" gorm:"size:16;not null;index"`
	Platform              BlockChainPlatform  `json:"platform" gorm:"size:16;not null"`
	ChainID               int64               `json:"chain_id" gorm:"not null"`
	Network               BlockChainNetwork   `json:"network" gorm:"size:8;not null"`
	MemberID              int64               `json:"member_id" gorm:"not null;index"` // creating member
	Business              *Business           `json:"business" gorm:"size:16"`
	BizContractAddress    *string             `json:"biz_contract_address" gorm:"size:66"`
	SenderMemberID        *int64              `json:"sender_member_id" gorm:"index"`
	SenderDid             *string             `json:"sender_did" gorm:"size:128"`
	SenderWalletAddress   *string             `json:"sender_wallet_address" gorm:"size:66"`
	ReceiverMemberID      *int64              `json:"receiver_member_id" gorm:"index"`
	ReceiverDid           *string             `json:"receiver_did" gorm:"size:128"`
	ReceiverWalletAddress *string             `json:"receiver_wallet_address" gorm:"size:66"`
	TokenContractAddress  string              `json:"token_contract_address" gorm:"size:66;not null"`
	TokenSymbol           *string             `json:"token_symbol" gorm:"size:32"`
	TokenDecimals         *int32              `json:"token_decimals"`
	TokenPrice            *string             `json:"token_price" gorm:"size:64"`
	TokenFeeSupport       bool                `json:"token_fee_support" gorm:"not null;default:false"`
	Amount                string              `json:"amount" gorm:"type:numeric(78,0);not null"` // smallest units
	Message               *string             `json:"message" gorm:"size:255"`
	TransactionHash       string              `json:"transaction_hash" gorm:"size:128"` // write-once
	TransactionTime       time.Time           `json:"transaction_time" gorm:"not null"`
	TransactionConfirmAt  *time.Time          `json:"transaction_confirm_at"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// Settled reports whether a chain hash has been recorded.
func (t *TransactionHistory) Settled() bool {
	return t.TransactionHash != ""
}

// PayLink escrow record, one-to-one with a PAY_LINK transaction. OTP is the
// clear one-time password and must never leave the service unhashed; the
// chain hash follows the same write-once rule as TransactionHistory.
type PayLink struct {
	ID                   uint               `json:"id" gorm:"primaryKey"`
	TransactionHistoryID uint               `json:"transaction_history_id" gorm:"not null"`
	TransactionCode      string             `json:"transaction_code" gorm:"size:64;not null;uniqueIndex"`
	Platform             BlockChainPlatform `json:"platform" gorm:"size:16;not null"`
	ChainID              int64              `json:"chain_id" gorm:"not null"`
	Network              BlockChainNetwork  `json:"network" gorm:"size:8;not null"`
	TokenContractAddress string             `json:"token_contract_address" gorm:"size:66;not null"`
	SenderWalletAddress  string             `json:"sender_wallet_address" gorm:"size:66;not null"`
	BizContractAddress   string             `json:"biz_contract_address" gorm:"size:66;not null"`
	OTP                  string             `json:"-" gorm:"size:128;not null"`
	TransactionHash      string             `json:"transaction_hash" gorm:"size:128"` // write-once
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// TransactionFeeEstimate network fee surcharge snapshot for a transaction.
// Recomputation fully replaces the row: it reflects market conditions at
// call time, not history. All amounts are decimal strings.
type TransactionFeeEstimate struct {
	ID                   uint               `json:"id" gorm:"primaryKey"`
	TransactionHistoryID uint               `json:"transaction_history_id" gorm:"not null"`
	TransactionCode      string             `json:"transaction_code" gorm:"size:64;not null;uniqueIndex"`
	Platform             BlockChainPlatform `json:"platform" gorm:"size:16;not null"`
	ChainID              int64              `json:"chain_id" gorm:"not null"`
	TokenSymbol          string             `json:"token_symbol" gorm:"size:32;not null"`
	TokenDecimals        int32              `json:"token_decimals" gorm:"not null"`
	TokenContractAddress string             `json:"token_contract_address" gorm:"size:66;not null"`
	TokenPrice           string             `json:"token_price" gorm:"size:64;not null"`
	EthToUsd             string             `json:"eth_to_usd" gorm:"size:64;not null"`
	PreVerificationGas   string             `json:"pre_verification_gas" gorm:"size:78;not null"`
	VerificationGasLimit string             `json:"verification_gas_limit" gorm:"size:78;not null"`
	CallGasLimit         string             `json:"call_gas_limit" gorm:"size:78;not null"`
	Gas                  string             `json:"gas" gorm:"size:78;not null"`
	GasPrice             string             `json:"gas_price" gorm:"size:78;not null"`
	TotalWeiCost         string             `json:"total_wei_cost" gorm:"size:78;not null"`
	TotalEthCost         string             `json:"total_eth_cost" gorm:"size:78;not null"`
	TotalUsdCost         string             `json:"total_usd_cost" gorm:"size:78;not null"`
	PlatformFee          string             `json:"platform_fee" gorm:"size:78;not null"` // USD
	TotalTokenCost       string             `json:"total_token_cost" gorm:"size:78;not null"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// MemberRecent recent-contacts relation keyed by the unordered member pair;
// the most recent interaction wins. Action reflects the direction seen from
// MemberID (the last actor).
type MemberRecent struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	MemberID       int64        `json:"member_id" gorm:"not null;uniqueIndex:idx_recent_pair"`
	RelateMemberID int64        `json:"relate_member_id" gorm:"not null;uniqueIndex:idx_recent_pair"`
	Action         RecentAction `json:"action" gorm:"size:8;not null"`
	Recent         time.Time    `json:"recent" gorm:"not null;index"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Notification stored lifecycle event. Delivery to devices is done by the
// external notification collaborator; rows here are at-least-once.
type Notification struct {
	ID                   uint         `json:"id" gorm:"primaryKey"`
	NotificationID       string       `json:"notification_id" gorm:"size:64;not null;uniqueIndex"` // UUID
	Source               string       `json:"source" gorm:"size:16;not null"`
	Subject              string       `json:"subject" gorm:"size:32;not null"`
	Action               *string      `json:"action" gorm:"size:32"`
	ToMemberID           int64        `json:"to_member_id" gorm:"not null;index"`
	ToMemberRole         ToMemberRole `json:"to_member_role" gorm:"size:16;not null"`
	Status               int          `json:"status" gorm:"not null;default:0"` // 0 unread, 1 read
	NotifyAt             time.Time    `json:"notify_at" gorm:"not null"`
	ReadAt               *time.Time   `json:"read_at"`
	TransactionHistoryID *uint        `json:"transaction_history_id"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}
