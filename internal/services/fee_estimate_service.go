package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/chainops"
	"github.com/EZGGdotxyz/ezgg-service/internal/clients"
	"github.com/EZGGdotxyz/ezgg-service/internal/core"
	"github.com/EZGGdotxyz/ezgg-service/internal/metrics"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/repository"
)

var weiPerEth = decimal.New(1, 18)

// GasPricer reads the chain's current gas price.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context, rpcURL string) (*big.Int, error)
}

// GasEstimator prices a user operation through the chain's bundler.
type GasEstimator interface {
	EstimateUserOperationGas(ctx context.Context, bundlerURL, chainName string, op *clients.UserOperation) (*clients.GasEstimate, error)
}

// FeePolicy platform margin policy. Scale is the percent applied to
// fee-eligible tokens; Flat is the USD fallback for tokens whose value the
// platform cannot price.
type FeePolicy struct {
	Scale decimal.Decimal
	Flat  decimal.Decimal
}

// FeeEstimateService computes and persists the network fee surcharge for a
// transaction. Recomputation replaces the previous snapshot entirely.
type FeeEstimateService struct {
	transRepo repository.TransactionRepository
	chains    *ChainService
	contracts *ContractService
	encoder   *chainops.Encoder
	gasPricer GasPricer
	estimator GasEstimator
	policy    FeePolicy
}

// NewFeeEstimateService creates a FeeEstimateService.
func NewFeeEstimateService(
	transRepo repository.TransactionRepository,
	chains *ChainService,
	contracts *ContractService,
	encoder *chainops.Encoder,
	gasPricer GasPricer,
	estimator GasEstimator,
	policy FeePolicy,
) *FeeEstimateService {
	return &FeeEstimateService{
		transRepo: transRepo,
		chains:    chains,
		contracts: contracts,
		encoder:   encoder,
		gasPricer: gasPricer,
		estimator: estimator,
		policy:    policy,
	}
}

// feeInput everything computeFee needs; assembled by Estimate.
type feeInput struct {
	PreVerificationGas   *big.Int
	VerificationGasLimit *big.Int
	CallGasLimit         *big.Int
	GasPrice             *big.Int
	EthToUsd             decimal.Decimal // native token USD price
	TokenPrice           decimal.Decimal // USD per whole token
	TokenDecimals        int32
	Amount               decimal.Decimal // smallest units
	FeeSupport           bool
}

// feeResult the computed cost components.
type feeResult struct {
	TotalWei       decimal.Decimal
	TotalEth       decimal.Decimal
	TotalUsd       decimal.Decimal
	PlatformFee    decimal.Decimal // USD
	TotalTokenCost decimal.Decimal // smallest units, integral
}

// computeFee prices the surcharge: chain gas in wei, converted through the
// native token to USD, plus the platform margin, expressed in the payment
// token's smallest units. Rounds half up at the token's decimals.
func computeFee(in feeInput, policy FeePolicy) (*feeResult, error) {
	if in.TokenPrice.Sign() <= 0 {
		return nil, core.ParameterError("token price unknown, cannot express fee in token units")
	}
	if in.Amount.Sign() < 0 {
		return nil, core.InternalError("negative amount %s", in.Amount)
	}

	gas := new(big.Int).Add(in.PreVerificationGas, in.VerificationGasLimit)
	gas.Add(gas, in.CallGasLimit)
	totalWei := decimal.NewFromBigInt(new(big.Int).Mul(gas, in.GasPrice), 0)
	totalEth := totalWei.Div(weiPerEth)
	totalUsd := totalEth.Mul(in.EthToUsd)

	var platformFee decimal.Decimal
	if in.FeeSupport {
		amountTokens := in.Amount.Shift(-in.TokenDecimals)
		platformFee = amountTokens.Mul(policy.Scale).Div(decimal.NewFromInt(100)).Mul(in.TokenPrice)
	} else {
		platformFee = policy.Flat
	}

	totalTokens := totalUsd.Add(platformFee).Div(in.TokenPrice)
	totalTokenCost := totalTokens.Round(in.TokenDecimals).Shift(in.TokenDecimals)

	if totalWei.Sign() < 0 || totalUsd.Sign() < 0 || totalTokenCost.Sign() < 0 {
		return nil, core.InternalError("negative fee component computed")
	}
	return &feeResult{
		TotalWei:       totalWei,
		TotalEth:       totalEth,
		TotalUsd:       totalUsd,
		PlatformFee:    platformFee,
		TotalTokenCost: totalTokenCost,
	}, nil
}

// Estimate recomputes the fee snapshot for a transaction. payerWallet is the
// smart account the batch would run from; empty falls back to the recorded
// sender.
func (s *FeeEstimateService) Estimate(ctx context.Context, transactionCode, payerWallet string) (*models.TransactionFeeEstimate, error) {
	trans, err := s.transRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if trans == nil {
		return nil, core.NotFoundError("transaction %s not found", transactionCode)
	}

	chain, err := s.chains.FindBlockChain(ctx, trans.Platform, trans.ChainID)
	if err != nil {
		return nil, err
	}
	token, err := s.chains.ResolveToken(ctx, trans.Platform, trans.ChainID, trans.TokenContractAddress)
	if err != nil {
		return nil, err
	}
	if token.TokenDecimals == nil {
		return nil, core.ParameterError("token %s decimals unknown", trans.TokenContractAddress)
	}

	amount, err := decimal.NewFromString(trans.Amount)
	if err != nil {
		return nil, core.InternalError("bad stored amount %q: %v", trans.Amount, err)
	}

	in := feeInput{
		PreVerificationGas:   big.NewInt(0),
		VerificationGasLimit: big.NewInt(0),
		CallGasLimit:         big.NewInt(0),
		GasPrice:             big.NewInt(0),
		TokenDecimals:        *token.TokenDecimals,
		Amount:               amount,
		FeeSupport:           trans.TokenFeeSupport,
	}
	if token.PriceValue != nil && *token.PriceValue != "" {
		if in.TokenPrice, err = decimal.NewFromString(*token.PriceValue); err != nil {
			return nil, core.InternalError("bad token price %q: %v", *token.PriceValue, err)
		}
	}
	if chain.TokenPrice != "" {
		if in.EthToUsd, err = decimal.NewFromString(chain.TokenPrice); err != nil {
			return nil, core.InternalError("bad native price %q: %v", chain.TokenPrice, err)
		}
	}

	// Some chains have no working bundler estimation; they run with zero
	// gas figures and only the platform margin applies.
	if chain.GasEstimateSupported {
		if err := s.fillGas(ctx, chain, trans, payerWallet, &in); err != nil {
			return nil, err
		}
	}

	result, err := computeFee(in, s.policy)
	if err != nil {
		return nil, err
	}

	estimate := &models.TransactionFeeEstimate{
		TransactionHistoryID: trans.ID,
		TransactionCode:      trans.TransactionCode,
		Platform:             trans.Platform,
		ChainID:              trans.ChainID,
		TokenSymbol:          stringOr(token.TokenSymbol, ""),
		TokenDecimals:        *token.TokenDecimals,
		TokenContractAddress: trans.TokenContractAddress,
		TokenPrice:           in.TokenPrice.String(),
		EthToUsd:             in.EthToUsd.String(),
		PreVerificationGas:   in.PreVerificationGas.String(),
		VerificationGasLimit: in.VerificationGasLimit.String(),
		CallGasLimit:         in.CallGasLimit.String(),
		Gas:                  new(big.Int).Add(new(big.Int).Add(in.PreVerificationGas, in.VerificationGasLimit), in.CallGasLimit).String(),
		GasPrice:             in.GasPrice.String(),
		TotalWeiCost:         result.TotalWei.String(),
		TotalEthCost:         result.TotalEth.String(),
		TotalUsdCost:         result.TotalUsd.String(),
		PlatformFee:          result.PlatformFee.String(),
		TotalTokenCost:       result.TotalTokenCost.String(),
	}
	if err := s.transRepo.ReplaceFeeEstimate(ctx, estimate); err != nil {
		return nil, err
	}
	metrics.FeeEstimatesComputed.WithLabelValues(string(trans.TransactionType)).Inc()
	return estimate, nil
}

// Find returns the stored snapshot for a transaction.
func (s *FeeEstimateService) Find(ctx context.Context, transactionCode string) (*models.TransactionFeeEstimate, error) {
	estimate, err := s.transRepo.GetFeeEstimate(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if estimate == nil {
		return nil, core.NotFoundError("no fee estimate for transaction %s", transactionCode)
	}
	return estimate, nil
}

// fillGas prices the settlement batch through the chain's bundler and gas
// price oracle. The batch is built with a zero fee placeholder; gas use does
// not depend on the amounts moved.
func (s *FeeEstimateService) fillGas(ctx context.Context, chain *models.BlockChain, trans *models.TransactionHistory, payerWallet string, in *feeInput) error {
	if chain.RPCURL == "" || chain.BundlerURL == "" {
		return core.UnavailableError("chain %s/%d has no rpc or bundler endpoint", chain.Platform, chain.ChainID)
	}

	contract, err := s.contracts.ResolveForType(ctx, trans.Platform, trans.ChainID, trans.TransactionType)
	if err != nil {
		return err
	}
	amount, ok := new(big.Int).SetString(trans.Amount, 10)
	if !ok {
		return core.InternalError("bad stored amount %q", trans.Amount)
	}

	params := chainops.BatchParams{
		TxCode:      trans.TransactionCode,
		BizContract: common.HexToAddress(contract.Address),
		Token:       common.HexToAddress(trans.TokenContractAddress),
		Amount:      amount,
		Fee:         big.NewInt(0),
	}
	sender := payerWallet
	if sender == "" {
		sender = stringOr(trans.SenderWalletAddress, "")
	}
	receiver := common.HexToAddress(stringOr(trans.ReceiverWalletAddress, sender))

	var ops []chainops.Operation
	if trans.TransactionType == models.TypePayLink {
		// Dummy commitment; gas is insensitive to the digest value.
		ops, err = s.encoder.LinkDepositBatch(params, chainops.HashOTP(trans.TransactionCode))
	} else {
		ops, err = s.encoder.TransferBatch(params, receiver)
	}
	if err != nil {
		return err
	}
	callData, err := s.encoder.ExecuteBatch(ops)
	if err != nil {
		return err
	}

	gasPrice, err := s.gasPricer.SuggestGasPrice(ctx, chain.RPCURL)
	if err != nil {
		return err
	}
	estimate, err := s.estimator.EstimateUserOperationGas(ctx, chain.BundlerURL, chain.Name, &clients.UserOperation{
		Sender:               sender,
		Nonce:                "0x0",
		InitCode:             "0x",
		CallData:             hexutil.Encode(callData),
		MaxFeePerGas:         hexutil.EncodeBig(gasPrice),
		MaxPriorityFeePerGas: hexutil.EncodeBig(gasPrice),
		PaymasterAndData:     "0x",
		Signature:            "0x",
	})
	if err != nil {
		return err
	}

	in.PreVerificationGas = estimate.PreVerificationGas
	in.VerificationGasLimit = estimate.VerificationGasLimit
	in.CallGasLimit = estimate.CallGasLimit
	in.GasPrice = gasPrice

	logrus.WithFields(logrus.Fields{
		"transaction_code": trans.TransactionCode,
		"chain":            chain.Name,
		"gas_price":        gasPrice.String(),
	}).Debug("bundler gas estimate fetched")
	return nil
}

func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
