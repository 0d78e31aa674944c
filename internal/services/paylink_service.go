package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/chainops"
	"github.com/EZGGdotxyz/ezgg-service/internal/core"
	"github.com/EZGGdotxyz/ezgg-service/internal/metrics"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/repository"
)

// PayLinkService the OTP commit-reveal escrow around PAY_LINK transactions.
// The clear OTP never leaves the service except to the redeemer inside the
// withdraw call data; everything else sees only the keccak256 commitment.
type PayLinkService struct {
	linkRepo      repository.PayLinkRepository
	transRepo     repository.TransactionRepository
	members       *MemberService
	notifications *NotificationService
	encoder       *chainops.Encoder
}

// NewPayLinkService creates a PayLinkService.
func NewPayLinkService(
	linkRepo repository.PayLinkRepository,
	transRepo repository.TransactionRepository,
	members *MemberService,
	notifications *NotificationService,
	encoder *chainops.Encoder,
) *PayLinkService {
	return &PayLinkService{
		linkRepo:      linkRepo,
		transRepo:     transRepo,
		members:       members,
		notifications: notifications,
		encoder:       encoder,
	}
}

// PayLinkView what callers see of an escrow: the commitment, never the OTP.
type PayLinkView struct {
	Link        *models.PayLink            `json:"pay_link"`
	Transaction *models.TransactionHistory `json:"transaction"`
	OTPHash     string                     `json:"otp_hash"`
}

func (s *PayLinkService) view(link *models.PayLink, trans *models.TransactionHistory) *PayLinkView {
	return &PayLinkView{Link: link, Transaction: trans, OTPHash: chainops.HashOTP(link.OTP)}
}

func (s *PayLinkService) loadTransaction(ctx context.Context, transactionCode string) (*models.TransactionHistory, error) {
	trans, err := s.transRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if trans == nil {
		return nil, core.NotFoundError("transaction %s not found", transactionCode)
	}
	if trans.TransactionType != models.TypePayLink {
		return nil, core.ParameterError("transaction %s is not a pay link", transactionCode)
	}
	return trans, nil
}

// Create mints the escrow for a PAY_LINK transaction. Idempotent: repeated
// calls return the existing escrow and its commitment, never a second OTP.
// Only the transaction's creator may call it.
func (s *PayLinkService) Create(ctx context.Context, memberID int64, transactionCode string) (*PayLinkView, error) {
	trans, err := s.loadTransaction(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if trans.MemberID != memberID {
		return nil, core.ParameterError("only the creator may mint the pay link")
	}
	if trans.TransactionStatus.Terminal() {
		return nil, core.ConflictError("transaction %s is %s", transactionCode, trans.TransactionStatus)
	}

	link := &models.PayLink{
		TransactionHistoryID: trans.ID,
		TransactionCode:      trans.TransactionCode,
		Platform:             trans.Platform,
		ChainID:              trans.ChainID,
		Network:              trans.Network,
		TokenContractAddress: trans.TokenContractAddress,
		SenderWalletAddress:  stringOr(trans.SenderWalletAddress, ""),
		BizContractAddress:   stringOr(trans.BizContractAddress, ""),
		OTP:                  core.NewOTP(),
	}
	link, created, err := s.linkRepo.CreateIfAbsent(ctx, link)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.PayLinksCreated.Inc()
	}
	return s.view(link, trans), nil
}

// Find returns the escrow for a claim page lookup.
func (s *PayLinkService) Find(ctx context.Context, transactionCode string) (*PayLinkView, error) {
	link, err := s.linkRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, core.NotFoundError("pay link %s not found", transactionCode)
	}
	trans, err := s.loadTransaction(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	return s.view(link, trans), nil
}

// DepositOperations builds the funding batch for the link owner:
// approve, payFee, deposit carrying the OTP commitment.
func (s *PayLinkService) DepositOperations(ctx context.Context, memberID int64, transactionCode, feeTokenAmount string) ([]chainops.Operation, error) {
	trans, err := s.loadTransaction(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if trans.MemberID != memberID {
		return nil, core.ParameterError("only the creator may fund the pay link")
	}
	link, err := s.linkRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, core.NotFoundError("pay link %s not found", transactionCode)
	}

	params, err := batchParams(trans, feeTokenAmount)
	if err != nil {
		return nil, err
	}
	return s.encoder.LinkDepositBatch(params, chainops.HashOTP(link.OTP))
}

// RedeemOperations reveals the OTP to the caller inside a withdraw call.
// Anyone holding the link may redeem to their own wallet; the owner may
// redeem to reclaim an unclaimed escrow. The escrow must be funded on chain
// and still open.
func (s *PayLinkService) RedeemOperations(ctx context.Context, memberID int64, transactionCode string) ([]chainops.Operation, error) {
	trans, err := s.loadTransaction(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if !trans.Settled() {
		return nil, core.ConflictError("pay link %s is not funded yet", transactionCode)
	}
	if trans.TransactionStatus.Terminal() {
		return nil, core.ConflictError("pay link %s is %s", transactionCode, trans.TransactionStatus)
	}
	link, err := s.linkRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, core.NotFoundError("pay link %s not found", transactionCode)
	}
	if link.TransactionHash != "" {
		return nil, core.ConflictError("pay link %s already redeemed", transactionCode)
	}

	redeemer, err := s.members.ResolveIdentity(ctx, memberID, trans.Platform)
	if err != nil {
		return nil, err
	}
	return s.encoder.LinkWithdrawBatch(
		common.HexToAddress(link.BizContractAddress),
		link.TransactionCode,
		common.HexToAddress(redeemer.WalletAddress),
		link.OTP,
	)
}

// ReportRedeemHash finalizes the escrow: records the withdraw hash on the
// link (write-once), binds the caller as receiver, and moves the
// transaction to ACCEPTED, all atomically. Re-reporting the same hash is a
// no-op; a different hash is a conflict.
func (s *PayLinkService) ReportRedeemHash(ctx context.Context, memberID int64, transactionCode, hash string) (*PayLinkView, error) {
	if hash == "" {
		return nil, core.ParameterError("transaction hash required")
	}
	trans, err := s.loadTransaction(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	link, err := s.linkRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, core.NotFoundError("pay link %s not found", transactionCode)
	}
	if link.TransactionHash != "" {
		if link.TransactionHash == hash {
			return s.view(link, trans), nil
		}
		return nil, core.ConflictError("pay link %s already redeemed with a different hash", transactionCode)
	}
	if trans.TransactionStatus == models.StatusDeclined {
		return nil, core.ConflictError("pay link %s was cancelled", transactionCode)
	}

	redeemer, err := s.members.ResolveIdentity(ctx, memberID, trans.Platform)
	if err != nil {
		return nil, err
	}
	applied, err := s.linkRepo.Settle(ctx, link, trans.ID, hash, repository.PayLinkSettlement{
		ReceiverMemberID:      &redeemer.MemberID,
		ReceiverDid:           &redeemer.Did,
		ReceiverWalletAddress: &redeemer.WalletAddress,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		current, err := s.linkRepo.GetByCode(ctx, transactionCode)
		if err != nil {
			return nil, err
		}
		if current != nil && current.TransactionHash == hash {
			return s.view(current, trans), nil
		}
		return nil, core.ConflictError("pay link %s already redeemed with a different hash", transactionCode)
	}

	s.afterRedeem(ctx, trans, redeemer)

	link, err = s.linkRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	trans, err = s.transRepo.GetByID(ctx, trans.ID)
	if err != nil {
		return nil, err
	}
	return s.view(link, trans), nil
}

func (s *PayLinkService) afterRedeem(ctx context.Context, trans *models.TransactionHistory, redeemer *MemberIdentity) {
	if trans.MemberID == redeemer.MemberID {
		return // owner reclaimed their own escrow
	}
	if err := s.members.TouchRecent(ctx, redeemer.MemberID, trans.MemberID, models.RecentActionReceive); err != nil {
		logrus.WithError(err).Warn("failed to record recent contact")
	}
	if err := s.notifications.Notify(ctx, NotifyInput{
		Subject:              NotifySubjectTransUpdate,
		Action:               NotifyActionPayLinkAccepted,
		ToMemberID:           trans.MemberID,
		ToMemberRole:         models.RoleSender,
		TransactionHistoryID: &trans.ID,
	}); err != nil {
		logrus.WithError(err).Warn("failed to notify link owner")
	}
}

// Cancel closes an unredeemed escrow off-chain. Owner only; a redeemed link
// cannot be cancelled. Funds already deposited are reclaimed with
// RedeemOperations by the owner.
func (s *PayLinkService) Cancel(ctx context.Context, memberID int64, transactionCode string) (*models.TransactionHistory, error) {
	trans, err := s.loadTransaction(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if trans.MemberID != memberID {
		return nil, core.ParameterError("only the creator may cancel the pay link")
	}
	link, err := s.linkRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if link != nil && link.TransactionHash != "" {
		return nil, core.ConflictError("pay link %s already redeemed", transactionCode)
	}
	if trans.TransactionStatus.Terminal() {
		return nil, core.ConflictError("pay link %s is %s", transactionCode, trans.TransactionStatus)
	}

	applied, err := s.transRepo.AdvanceStatus(ctx, trans.ID, models.StatusPending, models.StatusDeclined)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, core.ConflictError("pay link %s is no longer pending", transactionCode)
	}
	return s.transRepo.GetByID(ctx, trans.ID)
}

func batchParams(trans *models.TransactionHistory, feeTokenAmount string) (chainops.BatchParams, error) {
	amount, ok := new(big.Int).SetString(trans.Amount, 10)
	if !ok {
		return chainops.BatchParams{}, core.InternalError("bad stored amount %q", trans.Amount)
	}
	fee := big.NewInt(0)
	if feeTokenAmount != "" {
		if fee, ok = new(big.Int).SetString(feeTokenAmount, 10); !ok || fee.Sign() < 0 {
			return chainops.BatchParams{}, core.ParameterError("invalid fee amount %q", feeTokenAmount)
		}
	}
	return chainops.BatchParams{
		TxCode:      trans.TransactionCode,
		BizContract: common.HexToAddress(stringOr(trans.BizContractAddress, "")),
		Token:       common.HexToAddress(trans.TokenContractAddress),
		Amount:      amount,
		Fee:         fee,
	}, nil
}
