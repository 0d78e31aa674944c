package services

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/chainops"
	"github.com/EZGGdotxyz/ezgg-service/internal/core"
	"github.com/EZGGdotxyz/ezgg-service/internal/metrics"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/repository"
)

// TransactionService the ledger of off-chain transaction intents and their
// settlement against chain hashes.
type TransactionService struct {
	transRepo     repository.TransactionRepository
	chains        *ChainService
	contracts     *ContractService
	members       *MemberService
	notifications *NotificationService
	encoder       *chainops.Encoder
}

// NewTransactionService creates a TransactionService.
func NewTransactionService(
	transRepo repository.TransactionRepository,
	chains *ChainService,
	contracts *ContractService,
	members *MemberService,
	notifications *NotificationService,
	encoder *chainops.Encoder,
) *TransactionService {
	return &TransactionService{
		transRepo:     transRepo,
		chains:        chains,
		contracts:     contracts,
		members:       members,
		notifications: notifications,
		encoder:       encoder,
	}
}

// CreateTransactionInput caller-provided fields for a new transaction.
type CreateTransactionInput struct {
	Platform             models.BlockChainPlatform
	ChainID              int64
	TransactionType      models.TransactionType
	TokenContractAddress string
	Amount               string // smallest units, positive integer
	Message              string
	CounterpartyMemberID *int64
}

// CategoryFor derives the coarse grouping from the concrete type.
func CategoryFor(transactionType models.TransactionType) (models.TransactionCategory, error) {
	switch transactionType {
	case models.TypeSend, models.TypePayLink, models.TypeQRCode:
		return models.CategorySend, nil
	case models.TypeRequest, models.TypeRequestLink, models.TypeRequestQRCode:
		return models.CategoryRequest, nil
	case models.TypeDeposit:
		return models.CategoryDeposit, nil
	case models.TypeWithdraw:
		return models.CategoryWithdraw, nil
	default:
		return "", core.ParameterError("unknown transaction type %s", transactionType)
	}
}

func validAmount(amount string) bool {
	v, ok := new(big.Int).SetString(amount, 10)
	return ok && v.Sign() > 0
}

// Create records a new PENDING transaction. The creator's role depends on
// the type: senders create SEND-family rows, receivers create
// REQUEST-family rows, and DEPOSIT/WITHDRAW move the creator's own funds.
// Counterparties left unresolved here are bound at settlement.
func (s *TransactionService) Create(ctx context.Context, memberID int64, in CreateTransactionInput) (*models.TransactionHistory, error) {
	category, err := CategoryFor(in.TransactionType)
	if err != nil {
		return nil, err
	}
	if !validAmount(in.Amount) {
		return nil, core.ParameterError("amount must be a positive integer in smallest units")
	}

	chain, err := s.chains.FindBlockChain(ctx, in.Platform, in.ChainID)
	if err != nil {
		return nil, err
	}
	token, err := s.chains.ResolveToken(ctx, in.Platform, in.ChainID, in.TokenContractAddress)
	if err != nil {
		return nil, err
	}
	contract, err := s.contracts.ResolveForType(ctx, in.Platform, in.ChainID, in.TransactionType)
	if err != nil {
		return nil, err
	}

	creator, err := s.members.ResolveIdentity(ctx, memberID, in.Platform)
	if err != nil {
		return nil, err
	}
	var counterparty *MemberIdentity
	if in.CounterpartyMemberID != nil {
		if *in.CounterpartyMemberID == memberID {
			return nil, core.ParameterError("counterparty must differ from creator")
		}
		if counterparty, err = s.members.ResolveIdentity(ctx, *in.CounterpartyMemberID, in.Platform); err != nil {
			return nil, err
		}
	}

	business := contract.Business
	trans := &models.TransactionHistory{
		TransactionCode:      core.NewTransactionCode(),
		TransactionCategory:  category,
		TransactionType:      in.TransactionType,
		TransactionStatus:    models.StatusPending,
		Platform:             in.Platform,
		ChainID:              in.ChainID,
		Network:              chain.Network,
		MemberID:             memberID,
		Business:             &business,
		BizContractAddress:   &contract.Address,
		TokenContractAddress: in.TokenContractAddress,
		TokenSymbol:          token.TokenSymbol,
		TokenDecimals:        token.TokenDecimals,
		TokenPrice:           token.PriceValue,
		TokenFeeSupport:      token.FeeSupport,
		Amount:               in.Amount,
		TransactionTime:      time.Now(),
	}
	if in.Message != "" {
		trans.Message = &in.Message
	}

	switch category {
	case models.CategorySend:
		bindSender(trans, creator)
		if in.TransactionType == models.TypeSend || in.TransactionType == models.TypeQRCode {
			if counterparty == nil {
				return nil, core.ParameterError("%s requires a counterparty", in.TransactionType)
			}
			bindReceiver(trans, counterparty)
		}
		// PAY_LINK receivers are bound at redemption.
	case models.CategoryRequest:
		bindReceiver(trans, creator)
		if in.TransactionType == models.TypeRequest {
			if counterparty == nil {
				return nil, core.ParameterError("REQUEST requires a counterparty")
			}
			bindSender(trans, counterparty)
		}
		// Link and QR variants learn their payer at settlement.
	case models.CategoryDeposit, models.CategoryWithdraw:
		bindSender(trans, creator)
		bindReceiver(trans, creator)
	}

	if err := s.transRepo.Create(ctx, trans); err != nil {
		return nil, err
	}
	metrics.TransactionsCreated.WithLabelValues(string(in.TransactionType)).Inc()

	s.afterCreate(ctx, trans, counterparty)
	return trans, nil
}

// afterCreate best-effort side effects: recent contacts and counterparty
// notification. Failures log and never undo the created row.
func (s *TransactionService) afterCreate(ctx context.Context, trans *models.TransactionHistory, counterparty *MemberIdentity) {
	if counterparty == nil {
		return
	}
	action := models.RecentActionSend
	subject := NotifySubjectTransSend
	role := models.RoleReceiver
	if trans.TransactionCategory == models.CategoryRequest {
		action = models.RecentActionReceive
		subject = NotifySubjectTransRequest
		role = models.RoleSender
	}
	if err := s.members.TouchRecent(ctx, trans.MemberID, counterparty.MemberID, action); err != nil {
		logrus.WithError(err).Warn("failed to record recent contact")
	}
	if err := s.notifications.Notify(ctx, NotifyInput{
		Subject:              subject,
		ToMemberID:           counterparty.MemberID,
		ToMemberRole:         role,
		TransactionHistoryID: &trans.ID,
	}); err != nil {
		logrus.WithError(err).Warn("failed to notify counterparty")
	}
}

// ReportHash records the settlement hash for a transaction. The hash is
// write-once: re-reporting the same hash is a no-op, a different hash is a
// conflict. Non-escrow transactions move to ACCEPTED here; PAY_LINK rows
// stay PENDING until the escrow is redeemed. REQUEST-family rows late-bind
// the payer to the caller.
func (s *TransactionService) ReportHash(ctx context.Context, memberID int64, transactionCode, hash string) (*models.TransactionHistory, error) {
	if hash == "" {
		return nil, core.ParameterError("transaction hash required")
	}
	trans, err := s.transRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if trans == nil {
		return nil, core.NotFoundError("transaction %s not found", transactionCode)
	}
	if trans.Settled() {
		if trans.TransactionHash == hash {
			return trans, nil
		}
		return nil, core.ConflictError("transaction %s already settled with a different hash", transactionCode)
	}
	if trans.TransactionStatus == models.StatusDeclined {
		return nil, core.ConflictError("transaction %s was declined", transactionCode)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"transaction_confirm_at": now,
	}
	if trans.TransactionType != models.TypePayLink {
		updates["transaction_status"] = models.StatusAccepted
	}
	if trans.TransactionCategory == models.CategoryRequest && trans.SenderMemberID == nil {
		payer, err := s.members.ResolveIdentity(ctx, memberID, trans.Platform)
		if err != nil {
			return nil, err
		}
		updates["sender_member_id"] = payer.MemberID
		updates["sender_did"] = payer.Did
		updates["sender_wallet_address"] = payer.WalletAddress
	}

	applied, err := s.transRepo.Settle(ctx, trans.ID, hash, updates)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race; decide no-op vs conflict from the winning value.
		current, err := s.transRepo.GetByID(ctx, trans.ID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.TransactionHash == hash {
			return current, nil
		}
		return nil, core.ConflictError("transaction %s already settled with a different hash", transactionCode)
	}

	settled, err := s.transRepo.GetByID(ctx, trans.ID)
	if err != nil {
		return nil, err
	}
	s.afterSettle(ctx, memberID, settled)
	return settled, nil
}

func (s *TransactionService) afterSettle(ctx context.Context, actorID int64, trans *models.TransactionHistory) {
	if trans == nil {
		return
	}
	if trans.SenderMemberID != nil && trans.ReceiverMemberID != nil && *trans.SenderMemberID != *trans.ReceiverMemberID {
		other := *trans.ReceiverMemberID
		action := models.RecentActionSend
		if actorID == other {
			other = *trans.SenderMemberID
			action = models.RecentActionReceive
		}
		if err := s.members.TouchRecent(ctx, actorID, other, action); err != nil {
			logrus.WithError(err).Warn("failed to record recent contact")
		}
	}
	if trans.TransactionCategory == models.CategoryRequest && trans.ReceiverMemberID != nil {
		if err := s.notifications.Notify(ctx, NotifyInput{
			Subject:              NotifySubjectTransUpdate,
			Action:               NotifyActionRequestAccepted,
			ToMemberID:           *trans.ReceiverMemberID,
			ToMemberRole:         models.RoleReceiver,
			TransactionHistoryID: &trans.ID,
		}); err != nil {
			logrus.WithError(err).Warn("failed to notify requester")
		}
	} else if trans.TransactionCategory == models.CategorySend && trans.ReceiverMemberID != nil {
		if err := s.notifications.Notify(ctx, NotifyInput{
			Subject:              NotifySubjectTransUpdate,
			ToMemberID:           *trans.ReceiverMemberID,
			ToMemberRole:         models.RoleReceiver,
			TransactionHistoryID: &trans.ID,
		}); err != nil {
			logrus.WithError(err).Warn("failed to notify receiver")
		}
	}
}

// Decline refuses a pending money request. Only the requested payer may
// decline, only while the request is PENDING and unsettled.
func (s *TransactionService) Decline(ctx context.Context, memberID int64, transactionCode string) (*models.TransactionHistory, error) {
	trans, err := s.transRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if trans == nil {
		return nil, core.NotFoundError("transaction %s not found", transactionCode)
	}
	if trans.TransactionCategory != models.CategoryRequest {
		return nil, core.ParameterError("only money requests can be declined")
	}
	if trans.SenderMemberID == nil || *trans.SenderMemberID != memberID {
		return nil, core.ParameterError("only the requested payer may decline")
	}
	if trans.Settled() {
		return nil, core.ConflictError("transaction %s already settled", transactionCode)
	}
	if trans.TransactionStatus.Terminal() {
		return nil, core.ConflictError("transaction %s is %s", transactionCode, trans.TransactionStatus)
	}

	applied, err := s.transRepo.AdvanceStatus(ctx, trans.ID, models.StatusPending, models.StatusDeclined)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, core.ConflictError("transaction %s is no longer pending", transactionCode)
	}

	declined, err := s.transRepo.GetByID(ctx, trans.ID)
	if err != nil {
		return nil, err
	}
	if declined != nil && declined.ReceiverMemberID != nil {
		if err := s.notifications.Notify(ctx, NotifyInput{
			Subject:              NotifySubjectTransUpdate,
			Action:               NotifyActionRequestDeclined,
			ToMemberID:           *declined.ReceiverMemberID,
			ToMemberRole:         models.RoleReceiver,
			TransactionHistoryID: &declined.ID,
		}); err != nil {
			logrus.WithError(err).Warn("failed to notify requester of decline")
		}
	}
	return declined, nil
}

// TransferOperations builds the settlement batch the payer signs:
// approve(principal+fee), payFee, transfer. The receiver must already be
// bound; for REQUEST-family rows the caller pays to the requester. Escrow
// funding goes through PayLinkService instead.
func (s *TransactionService) TransferOperations(ctx context.Context, memberID int64, transactionCode, feeTokenAmount string) ([]chainops.Operation, error) {
	trans, err := s.transRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if trans == nil {
		return nil, core.NotFoundError("transaction %s not found", transactionCode)
	}
	if trans.TransactionType == models.TypePayLink {
		return nil, core.ParameterError("pay links are funded through the escrow deposit")
	}
	if trans.Settled() {
		return nil, core.ConflictError("transaction %s already settled", transactionCode)
	}
	if trans.TransactionStatus.Terminal() {
		return nil, core.ConflictError("transaction %s is %s", transactionCode, trans.TransactionStatus)
	}
	receiver := stringOr(trans.ReceiverWalletAddress, "")
	if receiver == "" {
		// Open request variants pay to the creator once a payer shows up.
		return nil, core.ParameterError("transaction %s has no receiver wallet", transactionCode)
	}

	params, err := batchParams(trans, feeTokenAmount)
	if err != nil {
		return nil, err
	}
	return s.encoder.TransferBatch(params, common.HexToAddress(receiver))
}

// Find returns a transaction by its code.
func (s *TransactionService) Find(ctx context.Context, transactionCode string) (*models.TransactionHistory, error) {
	trans, err := s.transRepo.GetByCode(ctx, transactionCode)
	if err != nil {
		return nil, err
	}
	if trans == nil {
		return nil, core.NotFoundError("transaction %s not found", transactionCode)
	}
	return trans, nil
}

// Page lists a member's transaction history.
func (s *TransactionService) Page(ctx context.Context, q repository.TransactionQuery) (*core.PagedResult[*models.TransactionHistory], error) {
	q.Page, q.PageSize = core.NormalizePage(q.Page, q.PageSize)
	records, total, err := s.transRepo.Page(ctx, q)
	if err != nil {
		return nil, err
	}
	return &core.PagedResult[*models.TransactionHistory]{
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalCount: total,
		Record:     records,
	}, nil
}

func bindSender(trans *models.TransactionHistory, identity *MemberIdentity) {
	trans.SenderMemberID = &identity.MemberID
	trans.SenderDid = &identity.Did
	trans.SenderWalletAddress = &identity.WalletAddress
}

func bindReceiver(trans *models.TransactionHistory, identity *MemberIdentity) {
	trans.ReceiverMemberID = &identity.MemberID
	trans.ReceiverDid = &identity.Did
	trans.ReceiverWalletAddress = &identity.WalletAddress
}
