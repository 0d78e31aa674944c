package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EZGGdotxyz/ezgg-service/internal/middleware"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/repository"
	"github.com/EZGGdotxyz/ezgg-service/internal/services"
)

// TransactionHandler transaction ledger endpoints.
type TransactionHandler struct {
	transactions *services.TransactionService
	fees         *services.FeeEstimateService
	members      *services.MemberService
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(transactions *services.TransactionService, fees *services.FeeEstimateService, members *services.MemberService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, fees: fees, members: members}
}

type createTransactionRequest struct {
	Platform             models.BlockChainPlatform `json:"platform" binding:"required"`
	ChainID              int64                     `json:"chain_id" binding:"required"`
	TransactionType      models.TransactionType    `json:"transaction_type" binding:"required"`
	TokenContractAddress string                    `json:"token_contract_address" binding:"required"`
	Amount               string                    `json:"amount" binding:"required"`
	Message              string                    `json:"message"`
	CounterpartyMemberID *int64                    `json:"counterparty_member_id"`
}

// Create POST /api/transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	trans, err := h.transactions.Create(c.Request.Context(), middleware.MemberID(c), services.CreateTransactionInput{
		Platform:             req.Platform,
		ChainID:              req.ChainID,
		TransactionType:      req.TransactionType,
		TokenContractAddress: req.TokenContractAddress,
		Amount:               req.Amount,
		Message:              req.Message,
		CounterpartyMemberID: req.CounterpartyMemberID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, trans)
}

// Find GET /api/transactions/:code
func (h *TransactionHandler) Find(c *gin.Context) {
	trans, err := h.transactions.Find(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, trans)
}

type pageQuery struct {
	Platform            string `form:"platform"`
	ChainID             *int64 `form:"chain_id"`
	Network             string `form:"network"`
	TokenSymbol         string `form:"token_symbol"`
	TransactionCategory string `form:"transaction_category"`
	TransactionType     string `form:"transaction_type"`
	TransactionStatus   string `form:"transaction_status"`
	TimeFrom            string `form:"time_from"` // RFC 3339
	TimeTo              string `form:"time_to"`
	Subject             string `form:"subject"` // INCOME or EXPEND
	Page                int    `form:"page"`
	PageSize            int    `form:"page_size"`
}

// Page GET /api/transactions
func (h *TransactionHandler) Page(c *gin.Context) {
	var req pageQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	q := repository.TransactionQuery{
		MemberID: middleware.MemberID(c),
		ChainID:  req.ChainID,
		Subject:  req.Subject,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Platform != "" {
		p := models.BlockChainPlatform(req.Platform)
		q.Platform = &p
	}
	if req.Network != "" {
		n := models.BlockChainNetwork(req.Network)
		q.Network = &n
	}
	if req.TokenSymbol != "" {
		q.TokenSymbol = &req.TokenSymbol
	}
	if req.TransactionCategory != "" {
		v := models.TransactionCategory(req.TransactionCategory)
		q.TransactionCategory = &v
	}
	if req.TransactionType != "" {
		v := models.TransactionType(req.TransactionType)
		q.TransactionType = &v
	}
	if req.TransactionStatus != "" {
		v := models.TransactionStatus(req.TransactionStatus)
		q.TransactionStatus = &v
	}
	if req.TimeFrom != "" {
		from, err := time.Parse(time.RFC3339, req.TimeFrom)
		if err != nil {
			badRequest(c, "invalid time_from")
			return
		}
		q.TransactionTimeFrom = &from
	}
	if req.TimeTo != "" {
		to, err := time.Parse(time.RFC3339, req.TimeTo)
		if err != nil {
			badRequest(c, "invalid time_to")
			return
		}
		q.TransactionTimeTo = &to
	}

	page, err := h.transactions.Page(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, page)
}

type reportHashRequest struct {
	TransactionHash string `json:"transaction_hash" binding:"required"`
}

// ReportHash POST /api/transactions/:code/hash
func (h *TransactionHandler) ReportHash(c *gin.Context) {
	var req reportHashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	trans, err := h.transactions.ReportHash(c.Request.Context(), middleware.MemberID(c), c.Param("code"), req.TransactionHash)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, trans)
}

// Decline POST /api/transactions/:code/decline
func (h *TransactionHandler) Decline(c *gin.Context) {
	trans, err := h.transactions.Decline(c.Request.Context(), middleware.MemberID(c), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, trans)
}

type operationsRequest struct {
	FeeTokenAmount string `json:"fee_token_amount"`
}

// Operations POST /api/transactions/:code/operations
// Returns the chain-call batch the payer signs. Body is optional; without
// a fee amount the batch carries a zero fee.
func (h *TransactionHandler) Operations(c *gin.Context) {
	var req operationsRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		badRequest(c, err.Error())
		return
	}
	ops, err := h.transactions.TransferOperations(c.Request.Context(), middleware.MemberID(c), c.Param("code"), req.FeeTokenAmount)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ops)
}

// EstimateFee POST /api/transactions/:code/fee-estimate
func (h *TransactionHandler) EstimateFee(c *gin.Context) {
	memberID := middleware.MemberID(c)
	trans, err := h.transactions.Find(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	payerWallet := ""
	if identity, err := h.members.ResolveIdentity(c.Request.Context(), memberID, trans.Platform); err == nil {
		payerWallet = identity.WalletAddress
	}
	estimate, err := h.fees.Estimate(c.Request.Context(), c.Param("code"), payerWallet)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, estimate)
}

// FindFee GET /api/transactions/:code/fee-estimate
func (h *TransactionHandler) FindFee(c *gin.Context) {
	estimate, err := h.fees.Find(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, estimate)
}
