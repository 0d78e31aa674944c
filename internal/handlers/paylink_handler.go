package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/EZGGdotxyz/ezgg-service/internal/middleware"
	"github.com/EZGGdotxyz/ezgg-service/internal/services"
)

// PayLinkHandler pay-link lifecycle endpoints.
type PayLinkHandler struct {
	links *services.PayLinkService
}

// NewPayLinkHandler creates a PayLinkHandler.
func NewPayLinkHandler(links *services.PayLinkService) *PayLinkHandler {
	return &PayLinkHandler{links: links}
}

// Create POST /api/pay-links/:code
func (h *PayLinkHandler) Create(c *gin.Context) {
	view, err := h.links.Create(c.Request.Context(), middleware.MemberID(c), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, view)
}

// Find GET /api/pay-links/:code
func (h *PayLinkHandler) Find(c *gin.Context) {
	view, err := h.links.Find(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, view)
}

type depositOperationsRequest struct {
	FeeTokenAmount string `json:"fee_token_amount"`
}

// DepositOperations POST /api/pay-links/:code/deposit-operations
// Body is optional; without a fee amount the batch carries a zero fee.
func (h *PayLinkHandler) DepositOperations(c *gin.Context) {
	var req depositOperationsRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		badRequest(c, err.Error())
		return
	}
	ops, err := h.links.DepositOperations(c.Request.Context(), middleware.MemberID(c), c.Param("code"), req.FeeTokenAmount)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ops)
}

// RedeemOperations POST /api/pay-links/:code/redeem-operations
func (h *PayLinkHandler) RedeemOperations(c *gin.Context) {
	ops, err := h.links.RedeemOperations(c.Request.Context(), middleware.MemberID(c), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ops)
}

type redeemHashRequest struct {
	TransactionHash string `json:"transaction_hash" binding:"required"`
}

// ReportRedeemHash POST /api/pay-links/:code/hash
func (h *PayLinkHandler) ReportRedeemHash(c *gin.Context) {
	var req redeemHashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := h.links.ReportRedeemHash(c.Request.Context(), middleware.MemberID(c), c.Param("code"), req.TransactionHash)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, view)
}

// Cancel POST /api/pay-links/:code/cancel
func (h *PayLinkHandler) Cancel(c *gin.Context) {
	trans, err := h.links.Cancel(c.Request.Context(), middleware.MemberID(c), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, trans)
}
