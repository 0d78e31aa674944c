package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EZGGdotxyz/ezgg-service/internal/middleware"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/services"
)

// ChainHandler chain registry, token catalog, and balance endpoints.
type ChainHandler struct {
	chains    *services.ChainService
	contracts *services.ContractService
	balances  *services.BalanceService
	members   *services.MemberService
}

// NewChainHandler creates a ChainHandler.
func NewChainHandler(chains *services.ChainService, contracts *services.ContractService, balances *services.BalanceService, members *services.MemberService) *ChainHandler {
	return &ChainHandler{chains: chains, contracts: contracts, balances: balances, members: members}
}

func platformParam(c *gin.Context) models.BlockChainPlatform {
	platform := models.BlockChainPlatform(c.DefaultQuery("platform", string(models.PlatformETH)))
	return platform
}

func chainIDParam(c *gin.Context) (int64, bool) {
	chainID, err := strconv.ParseInt(c.Param("chainId"), 10, 64)
	if err != nil {
		badRequest(c, "invalid chain id")
		return 0, false
	}
	return chainID, true
}

// ListChains GET /api/block-chains
func (h *ChainHandler) ListChains(c *gin.Context) {
	var network *models.BlockChainNetwork
	if v := c.Query("network"); v != "" {
		n := models.BlockChainNetwork(v)
		network = &n
	}
	chains, err := h.chains.ListBlockChain(c.Request.Context(), platformParam(c), network)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, chains)
}

// ListTokens GET /api/block-chains/:chainId/tokens
func (h *ChainHandler) ListTokens(c *gin.Context) {
	chainID, valid := chainIDParam(c)
	if !valid {
		return
	}
	tokens, err := h.chains.ListTokenContract(c.Request.Context(), platformParam(c), chainID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, tokens)
}

// FindToken GET /api/block-chains/:chainId/tokens/:address
// Unknown addresses are recorded on first sight.
func (h *ChainHandler) FindToken(c *gin.Context) {
	chainID, valid := chainIDParam(c)
	if !valid {
		return
	}
	token, err := h.chains.ResolveToken(c.Request.Context(), platformParam(c), chainID, c.Param("address"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, token)
}

// ListContracts GET /api/block-chains/:chainId/contracts
func (h *ChainHandler) ListContracts(c *gin.Context) {
	chainID, valid := chainIDParam(c)
	if !valid {
		return
	}
	contracts, err := h.contracts.List(c.Request.Context(), platformParam(c), chainID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, contracts)
}

// ListBalances GET /api/block-chains/:chainId/balances
// Reads the caller's wallet balances across the catalog.
func (h *ChainHandler) ListBalances(c *gin.Context) {
	chainID, valid := chainIDParam(c)
	if !valid {
		return
	}
	platform := platformParam(c)
	identity, err := h.members.ResolveIdentity(c.Request.Context(), middleware.MemberID(c), platform)
	if err != nil {
		fail(c, err)
		return
	}
	currency := c.DefaultQuery("currency", "USD")
	balances, err := h.balances.ListBalances(c.Request.Context(), platform, chainID, identity.WalletAddress, currency)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, balances)
}
