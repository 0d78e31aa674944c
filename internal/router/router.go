package router

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/handlers"
	"github.com/EZGGdotxyz/ezgg-service/internal/middleware"
)

// corsMiddleware CORS middleware. Origins come from CORS_ALLOWED_ORIGINS
// (comma-separated); default is allow-all.
func corsMiddleware() gin.HandlerFunc {
	allowedOrigins := []string{"*"}
	if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
		allowedOrigins = allowedOrigins[:0]
		for _, o := range strings.Split(envOrigins, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowed := range allowedOrigins {
				if allowed == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		c.Header("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Handlers the HTTP surface wired by the application.
type Handlers struct {
	Chain       *handlers.ChainHandler
	Transaction *handlers.TransactionHandler
	PayLink     *handlers.PayLinkHandler
	Member      *handlers.MemberHandler
}

// SetupRouter builds the gin engine with all routes registered.
func SetupRouter(auth *middleware.AuthMiddleware, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(middleware.RequestMetrics())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "ezgg-service"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(auth.RequireAuth())
	{
		chains := api.Group("/block-chains")
		{
			chains.GET("", h.Chain.ListChains)
			chains.GET("/:chainId/tokens", h.Chain.ListTokens)
			chains.GET("/:chainId/tokens/:address", h.Chain.FindToken)
			chains.GET("/:chainId/contracts", h.Chain.ListContracts)
			chains.GET("/:chainId/balances", h.Chain.ListBalances)
		}

		transactions := api.Group("/transactions")
		{
			transactions.POST("", h.Transaction.Create)
			transactions.GET("", h.Transaction.Page)
			transactions.GET("/:code", h.Transaction.Find)
			transactions.POST("/:code/hash", h.Transaction.ReportHash)
			transactions.POST("/:code/decline", h.Transaction.Decline)
			transactions.POST("/:code/operations", h.Transaction.Operations)
			transactions.POST("/:code/fee-estimate", h.Transaction.EstimateFee)
			transactions.GET("/:code/fee-estimate", h.Transaction.FindFee)
		}

		payLinks := api.Group("/pay-links")
		{
			payLinks.POST("/:code", h.PayLink.Create)
			payLinks.GET("/:code", h.PayLink.Find)
			payLinks.POST("/:code/deposit-operations", h.PayLink.DepositOperations)
			payLinks.POST("/:code/redeem-operations", h.PayLink.RedeemOperations)
			payLinks.POST("/:code/hash", h.PayLink.ReportRedeemHash)
			payLinks.POST("/:code/cancel", h.PayLink.Cancel)
		}

		members := api.Group("/members")
		{
			members.GET("/recents", h.Member.ListRecent)
			members.GET("/notifications", h.Member.ListNotifications)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		logrus.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Debug("route not found")
		c.JSON(http.StatusNotFound, gin.H{"message": "endpoint not found"})
	})

	return r
}
