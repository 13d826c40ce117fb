// Package httpapi is the HTTP face of the service. It only translates: every
// decision is made by the ledger.
package httpapi

import (
	"github.com/gin-gonic/gin"
)

// NewRouter registers the routes. mockRisk also mounts the stand-in risk
// service under /mock/risk.
func NewRouter(h *Handler, mockRisk bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), Correlation(), RequestLogger())

	// Health check
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.POST("/transactions", h.CreateTransaction)
		api.GET("/transactions", h.ListTransactions)
		api.GET("/accounts/:accountNumber", h.GetAccount)
		api.GET("/stream/transactions", h.StreamTransactions)
	}

	if mockRisk {
		router.GET("/mock/risk/allow", MockRiskAllow)
	}
	return router
}
