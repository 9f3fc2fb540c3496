package routes

import (
	"net/http"

	handler "bank-payments-backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// Deps are the pieces the router needs. Auth and Metrics may be nil.
type Deps struct {
	Handler *handler.ReconciliationHandler
	Auth    gin.HandlerFunc
	Metrics http.Handler
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	secured := api.Group("")
	if deps.Auth != nil {
		secured.Use(deps.Auth)
	}
	h := deps.Handler

	payments := secured.Group("/bank-payments")
	payments.GET("", h.ListTransactions)
	payments.GET("/stats", h.Stats)
	payments.POST("/match", h.AutoMatch)
	payments.GET("/users/search", h.SearchUsers)
	payments.POST("/import", h.Upload)
	payments.GET("/:id", h.GetTransaction)
	payments.POST("/:id/match", h.ManualMatch)
	payments.DELETE("/:id/match", h.Unmatch)
	payments.GET("/:id/suggestions", h.Suggestions)
	payments.GET("/:id/audit", h.AuditTrail)

	imports := secured.Group("/imports")
	imports.GET("/formats", h.ImportFormats)
	imports.GET("/:batchId", h.GetImportBatch)
}
