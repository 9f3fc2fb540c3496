package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"bank-payments-backend/internal/models"
	"bank-payments-backend/internal/repository"
	"bank-payments-backend/internal/services/ingest"
	"bank-payments-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReconciliationHandler struct {
	service *reconciliation.ReconciliationService
	ingest  *ingest.Service
	logger  *slog.Logger
}

func NewReconciliationHandler(s *reconciliation.ReconciliationService, ing *ingest.Service, logger *slog.Logger) *ReconciliationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconciliationHandler{service: s, ingest: ing, logger: logger}
}

// AutoMatch runs auto-match over every unmatched transaction. The body is
// optional; {"paymentType": "shop"} overrides the configured default.
func (h *ReconciliationHandler) AutoMatch(c *gin.Context) {
	var payload struct {
		PaymentType string `json:"paymentType"`
	}
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
			h.badRequest(c, "invalid payload")
			return
		}
	}

	var pt models.PaymentType
	if payload.PaymentType != "" {
		parsed, err := models.ParsePaymentType(payload.PaymentType)
		if err != nil {
			h.respondError(c, reconciliation.ErrInvalidPaymentType)
			return
		}
		pt = parsed
	}

	report, err := h.service.AutoMatch(c.Request.Context(), pt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReconciliationHandler) ManualMatch(c *gin.Context) {
	id, ok := h.transactionID(c)
	if !ok {
		return
	}

	var payload struct {
		UserID      string `json:"userId" binding:"required"`
		PaymentType string `json:"paymentType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.badRequest(c, "invalid payload: userId and paymentType are required")
		return
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		h.badRequest(c, "invalid user ID")
		return
	}

	tx, err := h.service.ManualMatch(c.Request.Context(), id, userID, models.PaymentType(payload.PaymentType))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction matched", "transaction": tx})
}

func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	id, ok := h.transactionID(c)
	if !ok {
		return
	}

	tx, err := h.service.Unmatch(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction unmatched", "transaction": tx})
}

func (h *ReconciliationHandler) SearchUsers(c *gin.Context) {
	users, err := h.service.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	status := c.DefaultQuery("status", repository.StatusAll)
	switch status {
	case repository.StatusAll, repository.StatusMatched, repository.StatusUnmatched:
	default:
		h.badRequest(c, "status must be one of all, matched, unmatched")
		return
	}

	cursor := c.Query("cursor")
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			h.badRequest(c, "invalid cursor")
			return
		}
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	page, err := h.service.ListPayments(c.Request.Context(), repository.PaymentFilter{
		Status: status,
		Query:  c.Query("q"),
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ReconciliationHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ReconciliationHandler) GetTransaction(c *gin.Context) {
	id, ok := h.transactionID(c)
	if !ok {
		return
	}
	detail, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *ReconciliationHandler) Suggestions(c *gin.Context) {
	id, ok := h.transactionID(c)
	if !ok {
		return
	}
	suggestions, err := h.service.Suggestions(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": suggestions})
}

func (h *ReconciliationHandler) AuditTrail(c *gin.Context) {
	id, ok := h.transactionID(c)
	if !ok {
		return
	}
	entries, err := h.service.AuditTrail(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *ReconciliationHandler) transactionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.badRequest(c, "invalid transaction ID")
		return uuid.Nil, false
	}
	return id, true
}
