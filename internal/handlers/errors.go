package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"bank-payments-backend/internal/services/ingest"
	"bank-payments-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
)

const (
	codeNotFound           = "not_found"
	codeAlreadyMatched     = "already_matched"
	codeNotMatched         = "not_matched"
	codeInvalidPaymentType = "invalid_payment_type"
	codeInvalidRequest     = "invalid_request"
	codeInvalidFile        = "invalid_file"
	codeCancelled          = "cancelled"
	codeInternal           = "internal"
)

// respondError maps service errors onto status codes. Unknown errors are
// logged and hidden behind a generic message.
func (h *ReconciliationHandler) respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, codeInternal
	switch {
	case errors.Is(err, reconciliation.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, reconciliation.ErrAlreadyMatched):
		status, code = http.StatusConflict, codeAlreadyMatched
	case errors.Is(err, reconciliation.ErrNotMatched):
		status, code = http.StatusConflict, codeNotMatched
	case errors.Is(err, reconciliation.ErrInvalidPaymentType):
		status, code = http.StatusBadRequest, codeInvalidPaymentType
	case errors.Is(err, ingest.ErrUnknownFormat), errors.Is(err, ingest.ErrInvalidFile):
		status, code = http.StatusBadRequest, codeInvalidFile
	case errors.Is(err, context.Canceled):
		// client went away
		status, code = 499, codeCancelled
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

func (h *ReconciliationHandler) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": codeInvalidRequest})
}
