package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Upload imports a bank statement sent as multipart field "file".
// ?format= picks the parser, ?automatch=true runs auto-match afterwards.
func (h *ReconciliationHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.badRequest(c, "file required")
		return
	}
	defer file.Close()

	autoMatch := false
	if raw := c.Query("automatch"); raw != "" {
		if autoMatch, err = strconv.ParseBool(raw); err != nil {
			h.badRequest(c, "automatch must be a boolean")
			return
		}
	}

	h.logger.Info("statement received",
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
	)

	report, err := h.ingest.Import(c.Request.Context(), header.Filename, c.Query("format"), file, autoMatch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *ReconciliationHandler) GetImportBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		h.badRequest(c, "invalid batch ID")
		return
	}
	batch, err := h.ingest.Batch(c.Request.Context(), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *ReconciliationHandler) ImportFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.ingest.Formats()})
}
