package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bilanco/internal/core/apperror"
	"bilanco/internal/domain/extraction"
	"bilanco/pkg/logger"
)

// ExtractionHandler proxies balance sheet documents to the extraction
// service and returns the raw result for review before submission.
type ExtractionHandler struct {
	*BaseHandler
	extractor extraction.Service
}

// NewExtractionHandler creates an extraction handler.
func NewExtractionHandler(base *BaseHandler, extractor extraction.Service) *ExtractionHandler {
	return &ExtractionHandler{BaseHandler: base, extractor: extractor}
}

// Extract handles POST /extractions - multipart upload of a PDF document.
func (h *ExtractionHandler) Extract(c *gin.Context) {
	ctx := c.Request.Context()

	file, err := c.FormFile("document")
	if err != nil {
		h.Error(c, apperror.NewValidation("multipart field 'document' is required"))
		return
	}

	reader, err := file.Open()
	if err != nil {
		h.Error(c, apperror.NewValidation("cannot read uploaded document").WithCause(err))
		return
	}
	defer reader.Close()

	// An extractor outage must not block the upload. The operator gets
	// an empty, flagged result and proceeds to manual entry.
	result, err := h.extractor.Extract(ctx, reader)
	if err != nil {
		logger.Warn(ctx, "extraction degraded to empty result",
			"document", file.Filename,
			"error", err,
		)
		result = extraction.FailedResult()
	}

	c.JSON(http.StatusOK, result)
}
