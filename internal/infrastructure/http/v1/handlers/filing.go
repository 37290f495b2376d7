package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/id"
	"bilanco/internal/core/types"
	"bilanco/internal/domain/extraction"
	"bilanco/internal/domain/filings"
	"bilanco/internal/domain/ratios"
	"bilanco/internal/infrastructure/http/v1/dto"
)

// FilingHandler exposes the ingestion and reconciliation flow.
type FilingHandler struct {
	*BaseHandler
	service    *filings.Service
	calculator *ratios.Calculator
	archiver   filings.Archiver // optional
}

// NewFilingHandler creates a filing handler.
func NewFilingHandler(
	base *BaseHandler,
	service *filings.Service,
	calculator *ratios.Calculator,
	archiver filings.Archiver,
) *FilingHandler {
	return &FilingHandler{
		BaseHandler: base,
		service:     service,
		calculator:  calculator,
		archiver:    archiver,
	}
}

// Submit handles POST /filings - run an extraction result through
// reconciliation. Returns 200 with a continuation token when the
// submission is parked, 201 when a filing was persisted.
func (h *FilingHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmitFilingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	companyID, err := id.Parse(req.CompanyID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid companyId format"))
		return
	}

	raw, err := extraction.Decode(req.Payload)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.Submit(ctx, filings.SubmitRequest{
		CompanyID: companyID,
		Raw:       raw,
		Payload:   req.Payload,
		Year:      req.Year,
		Period:    types.Period(req.Period),
		Income:    req.Income.ToEntity(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	status := http.StatusCreated
	if result.Signal != filings.SignalNone {
		status = http.StatusOK
	}
	c.JSON(status, dto.FromSubmitResult(result))
}

// Resume handles POST /filings/resume - resolve a parked submission.
func (h *FilingHandler) Resume(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ResumeFilingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Resume(ctx, req.Token, filings.Decision(req.Decision))
	if err != nil {
		h.Error(c, err)
		return
	}

	status := http.StatusCreated
	if result.Signal != filings.SignalNone || result.Discarded {
		status = http.StatusOK
	}
	c.JSON(status, dto.FromSubmitResult(result))
}

// Get handles GET /filings/:id - filing with line items.
func (h *FilingHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	filingID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	filing, err := h.service.GetByID(ctx, filingID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromFiling(filing))
}

// GetByNumber handles GET /filings/by-number/:number.
func (h *FilingHandler) GetByNumber(c *gin.Context) {
	ctx := c.Request.Context()

	number := c.Param("number")
	if number == "" {
		h.Error(c, apperror.NewValidation("number is required"))
		return
	}

	filing, err := h.service.GetByNumber(ctx, number)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromFiling(filing))
}

// List handles GET /filings - list filing headers.
func (h *FilingHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := filings.ListFilter{}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.Query("orderBy")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if companyStr := c.Query("companyId"); companyStr != "" {
		companyID, err := id.Parse(companyStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid companyId format"))
			return
		}
		filter.CompanyID = &companyID
	}

	if year := h.ParseIntQuery(c, "year", 0); year != 0 {
		filter.Year = &year
	}

	if periodStr := c.Query("period"); periodStr != "" {
		period := types.Period(periodStr)
		filter.Period = &period
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := filings.Status(statusStr)
		filter.Status = &status
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, len(result.Items))
	for i, f := range result.Items {
		items[i] = dto.FromFiling(f)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Ratios handles GET /filings/:id/ratios - ratio snapshot for one filing.
func (h *FilingHandler) Ratios(c *gin.Context) {
	ctx := c.Request.Context()

	filingID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	filing, err := h.service.GetByID(ctx, filingID)
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.calculator.Snapshot(ctx, filing)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// Turnover handles GET /filings/:id/turnover?previous={id} - activity
// ratios computed against the prior period filing.
func (h *FilingHandler) Turnover(c *gin.Context) {
	ctx := c.Request.Context()

	filingID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	previousStr := c.Query("previous")
	if previousStr == "" {
		h.Error(c, apperror.NewValidation("previous filing id is required"))
		return
	}
	previousID, err := id.Parse(previousStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid previous filing id format"))
		return
	}

	current, err := h.service.GetByID(ctx, filingID)
	if err != nil {
		h.Error(c, err)
		return
	}

	previous, err := h.service.GetByID(ctx, previousID)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.calculator.Turnover(ctx, current, previous)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.TurnoverResponse{
		CurrentFilingID:  filingID.String(),
		PreviousFilingID: previousID.String(),
		Ratios:           result,
	})
}

// Payload handles GET /filings/:id/payload - archived extraction output.
func (h *FilingHandler) Payload(c *gin.Context) {
	ctx := c.Request.Context()

	if h.archiver == nil {
		h.Error(c, apperror.NewNotFound("filing payload", c.Param("id")))
		return
	}

	filingID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	payload, err := h.archiver.Load(ctx, filingID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}
