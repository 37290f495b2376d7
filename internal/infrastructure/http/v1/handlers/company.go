package handlers

import (
	"github.com/gin-gonic/gin"

	"bilanco/internal/core/apperror"
	"bilanco/internal/domain/companies"
	"bilanco/internal/infrastructure/http/v1/dto"
)

// CompanyHTTPHandler aliases the generic handler to keep signatures short.
type CompanyHTTPHandler = CatalogHandler[
	*companies.Company,
	dto.CreateCompanyRequest,
	dto.UpdateCompanyRequest,
]

// CompanyHandler wraps the generic catalog handler with company-specific
// lookups.
type CompanyHandler struct {
	*CompanyHTTPHandler
	service *companies.Service
}

// NewCompanyHandler wires the generic catalog handler for companies.
func NewCompanyHandler(
	base *BaseHandler,
	service *companies.Service,
) *CompanyHandler {
	config := CatalogHandlerConfig[
		*companies.Company,
		dto.CreateCompanyRequest,
		dto.UpdateCompanyRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "company",

		MapCreateDTO: func(req dto.CreateCompanyRequest) *companies.Company {
			return req.ToEntity()
		},

		MapUpdateDTO: func(req dto.UpdateCompanyRequest, existing *companies.Company) *companies.Company {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(entity *companies.Company) any {
			return dto.FromCompany(entity)
		},
	}

	return &CompanyHandler{
		CompanyHTTPHandler: NewCatalogHandler(base, config),
		service:            service,
	}
}

// GetByTaxID handles GET /companies/by-tax-id/:taxId.
func (h *CompanyHandler) GetByTaxID(c *gin.Context) {
	taxID := c.Param("taxId")
	if taxID == "" {
		h.Error(c, apperror.NewValidation("taxId is required"))
		return
	}

	company, err := h.service.FindByTaxID(c.Request.Context(), taxID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCompany(company))
}
