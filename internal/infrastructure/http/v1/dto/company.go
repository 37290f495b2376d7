package dto

import (
	"bilanco/internal/domain/companies"
)

// --- Request DTOs ---

// CreateCompanyRequest is the request body for creating a company.
type CreateCompanyRequest struct {
	Code     string  `json:"code"`
	Name     string  `json:"name" binding:"required"`
	TaxID    *string `json:"taxId"`
	FullName *string `json:"fullName"`
	Sector   *string `json:"sector"`
	Address  *string `json:"address"`
	Email    *string `json:"email"`
	Comment  *string `json:"comment"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateCompanyRequest) ToEntity() *companies.Company {
	c := companies.NewCompany(r.Code, r.Name)
	c.TaxID = r.TaxID
	c.FullName = r.FullName
	c.Sector = r.Sector
	c.Address = r.Address
	c.Email = r.Email
	c.Comment = r.Comment
	return c
}

// UpdateCompanyRequest is the request body for updating a company.
type UpdateCompanyRequest struct {
	Code     string  `json:"code"`
	Name     string  `json:"name" binding:"required"`
	TaxID    *string `json:"taxId"`
	FullName *string `json:"fullName"`
	Sector   *string `json:"sector"`
	Address  *string `json:"address"`
	Email    *string `json:"email"`
	Comment  *string `json:"comment"`
	Version  int     `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateCompanyRequest) ApplyTo(c *companies.Company) {
	c.Code = r.Code
	c.Name = r.Name
	c.TaxID = r.TaxID
	c.FullName = r.FullName
	c.Sector = r.Sector
	c.Address = r.Address
	c.Email = r.Email
	c.Comment = r.Comment
	c.Version = r.Version
}

// --- Response DTOs ---

// CompanyResponse contains company fields.
type CompanyResponse struct {
	BaseResponse
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	TaxID    *string `json:"taxId,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Sector   *string `json:"sector,omitempty"`
	Address  *string `json:"address,omitempty"`
	Email    *string `json:"email,omitempty"`
	Comment  *string `json:"comment,omitempty"`
}

// FromCompany creates CompanyResponse from domain entity.
func FromCompany(c *companies.Company) CompanyResponse {
	return CompanyResponse{
		BaseResponse: FromBaseEntity(c.BaseEntity),
		Code:         c.Code,
		Name:         c.Name,
		TaxID:        c.TaxID,
		FullName:     c.FullName,
		Sector:       c.Sector,
		Address:      c.Address,
		Email:        c.Email,
		Comment:      c.Comment,
	}
}
