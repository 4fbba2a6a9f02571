package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/trade-journal/internal/company"
	"github.com/trade-journal/pkg/response"
)

// CompanyHandler resolves security codes to company names
type CompanyHandler struct {
	companies company.Lookup
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(companies company.Lookup) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

// Lookup returns the company name of a code, or an empty name when unknown
// GET /api/v1/company?code=
func (h *CompanyHandler) Lookup(c *gin.Context) {
	code := company.NormalizeCode(c.Query("code"))
	if code == "" {
		response.BadRequest(c, "code is required")
		return
	}
	name, _ := h.companies.Name(code)
	response.Success(c, gin.H{"code": code, "company": name})
}

// RegisterRoutes registers company routes
func (h *CompanyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/company", h.Lookup)
}
