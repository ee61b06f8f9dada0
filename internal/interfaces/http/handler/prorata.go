package handler

import (
	declapp "github.com/aeat/backend/internal/application/declaration"
	"github.com/aeat/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ProrataHandler handles prorata configuration API endpoints
type ProrataHandler struct {
	BaseHandler
	prorataService *declapp.ProrataService
}

// NewProrataHandler creates a new ProrataHandler
func NewProrataHandler(prorataService *declapp.ProrataService) *ProrataHandler {
	return &ProrataHandler{prorataService: prorataService}
}

// GetConfig returns the acting company's prorata configuration
func (h *ProrataHandler) GetConfig(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	config, err := h.prorataService.Config(c.Request.Context(), companyID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, config)
}

// UpdateConfig creates or overwrites the prorata configuration
func (h *ProrataHandler) UpdateConfig(c *gin.Context) {
	var req declapp.UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	config, err := h.prorataService.UpdateConfig(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, config)
}

// RecalculateRequest asks for a fresh proportion from the ledger
type RecalculateRequest struct {
	FiscalYear int `json:"fiscal_year" binding:"required,min=1000,max=9999"`
}

// Recalculate recomputes the deduction proportion for a fiscal year
func (h *ProrataHandler) Recalculate(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}
	var req RecalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	config, err := h.prorataService.Recalculate(c.Request.Context(), companyID, req.FiscalYear)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, config)
}

// RegisterRoutes registers prorata routes
func (h *ProrataHandler) RegisterRoutes(rg *gin.RouterGroup) {
	prorata := rg.Group("/prorata")
	{
		prorata.GET("/config", h.GetConfig)
		prorata.PUT("/config", h.UpdateConfig)
		prorata.POST("/recalculate", h.Recalculate)
	}
}
