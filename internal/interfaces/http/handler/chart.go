package handler

import (
	declapp "github.com/aeat/backend/internal/application/declaration"
	"github.com/aeat/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ChartHandler handles mapping catalog API endpoints
type ChartHandler struct {
	BaseHandler
	chartService *declapp.ChartService
}

// NewChartHandler creates a new ChartHandler
func NewChartHandler(chartService *declapp.ChartService) *ChartHandler {
	return &ChartHandler{chartService: chartService}
}

// ListTemplates returns the template mapping catalog
func (h *ChartHandler) ListTemplates(c *gin.Context) {
	templates, err := h.chartService.Templates(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, templates)
}

// UpsertTemplate creates or replaces a template mapping
func (h *ChartHandler) UpsertTemplate(c *gin.Context) {
	var req declapp.UpsertTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	template, err := h.chartService.UpsertTemplate(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, template)
}

// SyncMappings seeds the acting company's mapping table from the catalog
func (h *ChartHandler) SyncMappings(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	result, err := h.chartService.SyncMappings(c.Request.Context(), companyID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes registers mapping catalog routes
func (h *ChartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	chart := rg.Group("/chart")
	{
		chart.GET("/templates", h.ListTemplates)
		chart.PUT("/templates", h.UpsertTemplate)
		chart.POST("/sync-mappings", h.SyncMappings)
	}
}
