package handler

import (
	"context"
	"fmt"
	"net/http"

	declapp "github.com/aeat/backend/internal/application/declaration"
	"github.com/aeat/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeclarationHandler handles declaration lifecycle API endpoints
type DeclarationHandler struct {
	BaseHandler
	reportService *declapp.ReportService
}

// NewDeclarationHandler creates a new DeclarationHandler
func NewDeclarationHandler(reportService *declapp.ReportService) *DeclarationHandler {
	return &DeclarationHandler{reportService: reportService}
}

// Create opens a new declaration draft
func (h *DeclarationHandler) Create(c *gin.Context) {
	var req declapp.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	report, err := h.reportService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, report)
}

// List returns the declarations of the acting company
func (h *DeclarationHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	reports, err := h.reportService.List(c.Request.Context(), companyID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, reports)
}

// Get returns one declaration
func (h *DeclarationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid declaration ID format")
		return
	}

	report, err := h.reportService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, report)
}

// SetFields writes operator-entered boxes on a draft declaration
func (h *DeclarationHandler) SetFields(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid declaration ID format")
		return
	}
	var req declapp.ManualFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	report, err := h.reportService.SetManualFields(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, report)
}

// Calculate populates the declaration boxes from the ledger
func (h *DeclarationHandler) Calculate(c *gin.Context) {
	h.lifecycle(c, h.reportService.Calculate)
}

// Process generates the submission file and books the liquidation move
func (h *DeclarationHandler) Process(c *gin.Context) {
	h.lifecycle(c, h.reportService.Process)
}

// Cancel voids a declaration
func (h *DeclarationHandler) Cancel(c *gin.Context) {
	h.lifecycle(c, h.reportService.Cancel)
}

// Draft reopens a calculated or cancelled declaration
func (h *DeclarationHandler) Draft(c *gin.Context) {
	h.lifecycle(c, h.reportService.Draft)
}

// File downloads the generated submission file
func (h *DeclarationHandler) File(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid declaration ID format")
		return
	}

	name, content, err := h.reportService.File(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/plain; charset=ISO-8859-1", content)
}

func (h *DeclarationHandler) lifecycle(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*declapp.ReportResponse, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid declaration ID format")
		return
	}

	report, err := op(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, report)
}

// RegisterRoutes registers declaration routes
func (h *DeclarationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	declarations := rg.Group("/declarations")
	{
		declarations.GET("", h.List)
		declarations.POST("", h.Create)
		declarations.GET("/:id", h.Get)
		declarations.PUT("/:id/fields", h.SetFields)
		declarations.POST("/:id/calculate", h.Calculate)
		declarations.POST("/:id/process", h.Process)
		declarations.POST("/:id/cancel", h.Cancel)
		declarations.POST("/:id/draft", h.Draft)
		declarations.GET("/:id/file", h.File)
	}
}
