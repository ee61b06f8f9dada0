package declaration

import (
	"context"
	"errors"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProrataService manages the company prorata configuration and recomputes
// the deduction proportion from the ledger on demand
type ProrataService struct {
	prorataRepo declaration.ProrataRepository
	engine      *declaration.ProrataEngine
}

// NewProrataService creates a new ProrataService
func NewProrataService(prorataRepo declaration.ProrataRepository, ledger declaration.LedgerService) *ProrataService {
	return &ProrataService{
		prorataRepo: prorataRepo,
		engine:      declaration.NewProrataEngine(ledger),
	}
}

// UpdateConfigRequest carries the prorata settings of a company
type UpdateConfigRequest struct {
	CompanyID  uuid.UUID  `json:"company_id" binding:"required"`
	Percent    int64      `json:"percent" binding:"min=0,max=100"`
	FiscalYear int        `json:"fiscal_year"`
	AccountID  *uuid.UUID `json:"account_id"`
}

// ProrataConfigResponse represents the prorata configuration in API responses
type ProrataConfigResponse struct {
	CompanyID  uuid.UUID  `json:"company_id"`
	Percent    int64      `json:"percent"`
	FiscalYear int        `json:"fiscal_year"`
	AccountID  *uuid.UUID `json:"account_id,omitempty"`
}

func toProrataConfigResponse(config *declaration.ProrataConfig) *ProrataConfigResponse {
	return &ProrataConfigResponse{
		CompanyID:  config.CompanyID,
		Percent:    config.Percent,
		FiscalYear: config.FiscalYear,
		AccountID:  config.AccountID,
	}
}

// Config returns a company's prorata configuration
func (s *ProrataService) Config(ctx context.Context, companyID uuid.UUID) (*ProrataConfigResponse, error) {
	config, err := s.prorataRepo.Config(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return toProrataConfigResponse(config), nil
}

// UpdateConfig creates or overwrites a company's prorata configuration
func (s *ProrataService) UpdateConfig(ctx context.Context, req UpdateConfigRequest) (*ProrataConfigResponse, error) {
	config, err := s.prorataRepo.Config(ctx, req.CompanyID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		config = &declaration.ProrataConfig{
			BaseEntity: shared.NewBaseEntity(),
			CompanyID:  req.CompanyID,
		}
	}
	config.Percent = req.Percent
	config.FiscalYear = req.FiscalYear
	config.AccountID = req.AccountID
	if err := s.prorataRepo.SaveConfig(ctx, config); err != nil {
		return nil, err
	}
	return toProrataConfigResponse(config), nil
}

// Recalculate recomputes the deduction proportion for a fiscal year from the
// ledger and stores it on the company configuration
func (s *ProrataService) Recalculate(ctx context.Context, companyID uuid.UUID, fiscalYear int) (*ProrataConfigResponse, error) {
	config, err := s.prorataRepo.Config(ctx, companyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PRORATA_NOT_CONFIGURED",
				"No prorata configuration is set for the company")
		}
		return nil, err
	}
	if config.AccountID == nil {
		return nil, shared.NewDomainError("PRORATA_NOT_CONFIGURED",
			"The prorata configuration has no expense account")
	}
	mappings, err := s.prorataRepo.Mappings(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return nil, shared.NewDomainError("PRORATA_NOT_CONFIGURED",
			"No prorata mappings are defined for the company")
	}
	percent, err := s.engine.Calculate(ctx, companyID, mappings, fiscalYear)
	if err != nil {
		return nil, err
	}
	config.Update(percent, fiscalYear)
	if err := s.prorataRepo.SaveConfig(ctx, config); err != nil {
		return nil, err
	}
	return toProrataConfigResponse(config), nil
}
