package declaration

import (
	"context"
	"testing"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func prorataCodeMapping(companyID uuid.UUID, role declaration.ProrataRole, field string, codeID uuid.UUID) declaration.ProrataMapping {
	return declaration.ProrataMapping{
		BaseEntity: shared.NewBaseEntity(),
		CompanyID:  companyID,
		Role:       role,
		FieldName:  field,
		Codes: []declaration.ProrataCodeLink{
			{ID: uuid.New(), TaxCodeID: codeID},
		},
	}
}

func TestProrataService_UpdateConfig(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	accountID := uuid.New()

	t.Run("creates a configuration", func(t *testing.T) {
		repo := new(mockProrataRepository)
		ledger := new(mockLedgerService)
		svc := NewProrataService(repo, ledger)
		repo.On("Config", ctx, companyID).Return(nil, shared.ErrNotFound)
		repo.On("SaveConfig", ctx, mock.AnythingOfType("*declaration.ProrataConfig")).Return(nil)

		resp, err := svc.UpdateConfig(ctx, UpdateConfigRequest{
			CompanyID:  companyID,
			Percent:    90,
			FiscalYear: 2024,
			AccountID:  &accountID,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(90), resp.Percent)
		assert.Equal(t, 2024, resp.FiscalYear)
		repo.AssertExpectations(t)
	})

	t.Run("overwrites an existing configuration", func(t *testing.T) {
		repo := new(mockProrataRepository)
		ledger := new(mockLedgerService)
		svc := NewProrataService(repo, ledger)
		existing := &declaration.ProrataConfig{
			BaseEntity: shared.NewBaseEntity(),
			CompanyID:  companyID,
			Percent:    50,
			FiscalYear: 2023,
		}
		repo.On("Config", ctx, companyID).Return(existing, nil)
		repo.On("SaveConfig", ctx, existing).Return(nil)

		resp, err := svc.UpdateConfig(ctx, UpdateConfigRequest{
			CompanyID:  companyID,
			Percent:    75,
			FiscalYear: 2025,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(75), resp.Percent)
		assert.Equal(t, int64(75), existing.Percent)
	})
}

func TestProrataService_Recalculate(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	accountID := uuid.New()
	deductibleCode := uuid.New()
	totalCode := uuid.New()

	config := func() *declaration.ProrataConfig {
		return &declaration.ProrataConfig{
			BaseEntity: shared.NewBaseEntity(),
			CompanyID:  companyID,
			Percent:    90,
			FiscalYear: 2024,
			AccountID:  &accountID,
		}
	}

	t.Run("recomputes and stores the proportion", func(t *testing.T) {
		repo := new(mockProrataRepository)
		ledger := new(mockLedgerService)
		svc := NewProrataService(repo, ledger)
		cfg := config()
		repo.On("Config", ctx, companyID).Return(cfg, nil)
		repo.On("SaveConfig", ctx, cfg).Return(nil)
		repo.On("Mappings", ctx, companyID).Return([]declaration.ProrataMapping{
			prorataCodeMapping(companyID, declaration.ProrataDeductible, "deductible_current_domestic_operations_tax", deductibleCode),
			prorataCodeMapping(companyID, declaration.ProrataTotal, "", totalCode),
		}, nil)
		ledger.On("StandardPeriodsBetween", ctx, companyID, mock.Anything, mock.Anything).
			Return(quarterPeriods(companyID, 2025, 1), nil)
		ledger.On("AggregateTaxCodes", ctx, []uuid.UUID{deductibleCode}, mock.Anything).
			Return(map[uuid.UUID]decimal.Decimal{deductibleCode: decimal.RequireFromString("190.00")}, nil)
		ledger.On("AggregateTaxCodes", ctx, []uuid.UUID{totalCode}, mock.Anything).
			Return(map[uuid.UUID]decimal.Decimal{totalCode: decimal.RequireFromString("200.00")}, nil)

		resp, err := svc.Recalculate(ctx, companyID, 2025)
		require.NoError(t, err)
		assert.Equal(t, int64(95), resp.Percent)
		assert.Equal(t, 2025, resp.FiscalYear)
		repo.AssertCalled(t, "SaveConfig", ctx, cfg)
	})

	t.Run("fails without a configuration", func(t *testing.T) {
		repo := new(mockProrataRepository)
		svc := NewProrataService(repo, new(mockLedgerService))
		repo.On("Config", ctx, companyID).Return(nil, shared.ErrNotFound)

		_, err := svc.Recalculate(ctx, companyID, 2025)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PRORATA_NOT_CONFIGURED", domainErr.Code)
	})

	t.Run("fails without an expense account", func(t *testing.T) {
		repo := new(mockProrataRepository)
		svc := NewProrataService(repo, new(mockLedgerService))
		cfg := config()
		cfg.AccountID = nil
		repo.On("Config", ctx, companyID).Return(cfg, nil)

		_, err := svc.Recalculate(ctx, companyID, 2025)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PRORATA_NOT_CONFIGURED", domainErr.Code)
	})

	t.Run("fails without mappings", func(t *testing.T) {
		repo := new(mockProrataRepository)
		svc := NewProrataService(repo, new(mockLedgerService))
		repo.On("Config", ctx, companyID).Return(config(), nil)
		repo.On("Mappings", ctx, companyID).Return([]declaration.ProrataMapping{}, nil)

		_, err := svc.Recalculate(ctx, companyID, 2025)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PRORATA_NOT_CONFIGURED", domainErr.Code)
	})
}
