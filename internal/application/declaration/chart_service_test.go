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

func template(field string, kind declaration.MappingKind, codeIDs ...uuid.UUID) declaration.TemplateTaxCodeMapping {
	t := declaration.TemplateTaxCodeMapping{
		BaseEntity: shared.NewBaseEntity(),
		FieldName:  field,
		Kind:       kind,
	}
	for _, id := range codeIDs {
		t.Codes = append(t.Codes, declaration.TemplateCodeLink{
			ID: uuid.New(), TemplateID: t.ID, TaxCodeID: id,
		})
	}
	return t
}

func TestChartService_UpsertTemplate(t *testing.T) {
	ctx := context.Background()
	codeID := uuid.New()

	t.Run("creates a template", func(t *testing.T) {
		repo := new(mockMappingRepository)
		svc := NewChartService(repo)
		repo.On("Templates", ctx).Return([]declaration.TemplateTaxCodeMapping{}, nil)
		repo.On("SaveTemplate", ctx, mock.AnythingOfType("*declaration.TemplateTaxCodeMapping")).Return(nil)

		resp, err := svc.UpsertTemplate(ctx, UpsertTemplateRequest{
			FieldName: "accrued_vat_base_3",
			Kind:      "code",
			CodeIDs:   []uuid.UUID{codeID},
		})
		require.NoError(t, err)
		assert.Equal(t, "accrued_vat_base_3", resp.FieldName)
		assert.Equal(t, []uuid.UUID{codeID}, resp.CodeIDs)
		repo.AssertExpectations(t)
	})

	t.Run("replaces the template of a box", func(t *testing.T) {
		repo := new(mockMappingRepository)
		svc := NewChartService(repo)
		existing := template("accrued_vat_base_3", declaration.MappingCode, uuid.New())
		repo.On("Templates", ctx).Return([]declaration.TemplateTaxCodeMapping{existing}, nil)
		repo.On("SaveTemplate", ctx, mock.AnythingOfType("*declaration.TemplateTaxCodeMapping")).Return(nil)

		resp, err := svc.UpsertTemplate(ctx, UpsertTemplateRequest{
			FieldName: "accrued_vat_base_3",
			Kind:      "code",
			CodeIDs:   []uuid.UUID{codeID},
		})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, resp.ID)
		assert.Equal(t, []uuid.UUID{codeID}, resp.CodeIDs)
	})

	t.Run("rejects an unknown box", func(t *testing.T) {
		repo := new(mockMappingRepository)
		svc := NewChartService(repo)

		_, err := svc.UpsertTemplate(ctx, UpsertTemplateRequest{
			FieldName: "no_such_box",
			Kind:      "code",
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNKNOWN_FIELD", domainErr.Code)
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		repo := new(mockMappingRepository)
		svc := NewChartService(repo)

		_, err := svc.UpsertTemplate(ctx, UpsertTemplateRequest{
			FieldName: "accrued_vat_base_3",
			Kind:      "magic",
		})
		require.Error(t, err)
	})
}

func TestChartService_SyncMappings(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	codeID := uuid.New()

	t.Run("seeds missing mappings", func(t *testing.T) {
		repo := new(mockMappingRepository)
		svc := NewChartService(repo)
		number := decimal.NewFromInt(100)
		numeric := template("state_administration_percent", declaration.MappingNumeric)
		numeric.Number = &number
		repo.On("Templates", ctx).Return([]declaration.TemplateTaxCodeMapping{
			template("accrued_vat_base_3", declaration.MappingCode, codeID),
			numeric,
		}, nil)
		repo.On("FindByCompany", ctx, companyID).Return([]declaration.TaxCodeMapping{}, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*declaration.TaxCodeMapping")).Return(nil)

		result, err := svc.SyncMappings(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 0, result.Updated)

		seeded := repo.Calls[2].Arguments.Get(1).(*declaration.TaxCodeMapping)
		assert.Equal(t, companyID, seeded.CompanyID)
		assert.NotNil(t, seeded.TemplateID)
	})

	t.Run("realigns a drifted mapping with its template", func(t *testing.T) {
		repo := new(mockMappingRepository)
		svc := NewChartService(repo)
		tpl := template("accrued_vat_base_3", declaration.MappingCode, codeID)
		mapping, err := declaration.NewTaxCodeMapping(companyID, "accrued_vat_base_3", declaration.MappingCode)
		require.NoError(t, err)
		manualCode := uuid.New()
		mapping.LinkCode(manualCode)
		mapping.TemplateID = &tpl.ID
		repo.On("Templates", ctx).Return([]declaration.TemplateTaxCodeMapping{tpl}, nil)
		repo.On("FindByCompany", ctx, companyID).Return([]declaration.TaxCodeMapping{*mapping}, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*declaration.TaxCodeMapping")).Return(nil)

		result, err := svc.SyncMappings(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Created)
		assert.Equal(t, 1, result.Updated)

		saved := repo.Calls[2].Arguments.Get(1).(*declaration.TaxCodeMapping)
		ids := saved.CodeIDs()
		assert.Contains(t, ids, codeID)
		assert.NotContains(t, ids, manualCode)
	})

	t.Run("leaves an aligned mapping untouched", func(t *testing.T) {
		repo := new(mockMappingRepository)
		svc := NewChartService(repo)
		tpl := template("accrued_vat_base_3", declaration.MappingCode, codeID)
		mapping, err := declaration.NewTaxCodeMapping(companyID, "accrued_vat_base_3", declaration.MappingCode)
		require.NoError(t, err)
		mapping.LinkCode(codeID)
		mapping.TemplateID = &tpl.ID
		repo.On("Templates", ctx).Return([]declaration.TemplateTaxCodeMapping{tpl}, nil)
		repo.On("FindByCompany", ctx, companyID).Return([]declaration.TaxCodeMapping{*mapping}, nil)

		result, err := svc.SyncMappings(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Created)
		assert.Equal(t, 0, result.Updated)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("adopts a pre-existing mapping by box name", func(t *testing.T) {
		repo := new(mockMappingRepository)
		svc := NewChartService(repo)
		tpl := template("accrued_vat_base_3", declaration.MappingCode, codeID)
		mapping, err := declaration.NewTaxCodeMapping(companyID, "accrued_vat_base_3", declaration.MappingCode)
		require.NoError(t, err)
		mapping.LinkCode(codeID)
		repo.On("Templates", ctx).Return([]declaration.TemplateTaxCodeMapping{tpl}, nil)
		repo.On("FindByCompany", ctx, companyID).Return([]declaration.TaxCodeMapping{*mapping}, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*declaration.TaxCodeMapping")).Return(nil)

		result, err := svc.SyncMappings(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)

		saved := repo.Calls[2].Arguments.Get(1).(*declaration.TaxCodeMapping)
		require.NotNil(t, saved.TemplateID)
		assert.Equal(t, tpl.ID, *saved.TemplateID)
	})

	t.Run("skips empty code templates", func(t *testing.T) {
		repo := new(mockMappingRepository)
		svc := NewChartService(repo)
		repo.On("Templates", ctx).Return([]declaration.TemplateTaxCodeMapping{
			template("accrued_vat_base_3", declaration.MappingCode),
		}, nil)
		repo.On("FindByCompany", ctx, companyID).Return([]declaration.TaxCodeMapping{}, nil)

		result, err := svc.SyncMappings(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Created)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}
