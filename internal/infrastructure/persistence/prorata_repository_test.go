package persistence

import (
	"context"
	"testing"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProrataTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&declaration.ProrataConfig{},
		&declaration.ProrataMapping{},
		&declaration.ProrataCodeLink{},
	)
	require.NoError(t, err)

	return db
}

func TestGormProrataRepository_Config(t *testing.T) {
	db := setupProrataTestDB(t)
	repo := NewGormProrataRepository(db)
	ctx := context.Background()

	t.Run("round-trips a configuration", func(t *testing.T) {
		companyID := uuid.New()
		accountID := uuid.New()
		config := &declaration.ProrataConfig{
			BaseEntity: shared.NewBaseEntity(),
			CompanyID:  companyID,
			Percent:    90,
			FiscalYear: 2024,
			AccountID:  &accountID,
		}

		err := repo.SaveConfig(ctx, config)
		require.NoError(t, err)

		found, err := repo.Config(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, config.ID, found.ID)
		assert.Equal(t, int64(90), found.Percent)
		assert.Equal(t, 2024, found.FiscalYear)
		require.NotNil(t, found.AccountID)
		assert.Equal(t, accountID, *found.AccountID)
	})

	t.Run("returns ErrNotFound for unconfigured company", func(t *testing.T) {
		found, err := repo.Config(ctx, uuid.New())

		assert.Nil(t, found)
		assert.Equal(t, shared.ErrNotFound, err)
	})

	t.Run("overwrites the percentage in place", func(t *testing.T) {
		companyID := uuid.New()
		config := &declaration.ProrataConfig{
			BaseEntity: shared.NewBaseEntity(),
			CompanyID:  companyID,
			Percent:    90,
			FiscalYear: 2024,
		}
		require.NoError(t, repo.SaveConfig(ctx, config))

		config.Update(95, 2025)
		require.NoError(t, repo.SaveConfig(ctx, config))

		found, err := repo.Config(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, int64(95), found.Percent)
		assert.Equal(t, 2025, found.FiscalYear)
	})
}

func TestGormProrataRepository_Mappings(t *testing.T) {
	db := setupProrataTestDB(t)
	repo := NewGormProrataRepository(db)
	ctx := context.Background()

	t.Run("round-trips mappings with their code links", func(t *testing.T) {
		companyID := uuid.New()
		deductibleCode := uuid.New()
		totalCode := uuid.New()

		deductible := &declaration.ProrataMapping{
			BaseEntity: shared.NewBaseEntity(),
			CompanyID:  companyID,
			Role:       declaration.ProrataDeductible,
			FieldName:  "deductible_current_domestic_operations_tax",
		}
		deductible.Codes = []declaration.ProrataCodeLink{{
			ID:        uuid.New(),
			MappingID: deductible.ID,
			TaxCodeID: deductibleCode,
		}}
		total := &declaration.ProrataMapping{
			BaseEntity: shared.NewBaseEntity(),
			CompanyID:  companyID,
			Role:       declaration.ProrataTotal,
		}
		total.Codes = []declaration.ProrataCodeLink{{
			ID:        uuid.New(),
			MappingID: total.ID,
			TaxCodeID: totalCode,
		}}

		require.NoError(t, repo.SaveMapping(ctx, deductible))
		require.NoError(t, repo.SaveMapping(ctx, total))

		mappings, err := repo.Mappings(ctx, companyID)
		require.NoError(t, err)
		require.Len(t, mappings, 2)

		byRole := make(map[declaration.ProrataRole]declaration.ProrataMapping)
		for _, m := range mappings {
			byRole[m.Role] = m
		}
		deductibleMapping := byRole[declaration.ProrataDeductible]
		totalMapping := byRole[declaration.ProrataTotal]
		assert.Equal(t, []uuid.UUID{deductibleCode}, deductibleMapping.CodeIDs())
		assert.Equal(t, "deductible_current_domestic_operations_tax", deductibleMapping.FieldName)
		assert.Equal(t, []uuid.UUID{totalCode}, totalMapping.CodeIDs())
	})

	t.Run("scopes by company", func(t *testing.T) {
		mappings, err := repo.Mappings(ctx, uuid.New())

		assert.NoError(t, err)
		assert.Empty(t, mappings)
	})

	t.Run("re-saving replaces the code links", func(t *testing.T) {
		companyID := uuid.New()
		mapping := &declaration.ProrataMapping{
			BaseEntity: shared.NewBaseEntity(),
			CompanyID:  companyID,
			Role:       declaration.ProrataTotal,
		}
		mapping.Codes = []declaration.ProrataCodeLink{{
			ID:        uuid.New(),
			MappingID: mapping.ID,
			TaxCodeID: uuid.New(),
		}}
		require.NoError(t, repo.SaveMapping(ctx, mapping))

		replacement := uuid.New()
		mapping.Codes = []declaration.ProrataCodeLink{{
			ID:        uuid.New(),
			MappingID: mapping.ID,
			TaxCodeID: replacement,
		}}
		require.NoError(t, repo.SaveMapping(ctx, mapping))

		mappings, err := repo.Mappings(ctx, companyID)
		require.NoError(t, err)
		require.Len(t, mappings, 1)
		assert.Equal(t, []uuid.UUID{replacement}, mappings[0].CodeIDs())
	})
}

func TestGormProrataRepository_InterfaceCompliance(t *testing.T) {
	t.Run("implements ProrataRepository interface", func(t *testing.T) {
		var _ declaration.ProrataRepository = NewGormProrataRepository(setupProrataTestDB(t))
	})
}
