package persistence

import (
	"context"
	"testing"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReportTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&declaration.Report{})
	require.NoError(t, err)

	return db
}

func newTestReport(t *testing.T, companyID uuid.UUID, year int, period string) *declaration.Report {
	report, err := declaration.NewReport(companyID, "Empresa Test SL", "B12345678", declaration.TypeIncome, year, period)
	require.NoError(t, err)
	return report
}

func TestGormReportRepository_Save(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	t.Run("round-trips a draft report with its declaration boxes", func(t *testing.T) {
		companyID := uuid.New()
		report := newTestReport(t, companyID, 2025, "1T")
		require.NoError(t, report.Fields.SetAmount(declaration.Form303Schema, "accrued_vat_base_3", decimal.RequireFromString("240.00")))
		require.NoError(t, report.Fields.SetAmount(declaration.Form303Schema, "accrued_vat_tax_3", decimal.RequireFromString("50.40")))

		err := repo.Save(ctx, report)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, report.ID, found.ID)
		assert.Equal(t, companyID, found.CompanyID)
		assert.Equal(t, "Empresa Test SL", found.CompanyName)
		assert.Equal(t, declaration.StateDraft, found.State)
		assert.True(t, found.Fields.Amount("accrued_vat_base_3").Equal(decimal.RequireFromString("240.00")))
		assert.True(t, found.Fields.Amount("accrued_vat_tax_3").Equal(decimal.RequireFromString("50.40")))
	})

	t.Run("updates an existing report in place", func(t *testing.T) {
		report := newTestReport(t, uuid.New(), 2025, "2T")
		require.NoError(t, repo.Save(ctx, report))

		report.MoveDescription = "Regularización IVA 2T/2025"
		require.NoError(t, repo.Save(ctx, report))

		found, err := repo.FindByID(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, "Regularización IVA 2T/2025", found.MoveDescription)

		var count int64
		require.NoError(t, db.Model(&declaration.Report{}).Where("id = ?", report.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormReportRepository_FindByID(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	t.Run("returns ErrNotFound for unknown report", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())

		assert.Nil(t, found)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormReportRepository_FindByPeriod(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	t.Run("finds the live report of the period", func(t *testing.T) {
		companyID := uuid.New()
		report := newTestReport(t, companyID, 2025, "1T")
		require.NoError(t, repo.Save(ctx, report))

		found, err := repo.FindByPeriod(ctx, companyID, 2025, "1T")
		require.NoError(t, err)
		assert.Equal(t, report.ID, found.ID)
	})

	t.Run("ignores cancelled reports", func(t *testing.T) {
		companyID := uuid.New()
		cancelled := newTestReport(t, companyID, 2025, "3T")
		cancelled.State = declaration.StateCancelled
		require.NoError(t, repo.Save(ctx, cancelled))

		found, err := repo.FindByPeriod(ctx, companyID, 2025, "3T")

		assert.Nil(t, found)
		assert.Equal(t, shared.ErrNotFound, err)
	})

	t.Run("scopes by company", func(t *testing.T) {
		report := newTestReport(t, uuid.New(), 2025, "4T")
		require.NoError(t, repo.Save(ctx, report))

		found, err := repo.FindByPeriod(ctx, uuid.New(), 2025, "4T")

		assert.Nil(t, found)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormReportRepository_FindByCompany(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	t.Run("returns the company's reports newest period first", func(t *testing.T) {
		companyID := uuid.New()
		first := newTestReport(t, companyID, 2024, "4T")
		second := newTestReport(t, companyID, 2025, "1T")
		third := newTestReport(t, companyID, 2025, "2T")
		other := newTestReport(t, uuid.New(), 2025, "1T")
		for _, r := range []*declaration.Report{first, second, third, other} {
			require.NoError(t, repo.Save(ctx, r))
		}

		reports, err := repo.FindByCompany(ctx, companyID)
		require.NoError(t, err)
		require.Len(t, reports, 3)
		assert.Equal(t, third.ID, reports[0].ID)
		assert.Equal(t, second.ID, reports[1].ID)
		assert.Equal(t, first.ID, reports[2].ID)
	})

	t.Run("returns empty slice for company without reports", func(t *testing.T) {
		reports, err := repo.FindByCompany(ctx, uuid.New())

		assert.NoError(t, err)
		assert.Empty(t, reports)
	})
}

func TestGormReportRepository_Delete(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	t.Run("deletes an existing report", func(t *testing.T) {
		report := newTestReport(t, uuid.New(), 2025, "1T")
		require.NoError(t, repo.Save(ctx, report))

		err := repo.Delete(ctx, report.ID)
		require.NoError(t, err)

		_, err = repo.FindByID(ctx, report.ID)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormReportRepository_InterfaceCompliance(t *testing.T) {
	t.Run("implements ReportRepository interface", func(t *testing.T) {
		var _ declaration.ReportRepository = NewGormReportRepository(setupReportTestDB(t))
	})
}
