package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&Period{}, &TaxCodeRow{}, &TaxLineRow{}, &MoveRow{}, &MoveLineRow{})
	require.NoError(t, err)

	return db
}

func seedPeriod(t *testing.T, db *gorm.DB, companyID uuid.UUID, name string, start, end time.Time, periodType string) uuid.UUID {
	row := Period{
		ID:        uuid.New(),
		CompanyID: companyID,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		Type:      periodType,
		State:     "open",
	}
	require.NoError(t, db.Create(&row).Error)
	return row.ID
}

func seedTaxCode(t *testing.T, db *gorm.DB, companyID uuid.UUID, parentID *uuid.UUID, code string) uuid.UUID {
	row := TaxCodeRow{
		ID:        uuid.New(),
		CompanyID: companyID,
		ParentID:  parentID,
		Code:      code,
		Name:      code,
	}
	require.NoError(t, db.Create(&row).Error)
	return row.ID
}

func seedTaxLine(t *testing.T, db *gorm.DB, taxCodeID, periodID uuid.UUID, kind, amount string) {
	row := TaxLineRow{
		ID:        uuid.New(),
		TaxCodeID: taxCodeID,
		PeriodID:  periodID,
		Kind:      kind,
		AccountID: uuid.New(),
		Amount:    decimal.RequireFromString(amount),
	}
	require.NoError(t, db.Create(&row).Error)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestGormLedgerService_StandardPeriodsBetween(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := NewGormLedgerService(db)
	ctx := context.Background()

	t.Run("returns standard periods inside the range ordered by end date", func(t *testing.T) {
		companyID := uuid.New()
		feb := seedPeriod(t, db, companyID, "02/2025", date(2025, 2, 1), date(2025, 2, 28), "standard")
		jan := seedPeriod(t, db, companyID, "01/2025", date(2025, 1, 1), date(2025, 1, 31), "standard")
		mar := seedPeriod(t, db, companyID, "03/2025", date(2025, 3, 1), date(2025, 3, 31), "standard")
		seedPeriod(t, db, companyID, "04/2025", date(2025, 4, 1), date(2025, 4, 30), "standard")
		seedPeriod(t, db, companyID, "ADJ/2025", date(2025, 1, 1), date(2025, 3, 31), "adjustment")
		seedPeriod(t, db, uuid.New(), "01/2025", date(2025, 1, 1), date(2025, 1, 31), "standard")

		periods, err := svc.StandardPeriodsBetween(ctx, companyID, date(2025, 1, 1), date(2025, 3, 31))
		require.NoError(t, err)
		require.Len(t, periods, 3)
		assert.Equal(t, jan, periods[0].ID)
		assert.Equal(t, feb, periods[1].ID)
		assert.Equal(t, mar, periods[2].ID)
	})

	t.Run("returns empty slice when no period matches", func(t *testing.T) {
		periods, err := svc.StandardPeriodsBetween(ctx, uuid.New(), date(2025, 1, 1), date(2025, 3, 31))

		assert.NoError(t, err)
		assert.Empty(t, periods)
	})
}

func TestGormLedgerService_AggregateTaxCodes(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := NewGormLedgerService(db)
	ctx := context.Background()

	t.Run("sums signed amounts per tax code over the periods", func(t *testing.T) {
		companyID := uuid.New()
		period := seedPeriod(t, db, companyID, "1T/2025", date(2025, 1, 1), date(2025, 3, 31), "standard")
		otherPeriod := seedPeriod(t, db, companyID, "2T/2025", date(2025, 4, 1), date(2025, 6, 30), "standard")
		base := seedTaxCode(t, db, companyID, nil, "E21B")
		tax := seedTaxCode(t, db, companyID, nil, "E21C")

		seedTaxLine(t, db, base, period, "base", "150.00")
		seedTaxLine(t, db, base, period, "base", "120.00")
		seedTaxLine(t, db, base, period, "base", "-30.00")
		seedTaxLine(t, db, tax, period, "tax", "50.40")
		seedTaxLine(t, db, base, otherPeriod, "base", "999.00")

		amounts, err := svc.AggregateTaxCodes(ctx, []uuid.UUID{base, tax}, []uuid.UUID{period})
		require.NoError(t, err)
		require.Len(t, amounts, 2)
		assert.True(t, amounts[base].Equal(decimal.RequireFromString("240.00")), "got %s", amounts[base])
		assert.True(t, amounts[tax].Equal(decimal.RequireFromString("50.40")), "got %s", amounts[tax])
	})

	t.Run("returns empty map for empty inputs", func(t *testing.T) {
		amounts, err := svc.AggregateTaxCodes(ctx, nil, []uuid.UUID{uuid.New()})

		assert.NoError(t, err)
		assert.Empty(t, amounts)
	})
}

func TestGormLedgerService_LeafTaxCodes(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := NewGormLedgerService(db)
	ctx := context.Background()

	t.Run("descends the tree and returns childless nodes", func(t *testing.T) {
		companyID := uuid.New()
		root := seedTaxCode(t, db, companyID, nil, "IVA")
		branch := seedTaxCode(t, db, companyID, &root, "IVA.DEV")
		leafA := seedTaxCode(t, db, companyID, &branch, "IVA.DEV.21")
		leafB := seedTaxCode(t, db, companyID, &branch, "IVA.DEV.10")
		leafC := seedTaxCode(t, db, companyID, &root, "IVA.SOP")

		leaves, err := svc.LeafTaxCodes(ctx, root)
		require.NoError(t, err)

		ids := make([]uuid.UUID, len(leaves))
		for i, leaf := range leaves {
			ids[i] = leaf.ID
		}
		assert.ElementsMatch(t, []uuid.UUID{leafA, leafB, leafC}, ids)
	})

	t.Run("a root without children is itself a leaf", func(t *testing.T) {
		companyID := uuid.New()
		root := seedTaxCode(t, db, companyID, nil, "SOLO")

		leaves, err := svc.LeafTaxCodes(ctx, root)
		require.NoError(t, err)
		require.Len(t, leaves, 1)
		assert.Equal(t, root, leaves[0].ID)
	})

	t.Run("returns ErrNotFound for unknown root", func(t *testing.T) {
		_, err := svc.LeafTaxCodes(ctx, uuid.New())

		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormLedgerService_TaxLines(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := NewGormLedgerService(db)
	ctx := context.Background()

	t.Run("filters by tax code, period and kind", func(t *testing.T) {
		companyID := uuid.New()
		period := seedPeriod(t, db, companyID, "1T/2025", date(2025, 1, 1), date(2025, 3, 31), "standard")
		code := seedTaxCode(t, db, companyID, nil, "E21C")

		seedTaxLine(t, db, code, period, "tax", "50.40")
		seedTaxLine(t, db, code, period, "base", "240.00")

		lines, err := svc.TaxLines(ctx, code, []uuid.UUID{period}, declaration.TaxLineTax)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, declaration.TaxLineTax, lines[0].Kind)
		assert.Equal(t, code, lines[0].TaxCodeID)
	})
}

func TestGormMoveService_Create(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := NewGormMoveService(db)
	ctx := context.Background()

	t.Run("inserts a draft move with its lines", func(t *testing.T) {
		move := &declaration.AccountingMove{
			ID:          uuid.New(),
			CompanyID:   uuid.New(),
			JournalID:   uuid.New(),
			PeriodID:    uuid.New(),
			Date:        date(2025, 3, 31),
			Description: "Regularización IVA 1T/2025",
			Lines: []declaration.MoveLine{
				{AccountID: uuid.New(), Debit: decimal.RequireFromString("50.40")},
				{AccountID: uuid.New(), Credit: decimal.RequireFromString("50.40")},
			},
		}

		err := svc.Create(ctx, move)
		require.NoError(t, err)

		var row MoveRow
		require.NoError(t, db.First(&row, "id = ?", move.ID).Error)
		assert.Equal(t, "draft", row.State)
		assert.Equal(t, "Regularización IVA 1T/2025", row.Description)

		var lines []MoveLineRow
		require.NoError(t, db.Where("move_id = ?", move.ID).Find(&lines).Error)
		assert.Len(t, lines, 2)
	})
}

func TestGormMoveService_PostAndDraft(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := NewGormMoveService(db)
	ctx := context.Background()

	move := &declaration.AccountingMove{
		ID: uuid.New(), CompanyID: uuid.New(), JournalID: uuid.New(),
		PeriodID: uuid.New(), Date: date(2025, 3, 31),
	}
	require.NoError(t, svc.Create(ctx, move))

	t.Run("posts the move", func(t *testing.T) {
		require.NoError(t, svc.Post(ctx, move.ID))

		var row MoveRow
		require.NoError(t, db.First(&row, "id = ?", move.ID).Error)
		assert.Equal(t, "posted", row.State)
	})

	t.Run("returns it to draft", func(t *testing.T) {
		require.NoError(t, svc.Draft(ctx, move.ID))

		var row MoveRow
		require.NoError(t, db.First(&row, "id = ?", move.ID).Error)
		assert.Equal(t, "draft", row.State)
	})

	t.Run("no-ops on empty ID list", func(t *testing.T) {
		assert.NoError(t, svc.Post(ctx))
	})
}

func TestGormMoveService_Delete(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := NewGormMoveService(db)
	ctx := context.Background()

	t.Run("removes the move and its lines", func(t *testing.T) {
		move := &declaration.AccountingMove{
			ID: uuid.New(), CompanyID: uuid.New(), JournalID: uuid.New(),
			PeriodID: uuid.New(), Date: date(2025, 3, 31),
			Lines: []declaration.MoveLine{{AccountID: uuid.New(), Debit: decimal.New(100, 0)}},
		}
		require.NoError(t, svc.Create(ctx, move))

		err := svc.Delete(ctx, move.ID)
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&MoveRow{}).Where("id = ?", move.ID).Count(&count).Error)
		assert.Equal(t, int64(0), count)
		require.NoError(t, db.Model(&MoveLineRow{}).Where("move_id = ?", move.ID).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}

func TestGormMoveService_HasReconciledLines(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := NewGormMoveService(db)
	ctx := context.Background()

	t.Run("detects a reconciled line", func(t *testing.T) {
		move := &declaration.AccountingMove{
			ID: uuid.New(), CompanyID: uuid.New(), JournalID: uuid.New(),
			PeriodID: uuid.New(), Date: date(2025, 3, 31),
			Lines: []declaration.MoveLine{{AccountID: uuid.New(), Credit: decimal.New(50, 0)}},
		}
		require.NoError(t, svc.Create(ctx, move))

		reconciled, err := svc.HasReconciledLines(ctx, move.ID)
		require.NoError(t, err)
		assert.False(t, reconciled)

		reconciliationID := uuid.New()
		require.NoError(t, db.Model(&MoveLineRow{}).
			Where("move_id = ?", move.ID).
			Update("reconciliation_id", reconciliationID).Error)

		reconciled, err = svc.HasReconciledLines(ctx, move.ID)
		require.NoError(t, err)
		assert.True(t, reconciled)
	})
}

func TestGormMoveService_ClosePeriods(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := NewGormMoveService(db)
	ctx := context.Background()

	t.Run("closes the periods", func(t *testing.T) {
		companyID := uuid.New()
		periodID := seedPeriod(t, db, companyID, "1T/2025", date(2025, 1, 1), date(2025, 3, 31), "standard")

		require.NoError(t, svc.ClosePeriods(ctx, []uuid.UUID{periodID}))

		var row Period
		require.NoError(t, db.First(&row, "id = ?", periodID).Error)
		assert.Equal(t, "closed", row.State)
	})

	t.Run("no-ops on empty period list", func(t *testing.T) {
		assert.NoError(t, svc.ClosePeriods(ctx, nil))
	})
}

func TestGormLedgerService_InterfaceCompliance(t *testing.T) {
	t.Run("implements the ledger and move ports", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		var _ declaration.LedgerService = NewGormLedgerService(db)
		var _ declaration.MoveService = NewGormMoveService(db)
	})
}
