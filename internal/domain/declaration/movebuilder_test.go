package declaration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveBuilder_Build(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	accountID := uuid.New()
	journalID := uuid.New()
	vatAccount := uuid.New()

	setup := func(t *testing.T) (*fakeLedger, *Report, []TaxCodeMapping, uuid.UUID) {
		t.Helper()
		ledger := &fakeLedger{}
		var periods []AccountingPeriod
		for month := time.January; month <= time.March; month++ {
			periods = append(periods, monthlyPeriod(companyID, 2025, month))
		}
		ledger.periods = periods

		leafCode := uuid.New()
		ledger.codes = map[uuid.UUID]TaxCode{
			leafCode: {ID: leafCode, Code: "IVA 21%", CompanyID: companyID},
		}
		ledger.setAmount(periods[0].ID, leafCode, decimal.RequireFromString("40.40"))

		mapping, err := NewTaxCodeMapping(companyID, "accrued_vat_tax_2", MappingCode)
		require.NoError(t, err)
		mapping.LinkCode(leafCode)
		numeric, err := NewTaxCodeMapping(companyID, "state_administration_percent", MappingNumeric)
		require.NoError(t, err)
		pct := decimal.NewFromInt(100)
		numeric.Number = &pct

		report, err := NewReport(companyID, "Dunder Mifflin SL", "B12345678", TypeIncome, 2025, "1T")
		require.NoError(t, err)
		report.MoveAccountID = &accountID
		report.MoveJournalID = &journalID
		return ledger, report, []TaxCodeMapping{*mapping, *numeric}, leafCode
	}

	t.Run("reverses the accrued tax balances and books the counterpart", func(t *testing.T) {
		ledger, report, mappings, leafCode := setup(t)
		ledger.taxLines = map[uuid.UUID][]TaxLine{
			leafCode: {
				{ID: uuid.New(), TaxCodeID: leafCode, Kind: TaxLineTax, AccountID: vatAccount, Credit: decimal.RequireFromString("50.40")},
				{ID: uuid.New(), TaxCodeID: leafCode, Kind: TaxLineTax, AccountID: vatAccount, Debit: decimal.RequireFromString("10.00")},
				// base lines never enter the move
				{ID: uuid.New(), TaxCodeID: leafCode, Kind: TaxLineBase, AccountID: vatAccount, Credit: decimal.RequireFromString("240.00")},
			},
		}
		setAmount(t, report, "accrued_vat_tax_2", "40.40")
		setAmount(t, report, "state_administration_percent", "100")

		move, err := NewMoveBuilder(ledger).Build(ctx, report, mappings)

		require.NoError(t, err)
		require.NotNil(t, move)
		assert.Equal(t, journalID, move.JournalID)
		assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), move.Date)
		require.Len(t, move.Lines, 2)

		// 50.40 credit swaps to debit, netted against the 10.00 debit
		reversal := move.Lines[0]
		assert.Equal(t, vatAccount, reversal.AccountID)
		assert.True(t, reversal.Debit.Equal(decimal.RequireFromString("40.40")))
		assert.True(t, reversal.Credit.IsZero())

		counterpart := move.Lines[1]
		assert.Equal(t, accountID, counterpart.AccountID)
		assert.True(t, counterpart.Credit.Equal(decimal.RequireFromString("40.40")))
		assert.True(t, counterpart.Debit.IsZero())
	})

	t.Run("negative liquidation books the counterpart as debit", func(t *testing.T) {
		ledger, report, mappings, leafCode := setup(t)
		ledger.taxLines = map[uuid.UUID][]TaxLine{
			leafCode: {
				{ID: uuid.New(), TaxCodeID: leafCode, Kind: TaxLineTax, AccountID: vatAccount, Debit: decimal.RequireFromString("30.00")},
			},
		}
		setAmount(t, report, "deductible_current_domestic_operations_tax", "30.00")
		setAmount(t, report, "state_administration_percent", "100")

		move, err := NewMoveBuilder(ledger).Build(ctx, report, mappings)

		require.NoError(t, err)
		require.NotNil(t, move)
		require.Len(t, move.Lines, 2)
		counterpart := move.Lines[1]
		assert.Equal(t, accountID, counterpart.AccountID)
		assert.True(t, counterpart.Debit.Equal(decimal.RequireFromString("30.00")))
		assert.True(t, counterpart.Credit.IsZero())
	})

	t.Run("balanced tax lines net to nothing", func(t *testing.T) {
		ledger, report, mappings, leafCode := setup(t)
		ledger.taxLines = map[uuid.UUID][]TaxLine{
			leafCode: {
				{ID: uuid.New(), TaxCodeID: leafCode, Kind: TaxLineTax, AccountID: vatAccount, Credit: decimal.RequireFromString("25.00")},
				{ID: uuid.New(), TaxCodeID: leafCode, Kind: TaxLineTax, AccountID: vatAccount, Debit: decimal.RequireFromString("25.00")},
			},
		}

		move, err := NewMoveBuilder(ledger).Build(ctx, report, mappings)

		require.NoError(t, err)
		assert.Nil(t, move, "zero result and no surviving lines")
	})

	t.Run("books nothing without a configured account and journal", func(t *testing.T) {
		ledger, report, mappings, _ := setup(t)
		report.MoveAccountID = nil
		setAmount(t, report, "accrued_vat_tax_3", "50.40")
		setAmount(t, report, "state_administration_percent", "100")

		move, err := NewMoveBuilder(ledger).Build(ctx, report, mappings)

		require.NoError(t, err)
		assert.Nil(t, move)
	})

	t.Run("books nothing when the mapped codes carry no tax lines", func(t *testing.T) {
		ledger, report, mappings, _ := setup(t)
		setAmount(t, report, "accrued_vat_tax_3", "50.40")
		setAmount(t, report, "state_administration_percent", "100")

		move, err := NewMoveBuilder(ledger).Build(ctx, report, mappings)

		require.NoError(t, err)
		assert.Nil(t, move, "a lone counterpart would be unbalanced")
	})

	t.Run("skips codes aggregating to zero over the declared periods", func(t *testing.T) {
		ledger, report, mappings, leafCode := setup(t)
		zeroCode := uuid.New()
		ledger.codes[zeroCode] = TaxCode{ID: zeroCode, Code: "IVA 10%", CompanyID: companyID}
		extra, err := NewTaxCodeMapping(companyID, "accrued_vat_tax_1", MappingCode)
		require.NoError(t, err)
		extra.LinkCode(zeroCode)
		ledger.taxLines = map[uuid.UUID][]TaxLine{
			leafCode: {
				{ID: uuid.New(), TaxCodeID: leafCode, Kind: TaxLineTax, AccountID: vatAccount, Credit: decimal.RequireFromString("40.40")},
			},
		}
		setAmount(t, report, "accrued_vat_tax_3", "40.40")
		setAmount(t, report, "state_administration_percent", "100")

		move, err := NewMoveBuilder(ledger).Build(ctx, report, append(mappings, *extra))

		require.NoError(t, err)
		require.NotNil(t, move)
		assert.Equal(t, []uuid.UUID{leafCode}, ledger.taxLineQueries)
	})

	t.Run("fails when no accounting period covers the declaration", func(t *testing.T) {
		ledger, report, mappings, _ := setup(t)
		ledger.periods = nil

		_, err := NewMoveBuilder(ledger).Build(ctx, report, mappings)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "No accounting periods")
	})
}
