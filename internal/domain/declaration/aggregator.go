package declaration

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Surcharge sub-rate keys matched against ledger tax code strings. The
// equivalence surcharge rates changed in Q4 2024; declarations before the
// cutover bucket into box group 1, later ones into box group 5.
var (
	oldSurchargeKeys = []string{"0.0", "0.5", "0.62"}
	newSurchargeKeys = []string{"0.26", "0.5"}

	fivePercent = decimal.NewFromInt(5)
)

// CalculationInput carries the company configuration a calculation runs on
type CalculationInput struct {
	Mappings        []TaxCodeMapping
	ProrataMappings []ProrataMapping
	ProrataConfig   *ProrataConfig
}

func (in CalculationInput) prorataActive() bool {
	return len(in.ProrataMappings) > 0 && in.ProrataConfig != nil
}

// Calculator populates the declaration boxes of a report from the ledger.
// It mutates the report fields and, when the year-end regularization rewrites
// the company prorata configuration, the config; state transitions and
// persistence stay with the caller.
type Calculator struct {
	ledger   LedgerService
	resolver *PeriodResolver
	prorata  *ProrataEngine
}

// NewCalculator creates a Calculator on top of the ledger port
func NewCalculator(ledger LedgerService) *Calculator {
	return &Calculator{
		ledger:   ledger,
		resolver: NewPeriodResolver(ledger),
		prorata:  NewProrataEngine(ledger),
	}
}

// Calculate runs the full aggregation pass for one report
func (c *Calculator) Calculate(ctx context.Context, report *Report, in CalculationInput) error {
	resolved, err := ResolveMappings(in.Mappings)
	if err != nil {
		return err
	}
	periods, err := c.resolver.Resolve(ctx, report.CompanyID, report.Year, report.Period)
	if err != nil {
		return err
	}
	periodIDs := PeriodIDs(periods)

	if err := c.reset(report, resolved); err != nil {
		return err
	}
	if err := c.aggregateCodes(ctx, report, resolved, in, periodIDs); err != nil {
		return err
	}
	if err := c.surchargePercents(ctx, report, resolved, periodIDs); err != nil {
		return err
	}
	if report.IsYearEnd() {
		if err := c.yearEnd(ctx, report, resolved, in); err != nil {
			return err
		}
	}
	return report.CapPreviousPeriodCompensation()
}

// reset zero-fills every ledger-fed box so a recalculation never inherits
// stale values, then writes the fixed numeric boxes
func (c *Calculator) reset(report *Report, resolved *ResolvedMappings) error {
	for _, field := range resolved.CodeFields {
		if err := report.Fields.SetAmount(Form303Schema, field, decimal.Zero); err != nil {
			return err
		}
		if twin := "preprorrata_" + field; Form303Schema.Has(twin) {
			if err := report.Fields.SetAmount(Form303Schema, twin, decimal.Zero); err != nil {
				return err
			}
		}
	}
	for _, field := range resolved.ExoneratedFields {
		if err := report.Fields.SetAmount(Form303Schema, field, decimal.Zero); err != nil {
			return err
		}
	}
	if err := report.Fields.SetAmount(Form303Schema, "deductible_pro_rata_regularization", decimal.Zero); err != nil {
		return err
	}
	for field, value := range resolved.NumericFields {
		if err := report.Fields.SetAmount(Form303Schema, field, value); err != nil {
			return err
		}
	}
	return nil
}

// aggregateCodes sums the ledger per tax code and accumulates into the
// mapped boxes. Boxes under prorata keep their raw aggregate in the
// pre-prorata twin and the scaled amount in the declared box.
func (c *Calculator) aggregateCodes(ctx context.Context, report *Report, resolved *ResolvedMappings, in CalculationInput, periodIDs []uuid.UUID) error {
	codeIDs := make([]uuid.UUID, 0, len(resolved.CodeFields))
	for id := range resolved.CodeFields {
		codeIDs = append(codeIDs, id)
	}
	amounts, err := c.ledger.AggregateTaxCodes(ctx, codeIDs, periodIDs)
	if err != nil {
		return err
	}
	scaled := make(map[string]bool)
	if in.prorataActive() {
		for i := range in.ProrataMappings {
			m := &in.ProrataMappings[i]
			if m.Role == ProrataDeductible && Form303Schema.Has("preprorrata_"+m.FieldName) {
				scaled[m.FieldName] = true
			}
		}
	}
	for codeID, field := range resolved.CodeFields {
		amount := amounts[codeID]
		if amount.IsZero() {
			continue
		}
		if scaled[field] {
			if err := report.Fields.AddAmount(Form303Schema, "preprorrata_"+field, amount); err != nil {
				return err
			}
			amount = ApplyProrata(amount, in.ProrataConfig.Percent)
		}
		if err := report.Fields.AddAmount(Form303Schema, field, amount); err != nil {
			return err
		}
	}
	return nil
}

// surchargePercents fills the equivalence surcharge percent boxes. The
// declared rate is the sub-rate carrying the largest base this period; the
// base boxes aggregate several sub-rates so the rate cannot be read off the
// mapping alone.
func (c *Calculator) surchargePercents(ctx context.Context, report *Report, resolved *ResolvedMappings, periodIDs []uuid.UUID) error {
	if report.ApplyOldTax() {
		winner, found, err := c.dominantSubRate(ctx, resolved, "accrued_re_base_1", oldSurchargeKeys, periodIDs)
		if err != nil {
			return err
		}
		if found {
			if err := report.Fields.SetAmount(Form303Schema, "accrued_re_percent_1", winner); err != nil {
				return err
			}
		}
		return report.Fields.SetAmount(Form303Schema, "accrued_vat_percent_4", fivePercent)
	}
	winner, found, err := c.dominantSubRate(ctx, resolved, "accrued_re_base_5", newSurchargeKeys, periodIDs)
	if err != nil {
		return err
	}
	if found {
		return report.Fields.SetAmount(Form303Schema, "accrued_re_percent_5", winner)
	}
	return nil
}

// dominantSubRate buckets the aggregate of the codes feeding a base box by
// the sub-rate key their code string carries and returns the key with the
// largest amount, lowest rate winning ties
func (c *Calculator) dominantSubRate(ctx context.Context, resolved *ResolvedMappings, baseField string, keys []string, periodIDs []uuid.UUID) (decimal.Decimal, bool, error) {
	var codeIDs []uuid.UUID
	for id, field := range resolved.CodeFields {
		if field == baseField {
			codeIDs = append(codeIDs, id)
		}
	}
	if len(codeIDs) == 0 {
		return decimal.Zero, false, nil
	}
	codes, err := c.ledger.TaxCodesByID(ctx, codeIDs)
	if err != nil {
		return decimal.Zero, false, err
	}
	amounts, err := c.ledger.AggregateTaxCodes(ctx, codeIDs, periodIDs)
	if err != nil {
		return decimal.Zero, false, err
	}
	buckets := make(map[string]decimal.Decimal, len(keys))
	for _, key := range keys {
		buckets[key] = decimal.Zero
	}
	for _, code := range codes {
		for _, key := range keys {
			if strings.Contains(code.Code, key) {
				buckets[key] = buckets[key].Add(amounts[code.ID])
				break
			}
		}
	}
	rates := make([]decimal.Decimal, 0, len(keys))
	for _, key := range keys {
		rates = append(rates, decimal.RequireFromString(key))
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].LessThan(rates[j]) })
	winner := rates[0]
	best := buckets[winner.String()]
	for _, rate := range rates[1:] {
		if amount := buckets[rate.String()]; amount.GreaterThan(best) {
			winner, best = rate, amount
		}
	}
	return winner, true, nil
}

// yearEnd runs the passes only the last period of the year carries: the
// annual-summary aggregation for companies exonerated from the model 390,
// and the prorata regularization against the exact year percentage
func (c *Calculator) yearEnd(ctx context.Context, report *Report, resolved *ResolvedMappings, in CalculationInput) error {
	yearPeriods, err := c.resolver.ResolveYear(ctx, report.CompanyID, report.Year)
	if err != nil {
		return err
	}
	yearPeriodIDs := PeriodIDs(yearPeriods)

	if len(resolved.ExoneratedFields) > 0 {
		codeIDs := make([]uuid.UUID, 0, len(resolved.ExoneratedFields))
		for id := range resolved.ExoneratedFields {
			codeIDs = append(codeIDs, id)
		}
		amounts, err := c.ledger.AggregateTaxCodes(ctx, codeIDs, yearPeriodIDs)
		if err != nil {
			return err
		}
		for codeID, field := range resolved.ExoneratedFields {
			if amount := amounts[codeID]; !amount.IsZero() {
				if err := report.Fields.AddAmount(Form303Schema, field, amount); err != nil {
					return err
				}
			}
		}
	}

	if !in.prorataActive() {
		return nil
	}
	used := in.ProrataConfig.Percent
	exact, err := c.prorata.Calculate(ctx, report.CompanyID, in.ProrataMappings, report.Year)
	if err != nil {
		return err
	}
	// regularization base: the year's raw deductible tax, before the
	// provisional proportion applied period by period
	scaled := make(map[string]bool)
	for i := range in.ProrataMappings {
		m := &in.ProrataMappings[i]
		if m.Role == ProrataDeductible {
			scaled[m.FieldName] = true
		}
	}
	var codeIDs []uuid.UUID
	for id, field := range resolved.CodeFields {
		if scaled[field] {
			codeIDs = append(codeIDs, id)
		}
	}
	amounts, err := c.ledger.AggregateTaxCodes(ctx, codeIDs, yearPeriodIDs)
	if err != nil {
		return err
	}
	yearDeductible := decimal.Zero
	for _, amount := range amounts {
		yearDeductible = yearDeductible.Add(amount)
	}
	regularization := ApplyProrata(yearDeductible, exact-used)
	if err := report.Fields.SetAmount(Form303Schema, "deductible_pro_rata_regularization", regularization); err != nil {
		return err
	}
	snapshot := in.ProrataConfig.Update(exact, report.Year)
	report.RecordProrataSnapshot(snapshot)
	return nil
}
