package declaration

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeLedger is an in-memory LedgerService for domain tests. Amounts are
// keyed per period so year-end aggregations see different totals than the
// declaration window.
type fakeLedger struct {
	periods  []AccountingPeriod
	amounts  map[uuid.UUID]map[uuid.UUID]decimal.Decimal // period -> code -> amount
	codes    map[uuid.UUID]TaxCode
	leaves   map[uuid.UUID][]TaxCode
	taxLines map[uuid.UUID][]TaxLine

	taxLineQueries []uuid.UUID
}

func (f *fakeLedger) StandardPeriodsBetween(_ context.Context, companyID uuid.UUID, start, end time.Time) ([]AccountingPeriod, error) {
	var out []AccountingPeriod
	for _, p := range f.periods {
		if p.CompanyID != companyID || p.Type != "standard" {
			continue
		}
		if p.StartDate.Before(start) || p.EndDate.After(end) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (f *fakeLedger) AggregateTaxCodes(_ context.Context, taxCodeIDs []uuid.UUID, periodIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal)
	for _, periodID := range periodIDs {
		for _, codeID := range taxCodeIDs {
			if amount, ok := f.amounts[periodID][codeID]; ok {
				out[codeID] = out[codeID].Add(amount)
			}
		}
	}
	return out, nil
}

func (f *fakeLedger) TaxCodesByID(_ context.Context, ids []uuid.UUID) ([]TaxCode, error) {
	var out []TaxCode
	for _, id := range ids {
		if code, ok := f.codes[id]; ok {
			out = append(out, code)
		}
	}
	return out, nil
}

func (f *fakeLedger) LeafTaxCodes(_ context.Context, rootID uuid.UUID) ([]TaxCode, error) {
	if leaves, ok := f.leaves[rootID]; ok {
		return leaves, nil
	}
	if code, ok := f.codes[rootID]; ok {
		return []TaxCode{code}, nil
	}
	return nil, nil
}

func (f *fakeLedger) TaxLines(_ context.Context, taxCodeID uuid.UUID, _ []uuid.UUID, kind TaxLineKind) ([]TaxLine, error) {
	f.taxLineQueries = append(f.taxLineQueries, taxCodeID)
	var out []TaxLine
	for _, line := range f.taxLines[taxCodeID] {
		if line.Kind == kind {
			out = append(out, line)
		}
	}
	return out, nil
}

func (f *fakeLedger) setAmount(periodID, codeID uuid.UUID, amount decimal.Decimal) {
	if f.amounts == nil {
		f.amounts = make(map[uuid.UUID]map[uuid.UUID]decimal.Decimal)
	}
	if f.amounts[periodID] == nil {
		f.amounts[periodID] = make(map[uuid.UUID]decimal.Decimal)
	}
	f.amounts[periodID][codeID] = amount
}
