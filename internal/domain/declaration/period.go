package declaration

import (
	"context"
	"fmt"
	"time"

	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Period codes accepted on a declaration: quarters 1T-4T or months 01-12
var validPeriods = map[string]bool{
	"1T": true, "2T": true, "3T": true, "4T": true,
	"01": true, "02": true, "03": true, "04": true, "05": true, "06": true,
	"07": true, "08": true, "09": true, "10": true, "11": true, "12": true,
}

// IsValidPeriod reports whether code is a known period code
func IsValidPeriod(code string) bool {
	return validPeriods[code]
}

// IsYearEndPeriod reports whether code is the last period of the year, the
// only one carrying annual-summary obligations
func IsYearEndPeriod(code string) bool {
	return code == "4T" || code == "12"
}

// PeriodWindow computes the [start, end] date range covered by a period code.
// Quarter codes span 3 months, month codes 1 month; the end day comes from
// the calendar month length (leap years included).
func PeriodWindow(year int, code string) (time.Time, time.Time, error) {
	if !IsValidPeriod(code) {
		return time.Time{}, time.Time{}, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Unknown period code %q", code))
	}
	var startMonth, endMonth int
	if code[1] == 'T' {
		quarter := int(code[0] - '0')
		startMonth = (quarter-1)*3 + 1
		endMonth = startMonth + 2
	} else {
		startMonth = int(code[0]-'0')*10 + int(code[1]-'0')
		endMonth = startMonth
	}
	start := time.Date(year, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	lastDay := daysInMonth(year, endMonth)
	end := time.Date(year, time.Month(endMonth), lastDay, 0, 0, 0, 0, time.UTC)
	return start, end, nil
}

func daysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this month
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// PeriodResolver turns a (year, period code) pair into the matching standard
// accounting periods of a company
type PeriodResolver struct {
	ledger LedgerService
}

// NewPeriodResolver creates a PeriodResolver on top of the ledger port
func NewPeriodResolver(ledger LedgerService) *PeriodResolver {
	return &PeriodResolver{ledger: ledger}
}

// Resolve returns the standard periods inside the declaration window, ordered
// by end date. An empty result is tolerated: aggregation over no periods
// yields zero.
func (r *PeriodResolver) Resolve(ctx context.Context, companyID uuid.UUID, year int, code string) ([]AccountingPeriod, error) {
	start, end, err := PeriodWindow(year, code)
	if err != nil {
		return nil, err
	}
	return r.ledger.StandardPeriodsBetween(ctx, companyID, start, end)
}

// ResolveYear returns the standard periods of the full calendar year, used by
// the annual-exoneration aggregation and the year-end prorata regularization
func (r *PeriodResolver) ResolveYear(ctx context.Context, companyID uuid.UUID, year int) ([]AccountingPeriod, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return r.ledger.StandardPeriodsBetween(ctx, companyID, start, end)
}

// PeriodIDs extracts the identifiers of a resolved period list
func PeriodIDs(periods []AccountingPeriod) []uuid.UUID {
	ids := make([]uuid.UUID, len(periods))
	for i, p := range periods {
		ids[i] = p.ID
	}
	return ids
}
