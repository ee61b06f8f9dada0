package declaration

import (
	"context"
	"fmt"

	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoveBuilder assembles the journal entry that books the declared liability:
// one reversing line per (tax code, account) pair cancelling the accrued tax
// balances, plus a counterpart on the configured liquidation account.
type MoveBuilder struct {
	ledger   LedgerService
	resolver *PeriodResolver
}

// NewMoveBuilder creates a MoveBuilder on top of the ledger port
func NewMoveBuilder(ledger LedgerService) *MoveBuilder {
	return &MoveBuilder{ledger: ledger, resolver: NewPeriodResolver(ledger)}
}

// Build creates the unsaved liquidation move for a report. It returns
// (nil, nil) when there is nothing to book: no counterpart account and
// journal configured, or no tax lines behind the mapped codes.
func (b *MoveBuilder) Build(ctx context.Context, report *Report, mappings []TaxCodeMapping) (*AccountingMove, error) {
	if report.MoveAccountID == nil || report.MoveJournalID == nil {
		return nil, nil
	}
	periods, err := b.resolver.Resolve(ctx, report.CompanyID, report.Year, report.Period)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, shared.NewDomainError("PERIOD_NOT_FOUND", fmt.Sprintf("No accounting periods cover %d-%s", report.Year, report.Period))
	}
	periodIDs := PeriodIDs(periods)

	leaves, err := b.leafCodes(ctx, mappings)
	if err != nil {
		return nil, err
	}
	active, err := b.nonZeroCodes(ctx, leaves, periodIDs)
	if err != nil {
		return nil, err
	}
	lines, err := b.reversalLines(ctx, report, active, periodIDs)
	if err != nil {
		return nil, err
	}
	// the counterpart alone would be an unbalanced entry
	if len(lines) == 0 {
		return nil, nil
	}

	liquidation := report.LiquidationResult()
	counter := MoveLine{AccountID: *report.MoveAccountID, Description: b.description(report)}
	if liquidation.GreaterThanOrEqual(decimal.Zero) {
		counter.Credit = liquidation
	} else {
		counter.Debit = liquidation.Neg()
	}
	lines = append(lines, counter)

	last := periods[len(periods)-1]
	return &AccountingMove{
		ID:          uuid.New(),
		CompanyID:   report.CompanyID,
		JournalID:   *report.MoveJournalID,
		PeriodID:    last.ID,
		Date:        last.EndDate,
		Description: b.description(report),
		Lines:       lines,
	}, nil
}

func (b *MoveBuilder) description(report *Report) string {
	if report.MoveDescription != "" {
		return report.MoveDescription
	}
	return fmt.Sprintf("AEAT 303 %d-%s", report.Year, report.Period)
}

// leafCodes expands every mapped tax code tree down to its childless nodes.
// Tax lines hang off leaves only; aggregating parents would double-count.
func (b *MoveBuilder) leafCodes(ctx context.Context, mappings []TaxCodeMapping) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for i := range mappings {
		m := &mappings[i]
		if m.Kind != MappingCode {
			continue
		}
		for _, rootID := range m.CodeIDs() {
			leaves, err := b.ledger.LeafTaxCodes(ctx, rootID)
			if err != nil {
				return nil, err
			}
			for _, leaf := range leaves {
				if !seen[leaf.ID] {
					seen[leaf.ID] = true
					out = append(out, leaf.ID)
				}
			}
		}
	}
	return out, nil
}

// nonZeroCodes keeps the leaves that carry an amount over the declared
// periods; codes aggregating to zero have no balance to reverse
func (b *MoveBuilder) nonZeroCodes(ctx context.Context, leaves []uuid.UUID, periodIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(leaves) == 0 {
		return nil, nil
	}
	amounts, err := b.ledger.AggregateTaxCodes(ctx, leaves, periodIDs)
	if err != nil {
		return nil, err
	}
	var out []uuid.UUID
	for _, id := range leaves {
		if !amounts[id].IsZero() {
			out = append(out, id)
		}
	}
	return out, nil
}

// reversalLines sums the tax-kind ledger lines per (code, account), swaps
// debit and credit to cancel the accrual, and nets each line to one side.
// Lines netting to zero are dropped.
func (b *MoveBuilder) reversalLines(ctx context.Context, report *Report, leaves []uuid.UUID, periodIDs []uuid.UUID) ([]MoveLine, error) {
	var out []MoveLine
	for _, codeID := range leaves {
		taxLines, err := b.ledger.TaxLines(ctx, codeID, periodIDs, TaxLineTax)
		if err != nil {
			return nil, err
		}
		perAccount := make(map[uuid.UUID]*MoveLine)
		var order []uuid.UUID
		for _, tl := range taxLines {
			line, ok := perAccount[tl.AccountID]
			if !ok {
				line = &MoveLine{AccountID: tl.AccountID, Description: b.description(report)}
				perAccount[tl.AccountID] = line
				order = append(order, tl.AccountID)
			}
			// swap: the reversal books the tax line's credit as debit
			line.Debit = line.Debit.Add(tl.Credit)
			line.Credit = line.Credit.Add(tl.Debit)
		}
		for _, accountID := range order {
			line := perAccount[accountID]
			if line.Debit.GreaterThan(line.Credit) {
				line.Debit = line.Debit.Sub(line.Credit)
				line.Credit = decimal.Zero
			} else {
				line.Credit = line.Credit.Sub(line.Debit)
				line.Debit = decimal.Zero
			}
			if line.Debit.IsZero() && line.Credit.IsZero() {
				continue
			}
			out = append(out, *line)
		}
	}
	return out, nil
}
