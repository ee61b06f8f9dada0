package declaration

import (
	"context"

	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProrataRole distinguishes the designated total mapping from deductible ones
type ProrataRole string

const (
	// ProrataDeductible codes feed the numerator of the deduction proportion
	ProrataDeductible ProrataRole = "deductible"
	// ProrataTotal codes feed the denominator
	ProrataTotal ProrataRole = "total"
)

// ProrataCodeLink joins a prorata mapping to one ledger tax code
type ProrataCodeLink struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	MappingID uuid.UUID `gorm:"type:uuid;not null;index"`
	TaxCodeID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (ProrataCodeLink) TableName() string {
	return "prorata_mapping_codes"
}

// ProrataMapping maps ledger tax codes onto the prorata computation for one
// company. The linked codes carry operation amounts: deductible mappings the
// operations giving the right to deduct, total mappings all operations.
type ProrataMapping struct {
	shared.BaseEntity
	CompanyID uuid.UUID   `gorm:"type:uuid;not null;index"`
	Role      ProrataRole `gorm:"type:varchar(20);not null"`
	// FieldName is the deductible declaration box the proportion scales;
	// empty for total mappings
	FieldName string            `gorm:"type:varchar(80)"`
	Codes     []ProrataCodeLink `gorm:"foreignKey:MappingID;references:ID"`
}

// TableName returns the table name for GORM
func (ProrataMapping) TableName() string {
	return "prorata_mappings"
}

// CodeIDs returns the linked ledger tax code IDs
func (m *ProrataMapping) CodeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(m.Codes))
	for i, link := range m.Codes {
		ids[i] = link.TaxCodeID
	}
	return ids
}

// ProrataConfig is the company-scoped prorata state: the percentage applied
// period by period and the reference fiscal year it was computed from
type ProrataConfig struct {
	shared.BaseEntity
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	Percent    int64      `gorm:"not null;default:0"`
	FiscalYear int        `gorm:"not null;default:0"`
	AccountID  *uuid.UUID `gorm:"type:uuid"` // Prorata expense account
}

// TableName returns the table name for GORM
func (ProrataConfig) TableName() string {
	return "prorata_configs"
}

// ProrataSnapshot is the (percent, fiscal year) pair overwritten by a
// mutation, returned so the caller can roll back on cancel
type ProrataSnapshot struct {
	Percent    int64
	FiscalYear int
}

// Update mutates the config and returns the overwritten values
func (c *ProrataConfig) Update(percent int64, fiscalYear int) ProrataSnapshot {
	prev := ProrataSnapshot{Percent: c.Percent, FiscalYear: c.FiscalYear}
	c.Percent = percent
	c.FiscalYear = fiscalYear
	return prev
}

// Restore puts back a previously captured snapshot
func (c *ProrataConfig) Restore(snapshot ProrataSnapshot) {
	c.Percent = snapshot.Percent
	c.FiscalYear = snapshot.FiscalYear
}

// ProrataPercentage computes the deduction proportion from the two aggregate
// sums: ceil(100 * deductible / total), an integer in [0, 100]. A zero total
// yields 0 rather than an error: no revenue means no deduction.
func ProrataPercentage(deductible, total decimal.Decimal) int64 {
	if total.IsZero() {
		return 0
	}
	pct := deductible.Mul(decimal.NewFromInt(100)).Div(total).Ceil().IntPart()
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ApplyProrata scales a deductible amount by a percentage
func ApplyProrata(amount decimal.Decimal, percent int64) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(percent)).Div(decimal.NewFromInt(100))
}

// ProrataEngine computes and applies the deduction proportion
type ProrataEngine struct {
	ledger   LedgerService
	resolver *PeriodResolver
}

// NewProrataEngine creates a ProrataEngine on top of the ledger port
func NewProrataEngine(ledger LedgerService) *ProrataEngine {
	return &ProrataEngine{ledger: ledger, resolver: NewPeriodResolver(ledger)}
}

// Calculate sums the deductible and total tax-code aggregates over all
// periods of the reference fiscal year and returns the resulting percentage
func (e *ProrataEngine) Calculate(ctx context.Context, companyID uuid.UUID, mappings []ProrataMapping, fiscalYear int) (int64, error) {
	periods, err := e.resolver.ResolveYear(ctx, companyID, fiscalYear)
	if err != nil {
		return 0, err
	}
	deductible, total, err := e.sums(ctx, mappings, PeriodIDs(periods))
	if err != nil {
		return 0, err
	}
	return ProrataPercentage(deductible, total), nil
}

func (e *ProrataEngine) sums(ctx context.Context, mappings []ProrataMapping, periodIDs []uuid.UUID) (deductible, total decimal.Decimal, err error) {
	for i := range mappings {
		m := &mappings[i]
		amounts, err := e.ledger.AggregateTaxCodes(ctx, m.CodeIDs(), periodIDs)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		var sum decimal.Decimal
		for _, amount := range amounts {
			sum = sum.Add(amount)
		}
		switch m.Role {
		case ProrataDeductible:
			deductible = deductible.Add(sum)
		case ProrataTotal:
			total = total.Add(sum)
		}
	}
	return deductible, total, nil
}
