package declaration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountingPeriod is a ledger period as seen by this module
type AccountingPeriod struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	// Type distinguishes standard periods from adjustment periods
	Type string
}

// TaxCode is a node of the hierarchical ledger tax-code tree
type TaxCode struct {
	ID       uuid.UUID
	ParentID *uuid.UUID
	// Code is the descriptive code string; the transitional surcharge rule
	// buckets amounts by sub-rate keys contained in it
	Code      string
	Name      string
	CompanyID uuid.UUID
}

// TaxLineKind distinguishes base-amount from tax-amount ledger tax lines
type TaxLineKind string

const (
	TaxLineBase TaxLineKind = "base"
	TaxLineTax  TaxLineKind = "tax"
)

// TaxLine is one ledger tax line attached to a journal line
type TaxLine struct {
	ID        uuid.UUID
	TaxCodeID uuid.UUID
	Kind      TaxLineKind
	AccountID uuid.UUID
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// MoveLine is one balanced-entry line handed to the move subsystem
type MoveLine struct {
	AccountID   uuid.UUID
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// AccountingMove is the journal entry booking the declared liability
type AccountingMove struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	JournalID   uuid.UUID
	PeriodID    uuid.UUID
	Date        time.Time
	Description string
	Lines       []MoveLine
}

// LedgerService is the narrow read interface onto the general ledger.
// Aggregation is scoped by company implicitly through period ownership.
type LedgerService interface {
	// StandardPeriodsBetween returns the standard (non-adjustment) periods of
	// a company whose date range falls within [start, end], ordered by end
	// date ascending. An empty result is not an error.
	StandardPeriodsBetween(ctx context.Context, companyID uuid.UUID, start, end time.Time) ([]AccountingPeriod, error)
	// AggregateTaxCodes sums the ledger amount per tax code over the periods
	AggregateTaxCodes(ctx context.Context, taxCodeIDs []uuid.UUID, periodIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	// TaxCodesByID resolves tax-code nodes
	TaxCodesByID(ctx context.Context, ids []uuid.UUID) ([]TaxCode, error)
	// LeafTaxCodes descends the hierarchy under root and returns the nodes
	// without children
	LeafTaxCodes(ctx context.Context, rootID uuid.UUID) ([]TaxCode, error)
	// TaxLines returns the ledger tax lines of one tax code restricted to a
	// kind, over the given periods
	TaxLines(ctx context.Context, taxCodeID uuid.UUID, periodIDs []uuid.UUID, kind TaxLineKind) ([]TaxLine, error)
}

// MoveService is the narrow interface onto the journal posting subsystem
type MoveService interface {
	Create(ctx context.Context, move *AccountingMove) error
	Post(ctx context.Context, moveIDs ...uuid.UUID) error
	Draft(ctx context.Context, moveIDs ...uuid.UUID) error
	Delete(ctx context.Context, moveIDs ...uuid.UUID) error
	// HasReconciledLines reports whether any line of the move is reconciled
	HasReconciledLines(ctx context.Context, moveID uuid.UUID) (bool, error)
	ClosePeriods(ctx context.Context, periodIDs []uuid.UUID) error
}

// RecordWriter is the boundary to the fixed-width government record catalog.
// It receives, per physical record, the box values selected for that record
// and returns the encoded line, already normalized and in the target charset.
type RecordWriter interface {
	Write(record RecordType, fields map[string]string) ([]byte, error)
}
