package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Period is an accounting period row of the general ledger
type Period struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(50);not null"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	Type      string    `gorm:"type:varchar(20);not null;default:'standard'"` // standard, adjustment
	State     string    `gorm:"type:varchar(20);not null;default:'open'"`     // open, closed
}

// TableName returns the table name for GORM
func (Period) TableName() string {
	return "accounting_periods"
}

// TaxCodeRow is a node of the hierarchical tax-code tree
type TaxCodeRow struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	CompanyID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index"`
	Code      string     `gorm:"type:varchar(100);not null"`
	Name      string     `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (TaxCodeRow) TableName() string {
	return "tax_codes"
}

// TaxLineRow is one ledger tax line. Amount carries the signed contribution
// to the tax code total; debit and credit mirror the journal line feeding it.
type TaxLineRow struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	TaxCodeID uuid.UUID       `gorm:"type:uuid;not null;index"`
	PeriodID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind      string          `gorm:"type:varchar(10);not null"` // base, tax
	AccountID uuid.UUID       `gorm:"type:uuid;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Debit     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Credit    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (TaxLineRow) TableName() string {
	return "tax_lines"
}

// MoveRow is a journal entry header
type MoveRow struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	JournalID   uuid.UUID `gorm:"type:uuid;not null"`
	PeriodID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Date        time.Time `gorm:"not null"`
	Description string    `gorm:"type:varchar(200)"`
	State       string    `gorm:"type:varchar(20);not null;default:'draft'"` // draft, posted
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (MoveRow) TableName() string {
	return "account_moves"
}

// MoveLineRow is one balanced-entry line of a journal entry
type MoveLineRow struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	MoveID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Debit            decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Credit           decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Description      string          `gorm:"type:varchar(200)"`
	ReconciliationID *uuid.UUID      `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (MoveLineRow) TableName() string {
	return "account_move_lines"
}
