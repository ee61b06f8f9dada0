package declaration

import (
	"fmt"
	"strings"
	"time"

	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State is the workflow state of a declaration report
type State string

const (
	StateDraft      State = "draft"
	StateCalculated State = "calculated"
	StateDone       State = "done"
	StateCancelled  State = "cancelled"
)

// DeclarationType is the government declaration type code
type DeclarationType string

const (
	TypeCompensation     DeclarationType = "C" // Application for compensation
	TypeReturn           DeclarationType = "D" // Return
	TypeRevenue          DeclarationType = "G" // Current account tax, revenue
	TypeIncome           DeclarationType = "I" // Income
	TypeNoActivity       DeclarationType = "N" // No activity / zero result
	TypeReturns          DeclarationType = "V" // Current account tax, returns
	TypeDirectIncome     DeclarationType = "U" // Direct income in account
	TypeForeignTransfer  DeclarationType = "X" // Return by transfer to foreign account
)

// IsValid reports whether the declaration type is known
func (t DeclarationType) IsValid() bool {
	switch t {
	case TypeCompensation, TypeReturn, TypeRevenue, TypeIncome,
		TypeNoActivity, TypeReturns, TypeDirectIncome, TypeForeignTransfer:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Report is one model 303 declaration instance per (company, year, period).
// Declaration boxes live in the Fields container; header, banking and
// workflow data are columns.
type Report struct {
	shared.CompanyAggregateRoot
	CompanyName string `gorm:"type:varchar(200);not null"`
	CompanyVAT  string `gorm:"type:varchar(20);not null"`
	Currency    string `gorm:"type:varchar(3);not null;default:'EUR'"`

	Type       DeclarationType `gorm:"type:varchar(1);not null"`
	RegimeType string          `gorm:"type:varchar(1);not null;default:'3'"` // General regime only
	Year       int             `gorm:"not null;index:idx_report_year_period"`
	Period     string          `gorm:"type:varchar(2);not null;index:idx_report_year_period"`

	PassiveSubjectForal       string     `gorm:"type:varchar(1);not null;default:'2'"`
	PassiveSubjectSII         string     `gorm:"type:varchar(1);not null;default:'2'"`
	MonthlyReturnSubscription bool       `gorm:"not null;default:false"`
	JointLiquidation          bool       `gorm:"not null;default:false"`
	Recc                      bool       `gorm:"not null;default:false"`
	ReccReceiver              bool       `gorm:"not null;default:false"`
	SpecialProrate            bool       `gorm:"not null;default:false"`
	SpecialProrateRevocation  bool       `gorm:"not null;default:false"`
	AutoBankruptcyDeclaration string     `gorm:"type:varchar(1);not null;default:' '"`
	AutoBankruptcyDate        *time.Time
	ExoneratedMod390          string `gorm:"type:varchar(1);not null;default:'0'"`
	AnnualOperationVolume     string `gorm:"type:varchar(1);not null;default:'0'"`
	WithoutActivity           bool   `gorm:"not null;default:false"`

	ComplementaryDeclaration   bool   `gorm:"not null;default:false"`
	PreviousDeclarationReceipt string `gorm:"type:varchar(13)"`

	// Banking / return data
	BankAccountIBAN       string `gorm:"type:varchar(34)"`
	ReturnSepaCheck       string `gorm:"type:varchar(1);not null;default:'0'"`
	SwiftBank             string `gorm:"type:varchar(11)"`
	ReturnBankName        string `gorm:"type:varchar(100)"`
	ReturnBankAddress     string `gorm:"type:varchar(150)"`
	ReturnBankCity        string `gorm:"type:varchar(50)"`
	ReturnBankCountryCode string `gorm:"type:varchar(2)"`

	Fields FieldSet `gorm:"type:jsonb"`

	State           State      `gorm:"type:varchar(20);not null;default:'draft';index"`
	CalculationDate *time.Time
	File            []byte `gorm:"type:bytea"`

	MoveID           *uuid.UUID `gorm:"type:uuid"`
	PreviousReportID *uuid.UUID `gorm:"type:uuid"`
	PostAndClose     bool       `gorm:"not null;default:false"`
	MoveAccountID    *uuid.UUID `gorm:"type:uuid"`
	MoveJournalID    *uuid.UUID `gorm:"type:uuid"`
	MoveDescription  string     `gorm:"type:varchar(200)"`

	// Prorata snapshot captured when a calculation overwrites the company
	// prorata configuration, restored on cancel
	PriorProrataPercent *int64
	PriorProrataYear    *int
}

// TableName returns the table name for GORM
func (Report) TableName() string {
	return "aeat303_reports"
}

// NewReport creates a draft declaration with the statutory defaults
func NewReport(companyID uuid.UUID, companyName, companyVAT string, declType DeclarationType, year int, period string) (*Report, error) {
	if !declType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", fmt.Sprintf("Unknown declaration type %q", declType))
	}
	if year < 1000 || year > 9999 {
		return nil, shared.NewDomainError("INVALID_YEAR", "Year must be a four digit number")
	}
	if !IsValidPeriod(period) {
		return nil, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Unknown period code %q", period))
	}
	r := &Report{
		CompanyAggregateRoot:      shared.NewCompanyAggregateRoot(companyID),
		CompanyName:               companyName,
		CompanyVAT:                companyVAT,
		Currency:                  "EUR",
		Type:                      declType,
		RegimeType:                "3",
		Year:                      year,
		Period:                    period,
		PassiveSubjectForal:       "2",
		PassiveSubjectSII:         "2",
		AutoBankruptcyDeclaration: " ",
		ReturnSepaCheck:           "0",
		ExoneratedMod390:          "0",
		AnnualOperationVolume:     "0",
		Fields:                    NewFieldSet(),
		State:                     StateDraft,
	}
	r.NormalizeExonerated()
	r.AddDomainEvent(NewReportCreatedEvent(r))
	return r, nil
}

// IsYearEnd reports whether this declaration covers the year's last period
func (r *Report) IsYearEnd() bool {
	return IsYearEndPeriod(r.Period)
}

// ApplyOldTax reports whether the declaration predates the surcharge
// rate-change cutover (Q4 2024)
func (r *Report) ApplyOldTax() bool {
	if r.Year < 2024 {
		return true
	}
	if r.Year == 2024 {
		switch r.Period {
		case "4T", "10", "11", "12":
			return false
		}
		return true
	}
	return false
}

// Filename is the name of the generated declaration file
func (r *Report) Filename() string {
	return fmt.Sprintf("aeat303-%d-%s.txt", r.Year, r.Period)
}

// NormalizeExonerated enforces the period-dependent defaults of the model 390
// exoneration flags: blank outside year-end periods, defaulted to "no" on
// year-end periods, and the operation-volume flag only alive under
// exoneration.
func (r *Report) NormalizeExonerated() {
	if r.IsYearEnd() {
		if r.ExoneratedMod390 == "0" {
			r.ExoneratedMod390 = "2"
		}
	} else {
		r.ExoneratedMod390 = "0"
	}
	if r.ExoneratedMod390 != "1" {
		r.AnnualOperationVolume = "0"
	}
}

// DeriveSepaCheck classifies the refund payment route from the bank
// account: a type D return paid to a Spanish IBAN goes through the SEPA
// scheme. Foreign transfers (type X) keep the operator-entered bank data.
func (r *Report) DeriveSepaCheck() {
	if r.Type == TypeReturn && strings.HasPrefix(r.BankAccountIBAN, "ES") {
		r.ReturnSepaCheck = "1"
	}
}

// SetPreviousReport links the prior declaration and pulls its pending
// compensation carry-forward
func (r *Report) SetPreviousReport(previous *Report) error {
	if r.State == StateDone {
		return shared.NewDomainError("INVALID_STATE", "Cannot change a processed declaration")
	}
	if previous == nil {
		r.PreviousReportID = nil
		return r.Fields.SetAmount(Form303Schema, "previous_period_pending_amount_to_compensate", decimal.Zero)
	}
	id := previous.ID
	r.PreviousReportID = &id
	return r.Fields.SetAmount(Form303Schema,
		"previous_period_pending_amount_to_compensate",
		previous.ResultPreviousPeriodAmountToCompensate())
}

// CapPreviousPeriodCompensation limits the compensation claimed this period
// to min(positive liability, pending carry-forward)
func (r *Report) CapPreviousPeriodCompensation() error {
	liability := r.StateAdministrationAmount().Add(r.Fields.Amount("aduana_tax_pending"))
	pending := r.Fields.Amount("previous_period_pending_amount_to_compensate")
	if liability.IsPositive() && !pending.IsZero() {
		claim := decimal.Min(liability, pending)
		return r.Fields.SetAmount(Form303Schema, "previous_period_amount_to_compensate", claim)
	}
	return nil
}

// Derived boxes. Pure functions over the populated field set, evaluated on
// every read; the arithmetic is fixed by tax law.

// AccruedTotalTax is the total accrued VAT: every rate bracket plus
// surcharges, intracommunity/other-subject acquisitions and modifications
func (r *Report) AccruedTotalTax() decimal.Decimal {
	sum := decimal.Zero
	for _, name := range []string{
		"accrued_vat_tax_0", "accrued_vat_tax_1", "accrued_vat_tax_2",
		"accrued_vat_tax_3", "accrued_vat_tax_4", "accrued_vat_tax_5",
		"intracommunity_adquisitions_tax", "other_passive_subject_tax",
		"accrued_vat_tax_modification",
		"accrued_re_tax_1", "accrued_re_tax_2", "accrued_re_tax_3",
		"accrued_re_tax_4", "accrued_re_tax_5",
		"accrued_re_tax_modification",
	} {
		sum = sum.Add(r.Fields.Amount(name))
	}
	return sum
}

// DeductibleTotal is the sum of every deductible tax category
func (r *Report) DeductibleTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, name := range []string{
		"deductible_current_domestic_operations_tax",
		"deductible_investment_domestic_operations_tax",
		"deductible_current_import_operations_tax",
		"deductible_investment_import_operations_tax",
		"deductible_current_intracommunity_operations_tax",
		"deductible_investment_intracommunity_operations_tax",
		"deductible_regularization_tax",
		"deductible_compensations",
		"deductible_investment_regularization",
		"deductible_pro_rata_regularization",
	} {
		sum = sum.Add(r.Fields.Amount(name))
	}
	return sum
}

// GeneralRegimeResult is accrued total minus deductible total
func (r *Report) GeneralRegimeResult() decimal.Decimal {
	return r.AccruedTotalTax().Sub(r.DeductibleTotal())
}

// SumResults adds the art. 80.cinco.5a regularization to the general regime
// result. The simplified regime is not supported, so its box does not enter.
func (r *Report) SumResults() decimal.Decimal {
	return r.GeneralRegimeResult().Add(r.Fields.Amount("result_tax_regularitzation"))
}

// StateAdministrationAmount is the state share of the general regime result
func (r *Report) StateAdministrationAmount() decimal.Decimal {
	return r.GeneralRegimeResult().
		Mul(r.Fields.Amount("state_administration_percent")).
		Div(hundred)
}

// ResultPreviousPeriodAmountToCompensate is the carry-forward left for the
// next period
func (r *Report) ResultPreviousPeriodAmountToCompensate() decimal.Decimal {
	return r.Fields.Amount("previous_period_pending_amount_to_compensate").
		Sub(r.Fields.Amount("previous_period_amount_to_compensate"))
}

// Result is the liquidation result before deductions from prior declarations
func (r *Report) Result() decimal.Decimal {
	return r.StateAdministrationAmount().
		Add(r.Fields.Amount("aduana_tax_pending")).
		Sub(r.Fields.Amount("previous_period_amount_to_compensate")).
		Add(r.Fields.Amount("joint_taxation_state_provincial_councils")).
		Add(r.Fields.Amount("complementary_declaration_other_adjustements"))
}

// LiquidationResult is the final amount to pay (positive) or refund
// (negative)
func (r *Report) LiquidationResult() decimal.Decimal {
	return r.Result().
		Sub(r.Fields.Amount("to_deduce")).
		Add(r.Fields.Amount("before_result"))
}

// TotalOperationsVolume is the page 4 annual operations volume
func (r *Report) TotalOperationsVolume() decimal.Decimal {
	sum := decimal.Zero
	for _, name := range []string{
		"special_info_rg_operations",
		"special_info_recc",
		"special_info_intracommunity_deliveries_2bdeduced",
		"special_info_exempt_op_2bdeduced",
		"special_info_exempt_op_wo_permission_2bdeduced",
		"special_info_w_passive_subject",
		"annual_subject_operations_w_reverse_charge",
		"annual_oss_not_subject_operations",
		"annual_oss_subject_operations",
		"annual_intragroup_transaction",
		"special_info_operations_rs",
		"special_info_farming_cattleraising_fishing",
		"special_info_passive_subject_re",
		"special_info_art_antiques_collectibles",
		"special_info_travel_agency",
	} {
		sum = sum.Add(r.Fields.Amount(name))
	}
	return sum.
		Sub(r.Fields.Amount("special_info_financial_op_not_usual")).
		Sub(r.Fields.Amount("special_info_delivery_investment_domestic_operations"))
}

// Validate runs the cross-field consistency checks enforced before every
// persist. Violations abort the save; nothing is auto-corrected.
func (r *Report) Validate() error {
	if err := r.checkEuro(); err != nil {
		return err
	}
	if err := r.checkCompensate(); err != nil {
		return err
	}
	if err := r.checkType(); err != nil {
		return err
	}
	if err := r.checkSepaCheck(); err != nil {
		return err
	}
	if err := r.checkExoneratedMod390(); err != nil {
		return err
	}
	if err := r.checkAnnualOperationVolume(); err != nil {
		return err
	}
	return r.checkProrataPercents()
}

func (r *Report) checkEuro() error {
	if r.Currency != "EUR" {
		return shared.NewDomainError("INVALID_CURRENCY", fmt.Sprintf("Declaration %s requires the company currency to be EUR", r.Filename()))
	}
	return nil
}

func (r *Report) checkCompensate() error {
	liability := r.StateAdministrationAmount().Add(r.Fields.Amount("aduana_tax_pending"))
	claimed := r.Fields.Amount("previous_period_amount_to_compensate")
	if liability.LessThanOrEqual(decimal.Zero) && !claimed.IsZero() {
		return shared.NewDomainError("INVALID_COMPENSATE", "No compensation may be claimed without a positive liability")
	}
	if liability.IsPositive() && claimed.GreaterThan(liability) {
		return shared.NewDomainError("INVALID_COMPENSATE", "Claimed compensation exceeds the period liability")
	}
	return nil
}

var typeXPeriods = map[string]bool{
	"3T": true, "4T": true,
	"07": true, "08": true, "09": true, "10": true, "11": true, "12": true,
}

func (r *Report) checkType() error {
	if r.Type == TypeForeignTransfer && !typeXPeriods[r.Period] {
		return shared.NewDomainError("INVALID_TYPE_PERIOD", fmt.Sprintf("Declaration type X is not allowed for period %s", r.Period))
	}
	return nil
}

func (r *Report) checkSepaCheck() error {
	if (r.Type == TypeReturn || r.Type == TypeForeignTransfer) && r.ReturnSepaCheck == "0" {
		return shared.NewDomainError("INVALID_SEPA_CHECK", "A SEPA bank check classification is required for return declarations")
	}
	return nil
}

func (r *Report) checkExoneratedMod390() error {
	if !r.IsYearEnd() && r.ExoneratedMod390 != "0" {
		return shared.NewDomainError("INVALID_EXONERATED_MOD390", "Model 390 exoneration only applies to the year's last period")
	}
	if r.IsYearEnd() && r.ExoneratedMod390 == "0" {
		return shared.NewDomainError("INVALID_EXONERATED_MOD390", "Model 390 exoneration must be set on the year's last period")
	}
	return nil
}

func (r *Report) checkAnnualOperationVolume() error {
	if !r.IsYearEnd() && r.AnnualOperationVolume != "0" {
		return shared.NewDomainError("INVALID_ANNUAL_OPERATION_VOLUME", "The annual operation volume flag only applies to the year's last period")
	}
	if r.IsYearEnd() && r.ExoneratedMod390 == "1" && r.AnnualOperationVolume == "0" {
		return shared.NewDomainError("INVALID_ANNUAL_OPERATION_VOLUME", "The annual operation volume flag is required when exonerated from model 390")
	}
	return nil
}

func (r *Report) checkProrataPercents() error {
	for _, name := range []string{
		"prorrata_percent1", "prorrata_percent2", "prorrata_percent3",
		"prorrata_percent4", "prorrata_percent5",
	} {
		if r.Fields.Amount(name).GreaterThan(hundred) {
			return shared.NewDomainError("INVALID_PRORATA_PERCENT", fmt.Sprintf("Box %s cannot exceed 100.00", name))
		}
	}
	return nil
}

// State machine transitions. Side effects (file generation, move creation,
// prorata rollback) are orchestrated by the application service; the
// aggregate only admits legal transitions.

// MarkCalculated moves draft -> calculated and stamps the calculation time
func (r *Report) MarkCalculated(now time.Time) error {
	if r.State != StateDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot calculate a declaration in state %s", r.State))
	}
	r.State = StateCalculated
	r.CalculationDate = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	r.AddDomainEvent(NewReportCalculatedEvent(r))
	return nil
}

// MarkDone moves calculated -> done once the file has been generated
func (r *Report) MarkDone() error {
	if r.State != StateCalculated {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot process a declaration in state %s", r.State))
	}
	r.State = StateDone
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	r.AddDomainEvent(NewReportProcessedEvent(r))
	return nil
}

// MarkCancelled moves any non-cancelled state to cancelled
func (r *Report) MarkCancelled() error {
	if r.State == StateCancelled {
		return shared.NewDomainError("INVALID_STATE", "Declaration is already cancelled")
	}
	r.State = StateCancelled
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	r.AddDomainEvent(NewReportCancelledEvent(r))
	return nil
}

// MarkDraft reopens a calculated or cancelled declaration
func (r *Report) MarkDraft() error {
	if r.State != StateCalculated && r.State != StateCancelled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reopen a declaration in state %s", r.State))
	}
	r.State = StateDraft
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// AttachMove links the liquidation move created at process time
func (r *Report) AttachMove(moveID uuid.UUID) {
	r.MoveID = &moveID
	r.UpdatedAt = time.Now()
}

// DetachMove clears the move link on cancel
func (r *Report) DetachMove() {
	r.MoveID = nil
	r.UpdatedAt = time.Now()
}

// AttachFile stores the generated declaration file
func (r *Report) AttachFile(data []byte) {
	r.File = data
	r.UpdatedAt = time.Now()
}

// RecordProrataSnapshot captures the overwritten prorata configuration the
// first time a calculation mutates it; later recalculations keep the
// original snapshot so cancel restores the pre-report values.
func (r *Report) RecordProrataSnapshot(snapshot ProrataSnapshot) {
	if r.PriorProrataPercent != nil {
		return
	}
	pct := snapshot.Percent
	year := snapshot.FiscalYear
	r.PriorProrataPercent = &pct
	r.PriorProrataYear = &year
}

// TakeProrataSnapshot returns and clears the held snapshot, if any
func (r *Report) TakeProrataSnapshot() (ProrataSnapshot, bool) {
	if r.PriorProrataPercent == nil || r.PriorProrataYear == nil {
		return ProrataSnapshot{}, false
	}
	snapshot := ProrataSnapshot{Percent: *r.PriorProrataPercent, FiscalYear: *r.PriorProrataYear}
	r.PriorProrataPercent = nil
	r.PriorProrataYear = nil
	return snapshot, true
}
