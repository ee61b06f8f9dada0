package declaration

import (
	"context"
	"errors"
	"time"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportService drives the declaration lifecycle: create, calculate, process
// into a submission file plus liquidation move, and cancel.
type ReportService struct {
	reportRepo  declaration.ReportRepository
	mappingRepo declaration.MappingRepository
	prorataRepo declaration.ProrataRepository
	ledger      declaration.LedgerService
	moves       declaration.MoveService

	calculator *declaration.Calculator
	builder    *declaration.MoveBuilder
	files      *declaration.FileGenerator
	resolver   *declaration.PeriodResolver
}

// NewReportService creates a new ReportService
func NewReportService(
	reportRepo declaration.ReportRepository,
	mappingRepo declaration.MappingRepository,
	prorataRepo declaration.ProrataRepository,
	ledger declaration.LedgerService,
	moves declaration.MoveService,
	writer declaration.RecordWriter,
) *ReportService {
	return &ReportService{
		reportRepo:  reportRepo,
		mappingRepo: mappingRepo,
		prorataRepo: prorataRepo,
		ledger:      ledger,
		moves:       moves,
		calculator:  declaration.NewCalculator(ledger),
		builder:     declaration.NewMoveBuilder(ledger),
		files:       declaration.NewFileGenerator(writer),
		resolver:    declaration.NewPeriodResolver(ledger),
	}
}

// CreateReportRequest carries the data of a new declaration draft
type CreateReportRequest struct {
	CompanyID   uuid.UUID `json:"company_id" binding:"required"`
	CompanyName string    `json:"company_name" binding:"required"`
	CompanyVAT  string    `json:"company_vat" binding:"required"`
	Type        string    `json:"type" binding:"required"`
	Year        int       `json:"year" binding:"required"`
	Period      string    `json:"period" binding:"required,period303"`

	Currency string `json:"currency"`

	MonthlyReturnSubscription bool   `json:"monthly_return_subscription"`
	JointLiquidation          bool   `json:"joint_liquidation"`
	Recc                      bool   `json:"recc"`
	ReccReceiver              bool   `json:"recc_receiver"`
	SpecialProrate            bool   `json:"special_prorate"`
	SpecialProrateRevocation  bool   `json:"special_prorate_revocation"`
	AutoBankruptcyDeclaration string `json:"auto_bankruptcy_declaration"`
	ExoneratedMod390          string `json:"exonerated_mod390"`
	AnnualOperationVolume     string `json:"annual_operation_volume"`
	WithoutActivity           bool   `json:"without_activity"`

	ComplementaryDeclaration   bool   `json:"complementary_declaration"`
	PreviousDeclarationReceipt string `json:"previous_declaration_receipt"`

	BankAccountIBAN       string `json:"bank_account_iban"`
	ReturnSepaCheck       string `json:"return_sepa_check"`
	SwiftBank             string `json:"swift_bank"`
	ReturnBankName        string `json:"return_bank_name"`
	ReturnBankAddress     string `json:"return_bank_address"`
	ReturnBankCity        string `json:"return_bank_city"`
	ReturnBankCountryCode string `json:"return_bank_country_code"`

	PreviousReportID *uuid.UUID `json:"previous_report_id"`
	PostAndClose     bool       `json:"post_and_close"`
	MoveAccountID    *uuid.UUID `json:"move_account_id"`
	MoveJournalID    *uuid.UUID `json:"move_journal_id"`
	MoveDescription  string     `json:"move_description"`
}

// ManualFieldsRequest carries box values the ledger cannot supply, entered
// before calculation
type ManualFieldsRequest struct {
	Amounts map[string]decimal.Decimal `json:"amounts"`
	Chars   map[string]string          `json:"chars"`
}

// ReportResponse represents a declaration in API responses
type ReportResponse struct {
	ID          uuid.UUID `json:"id"`
	CompanyID   uuid.UUID `json:"company_id"`
	CompanyName string    `json:"company_name"`
	CompanyVAT  string    `json:"company_vat"`
	Type        string    `json:"type"`
	Year        int       `json:"year"`
	Period      string    `json:"period"`
	State       string    `json:"state"`

	ExoneratedMod390      string `json:"exonerated_mod390"`
	AnnualOperationVolume string `json:"annual_operation_volume"`

	CalculationDate *time.Time `json:"calculation_date,omitempty"`
	MoveID          *uuid.UUID `json:"move_id,omitempty"`
	Filename        string     `json:"filename"`
	HasFile         bool       `json:"has_file"`

	Fields declaration.FieldSet `json:"fields"`

	AccruedTotalTax           decimal.Decimal `json:"accrued_total_tax"`
	DeductibleTotal           decimal.Decimal `json:"deductible_total"`
	GeneralRegimeResult       decimal.Decimal `json:"general_regime_result"`
	StateAdministrationAmount decimal.Decimal `json:"state_administration_amount"`
	Result                    decimal.Decimal `json:"result"`
	LiquidationResult         decimal.Decimal `json:"liquidation_result"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

func toReportResponse(report *declaration.Report) *ReportResponse {
	return &ReportResponse{
		ID:                        report.ID,
		CompanyID:                 report.CompanyID,
		CompanyName:               report.CompanyName,
		CompanyVAT:                report.CompanyVAT,
		Type:                      string(report.Type),
		Year:                      report.Year,
		Period:                    report.Period,
		State:                     string(report.State),
		ExoneratedMod390:          report.ExoneratedMod390,
		AnnualOperationVolume:     report.AnnualOperationVolume,
		CalculationDate:           report.CalculationDate,
		MoveID:                    report.MoveID,
		Filename:                  report.Filename(),
		HasFile:                   len(report.File) > 0,
		Fields:                    report.Fields,
		AccruedTotalTax:           report.AccruedTotalTax(),
		DeductibleTotal:           report.DeductibleTotal(),
		GeneralRegimeResult:       report.GeneralRegimeResult(),
		StateAdministrationAmount: report.StateAdministrationAmount(),
		Result:                    report.Result(),
		LiquidationResult:         report.LiquidationResult(),
		CreatedAt:                 report.CreatedAt,
		UpdatedAt:                 report.UpdatedAt,
		Version:                   report.GetVersion(),
	}
}

// Create opens a new declaration draft. Only one live declaration may exist
// per (company, year, period).
func (s *ReportService) Create(ctx context.Context, req CreateReportRequest) (*ReportResponse, error) {
	existing, err := s.reportRepo.FindByPeriod(ctx, req.CompanyID, req.Year, req.Period)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("REPORT_EXISTS", "A declaration already exists for this period")
	}

	report, err := declaration.NewReport(req.CompanyID, req.CompanyName, req.CompanyVAT,
		declaration.DeclarationType(req.Type), req.Year, req.Period)
	if err != nil {
		return nil, err
	}
	if req.Currency != "" {
		report.Currency = req.Currency
	}
	report.MonthlyReturnSubscription = req.MonthlyReturnSubscription
	report.JointLiquidation = req.JointLiquidation
	report.Recc = req.Recc
	report.ReccReceiver = req.ReccReceiver
	report.SpecialProrate = req.SpecialProrate
	report.SpecialProrateRevocation = req.SpecialProrateRevocation
	if req.AutoBankruptcyDeclaration != "" {
		report.AutoBankruptcyDeclaration = req.AutoBankruptcyDeclaration
	}
	if req.ExoneratedMod390 != "" {
		report.ExoneratedMod390 = req.ExoneratedMod390
	}
	if req.AnnualOperationVolume != "" {
		report.AnnualOperationVolume = req.AnnualOperationVolume
	}
	report.WithoutActivity = req.WithoutActivity
	report.ComplementaryDeclaration = req.ComplementaryDeclaration
	report.PreviousDeclarationReceipt = req.PreviousDeclarationReceipt
	report.BankAccountIBAN = req.BankAccountIBAN
	if req.ReturnSepaCheck != "" {
		report.ReturnSepaCheck = req.ReturnSepaCheck
	} else {
		report.DeriveSepaCheck()
	}
	report.SwiftBank = req.SwiftBank
	report.ReturnBankName = req.ReturnBankName
	report.ReturnBankAddress = req.ReturnBankAddress
	report.ReturnBankCity = req.ReturnBankCity
	report.ReturnBankCountryCode = req.ReturnBankCountryCode
	report.PostAndClose = req.PostAndClose
	report.MoveAccountID = req.MoveAccountID
	report.MoveJournalID = req.MoveJournalID
	report.MoveDescription = req.MoveDescription
	report.NormalizeExonerated()

	if req.PreviousReportID != nil {
		previous, err := s.reportRepo.FindByID(ctx, *req.PreviousReportID)
		if err != nil {
			return nil, err
		}
		if err := report.SetPreviousReport(previous); err != nil {
			return nil, err
		}
	}

	if err := report.Validate(); err != nil {
		return nil, err
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		return nil, err
	}
	return toReportResponse(report), nil
}

// Get returns one declaration
func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*ReportResponse, error) {
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toReportResponse(report), nil
}

// List returns a company's declarations, newest first
func (s *ReportService) List(ctx context.Context, companyID uuid.UUID) ([]ReportResponse, error) {
	reports, err := s.reportRepo.FindByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]ReportResponse, len(reports))
	for i := range reports {
		out[i] = *toReportResponse(&reports[i])
	}
	return out, nil
}

// SetManualFields writes operator-entered boxes on a draft declaration
func (s *ReportService) SetManualFields(ctx context.Context, id uuid.UUID, req ManualFieldsRequest) (*ReportResponse, error) {
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.State != declaration.StateDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Manual boxes can only be edited on a draft declaration")
	}
	for name, value := range req.Amounts {
		if err := report.Fields.SetAmount(declaration.Form303Schema, name, value); err != nil {
			return nil, err
		}
	}
	for name, value := range req.Chars {
		if err := report.Fields.SetChar(declaration.Form303Schema, name, value); err != nil {
			return nil, err
		}
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		return nil, err
	}
	return toReportResponse(report), nil
}

// Calculate populates the declaration boxes from the ledger and moves the
// declaration to calculated
func (s *ReportService) Calculate(ctx context.Context, id uuid.UUID) (*ReportResponse, error) {
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	input, err := s.calculationInput(ctx, report.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := s.calculator.Calculate(ctx, report, input); err != nil {
		return nil, err
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	if err := report.MarkCalculated(time.Now()); err != nil {
		return nil, err
	}
	// the year-end pass may have rewritten the company proportion
	if input.ProrataConfig != nil {
		if err := s.prorataRepo.SaveConfig(ctx, input.ProrataConfig); err != nil {
			return nil, err
		}
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		return nil, err
	}
	return toReportResponse(report), nil
}

func (s *ReportService) calculationInput(ctx context.Context, companyID uuid.UUID) (declaration.CalculationInput, error) {
	mappings, err := s.mappingRepo.FindByCompany(ctx, companyID)
	if err != nil {
		return declaration.CalculationInput{}, err
	}
	prorataMappings, err := s.prorataRepo.Mappings(ctx, companyID)
	if err != nil {
		return declaration.CalculationInput{}, err
	}
	config, err := s.prorataRepo.Config(ctx, companyID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return declaration.CalculationInput{}, err
	}
	if len(prorataMappings) > 0 && config == nil {
		return declaration.CalculationInput{}, shared.NewDomainError("PRORATA_NOT_CONFIGURED",
			"Prorata mappings exist but no prorata configuration is set for the company")
	}
	return declaration.CalculationInput{
		Mappings:        mappings,
		ProrataMappings: prorataMappings,
		ProrataConfig:   config,
	}, nil
}

// Process generates the submission file, books the liquidation move and
// closes the declaration
func (s *ReportService) Process(ctx context.Context, id uuid.UUID) (*ReportResponse, error) {
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.State != declaration.StateCalculated {
		return nil, shared.NewDomainError("INVALID_STATE", "Only calculated declarations can be processed")
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}

	file, err := s.files.Generate(report)
	if err != nil {
		return nil, err
	}
	report.AttachFile(file)

	mappings, err := s.mappingRepo.FindByCompany(ctx, report.CompanyID)
	if err != nil {
		return nil, err
	}
	move, err := s.builder.Build(ctx, report, mappings)
	if err != nil {
		return nil, err
	}
	if move != nil {
		if err := s.moves.Create(ctx, move); err != nil {
			return nil, err
		}
		report.AttachMove(move.ID)
		if report.PostAndClose {
			if err := s.moves.Post(ctx, move.ID); err != nil {
				return nil, err
			}
			periods, err := s.resolver.Resolve(ctx, report.CompanyID, report.Year, report.Period)
			if err != nil {
				return nil, err
			}
			if err := s.moves.ClosePeriods(ctx, declaration.PeriodIDs(periods)); err != nil {
				return nil, err
			}
		}
	}

	if err := report.MarkDone(); err != nil {
		return nil, err
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		return nil, err
	}
	return toReportResponse(report), nil
}

// Cancel voids a declaration, removing its liquidation move and restoring
// the prorata configuration it overwrote
func (s *ReportService) Cancel(ctx context.Context, id uuid.UUID) (*ReportResponse, error) {
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.MoveID != nil {
		reconciled, err := s.moves.HasReconciledLines(ctx, *report.MoveID)
		if err != nil {
			return nil, err
		}
		if reconciled {
			return nil, shared.NewDomainError("MOVE_RECONCILED",
				"Cannot cancel a declaration whose liquidation move has reconciled lines")
		}
		if err := s.moves.Draft(ctx, *report.MoveID); err != nil {
			return nil, err
		}
		if err := s.moves.Delete(ctx, *report.MoveID); err != nil {
			return nil, err
		}
		report.DetachMove()
	}

	if snapshot, ok := report.TakeProrataSnapshot(); ok {
		config, err := s.prorataRepo.Config(ctx, report.CompanyID)
		if err != nil {
			return nil, err
		}
		config.Restore(snapshot)
		if err := s.prorataRepo.SaveConfig(ctx, config); err != nil {
			return nil, err
		}
	}

	if err := report.MarkCancelled(); err != nil {
		return nil, err
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		return nil, err
	}
	return toReportResponse(report), nil
}

// Draft reopens a calculated or cancelled declaration
func (s *ReportService) Draft(ctx context.Context, id uuid.UUID) (*ReportResponse, error) {
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := report.MarkDraft(); err != nil {
		return nil, err
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		return nil, err
	}
	return toReportResponse(report), nil
}

// File returns the generated submission file of a processed declaration
func (s *ReportService) File(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if len(report.File) == 0 {
		return "", nil, shared.NewDomainError("FILE_NOT_GENERATED", "The declaration has not been processed yet")
	}
	return report.Filename(), report.File, nil
}
