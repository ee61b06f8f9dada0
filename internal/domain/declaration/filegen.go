package declaration

import (
	"bytes"
	"strconv"
)

// FileGenerator assembles the submission file of a calculated report. The
// record catalog and fixed-width encoding stay behind the RecordWriter port;
// the generator decides which records a declaration carries and which values
// feed each one.
type FileGenerator struct {
	writer RecordWriter
}

// NewFileGenerator creates a FileGenerator on top of a record writer
func NewFileGenerator(writer RecordWriter) *FileGenerator {
	return &FileGenerator{writer: writer}
}

// Generate encodes the report into the government submission format. The
// annual-summary record only appears on year-end declarations exonerated
// from the model 390.
func (g *FileGenerator) Generate(report *Report) ([]byte, error) {
	type payload struct {
		record RecordType
		fields map[string]string
	}
	records := []payload{
		{RecordHeader, g.headerFields(report)},
		{RecordDeclaration, g.declarationFields(report)},
		{RecordGeneral, g.generalFields(report)},
	}
	if report.IsYearEnd() && report.ExoneratedMod390 == "1" {
		records = append(records, payload{RecordAnnualResume, g.annualFields(report)})
	}
	records = append(records,
		payload{RecordBankData, g.bankFields(report)},
		payload{RecordFooter, nil},
	)

	var buf bytes.Buffer
	for _, r := range records {
		line, err := g.writer.Write(r.record, r.fields)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteString("\r\n")
	}
	return buf.Bytes(), nil
}

func (g *FileGenerator) headerFields(report *Report) map[string]string {
	return map[string]string{
		"model":                        "303",
		"year":                         strconv.Itoa(report.Year),
		"period":                       report.Period,
		"vat":                          report.CompanyVAT,
		"company_name":                 report.CompanyName,
		"declaration_type":             string(report.Type),
		"regime_type":                  report.RegimeType,
		"passive_subject_foral":        report.PassiveSubjectForal,
		"passive_subject_sii":          report.PassiveSubjectSII,
		"monthly_return_subscription":  boolFlag(report.MonthlyReturnSubscription),
		"joint_liquidation":            boolFlag(report.JointLiquidation),
		"recc":                         boolFlag(report.Recc),
		"recc_receiver":                boolFlag(report.ReccReceiver),
		"special_prorate":              boolFlag(report.SpecialProrate),
		"special_prorate_revocation":   boolFlag(report.SpecialProrateRevocation),
		"auto_bankruptcy_declaration":  report.AutoBankruptcyDeclaration,
		"exonerated_mod390":            report.ExoneratedMod390,
		"annual_operation_volume":      report.AnnualOperationVolume,
		"complementary_declaration":    boolFlag(report.ComplementaryDeclaration),
		"previous_declaration_receipt": report.PreviousDeclarationReceipt,
	}
}

// boxFields copies the raw schema boxes of one record type
func (g *FileGenerator) boxFields(report *Report, record RecordType) map[string]string {
	out := make(map[string]string)
	for _, def := range Form303Schema.FieldsForRecord(record) {
		switch def.Kind {
		case FieldChar:
			out[def.Name] = report.Fields.Char(def.Name)
		default:
			out[def.Name] = report.Fields.Amount(def.Name).StringFixed(2)
		}
	}
	return out
}

// declarationFields carries the page 1-2 boxes plus the bankruptcy flag
// derived from the auto bankruptcy declaration selection
func (g *FileGenerator) declarationFields(report *Report) map[string]string {
	out := g.boxFields(report, RecordDeclaration)
	out["bankruptcy"] = boolFlag(report.AutoBankruptcyDeclaration != " ")
	return out
}

// generalFields carries the page 3 boxes plus the derived liquidation totals
func (g *FileGenerator) generalFields(report *Report) map[string]string {
	out := g.boxFields(report, RecordGeneral)
	out["accrued_total_tax"] = report.AccruedTotalTax().StringFixed(2)
	out["deductible_total"] = report.DeductibleTotal().StringFixed(2)
	out["general_regime_result"] = report.GeneralRegimeResult().StringFixed(2)
	out["sum_results"] = report.SumResults().StringFixed(2)
	out["state_administration_amount"] = report.StateAdministrationAmount().StringFixed(2)
	out["result"] = report.Result().StringFixed(2)
	out["liquidation_result"] = report.LiquidationResult().StringFixed(2)
	out["result_previous_period_amount_to_compensate"] = report.ResultPreviousPeriodAmountToCompensate().StringFixed(2)
	out["without_activity"] = boolFlag(report.WithoutActivity)
	return out
}

func (g *FileGenerator) annualFields(report *Report) map[string]string {
	out := g.boxFields(report, RecordAnnualResume)
	out["total_operations_volume"] = report.TotalOperationsVolume().StringFixed(2)
	return out
}

func (g *FileGenerator) bankFields(report *Report) map[string]string {
	return map[string]string{
		"iban":              report.BankAccountIBAN,
		"return_sepa_check": report.ReturnSepaCheck,
		"swift_bank":        report.SwiftBank,
		"bank_name":         report.ReturnBankName,
		"bank_address":      report.ReturnBankAddress,
		"bank_city":         report.ReturnBankCity,
		"bank_country_code": report.ReturnBankCountryCode,
	}
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
