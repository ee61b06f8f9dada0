package aeatfile

import (
	"fmt"
	"strings"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/shopspring/decimal"
)

type colKind int

const (
	colAlpha colKind = iota
	colAmount
	colPercent
)

type column struct {
	name  string
	width int
	kind  colKind
}

// Column widths of the fixed-width format. Amounts carry a sign position
// plus cents without separator; percents three integer and two decimal
// digits.
const (
	amountWidth  = 17
	percentWidth = 5
	charWidth    = 20
)

// Writer implements declaration.RecordWriter for the model 303 fixed-width
// format. Box columns follow the schema's declared order; header, bank and
// footer records have their own layouts.
type Writer struct {
	layouts map[declaration.RecordType][]column
}

// NewWriter builds the record layout catalog from the form schema
func NewWriter(schema *declaration.FormSchema) *Writer {
	layouts := map[declaration.RecordType][]column{
		declaration.RecordHeader: {
			{"model", 3, colAlpha},
			{"year", 4, colAlpha},
			{"period", 2, colAlpha},
			{"vat", 9, colAlpha},
			{"company_name", 60, colAlpha},
			{"declaration_type", 1, colAlpha},
			{"regime_type", 1, colAlpha},
			{"passive_subject_foral", 1, colAlpha},
			{"passive_subject_sii", 1, colAlpha},
			{"monthly_return_subscription", 1, colAlpha},
			{"joint_liquidation", 1, colAlpha},
			{"recc", 1, colAlpha},
			{"recc_receiver", 1, colAlpha},
			{"special_prorate", 1, colAlpha},
			{"special_prorate_revocation", 1, colAlpha},
			{"auto_bankruptcy_declaration", 1, colAlpha},
			{"exonerated_mod390", 1, colAlpha},
			{"annual_operation_volume", 1, colAlpha},
			{"complementary_declaration", 1, colAlpha},
			{"previous_declaration_receipt", 13, colAlpha},
		},
		declaration.RecordBankData: {
			{"return_sepa_check", 1, colAlpha},
			{"iban", 34, colAlpha},
			{"swift_bank", 11, colAlpha},
			{"bank_name", 100, colAlpha},
			{"bank_address", 150, colAlpha},
			{"bank_city", 50, colAlpha},
			{"bank_country_code", 2, colAlpha},
		},
		declaration.RecordFooter: {
			{"terminator", 3, colAlpha},
		},
	}
	layouts[declaration.RecordDeclaration] = schemaColumns(schema, declaration.RecordDeclaration, []column{
		{"bankruptcy", 1, colAlpha},
	})
	layouts[declaration.RecordGeneral] = schemaColumns(schema, declaration.RecordGeneral, []column{
		{"accrued_total_tax", amountWidth, colAmount},
		{"deductible_total", amountWidth, colAmount},
		{"general_regime_result", amountWidth, colAmount},
		{"sum_results", amountWidth, colAmount},
		{"state_administration_amount", amountWidth, colAmount},
		{"result", amountWidth, colAmount},
		{"liquidation_result", amountWidth, colAmount},
		{"result_previous_period_amount_to_compensate", amountWidth, colAmount},
		{"without_activity", 1, colAlpha},
	})
	layouts[declaration.RecordAnnualResume] = schemaColumns(schema, declaration.RecordAnnualResume, []column{
		{"total_operations_volume", amountWidth, colAmount},
	})
	return &Writer{layouts: layouts}
}

func schemaColumns(schema *declaration.FormSchema, record declaration.RecordType, derived []column) []column {
	var cols []column
	for _, def := range schema.FieldsForRecord(record) {
		switch def.Kind {
		case declaration.FieldAmount:
			cols = append(cols, column{def.Name, amountWidth, colAmount})
		case declaration.FieldPercent:
			cols = append(cols, column{def.Name, percentWidth, colPercent})
		default:
			cols = append(cols, column{def.Name, charWidth, colAlpha})
		}
	}
	return append(cols, derived...)
}

// Write encodes one record line. Missing fields render as empty or zero.
func (w *Writer) Write(record declaration.RecordType, fields map[string]string) ([]byte, error) {
	layout, ok := w.layouts[record]
	if !ok {
		return nil, fmt.Errorf("unknown record type %q", record)
	}
	var b strings.Builder
	b.WriteString("<T303")
	b.WriteString(recordTag(record))
	b.WriteString(">")
	for _, col := range layout {
		cell, err := formatColumn(col, fields[col.name])
		if err != nil {
			return nil, fmt.Errorf("record %s, column %s: %w", record, col.name, err)
		}
		b.WriteString(cell)
	}
	b.WriteString("</T303>")
	return EncodeLatin1(Normalize(b.String())), nil
}

func recordTag(record declaration.RecordType) string {
	switch record {
	case declaration.RecordHeader:
		return "00"
	case declaration.RecordDeclaration:
		return "01"
	case declaration.RecordGeneral:
		return "02"
	case declaration.RecordAnnualResume:
		return "03"
	case declaration.RecordBankData:
		return "04"
	default:
		return "99"
	}
}

func formatColumn(col column, value string) (string, error) {
	switch col.kind {
	case colAmount:
		return formatAmount(value, col.width)
	case colPercent:
		return formatPercent(value, col.width)
	default:
		return formatAlpha(value, col.width), nil
	}
}

// formatAlpha left-justifies and pads with spaces, truncating overflow
func formatAlpha(value string, width int) string {
	if len(value) > width {
		return value[:width]
	}
	return value + strings.Repeat(" ", width-len(value))
}

// formatAmount renders cents zero-padded, a leading N marking negatives
func formatAmount(value string, width int) (string, error) {
	d := decimal.Zero
	if value != "" {
		var err error
		d, err = decimal.NewFromString(value)
		if err != nil {
			return "", err
		}
	}
	sign := " "
	if d.IsNegative() {
		sign = "N"
		d = d.Neg()
	}
	cents := d.Shift(2).Round(0).String()
	digits := width - 1
	if len(cents) > digits {
		return "", fmt.Errorf("amount %s overflows %d digits", value, digits)
	}
	return sign + strings.Repeat("0", digits-len(cents)) + cents, nil
}

// formatPercent renders a 0-100 percentage as zero-padded hundredths
func formatPercent(value string, width int) (string, error) {
	d := decimal.Zero
	if value != "" {
		var err error
		d, err = decimal.NewFromString(value)
		if err != nil {
			return "", err
		}
	}
	hundredths := d.Shift(2).Round(0).String()
	if len(hundredths) > width {
		return "", fmt.Errorf("percent %s overflows %d digits", value, width)
	}
	return strings.Repeat("0", width-len(hundredths)) + hundredths, nil
}
