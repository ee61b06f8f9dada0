package declaration

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/aeat/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FieldKind describes the type of a declaration box
type FieldKind string

const (
	// FieldAmount is a monetary amount with 2 decimal places
	FieldAmount FieldKind = "amount"
	// FieldPercent is a percentage (0-100) with 2 decimal places
	FieldPercent FieldKind = "percent"
	// FieldChar is a free-text or selection box
	FieldChar FieldKind = "char"
)

// RecordType identifies the physical record a box is serialized into
type RecordType string

const (
	RecordHeader       RecordType = "header"
	RecordDeclaration  RecordType = "declaration"
	RecordGeneral      RecordType = "general"
	RecordAnnualResume RecordType = "annual_resume"
	RecordBankData     RecordType = "bank_data"
	RecordFooter       RecordType = "footer"
)

// FieldDef describes one box of the government form
type FieldDef struct {
	Name   string
	Kind   FieldKind
	Record RecordType
	// Annual marks boxes only meaningful on the year's last period
	Annual bool
}

// FormSchema is the static catalog of declaration boxes for one form version.
// The box list is data, not code: mapping results and derived formulas address
// boxes by name through a FieldSet validated against this schema.
type FormSchema struct {
	Version string
	defs    []FieldDef
	index   map[string]int
}

// NewFormSchema builds a schema from an ordered list of field definitions
func NewFormSchema(version string, defs []FieldDef) *FormSchema {
	index := make(map[string]int, len(defs))
	for i, def := range defs {
		index[def.Name] = i
	}
	return &FormSchema{Version: version, defs: defs, index: index}
}

// Lookup returns the definition for a box name
func (s *FormSchema) Lookup(name string) (FieldDef, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldDef{}, false
	}
	return s.defs[i], true
}

// Has reports whether the schema defines a box name
func (s *FormSchema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Fields returns the ordered box definitions
func (s *FormSchema) Fields() []FieldDef {
	return s.defs
}

// FieldsForRecord returns the ordered boxes belonging to one physical record
func (s *FormSchema) FieldsForRecord(record RecordType) []FieldDef {
	var out []FieldDef
	for _, def := range s.defs {
		if def.Record == record {
			out = append(out, def)
		}
	}
	return out
}

// Migrate copies a field set onto a different schema version, dropping boxes
// the target version no longer defines. Used on form-version upgrades instead
// of per-version model subclasses.
func (s *FormSchema) Migrate(fs FieldSet) FieldSet {
	out := NewFieldSet()
	for name, raw := range fs.values {
		if _, ok := s.index[name]; ok {
			out.values[name] = raw
		}
	}
	return out
}

func amount(name string, record RecordType) FieldDef {
	return FieldDef{Name: name, Kind: FieldAmount, Record: record}
}

func percent(name string, record RecordType) FieldDef {
	return FieldDef{Name: name, Kind: FieldPercent, Record: record}
}

func char(name string, record RecordType) FieldDef {
	return FieldDef{Name: name, Kind: FieldChar, Record: record}
}

func annual(def FieldDef) FieldDef {
	def.Annual = true
	return def
}

// Form303Schema is the current model 303 box catalog. Bracket numbering
// follows the AEAT box layout: brackets 0-5 cover the VAT rates (4%, 10%,
// 21%, the transitional 0% and 5% rates), RE brackets the matching
// equivalence surcharges.
var Form303Schema = NewFormSchema("303-2024", []FieldDef{
	// Page 1: accrued VAT by rate bracket
	amount("accrued_vat_base_0", RecordDeclaration),
	percent("accrued_vat_percent_0", RecordDeclaration),
	amount("accrued_vat_tax_0", RecordDeclaration),
	amount("accrued_vat_base_1", RecordDeclaration),
	percent("accrued_vat_percent_1", RecordDeclaration),
	amount("accrued_vat_tax_1", RecordDeclaration),
	amount("accrued_vat_base_2", RecordDeclaration),
	percent("accrued_vat_percent_2", RecordDeclaration),
	amount("accrued_vat_tax_2", RecordDeclaration),
	amount("accrued_vat_base_3", RecordDeclaration),
	percent("accrued_vat_percent_3", RecordDeclaration),
	amount("accrued_vat_tax_3", RecordDeclaration),
	amount("accrued_vat_base_4", RecordDeclaration),
	percent("accrued_vat_percent_4", RecordDeclaration),
	amount("accrued_vat_tax_4", RecordDeclaration),
	amount("accrued_vat_base_5", RecordDeclaration),
	percent("accrued_vat_percent_5", RecordDeclaration),
	amount("accrued_vat_tax_5", RecordDeclaration),
	amount("intracommunity_adquisitions_base", RecordDeclaration),
	amount("intracommunity_adquisitions_tax", RecordDeclaration),
	amount("other_passive_subject_base", RecordDeclaration),
	amount("other_passive_subject_tax", RecordDeclaration),
	amount("accrued_vat_base_modification", RecordDeclaration),
	amount("accrued_vat_tax_modification", RecordDeclaration),
	// Equivalence surcharge brackets
	amount("accrued_re_base_1", RecordDeclaration),
	percent("accrued_re_percent_1", RecordDeclaration),
	amount("accrued_re_tax_1", RecordDeclaration),
	amount("accrued_re_base_2", RecordDeclaration),
	percent("accrued_re_percent_2", RecordDeclaration),
	amount("accrued_re_tax_2", RecordDeclaration),
	amount("accrued_re_base_3", RecordDeclaration),
	percent("accrued_re_percent_3", RecordDeclaration),
	amount("accrued_re_tax_3", RecordDeclaration),
	amount("accrued_re_base_4", RecordDeclaration),
	percent("accrued_re_percent_4", RecordDeclaration),
	amount("accrued_re_tax_4", RecordDeclaration),
	amount("accrued_re_base_5", RecordDeclaration),
	percent("accrued_re_percent_5", RecordDeclaration),
	amount("accrued_re_tax_5", RecordDeclaration),
	amount("accrued_re_base_modification", RecordDeclaration),
	amount("accrued_re_tax_modification", RecordDeclaration),
	// Deductible amounts by category
	amount("deductible_current_domestic_operations_base", RecordDeclaration),
	amount("deductible_current_domestic_operations_tax", RecordDeclaration),
	amount("deductible_investment_domestic_operations_base", RecordDeclaration),
	amount("deductible_investment_domestic_operations_tax", RecordDeclaration),
	amount("deductible_current_import_operations_base", RecordDeclaration),
	amount("deductible_current_import_operations_tax", RecordDeclaration),
	amount("deductible_investment_import_operations_base", RecordDeclaration),
	amount("deductible_investment_import_operations_tax", RecordDeclaration),
	amount("deductible_current_intracommunity_operations_base", RecordDeclaration),
	amount("deductible_current_intracommunity_operations_tax", RecordDeclaration),
	amount("deductible_investment_intracommunity_operations_base", RecordDeclaration),
	amount("deductible_investment_intracommunity_operations_tax", RecordDeclaration),
	amount("deductible_regularization_base", RecordDeclaration),
	amount("deductible_regularization_tax", RecordDeclaration),
	amount("deductible_compensations", RecordDeclaration),
	amount("deductible_investment_regularization", RecordDeclaration),
	amount("deductible_pro_rata_regularization", RecordDeclaration),
	// Pre-prorata mirrors: raw aggregates before the deduction proportion
	amount("preprorrata_deductible_current_domestic_operations_tax", RecordDeclaration),
	amount("preprorrata_deductible_investment_domestic_operations_tax", RecordDeclaration),
	amount("preprorrata_deductible_current_import_operations_tax", RecordDeclaration),
	amount("preprorrata_deductible_investment_import_operations_tax", RecordDeclaration),
	amount("preprorrata_deductible_current_intracommunity_operations_tax", RecordDeclaration),
	amount("preprorrata_deductible_investment_intracommunity_operations_tax", RecordDeclaration),
	amount("preprorrata_deductible_regularization_tax", RecordDeclaration),
	amount("preprorrata_deductible_compensations", RecordDeclaration),
	// Page 3: general liquidation
	amount("intracommunity_deliveries", RecordGeneral),
	amount("exports", RecordGeneral),
	amount("not_subject_localitzation_rules", RecordGeneral),
	amount("subject_operations_w_reverse_charge", RecordGeneral),
	amount("oss_not_subject_operations", RecordGeneral),
	amount("oss_subject_operations", RecordGeneral),
	amount("recc_deliveries_base", RecordGeneral),
	amount("recc_deliveries_tax", RecordGeneral),
	amount("recc_adquisitions_base", RecordGeneral),
	amount("recc_adquisitions_tax", RecordGeneral),
	amount("result_tax_regularitzation", RecordGeneral),
	percent("state_administration_percent", RecordGeneral),
	amount("aduana_tax_pending", RecordGeneral),
	amount("previous_period_pending_amount_to_compensate", RecordGeneral),
	amount("previous_period_amount_to_compensate", RecordGeneral),
	amount("joint_taxation_state_provincial_councils", RecordGeneral),
	amount("before_result", RecordGeneral),
	amount("to_deduce", RecordGeneral),
	amount("complementary_declaration_other_adjustements", RecordGeneral),
	amount("complementary_declaration_amount", RecordGeneral),
	// Page 4: annual summary, only filled on the year's last period
	annual(char("special_info_key_main", RecordAnnualResume)),
	annual(char("special_info_section_iae_main", RecordAnnualResume)),
	annual(char("special_info_key_others_1", RecordAnnualResume)),
	annual(char("special_info_section_iae_others_1", RecordAnnualResume)),
	annual(char("special_info_key_others_2", RecordAnnualResume)),
	annual(char("special_info_section_iae_others_2", RecordAnnualResume)),
	annual(char("special_info_key_others_3", RecordAnnualResume)),
	annual(char("special_info_section_iae_others_3", RecordAnnualResume)),
	annual(percent("info_territory_alava", RecordAnnualResume)),
	annual(percent("info_territory_guipuzcoa", RecordAnnualResume)),
	annual(percent("info_territory_vizcaya", RecordAnnualResume)),
	annual(percent("info_territory_navarra", RecordAnnualResume)),
	annual(percent("information_taxation_reason_territory", RecordAnnualResume)),
	annual(amount("special_info_rg_operations", RecordAnnualResume)),
	annual(amount("special_info_recc", RecordAnnualResume)),
	annual(amount("special_info_intracommunity_deliveries_2bdeduced", RecordAnnualResume)),
	annual(amount("special_info_exempt_op_2bdeduced", RecordAnnualResume)),
	annual(amount("special_info_exempt_op_wo_permission_2bdeduced", RecordAnnualResume)),
	annual(amount("special_info_w_passive_subject", RecordAnnualResume)),
	annual(amount("annual_subject_operations_w_reverse_charge", RecordAnnualResume)),
	annual(amount("annual_oss_not_subject_operations", RecordAnnualResume)),
	annual(amount("annual_oss_subject_operations", RecordAnnualResume)),
	annual(amount("annual_intragroup_transaction", RecordAnnualResume)),
	annual(amount("special_info_operations_rs", RecordAnnualResume)),
	annual(amount("special_info_farming_cattleraising_fishing", RecordAnnualResume)),
	annual(amount("special_info_passive_subject_re", RecordAnnualResume)),
	annual(amount("special_info_art_antiques_collectibles", RecordAnnualResume)),
	annual(amount("special_info_travel_agency", RecordAnnualResume)),
	annual(amount("special_info_financial_op_not_usual", RecordAnnualResume)),
	annual(amount("special_info_delivery_investment_domestic_operations", RecordAnnualResume)),
	// Page 5: per-activity (CNAE) prorata detail
	annual(char("cnae1", RecordAnnualResume)),
	annual(amount("operations_amount1", RecordAnnualResume)),
	annual(amount("operations_amount_w_deduction1", RecordAnnualResume)),
	annual(percent("prorrata_percent1", RecordAnnualResume)),
	annual(char("cnae2", RecordAnnualResume)),
	annual(amount("operations_amount2", RecordAnnualResume)),
	annual(amount("operations_amount_w_deduction2", RecordAnnualResume)),
	annual(percent("prorrata_percent2", RecordAnnualResume)),
	annual(char("cnae3", RecordAnnualResume)),
	annual(amount("operations_amount3", RecordAnnualResume)),
	annual(amount("operations_amount_w_deduction3", RecordAnnualResume)),
	annual(percent("prorrata_percent3", RecordAnnualResume)),
	annual(char("cnae4", RecordAnnualResume)),
	annual(amount("operations_amount4", RecordAnnualResume)),
	annual(amount("operations_amount_w_deduction4", RecordAnnualResume)),
	annual(percent("prorrata_percent4", RecordAnnualResume)),
	annual(char("cnae5", RecordAnnualResume)),
	annual(amount("operations_amount5", RecordAnnualResume)),
	annual(amount("operations_amount_w_deduction5", RecordAnnualResume)),
	annual(percent("prorrata_percent5", RecordAnnualResume)),
})

// FieldSet is the mutable box container of one declaration. Values are kept
// as strings (decimal.Decimal renders exactly) and type-checked against the
// schema on write. It serializes to a single JSON column.
type FieldSet struct {
	values map[string]string
}

// NewFieldSet creates an empty field set
func NewFieldSet() FieldSet {
	return FieldSet{values: make(map[string]string)}
}

func (fs *FieldSet) ensure() {
	if fs.values == nil {
		fs.values = make(map[string]string)
	}
}

// Amount returns the decimal value of a box, or zero when unset
func (fs FieldSet) Amount(name string) decimal.Decimal {
	raw, ok := fs.values[name]
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Char returns the string value of a box, or "" when unset
func (fs FieldSet) Char(name string) string {
	return fs.values[name]
}

// Has reports whether a box has an explicit value
func (fs FieldSet) Has(name string) bool {
	_, ok := fs.values[name]
	return ok
}

// SetAmount writes a decimal box, validated against the schema
func (fs *FieldSet) SetAmount(schema *FormSchema, name string, value decimal.Decimal) error {
	def, ok := schema.Lookup(name)
	if !ok {
		return shared.NewDomainError("UNKNOWN_FIELD", fmt.Sprintf("Declaration box %q is not part of form %s", name, schema.Version))
	}
	if def.Kind == FieldChar {
		return shared.NewDomainError("FIELD_TYPE_MISMATCH", fmt.Sprintf("Declaration box %q does not hold a numeric value", name))
	}
	fs.ensure()
	fs.values[name] = value.String()
	return nil
}

// AddAmount accumulates onto a decimal box
func (fs *FieldSet) AddAmount(schema *FormSchema, name string, delta decimal.Decimal) error {
	return fs.SetAmount(schema, name, fs.Amount(name).Add(delta))
}

// SetChar writes a text box, validated against the schema
func (fs *FieldSet) SetChar(schema *FormSchema, name string, value string) error {
	def, ok := schema.Lookup(name)
	if !ok {
		return shared.NewDomainError("UNKNOWN_FIELD", fmt.Sprintf("Declaration box %q is not part of form %s", name, schema.Version))
	}
	if def.Kind != FieldChar {
		return shared.NewDomainError("FIELD_TYPE_MISMATCH", fmt.Sprintf("Declaration box %q holds a numeric value", name))
	}
	fs.ensure()
	fs.values[name] = value
	return nil
}

// Value implements driver.Valuer, serializing the box values as JSON
func (fs FieldSet) Value() (driver.Value, error) {
	if fs.values == nil {
		return "{}", nil
	}
	data, err := json.Marshal(fs.values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (fs *FieldSet) Scan(value interface{}) error {
	if value == nil {
		fs.values = make(map[string]string)
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FieldSet", value)
	}
	if len(data) == 0 {
		fs.values = make(map[string]string)
		return nil
	}
	return json.Unmarshal(data, &fs.values)
}

// MarshalJSON renders the box values
func (fs FieldSet) MarshalJSON() ([]byte, error) {
	if fs.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(fs.values)
}

// UnmarshalJSON parses the box values
func (fs *FieldSet) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &fs.values)
}
