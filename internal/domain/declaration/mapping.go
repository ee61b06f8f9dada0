package declaration

import (
	"fmt"

	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MappingKind describes how a declaration box gets its value
type MappingKind string

const (
	// MappingCode sums named ledger tax codes over the declaration period
	MappingCode MappingKind = "code"
	// MappingNumeric sets a fixed value independent of the period
	MappingNumeric MappingKind = "numeric"
	// MappingExonerated390 is aggregated over the full year, only on the
	// year's last period
	MappingExonerated390 MappingKind = "exonerated390"
)

// IsValid reports whether the kind is one of the known mapping kinds
func (k MappingKind) IsValid() bool {
	switch k {
	case MappingCode, MappingNumeric, MappingExonerated390:
		return true
	}
	return false
}

// MappingCodeLink joins a mapping to one ledger tax code
type MappingCodeLink struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	MappingID uuid.UUID `gorm:"type:uuid;not null;index"`
	TaxCodeID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (MappingCodeLink) TableName() string {
	return "tax_code_mapping_codes"
}

// TaxCodeMapping maps ledger tax codes (or a fixed number) onto one
// declaration box for one company. At most one mapping may exist per
// (company, field) pair.
type TaxCodeMapping struct {
	shared.BaseEntity
	CompanyID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_company_field,priority:1"`
	FieldName string            `gorm:"type:varchar(80);not null;uniqueIndex:idx_mapping_company_field,priority:2"`
	Kind      MappingKind       `gorm:"type:varchar(20);not null"`
	Number    *decimal.Decimal  `gorm:"type:decimal(15,2)"` // Fixed value, numeric kind only
	Codes     []MappingCodeLink `gorm:"foreignKey:MappingID;references:ID"`
	// TemplateID records the template lineage a company mapping was seeded
	// from, so chart updates can diff instead of overwrite
	TemplateID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (TaxCodeMapping) TableName() string {
	return "tax_code_mappings"
}

// NewTaxCodeMapping creates a company mapping for one declaration box
func NewTaxCodeMapping(companyID uuid.UUID, fieldName string, kind MappingKind) (*TaxCodeMapping, error) {
	if _, ok := Form303Schema.Lookup(fieldName); !ok {
		return nil, shared.NewDomainError("UNKNOWN_FIELD", fmt.Sprintf("Declaration box %q is not part of form %s", fieldName, Form303Schema.Version))
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_MAPPING_KIND", fmt.Sprintf("Unknown mapping kind %q", kind))
	}
	return &TaxCodeMapping{
		BaseEntity: shared.NewBaseEntity(),
		CompanyID:  companyID,
		FieldName:  fieldName,
		Kind:       kind,
	}, nil
}

// CodeIDs returns the linked ledger tax code IDs
func (m *TaxCodeMapping) CodeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(m.Codes))
	for i, link := range m.Codes {
		ids[i] = link.TaxCodeID
	}
	return ids
}

// LinkCode adds a ledger tax code to the mapping, ignoring duplicates
func (m *TaxCodeMapping) LinkCode(taxCodeID uuid.UUID) {
	for _, link := range m.Codes {
		if link.TaxCodeID == taxCodeID {
			return
		}
	}
	m.Codes = append(m.Codes, MappingCodeLink{
		ID:        uuid.New(),
		MappingID: m.ID,
		TaxCodeID: taxCodeID,
	})
}

// UnlinkCode removes a ledger tax code from the mapping
func (m *TaxCodeMapping) UnlinkCode(taxCodeID uuid.UUID) {
	for i, link := range m.Codes {
		if link.TaxCodeID == taxCodeID {
			m.Codes = append(m.Codes[:i], m.Codes[i+1:]...)
			return
		}
	}
}

// TemplateCodeLink joins a template mapping to one template tax code
type TemplateCodeLink struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	TemplateID uuid.UUID `gorm:"type:uuid;not null;index"`
	TaxCodeID  uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (TemplateCodeLink) TableName() string {
	return "template_mapping_codes"
}

// TemplateTaxCodeMapping is a row of the global mapping catalog seeded into
// companies when their chart of accounts is created or updated. One template
// per declaration box.
type TemplateTaxCodeMapping struct {
	shared.BaseEntity
	FieldName string             `gorm:"type:varchar(80);not null;uniqueIndex"`
	Kind      MappingKind        `gorm:"type:varchar(20);not null"`
	Number    *decimal.Decimal   `gorm:"type:decimal(15,2)"`
	Codes     []TemplateCodeLink `gorm:"foreignKey:TemplateID;references:ID"`
}

// TableName returns the table name for GORM
func (TemplateTaxCodeMapping) TableName() string {
	return "template_tax_code_mappings"
}

// CodeIDs returns the template's tax code IDs
func (t *TemplateTaxCodeMapping) CodeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(t.Codes))
	for i, link := range t.Codes {
		ids[i] = link.TaxCodeID
	}
	return ids
}

// MappingDiff is the attribute-level change a template applies to a company
// mapping. Only changed attributes are carried, so manual per-company edits
// made after the initial seeding survive chart updates.
type MappingDiff struct {
	Kind        *MappingKind
	FieldName   *string
	Number      *decimal.Decimal
	ClearNumber bool
	AddCodes    []uuid.UUID
	RemoveCodes []uuid.UUID
	empty       bool
}

// IsEmpty reports whether the diff changes nothing
func (d MappingDiff) IsEmpty() bool {
	return d.empty
}

// DiffAgainst computes the changes needed to bring a company mapping in line
// with the template. A nil mapping means a fresh seed: all attributes are
// carried. For code-kind templates with no codes and no existing mapping
// there is nothing worth creating and an empty diff is returned.
func (t *TemplateTaxCodeMapping) DiffAgainst(mapping *TaxCodeMapping) MappingDiff {
	var diff MappingDiff
	changed := false

	if mapping == nil || mapping.Kind != t.Kind {
		kind := t.Kind
		diff.Kind = &kind
		changed = true
	}
	if mapping == nil || mapping.FieldName != t.FieldName {
		name := t.FieldName
		diff.FieldName = &name
		changed = true
	}
	if !decimalPtrEqual(numberOf(mapping), t.Number) {
		if t.Number != nil {
			n := *t.Number
			diff.Number = &n
		} else {
			diff.ClearNumber = true
		}
		changed = true
	}

	oldIDs := make(map[uuid.UUID]bool)
	if mapping != nil {
		for _, id := range mapping.CodeIDs() {
			oldIDs[id] = true
		}
	}
	newIDs := make(map[uuid.UUID]bool)
	for _, id := range t.CodeIDs() {
		newIDs[id] = true
	}
	for id := range newIDs {
		if !oldIDs[id] {
			diff.AddCodes = append(diff.AddCodes, id)
			changed = true
		}
	}
	for id := range oldIDs {
		if !newIDs[id] {
			diff.RemoveCodes = append(diff.RemoveCodes, id)
			changed = true
		}
	}

	if mapping == nil && t.Kind == MappingCode && len(diff.AddCodes) == 0 {
		// Nothing to create: a code mapping without codes aggregates nothing
		return MappingDiff{empty: true}
	}
	diff.empty = !changed
	return diff
}

// Apply mutates a company mapping with the diff
func (d MappingDiff) Apply(mapping *TaxCodeMapping) {
	if d.Kind != nil {
		mapping.Kind = *d.Kind
	}
	if d.FieldName != nil {
		mapping.FieldName = *d.FieldName
	}
	if d.Number != nil {
		mapping.Number = d.Number
	} else if d.ClearNumber {
		mapping.Number = nil
	}
	for _, id := range d.AddCodes {
		mapping.LinkCode(id)
	}
	for _, id := range d.RemoveCodes {
		mapping.UnlinkCode(id)
	}
}

func numberOf(mapping *TaxCodeMapping) *decimal.Decimal {
	if mapping == nil {
		return nil
	}
	return mapping.Number
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// ResolvedMappings are the three partitions of a company's mapping table used
// by the report aggregator
type ResolvedMappings struct {
	// CodeFields maps ledger tax code ID to the declaration box it feeds
	CodeFields map[uuid.UUID]string
	// ExoneratedFields maps tax code ID to the annual-summary box it feeds
	ExoneratedFields map[uuid.UUID]string
	// NumericFields maps declaration boxes to their fixed values
	NumericFields map[string]decimal.Decimal
}

// ResolveMappings partitions a company's mappings for aggregation. A company
// without a single numeric mapping is unconfigured: there is no sensible
// declaration without constants like the state administration share.
func ResolveMappings(mappings []TaxCodeMapping) (*ResolvedMappings, error) {
	resolved := &ResolvedMappings{
		CodeFields:       make(map[uuid.UUID]string),
		ExoneratedFields: make(map[uuid.UUID]string),
		NumericFields:    make(map[string]decimal.Decimal),
	}
	for i := range mappings {
		m := &mappings[i]
		switch m.Kind {
		case MappingCode:
			for _, codeID := range m.CodeIDs() {
				resolved.CodeFields[codeID] = m.FieldName
			}
		case MappingExonerated390:
			for _, codeID := range m.CodeIDs() {
				resolved.ExoneratedFields[codeID] = m.FieldName
			}
		case MappingNumeric:
			if m.Number != nil {
				resolved.NumericFields[m.FieldName] = *m.Number
			}
		}
	}
	if len(resolved.NumericFields) == 0 {
		return nil, shared.NewDomainError("MAPPING_NOT_CONFIGURED", "No numeric tax code mapping is configured for the company")
	}
	return resolved, nil
}
