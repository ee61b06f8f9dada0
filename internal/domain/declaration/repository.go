package declaration

import (
	"context"

	"github.com/google/uuid"
)

// ReportRepository persists declaration reports
type ReportRepository interface {
	Save(ctx context.Context, report *Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*Report, error)
	// FindByPeriod returns the non-cancelled report of a (company, year,
	// period) triple
	FindByPeriod(ctx context.Context, companyID uuid.UUID, year int, period string) (*Report, error)
	FindByCompany(ctx context.Context, companyID uuid.UUID) ([]Report, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MappingRepository persists the company mapping table and the template
// catalog it is seeded from
type MappingRepository interface {
	Save(ctx context.Context, mapping *TaxCodeMapping) error
	FindByCompany(ctx context.Context, companyID uuid.UUID) ([]TaxCodeMapping, error)
	FindByCompanyAndField(ctx context.Context, companyID uuid.UUID, fieldName string) (*TaxCodeMapping, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SaveTemplate(ctx context.Context, template *TemplateTaxCodeMapping) error
	Templates(ctx context.Context) ([]TemplateTaxCodeMapping, error)
}

// ProrataRepository persists the prorata configuration and mappings
type ProrataRepository interface {
	Config(ctx context.Context, companyID uuid.UUID) (*ProrataConfig, error)
	SaveConfig(ctx context.Context, config *ProrataConfig) error
	Mappings(ctx context.Context, companyID uuid.UUID) ([]ProrataMapping, error)
	SaveMapping(ctx context.Context, mapping *ProrataMapping) error
}
