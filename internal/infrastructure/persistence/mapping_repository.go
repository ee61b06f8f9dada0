package persistence

import (
	"context"
	"errors"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMappingRepository implements declaration.MappingRepository using GORM
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// Save persists a mapping together with its code links. Links removed from
// the aggregate are removed from the join table.
func (r *GormMappingRepository) Save(ctx context.Context, mapping *declaration.TaxCodeMapping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Codes").Save(mapping).Error; err != nil {
			return err
		}
		if err := tx.Where("mapping_id = ?", mapping.ID).
			Delete(&declaration.MappingCodeLink{}).Error; err != nil {
			return err
		}
		if len(mapping.Codes) == 0 {
			return nil
		}
		return tx.Create(&mapping.Codes).Error
	})
}

// FindByCompany returns a company's mappings with their code links loaded
func (r *GormMappingRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) ([]declaration.TaxCodeMapping, error) {
	var mappings []declaration.TaxCodeMapping
	if err := r.db.WithContext(ctx).
		Preload("Codes").
		Where("company_id = ?", companyID).
		Order("field_name ASC").
		Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

// FindByCompanyAndField finds the mapping of one declaration box
func (r *GormMappingRepository) FindByCompanyAndField(ctx context.Context, companyID uuid.UUID, fieldName string) (*declaration.TaxCodeMapping, error) {
	var mapping declaration.TaxCodeMapping
	if err := r.db.WithContext(ctx).
		Preload("Codes").
		Where("company_id = ? AND field_name = ?", companyID, fieldName).
		First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

// Delete removes a mapping and its code links
func (r *GormMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("mapping_id = ?", id).
			Delete(&declaration.MappingCodeLink{}).Error; err != nil {
			return err
		}
		return tx.Delete(&declaration.TaxCodeMapping{}, "id = ?", id).Error
	})
}

// SaveTemplate persists a template mapping with its code links
func (r *GormMappingRepository) SaveTemplate(ctx context.Context, template *declaration.TemplateTaxCodeMapping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Codes").Save(template).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", template.ID).
			Delete(&declaration.TemplateCodeLink{}).Error; err != nil {
			return err
		}
		if len(template.Codes) == 0 {
			return nil
		}
		return tx.Create(&template.Codes).Error
	})
}

// Templates returns the full template catalog
func (r *GormMappingRepository) Templates(ctx context.Context) ([]declaration.TemplateTaxCodeMapping, error) {
	var templates []declaration.TemplateTaxCodeMapping
	if err := r.db.WithContext(ctx).
		Preload("Codes").
		Order("field_name ASC").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}
