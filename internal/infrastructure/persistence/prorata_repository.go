package persistence

import (
	"context"
	"errors"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProrataRepository implements declaration.ProrataRepository using GORM
type GormProrataRepository struct {
	db *gorm.DB
}

// NewGormProrataRepository creates a new GormProrataRepository
func NewGormProrataRepository(db *gorm.DB) *GormProrataRepository {
	return &GormProrataRepository{db: db}
}

// Config returns a company's prorata configuration
func (r *GormProrataRepository) Config(ctx context.Context, companyID uuid.UUID) (*declaration.ProrataConfig, error) {
	var config declaration.ProrataConfig
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &config, nil
}

// SaveConfig persists a prorata configuration
func (r *GormProrataRepository) SaveConfig(ctx context.Context, config *declaration.ProrataConfig) error {
	return r.db.WithContext(ctx).Save(config).Error
}

// Mappings returns a company's prorata mappings with code links loaded
func (r *GormProrataRepository) Mappings(ctx context.Context, companyID uuid.UUID) ([]declaration.ProrataMapping, error) {
	var mappings []declaration.ProrataMapping
	if err := r.db.WithContext(ctx).
		Preload("Codes").
		Where("company_id = ?", companyID).
		Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

// SaveMapping persists a prorata mapping with its code links
func (r *GormProrataRepository) SaveMapping(ctx context.Context, mapping *declaration.ProrataMapping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Codes").Save(mapping).Error; err != nil {
			return err
		}
		if err := tx.Where("mapping_id = ?", mapping.ID).
			Delete(&declaration.ProrataCodeLink{}).Error; err != nil {
			return err
		}
		if len(mapping.Codes) == 0 {
			return nil
		}
		return tx.Create(&mapping.Codes).Error
	})
}
