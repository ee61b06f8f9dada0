package persistence

import (
	"context"
	"errors"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReportRepository implements declaration.ReportRepository using GORM
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// Save persists a report, creating or updating as needed
func (r *GormReportRepository) Save(ctx context.Context, report *declaration.Report) error {
	return r.db.WithContext(ctx).Save(report).Error
}

// FindByID finds a report by its ID
func (r *GormReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*declaration.Report, error) {
	var report declaration.Report
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

// FindByPeriod finds the live report of a (company, year, period) triple
func (r *GormReportRepository) FindByPeriod(ctx context.Context, companyID uuid.UUID, year int, period string) (*declaration.Report, error) {
	var report declaration.Report
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND year = ? AND period = ? AND state <> ?",
			companyID, year, period, declaration.StateCancelled).
		First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

// FindByCompany returns a company's reports, newest period first
func (r *GormReportRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) ([]declaration.Report, error) {
	var reports []declaration.Report
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("year DESC, period DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// Delete removes a report
func (r *GormReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&declaration.Report{}, "id = ?", id).Error
}
