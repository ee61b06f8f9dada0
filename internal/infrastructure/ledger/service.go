package ledger

import (
	"context"
	"time"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerService implements declaration.LedgerService on the ledger tables
type GormLedgerService struct {
	db *gorm.DB
}

// NewGormLedgerService creates a new GormLedgerService
func NewGormLedgerService(db *gorm.DB) *GormLedgerService {
	return &GormLedgerService{db: db}
}

// StandardPeriodsBetween returns a company's standard periods whose range
// falls within [start, end], ordered by end date ascending
func (s *GormLedgerService) StandardPeriodsBetween(ctx context.Context, companyID uuid.UUID, start, end time.Time) ([]declaration.AccountingPeriod, error) {
	var rows []Period
	if err := s.db.WithContext(ctx).
		Where("company_id = ? AND type = ? AND start_date >= ? AND end_date <= ?",
			companyID, "standard", start, end).
		Order("end_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]declaration.AccountingPeriod, len(rows))
	for i, row := range rows {
		out[i] = declaration.AccountingPeriod{
			ID:        row.ID,
			CompanyID: row.CompanyID,
			StartDate: row.StartDate,
			EndDate:   row.EndDate,
			Type:      row.Type,
		}
	}
	return out, nil
}

// AggregateTaxCodes sums the signed tax line amounts per tax code
func (s *GormLedgerService) AggregateTaxCodes(ctx context.Context, taxCodeIDs []uuid.UUID, periodIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal)
	if len(taxCodeIDs) == 0 || len(periodIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		TaxCodeID uuid.UUID
		Total     decimal.Decimal
	}
	if err := s.db.WithContext(ctx).
		Model(&TaxLineRow{}).
		Select("tax_code_id, SUM(amount) AS total").
		Where("tax_code_id IN ? AND period_id IN ?", taxCodeIDs, periodIDs).
		Group("tax_code_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.TaxCodeID] = row.Total
	}
	return out, nil
}

// TaxCodesByID resolves tax code nodes
func (s *GormLedgerService) TaxCodesByID(ctx context.Context, ids []uuid.UUID) ([]declaration.TaxCode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []TaxCodeRow
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTaxCodes(rows), nil
}

// LeafTaxCodes descends the tree under root and returns the childless nodes.
// A root without children is itself a leaf.
func (s *GormLedgerService) LeafTaxCodes(ctx context.Context, rootID uuid.UUID) ([]declaration.TaxCode, error) {
	var root TaxCodeRow
	if err := s.db.WithContext(ctx).First(&root, "id = ?", rootID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	var leaves []TaxCodeRow
	frontier := []TaxCodeRow{root}
	for len(frontier) > 0 {
		ids := make([]uuid.UUID, len(frontier))
		byID := make(map[uuid.UUID]TaxCodeRow, len(frontier))
		for i, node := range frontier {
			ids[i] = node.ID
			byID[node.ID] = node
		}
		var children []TaxCodeRow
		if err := s.db.WithContext(ctx).Where("parent_id IN ?", ids).Find(&children).Error; err != nil {
			return nil, err
		}
		hasChildren := make(map[uuid.UUID]bool)
		for _, child := range children {
			hasChildren[*child.ParentID] = true
		}
		for _, id := range ids {
			if !hasChildren[id] {
				leaves = append(leaves, byID[id])
			}
		}
		frontier = children
	}
	return toTaxCodes(leaves), nil
}

// TaxLines returns one tax code's ledger tax lines of a kind over the periods
func (s *GormLedgerService) TaxLines(ctx context.Context, taxCodeID uuid.UUID, periodIDs []uuid.UUID, kind declaration.TaxLineKind) ([]declaration.TaxLine, error) {
	if len(periodIDs) == 0 {
		return nil, nil
	}
	var rows []TaxLineRow
	if err := s.db.WithContext(ctx).
		Where("tax_code_id = ? AND period_id IN ? AND kind = ?", taxCodeID, periodIDs, string(kind)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]declaration.TaxLine, len(rows))
	for i, row := range rows {
		out[i] = declaration.TaxLine{
			ID:        row.ID,
			TaxCodeID: row.TaxCodeID,
			Kind:      declaration.TaxLineKind(row.Kind),
			AccountID: row.AccountID,
			Debit:     row.Debit,
			Credit:    row.Credit,
		}
	}
	return out, nil
}

func toTaxCodes(rows []TaxCodeRow) []declaration.TaxCode {
	out := make([]declaration.TaxCode, len(rows))
	for i, row := range rows {
		out[i] = declaration.TaxCode{
			ID:        row.ID,
			ParentID:  row.ParentID,
			Code:      row.Code,
			Name:      row.Name,
			CompanyID: row.CompanyID,
		}
	}
	return out
}

// GormMoveService implements declaration.MoveService on the journal tables
type GormMoveService struct {
	db *gorm.DB
}

// NewGormMoveService creates a new GormMoveService
func NewGormMoveService(db *gorm.DB) *GormMoveService {
	return &GormMoveService{db: db}
}

// Create inserts a draft move with its lines
func (s *GormMoveService) Create(ctx context.Context, move *declaration.AccountingMove) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := MoveRow{
			ID:          move.ID,
			CompanyID:   move.CompanyID,
			JournalID:   move.JournalID,
			PeriodID:    move.PeriodID,
			Date:        move.Date,
			Description: move.Description,
			State:       "draft",
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		lines := make([]MoveLineRow, len(move.Lines))
		for i, line := range move.Lines {
			lines[i] = MoveLineRow{
				ID:          uuid.New(),
				MoveID:      move.ID,
				AccountID:   line.AccountID,
				Debit:       line.Debit,
				Credit:      line.Credit,
				Description: line.Description,
			}
		}
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
}

// Post marks moves as posted
func (s *GormMoveService) Post(ctx context.Context, moveIDs ...uuid.UUID) error {
	return s.setState(ctx, "posted", moveIDs)
}

// Draft returns moves to the draft state
func (s *GormMoveService) Draft(ctx context.Context, moveIDs ...uuid.UUID) error {
	return s.setState(ctx, "draft", moveIDs)
}

func (s *GormMoveService) setState(ctx context.Context, state string, moveIDs []uuid.UUID) error {
	if len(moveIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&MoveRow{}).
		Where("id IN ?", moveIDs).
		Update("state", state).Error
}

// Delete removes moves and their lines
func (s *GormMoveService) Delete(ctx context.Context, moveIDs ...uuid.UUID) error {
	if len(moveIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("move_id IN ?", moveIDs).Delete(&MoveLineRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", moveIDs).Delete(&MoveRow{}).Error
	})
}

// HasReconciledLines reports whether any line of the move is reconciled
func (s *GormMoveService) HasReconciledLines(ctx context.Context, moveID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&MoveLineRow{}).
		Where("move_id = ? AND reconciliation_id IS NOT NULL", moveID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ClosePeriods marks accounting periods as closed
func (s *GormMoveService) ClosePeriods(ctx context.Context, periodIDs []uuid.UUID) error {
	if len(periodIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&Period{}).
		Where("id IN ?", periodIDs).
		Update("state", "closed").Error
}
