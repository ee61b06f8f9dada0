package declaration

import (
	"context"

	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChartService maintains the template mapping catalog and seeds it into
// company mapping tables
type ChartService struct {
	mappingRepo declaration.MappingRepository
}

// NewChartService creates a new ChartService
func NewChartService(mappingRepo declaration.MappingRepository) *ChartService {
	return &ChartService{mappingRepo: mappingRepo}
}

// UpsertTemplateRequest carries one row of the template catalog
type UpsertTemplateRequest struct {
	FieldName string           `json:"field_name" binding:"required"`
	Kind      string           `json:"kind" binding:"required"`
	Number    *decimal.Decimal `json:"number"`
	CodeIDs   []uuid.UUID      `json:"code_ids"`
}

// TemplateResponse represents a template mapping in API responses
type TemplateResponse struct {
	ID        uuid.UUID        `json:"id"`
	FieldName string           `json:"field_name"`
	Kind      string           `json:"kind"`
	Number    *decimal.Decimal `json:"number,omitempty"`
	CodeIDs   []uuid.UUID      `json:"code_ids"`
}

// SyncResult summarizes one company synchronization run
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

func toTemplateResponse(template *declaration.TemplateTaxCodeMapping) *TemplateResponse {
	return &TemplateResponse{
		ID:        template.ID,
		FieldName: template.FieldName,
		Kind:      string(template.Kind),
		Number:    template.Number,
		CodeIDs:   template.CodeIDs(),
	}
}

// Templates returns the template catalog
func (s *ChartService) Templates(ctx context.Context) ([]TemplateResponse, error) {
	templates, err := s.mappingRepo.Templates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TemplateResponse, len(templates))
	for i := range templates {
		out[i] = *toTemplateResponse(&templates[i])
	}
	return out, nil
}

// UpsertTemplate creates or replaces the template of one declaration box
func (s *ChartService) UpsertTemplate(ctx context.Context, req UpsertTemplateRequest) (*TemplateResponse, error) {
	kind := declaration.MappingKind(req.Kind)
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_MAPPING_KIND", "Unknown mapping kind")
	}
	if !declaration.Form303Schema.Has(req.FieldName) {
		return nil, shared.NewDomainError("UNKNOWN_FIELD", "The declaration box is not part of the form")
	}

	templates, err := s.mappingRepo.Templates(ctx)
	if err != nil {
		return nil, err
	}
	var template *declaration.TemplateTaxCodeMapping
	for i := range templates {
		if templates[i].FieldName == req.FieldName {
			template = &templates[i]
			break
		}
	}
	if template == nil {
		template = &declaration.TemplateTaxCodeMapping{
			BaseEntity: shared.NewBaseEntity(),
			FieldName:  req.FieldName,
		}
	}
	template.Kind = kind
	template.Number = req.Number
	template.Codes = template.Codes[:0]
	for _, codeID := range req.CodeIDs {
		template.Codes = append(template.Codes, declaration.TemplateCodeLink{
			ID:         uuid.New(),
			TemplateID: template.ID,
			TaxCodeID:  codeID,
		})
	}
	if err := s.mappingRepo.SaveTemplate(ctx, template); err != nil {
		return nil, err
	}
	return toTemplateResponse(template), nil
}

// SyncMappings brings a company's mapping table in line with the template
// catalog. Existing mappings receive only the attributes that differ from
// their template, so manual per-company edits outside the diff survive.
func (s *ChartService) SyncMappings(ctx context.Context, companyID uuid.UUID) (*SyncResult, error) {
	templates, err := s.mappingRepo.Templates(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.mappingRepo.FindByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	byTemplate := make(map[uuid.UUID]*declaration.TaxCodeMapping)
	byField := make(map[string]*declaration.TaxCodeMapping)
	for i := range existing {
		m := &existing[i]
		if m.TemplateID != nil {
			byTemplate[*m.TemplateID] = m
		}
		byField[m.FieldName] = m
	}

	result := &SyncResult{}
	for i := range templates {
		template := &templates[i]
		mapping := byTemplate[template.ID]
		adopted := false
		if mapping == nil {
			// first sync of a pre-existing catalog: adopt by box name
			if candidate, ok := byField[template.FieldName]; ok && candidate.TemplateID == nil {
				mapping = candidate
				mapping.TemplateID = &template.ID
				adopted = true
			}
		}
		diff := template.DiffAgainst(mapping)
		if diff.IsEmpty() {
			if adopted {
				if err := s.mappingRepo.Save(ctx, mapping); err != nil {
					return nil, err
				}
				result.Updated++
			}
			continue
		}
		if mapping == nil {
			mapping, err = declaration.NewTaxCodeMapping(companyID, template.FieldName, template.Kind)
			if err != nil {
				return nil, err
			}
			mapping.TemplateID = &template.ID
			diff.Apply(mapping)
			result.Created++
		} else {
			diff.Apply(mapping)
			result.Updated++
		}
		if err := s.mappingRepo.Save(ctx, mapping); err != nil {
			return nil, err
		}
	}
	return result, nil
}
