package declaration

import (
	"github.com/aeat/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const reportAggregateType = "AEAT303Report"

// ReportCreatedEvent is raised when a new declaration draft is created
type ReportCreatedEvent struct {
	shared.BaseDomainEvent
	Year   int    `json:"year"`
	Period string `json:"period"`
	Type   string `json:"declaration_type"`
}

// NewReportCreatedEvent creates a new report created event
func NewReportCreatedEvent(report *Report) *ReportCreatedEvent {
	return &ReportCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("aeat303.report.created", report.ID, reportAggregateType, report.CompanyID),
		Year:            report.Year,
		Period:          report.Period,
		Type:            string(report.Type),
	}
}

// ReportCalculatedEvent is raised after the declaration boxes are populated
type ReportCalculatedEvent struct {
	shared.BaseDomainEvent
	Year              int             `json:"year"`
	Period            string          `json:"period"`
	LiquidationResult decimal.Decimal `json:"liquidation_result"`
}

// NewReportCalculatedEvent creates a new report calculated event
func NewReportCalculatedEvent(report *Report) *ReportCalculatedEvent {
	return &ReportCalculatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent("aeat303.report.calculated", report.ID, reportAggregateType, report.CompanyID),
		Year:              report.Year,
		Period:            report.Period,
		LiquidationResult: report.LiquidationResult(),
	}
}

// ReportProcessedEvent is raised when the declaration file is generated and
// the declaration is closed
type ReportProcessedEvent struct {
	shared.BaseDomainEvent
	Filename          string          `json:"filename"`
	LiquidationResult decimal.Decimal `json:"liquidation_result"`
}

// NewReportProcessedEvent creates a new report processed event
func NewReportProcessedEvent(report *Report) *ReportProcessedEvent {
	return &ReportProcessedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent("aeat303.report.processed", report.ID, reportAggregateType, report.CompanyID),
		Filename:          report.Filename(),
		LiquidationResult: report.LiquidationResult(),
	}
}

// ReportCancelledEvent is raised when a declaration is cancelled
type ReportCancelledEvent struct {
	shared.BaseDomainEvent
	Year   int    `json:"year"`
	Period string `json:"period"`
}

// NewReportCancelledEvent creates a new report cancelled event
func NewReportCancelledEvent(report *Report) *ReportCancelledEvent {
	return &ReportCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("aeat303.report.cancelled", report.ID, reportAggregateType, report.CompanyID),
		Year:            report.Year,
		Period:          report.Period,
	}
}
