package mapping

import (
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/models"
)

// ToModelStage converts a domain ExecutionStage to a model ExecutionStage
func ToModelStage(d domain.ExecutionStage) models.ExecutionStage {
	return models.ExecutionStage{
		StageID:         d.StageID,
		ProjectID:       d.ProjectID,
		Name:            d.Name,
		Sequence:        d.Sequence,
		Budget:          int64(d.Budget),
		Status:          string(d.Status),
		ProgressPercent: d.ProgressPercent,
		StartDate:       NullTime(d.StartDate),
		EndDate:         NullTime(d.EndDate),
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainStage converts a model ExecutionStage to a domain ExecutionStage
func ToDomainStage(m models.ExecutionStage) domain.ExecutionStage {
	return domain.ExecutionStage{
		StageID:         m.StageID,
		ProjectID:       m.ProjectID,
		Name:            m.Name,
		Sequence:        m.Sequence,
		Budget:          domain.Money(m.Budget),
		Status:          domain.StageStatus(m.Status),
		ProgressPercent: m.ProgressPercent,
		StartDate:       TimePtr(m.StartDate),
		EndDate:         TimePtr(m.EndDate),
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
}
