package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/models"
)

// ToModelProject converts a domain FundingProject to a model FundingProject
func ToModelProject(d domain.FundingProject) (models.FundingProject, error) {
	history := d.StatusHistory
	if history == nil {
		history = []domain.StatusChange{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return models.FundingProject{}, fmt.Errorf("encode status history of project %s: %w", d.ProjectID, err)
	}
	return models.FundingProject{
		ProjectID:         d.ProjectID,
		CreatorID:         d.CreatorID,
		Title:             d.Title,
		GoalAmount:        int64(d.GoalAmount),
		CurrentAmount:     int64(d.CurrentAmount),
		Status:            string(d.Status),
		TotalBudget:       int64(d.TotalBudget),
		StartDate:         d.StartDate,
		EndDate:           d.EndDate,
		StagesCompletedAt: NullTime(d.StagesCompletedAt),
		StatusHistory:     raw,
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}, nil
}

// ToDomainProject converts a model FundingProject to a domain FundingProject
func ToDomainProject(m models.FundingProject) (domain.FundingProject, error) {
	var history []domain.StatusChange
	if len(m.StatusHistory) > 0 {
		if err := json.Unmarshal(m.StatusHistory, &history); err != nil {
			return domain.FundingProject{}, fmt.Errorf("decode status history of project %s: %w", m.ProjectID, err)
		}
	}
	if len(history) == 0 {
		history = nil
	}
	return domain.FundingProject{
		ProjectID:         m.ProjectID,
		CreatorID:         m.CreatorID,
		Title:             m.Title,
		GoalAmount:        domain.Money(m.GoalAmount),
		CurrentAmount:     domain.Money(m.CurrentAmount),
		Status:            domain.ProjectStatus(m.Status),
		TotalBudget:       domain.Money(m.TotalBudget),
		StartDate:         m.StartDate,
		EndDate:           m.EndDate,
		StagesCompletedAt: TimePtr(m.StagesCompletedAt),
		StatusHistory:     history,
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}, nil
}
