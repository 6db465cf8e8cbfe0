package mapping

import (
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/models"
)

// ToModelPledge converts a domain Pledge to a model Pledge
func ToModelPledge(d domain.Pledge) models.Pledge {
	return models.Pledge{
		PledgeID:          d.PledgeID,
		ProjectID:         d.ProjectID,
		BackerID:          d.BackerID,
		Amount:            int64(d.Amount),
		PledgedAt:         d.PledgedAt,
		Status:            string(d.Status),
		PaymentRef:        NullString(d.PaymentRef),
		Counted:           d.Counted,
		RefundRequestedAt: NullTime(d.RefundRequestedAt),
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainPledge converts a model Pledge to a domain Pledge
func ToDomainPledge(m models.Pledge) domain.Pledge {
	return domain.Pledge{
		PledgeID:          m.PledgeID,
		ProjectID:         m.ProjectID,
		BackerID:          m.BackerID,
		Amount:            domain.Money(m.Amount),
		PledgedAt:         m.PledgedAt,
		Status:            domain.PledgeStatus(m.Status),
		PaymentRef:        StringPtr(m.PaymentRef),
		Counted:           m.Counted,
		RefundRequestedAt: TimePtr(m.RefundRequestedAt),
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
}
