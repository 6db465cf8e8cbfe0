package domain

import (
	"sort"
	"time"
)

// PledgeStatus tracks a backer contribution through payment.
type PledgeStatus string

const (
	PledgePending   PledgeStatus = "PENDING"
	PledgeCompleted PledgeStatus = "COMPLETED"
	PledgeCancelled PledgeStatus = "CANCELLED"
	PledgeRefunded  PledgeStatus = "REFUNDED"
)

// Pledge is a backer's contribution to a project.
type Pledge struct {
	PledgeID          string       `json:"pledgeID"`
	ProjectID         string       `json:"projectID"`
	BackerID          string       `json:"backerID"`
	Amount            Money        `json:"amount"`
	PledgedAt         time.Time    `json:"pledgedAt"`
	Status            PledgeStatus `json:"status"`
	PaymentRef        *string      `json:"paymentRef,omitempty"`
	Counted           bool         `json:"counted"` // Included in the project's CurrentAmount
	RefundRequestedAt *time.Time   `json:"refundRequestedAt,omitempty"`
	AuditFields
}

// AwaitingRefund reports whether a refund has been requested and not yet confirmed.
func (p *Pledge) AwaitingRefund() bool {
	return p.Status == PledgeCompleted && p.RefundRequestedAt != nil
}

// BackerContribution is the total completed pledge amount of one backer.
type BackerContribution struct {
	BackerID string `json:"backerID"`
	Amount   Money  `json:"amount"`
}

// AggregateCompletedPledges sums completed pledges that count toward the
// project's funds, per backer, ordered by backer id.
func AggregateCompletedPledges(pledges []Pledge) []BackerContribution {
	byBacker := make(map[string]Money)
	for _, p := range pledges {
		if p.Status != PledgeCompleted || !p.Counted {
			continue
		}
		byBacker[p.BackerID] = byBacker[p.BackerID].Plus(p.Amount)
	}
	out := make([]BackerContribution, 0, len(byBacker))
	for id, amt := range byBacker {
		out = append(out, BackerContribution{BackerID: id, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BackerID < out[j].BackerID })
	return out
}
