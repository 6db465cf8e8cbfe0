package domain

import "time"

// PaymentEventType is the outcome reported by the payment collaborator.
type PaymentEventType string

const (
	EventPledgeConfirmed PaymentEventType = "PLEDGE_CONFIRMED"
	EventPledgeFailed    PaymentEventType = "PLEDGE_FAILED"
	EventRefundConfirmed PaymentEventType = "REFUND_CONFIRMED"
	EventRefundFailed    PaymentEventType = "REFUND_FAILED"
	EventPayoutConfirmed PaymentEventType = "PAYOUT_CONFIRMED"
	EventPayoutFailed    PaymentEventType = "PAYOUT_FAILED"
)

// PaymentEvent is a normalized confirmation from the payment collaborator.
// SubjectID is the pledge id for pledge/refund events and the distribution
// entry id for payout events.
type PaymentEvent struct {
	EventID    string           `json:"eventID"`
	Type       PaymentEventType `json:"type"`
	ProjectID  string           `json:"projectID"`
	SubjectID  string           `json:"subjectID"`
	Amount     Money            `json:"amount"`
	PaymentRef string           `json:"paymentRef"`
	Reason     string           `json:"reason,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// PaymentCommandKind is an instruction sent to the payment collaborator.
type PaymentCommandKind string

const (
	CommandCollectPledge PaymentCommandKind = "COLLECT_PLEDGE"
	CommandIssuePayout   PaymentCommandKind = "ISSUE_PAYOUT"
	CommandRefund        PaymentCommandKind = "REFUND"
)

// PaymentCommand is queued after commit and delivered to the payment gateway.
type PaymentCommand struct {
	Kind       PaymentCommandKind `json:"kind"`
	ProjectID  string             `json:"projectID"`
	SubjectID  string             `json:"subjectID"` // Pledge or entry id
	BackerID   string             `json:"backerID"`
	Amount     Money              `json:"amount"`
	PaymentRef string             `json:"paymentRef,omitempty"` // Original charge, for refunds
}

// DomainEvent is published after a successful mutation for downstream consumers.
type DomainEvent struct {
	Name       string         `json:"name"`
	ProjectID  string         `json:"projectID"`
	ActorID    string         `json:"actorID"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}
