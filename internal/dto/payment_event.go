package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PaymentEventPayload is the wire shape the payment collaborator sends.
// Amount may arrive as a JSON number or string; OccurredAt as RFC 3339 or unix seconds.
type PaymentEventPayload struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	ProjectID  string          `json:"project_id"`
	SubjectID  string          `json:"subject_id"`
	Amount     json.RawMessage `json:"amount"`
	PaymentRef string          `json:"payment_ref"`
	Reason     string          `json:"reason"`
	OccurredAt json.RawMessage `json:"occurred_at"`
}

type normalizedPaymentEvent struct {
	EventID   string `validate:"required"`
	Type      string `validate:"required,oneof=PLEDGE_CONFIRMED PLEDGE_FAILED REFUND_CONFIRMED REFUND_FAILED PAYOUT_CONFIRMED PAYOUT_FAILED"`
	ProjectID string `validate:"required"`
	SubjectID string `validate:"required"`
	Amount    int64  `validate:"gte=0"`
}

// DecodePaymentEvent parses and normalizes a raw message body.
func DecodePaymentEvent(body []byte) (domain.PaymentEvent, error) {
	var payload PaymentEventPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: malformed payment event: %v", apperrors.ErrValidation, err)
	}
	return NormalizePaymentEvent(payload, time.Now().UTC())
}

// NormalizePaymentEvent converts the loosely typed payload into a domain event.
// Any field that cannot be interpreted exactly is rejected rather than defaulted;
// now is used only when occurred_at is absent.
func NormalizePaymentEvent(p PaymentEventPayload, now time.Time) (domain.PaymentEvent, error) {
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: amount: %v", apperrors.ErrValidation, err)
	}
	occurredAt, err := parseTimestamp(p.OccurredAt, now)
	if err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: occurred_at: %v", apperrors.ErrValidation, err)
	}

	n := normalizedPaymentEvent{
		EventID:   strings.TrimSpace(p.EventID),
		Type:      strings.ToUpper(strings.TrimSpace(p.Type)),
		ProjectID: strings.TrimSpace(p.ProjectID),
		SubjectID: strings.TrimSpace(p.SubjectID),
		Amount:    int64(amount),
	}
	if err := Validate(n); err != nil {
		return domain.PaymentEvent{}, err
	}

	return domain.PaymentEvent{
		EventID:    n.EventID,
		Type:       domain.PaymentEventType(n.Type),
		ProjectID:  n.ProjectID,
		SubjectID:  n.SubjectID,
		Amount:     amount,
		PaymentRef: strings.TrimSpace(p.PaymentRef),
		Reason:     strings.TrimSpace(p.Reason),
		OccurredAt: occurredAt,
	}, nil
}

func parseAmount(raw json.RawMessage) (domain.Money, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(str)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return domain.MoneyFromDecimal(d)
}

func parseTimestamp(raw json.RawMessage, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return now, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, err
		}
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(str))
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a unix timestamp: %q", s)
	}
	return time.Unix(secs, 0).UTC(), nil
}
