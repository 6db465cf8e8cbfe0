package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // ActorID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // ActorID Reference
	Version       int64     `json:"version"`       // Optimistic concurrency counter
}

// Touch stamps the update fields for a mutation made by actorID at now.
func (a *AuditFields) Touch(actorID string, now time.Time) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
		a.CreatedBy = actorID
	}
	a.LastUpdatedAt = now
	a.LastUpdatedBy = actorID
}
