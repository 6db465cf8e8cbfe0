package dto

import "time"

// AddStageRequest defines one budgeted execution stage.
type AddStageRequest struct {
	Name      string     `json:"name" validate:"required,max=200"`
	Sequence  int        `json:"sequence" validate:"gte=0"`
	Budget    int64      `json:"budget" validate:"gt=0,lte=9007199254740992"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}
