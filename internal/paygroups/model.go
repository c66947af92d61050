package paygroups

import "time"

// PayFrequency is how often a pay group runs payroll.
type PayFrequency string

const (
	FrequencyMonthly  PayFrequency = "MONTHLY"
	FrequencyBiweekly PayFrequency = "BIWEEKLY"
	FrequencyWeekly   PayFrequency = "WEEKLY"
)

// Valid reports whether the frequency is one of the supported values.
func (f PayFrequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyBiweekly, FrequencyWeekly:
		return true
	}
	return false
}

// PayGroup clusters employees that are paid together on one schedule.
type PayGroup struct {
	ID           int64        `json:"id"`
	OrgID        int64        `json:"org_id"`
	Name         string       `json:"name"`
	PayFrequency PayFrequency `json:"pay_frequency"`
	Currency     string       `json:"currency"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// PayGroupInput is the payload for creating or updating a pay group.
type PayGroupInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	PayFrequency string `json:"pay_frequency" validate:"required"`
	Currency     string `json:"currency" validate:"required,len=3"`
}
