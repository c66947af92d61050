package orgs

import "time"

// Organization is a tenant boundary. All payroll data hangs off one
// organization; the scope guard confines non-platform actors to theirs.
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
