package employees

import "time"

// Employee is one person on an organization's payroll.
type Employee struct {
	ID         int64     `json:"id"`
	OrgID      int64     `json:"org_id"`
	PayGroupID *int64    `json:"pay_group_id,omitempty"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Position   string    `json:"position"`
	Salary     int64     `json:"salary"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateEmployeeInput is the payload for registering an employee.
type CreateEmployeeInput struct {
	PayGroupID *int64 `json:"pay_group_id"`
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Position   string `json:"position" validate:"max=120"`
	Salary     int64  `json:"salary" validate:"gte=0"`
}

// UpdateEmployeeInput is the payload for modifying an employee.
type UpdateEmployeeInput struct {
	PayGroupID *int64 `json:"pay_group_id"`
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Position   string `json:"position" validate:"max=120"`
	Salary     int64  `json:"salary" validate:"gte=0"`
	IsActive   bool   `json:"is_active"`
}
