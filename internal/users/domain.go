package users

import (
	"time"

	"github.com/paylane-hq/paylane/internal/rbac"
)

// User represents an account. OrgID nil means a platform-scope account.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	OrgID        *int64     `json:"org_id,omitempty"`
	Role         rbac.Role  `json:"role"`
	IsActive     bool       `json:"is_active"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
