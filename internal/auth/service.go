// Package auth handles credential verification and session token issuance.
// Token refresh and third-party identity providers live outside this core;
// it only issues and revokes the bearer tokens the rest of the API consumes.
package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/paylane-hq/paylane/internal/session"
	"github.com/paylane-hq/paylane/internal/shared"
	"github.com/paylane-hq/paylane/internal/users"
)

// AccountSource loads accounts for credential checks.
type AccountSource interface {
	GetByEmail(ctx context.Context, email string) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	accounts AccountSource
	codec    *session.Codec
	audit    shared.AuditSink
	ttl      time.Duration
}

// NewService constructs a Service.
func NewService(accounts AccountSource, codec *session.Codec, audit shared.AuditSink, ttl time.Duration) *Service {
	return &Service{accounts: accounts, codec: codec, audit: audit, ttl: ttl}
}

// LoginResult carries the issued token and its subject.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *users.User `json:"user,omitempty"`
}

// Authenticate validates email/password credentials and issues a session
// token. Inactive accounts fail exactly like wrong credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (LoginResult, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	token, err := s.codec.Issue(session.Identity{
		UserID: account.ID,
		OrgID:  account.OrgID,
		Role:   account.Role,
	}, nil, s.ttl)
	if err != nil {
		return LoginResult{}, err
	}
	account.PasswordHash = ""
	return LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.ttl),
		User:      &account,
	}, nil
}
