package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paylane-hq/paylane/internal/shared"
)

// Verifier turns raw bearer tokens into verified security contexts. It checks
// the Redis revocation list, voids escalating overlays, and emits the audit
// records required for impersonation use.
type Verifier struct {
	codec  *Codec
	client *redis.Client
	audit  shared.AuditSink
	logger *slog.Logger
	now    func() time.Time
}

// NewVerifier constructs a Verifier.
func NewVerifier(codec *Codec, client *redis.Client, audit shared.AuditSink, logger *slog.Logger) *Verifier {
	return &Verifier{codec: codec, client: client, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (v *Verifier) WithNow(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// Verify decodes and validates a raw token. Expired or revoked tokens yield
// shared.ErrAuthenticationExpired. An overlay above the real identity's
// level is voided and recorded as a security event before the context is
// returned.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Context, error) {
	sctx, err := v.codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	now := v.now()
	if sctx.Expired(now) {
		return nil, shared.ErrAuthenticationExpired
	}

	if v.client != nil && sctx.TokenID != "" {
		revoked, err := v.client.Exists(ctx, shared.RevokedTokenKey(sctx.TokenID)).Result()
		if err != nil {
			return nil, fmt.Errorf("session: revocation check: %w", err)
		}
		if revoked > 0 {
			return nil, shared.ErrAuthenticationExpired
		}
	}

	if sctx.Escalated(now) {
		// Defensive check for a state that should never be constructible.
		v.recordAudit(ctx, shared.AuditEvent{
			ActorID:     sctx.Identity.UserID,
			RealActorID: sctx.Identity.UserID,
			Action:      "impersonation.escalation_rejected",
			Entity:      "session",
			EntityID:    sctx.TokenID,
			Result:      shared.AuditResultSecurity,
			Meta: map[string]any{
				"real_role":    string(sctx.Identity.Role),
				"overlay_role": string(sctx.Overlay.TargetRole),
			},
		})
		if v.logger != nil {
			v.logger.Warn("impersonation escalation rejected",
				slog.Int64("user_id", sctx.Identity.UserID),
				slog.String("real_role", string(sctx.Identity.Role)),
				slog.String("overlay_role", string(sctx.Overlay.TargetRole)))
		}
		sctx.Overlay = nil
		return sctx, nil
	}

	if sctx.Impersonating(now) {
		v.recordAudit(ctx, shared.AuditEvent{
			ActorID:     sctx.Identity.UserID,
			RealActorID: sctx.Identity.UserID,
			Action:      "impersonation.use",
			Entity:      "session",
			EntityID:    sctx.TokenID,
			Result:      shared.AuditResultAllowed,
			Meta: map[string]any{
				"authenticated_role": string(sctx.Identity.Role),
				"acting_role":        string(sctx.Overlay.TargetRole),
			},
		})
	}

	return sctx, nil
}

// Revoke blacklists the token until its natural expiry.
func (v *Verifier) Revoke(ctx context.Context, sctx *Context) error {
	if v.client == nil || sctx == nil || sctx.TokenID == "" {
		return nil
	}
	ttl := time.Until(sctx.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return v.client.Set(ctx, shared.RevokedTokenKey(sctx.TokenID), "1", ttl).Err()
}

func (v *Verifier) recordAudit(ctx context.Context, event shared.AuditEvent) {
	if v.audit == nil {
		return
	}
	if err := v.audit.Record(ctx, event); err != nil && v.logger != nil {
		v.logger.Error("record session audit", slog.Any("error", err))
	}
}
