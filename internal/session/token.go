package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/shared"
)

// Claims is the JWT payload of a session token. Impersonation overlay fields
// are present only while an overlay is attached.
type Claims struct {
	OrgID        *int64 `json:"org,omitempty"`
	Role         string `json:"role"`
	ImpOrgID     *int64 `json:"imp_org,omitempty"`
	ImpRole      string `json:"imp_role,omitempty"`
	ImpExpiresAt int64  `json:"imp_exp,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and parses session tokens with an HMAC secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec constructs a Codec.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (c *Codec) WithNow(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Issue signs a token for the identity with the given lifetime. An overlay,
// when present, is embedded verbatim; escalation is rejected at decode time
// as well, so a token store compromise cannot smuggle one in.
func (c *Codec) Issue(identity Identity, overlay *Overlay, ttl time.Duration) (string, error) {
	if !rbac.Known(identity.Role) {
		return "", fmt.Errorf("session: unknown role %q", identity.Role)
	}
	now := c.now()
	claims := Claims{
		OrgID: identity.OrgID,
		Role:  string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", identity.UserID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if overlay != nil {
		claims.ImpOrgID = overlay.TargetOrgID
		claims.ImpRole = string(overlay.TargetRole)
		claims.ImpExpiresAt = overlay.ExpiresAt.Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode parses and validates a raw token into a session Context. An expired
// token yields shared.ErrAuthenticationExpired; any other defect is a plain
// error since it indicates a forged or corrupted credential.
func (c *Codec) Decode(raw string) (*Context, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("session: unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, shared.ErrAuthenticationExpired
		}
		return nil, fmt.Errorf("session: parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("session: invalid token")
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil || userID <= 0 {
		return nil, errors.New("session: invalid subject")
	}
	role := rbac.Role(claims.Role)
	if !rbac.Known(role) {
		return nil, fmt.Errorf("session: unknown role %q", claims.Role)
	}

	sctx := &Context{
		Identity: Identity{UserID: userID, OrgID: claims.OrgID, Role: role},
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		sctx.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.ImpRole != "" {
		impRole := rbac.Role(claims.ImpRole)
		if !rbac.Known(impRole) {
			return nil, fmt.Errorf("session: unknown overlay role %q", claims.ImpRole)
		}
		sctx.Overlay = &Overlay{
			TargetOrgID: claims.ImpOrgID,
			TargetRole:  impRole,
			ExpiresAt:   time.Unix(claims.ImpExpiresAt, 0),
		}
	}
	return sctx, nil
}
