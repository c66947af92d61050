package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/shared"
)

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec("secret")
	token, err := codec.Issue(Identity{UserID: 42, OrgID: orgPtr(7), Role: rbac.RoleOrgAdmin}, nil, time.Hour)
	require.NoError(t, err)

	sctx, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), sctx.Identity.UserID)
	require.NotNil(t, sctx.Identity.OrgID)
	assert.Equal(t, int64(7), *sctx.Identity.OrgID)
	assert.Equal(t, rbac.RoleOrgAdmin, sctx.Identity.Role)
	assert.Nil(t, sctx.Overlay)
	assert.NotEmpty(t, sctx.TokenID)
}

func TestCodecOverlayRoundTrip(t *testing.T) {
	codec := NewCodec("secret")
	expires := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token, err := codec.Issue(
		Identity{UserID: 1, Role: rbac.RolePlatformSuperAdmin},
		&Overlay{TargetOrgID: orgPtr(5), TargetRole: rbac.RoleOrgViewer, ExpiresAt: expires},
		time.Hour)
	require.NoError(t, err)

	sctx, err := codec.Decode(token)
	require.NoError(t, err)
	require.NotNil(t, sctx.Overlay)
	assert.Equal(t, rbac.RoleOrgViewer, sctx.Overlay.TargetRole)
	require.NotNil(t, sctx.Overlay.TargetOrgID)
	assert.Equal(t, int64(5), *sctx.Overlay.TargetOrgID)
	assert.True(t, sctx.Overlay.ExpiresAt.Equal(expires))
}

func TestCodecRejectsUnknownRole(t *testing.T) {
	codec := NewCodec("secret")
	_, err := codec.Issue(Identity{UserID: 1, Role: rbac.Role("made-up")}, nil, time.Hour)
	assert.Error(t, err)
}

func TestCodecExpiredToken(t *testing.T) {
	codec := NewCodec("secret")
	issued := time.Now().Add(-2 * time.Hour)
	codec.WithNow(func() time.Time { return issued })
	token, err := codec.Issue(Identity{UserID: 1, Role: rbac.RoleOrgViewer, OrgID: orgPtr(1)}, nil, time.Hour)
	require.NoError(t, err)

	codec.WithNow(time.Now)
	_, err = codec.Decode(token)
	assert.True(t, errors.Is(err, shared.ErrAuthenticationExpired))
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	issuer := NewCodec("secret-a")
	token, err := issuer.Issue(Identity{UserID: 1, Role: rbac.RoleOrgViewer, OrgID: orgPtr(1)}, nil, time.Hour)
	require.NoError(t, err)

	verifier := NewCodec("secret-b")
	_, err = verifier.Decode(token)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, shared.ErrAuthenticationExpired))
}

func TestCodecRejectsGarbage(t *testing.T) {
	codec := NewCodec("secret")
	_, err := codec.Decode("not.a.token")
	assert.Error(t, err)
}
