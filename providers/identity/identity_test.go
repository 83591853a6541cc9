package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/providers/identity"
)

func TestAssignGroupMirrorsMembershipBothSides(t *testing.T) {
	p := identity.New()
	u := p.SeedUser("alice@example.com", "")
	g := p.SeedGroup("engineering")

	result, err := p.Call("okta.assign_group", map[string]any{"user_id": u.ID, "group_id": g.ID})
	require.NoError(t, err)
	require.Contains(t, result.(*identity.Group).Members, u.ID)

	fetched, err := p.Call("okta.get_user", map[string]any{"user_id": u.ID})
	require.NoError(t, err)
	require.Contains(t, fetched.(*identity.User).Groups, g.ID)
}

func TestResetPasswordForbiddenWhenDeprovisioned(t *testing.T) {
	p := identity.New()
	u := p.SeedUser("bob@example.com", identity.StatusDeprovisioned)

	_, err := p.Call("okta.reset_password", map[string]any{"user_id": u.ID})
	require.Error(t, err)
}

func TestUnknownUserIsTypedError(t *testing.T) {
	p := identity.New()
	_, err := p.Call("okta.get_user", map[string]any{"user_id": "U-999"})
	require.Error(t, err)
}
