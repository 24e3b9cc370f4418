package rbac

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermissionFailsClosed(t *testing.T) {
	for _, role := range Roles() {
		granted := make(map[Capability]bool)
		for _, c := range Capabilities(role) {
			granted[c] = true
		}
		for _, c := range AllCapabilities() {
			assert.Equal(t, granted[c], HasPermission(role, c), "%s / %s", role, c)
		}
	}
}

func TestUnknownRoleOrCapabilityDenied(t *testing.T) {
	assert.False(t, HasPermission(roleInvalid, CapOrdersView))
	assert.False(t, HasPermission(Role(200), CapOrdersView))
	assert.False(t, HasPermission(RoleSuperAdmin, capInvalid))
	assert.False(t, HasPermission(RoleSuperAdmin, Capability(250)))
	assert.Empty(t, Capabilities(Role(99)))
}

func TestCustomerHasNoBackOfficeCapabilities(t *testing.T) {
	assert.Empty(t, Capabilities(RoleCustomer))
}

func TestSuperAdminHoldsEverything(t *testing.T) {
	assert.ElementsMatch(t, AllCapabilities(), Capabilities(RoleSuperAdmin))
}

func TestRoleTableIsExhaustive(t *testing.T) {
	for _, role := range Roles() {
		assert.NotEqual(t, "UNKNOWN", role.String())
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}
	for _, c := range AllCapabilities() {
		assert.NotEmpty(t, capabilityNames[c], "capability %d has no name", c)
		parsed, err := ParseCapability(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	assert.Less(t, int(capCount), 64, "capSet is a uint64 bitset")
}

func TestSelectedGrants(t *testing.T) {
	assert.True(t, HasPermission(RoleAdmin, CapEmployeesView))
	assert.False(t, HasPermission(RoleAdmin, CapEmployeesEdit))
	assert.False(t, HasPermission(RoleAdmin, CapSettingsEdit))
	assert.True(t, HasPermission(RoleEditor, CapProductsDelete))
	assert.False(t, HasPermission(RoleEditor, CapOrdersView))
	assert.True(t, HasPermission(RoleSupport, CapMessagesEdit))
	assert.False(t, HasPermission(RoleSupport, CapProductsEdit))
}

func TestParseRejectsUnknownNames(t *testing.T) {
	_, err := ParseRole("OWNER")
	assert.Error(t, err)
	_, err = ParseCapability("orders.eddit")
	assert.Error(t, err)
}

func TestRoleJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Role{"role": RoleEditor})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"EDITOR"}`, string(data))

	var decoded struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"support"}`), &decoded))
	assert.Equal(t, RoleSupport, decoded.Role)
	assert.Error(t, json.Unmarshal([]byte(`{"role":"ROOT"}`), &decoded))
}
