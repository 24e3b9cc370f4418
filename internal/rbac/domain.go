package rbac

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the closed set of account roles. The zero value is not a role.
type Role uint8

const (
	roleInvalid Role = iota
	RoleCustomer
	RoleSupport
	RoleEditor
	RoleAdmin
	RoleSuperAdmin
	roleCount
)

var roleNames = [roleCount]string{
	RoleCustomer:   "CUSTOMER",
	RoleSupport:    "SUPPORT",
	RoleEditor:     "EDITOR",
	RoleAdmin:      "ADMIN",
	RoleSuperAdmin: "SUPERADMIN",
}

// Roles returns every defined role in ascending order.
func Roles() []Role {
	out := make([]Role, 0, roleCount-1)
	for r := RoleCustomer; r < roleCount; r++ {
		out = append(out, r)
	}
	return out
}

// Valid reports whether r is a defined role.
func (r Role) Valid() bool {
	return r > roleInvalid && r < roleCount
}

// IsStaff reports whether r belongs to the back office.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleCustomer
}

func (r Role) String() string {
	if !r.Valid() {
		return "UNKNOWN"
	}
	return roleNames[r]
}

// ParseRole resolves a stored role name.
func ParseRole(s string) (Role, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for r := RoleCustomer; r < roleCount; r++ {
		if roleNames[r] == s {
			return r, nil
		}
	}
	return roleInvalid, fmt.Errorf("rbac: unknown role %q", s)
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Capability is the closed set of back-office permissions. Call sites reference the
// constants, so a misspelt capability does not compile.
type Capability uint8

const (
	capInvalid Capability = iota
	CapDashboardView
	CapProductsView
	CapProductsEdit
	CapProductsDelete
	CapOrdersView
	CapOrdersEdit
	CapCustomersView
	CapCustomersEdit
	CapEmployeesView
	CapEmployeesEdit
	CapPromotionsView
	CapPromotionsEdit
	CapReviewsView
	CapReviewsModerate
	CapMessagesView
	CapMessagesEdit
	CapBannersView
	CapBannersEdit
	CapSettingsView
	CapSettingsEdit
	CapJobsView
	capCount
)

var capabilityNames = [capCount]string{
	CapDashboardView:   "dashboard.view",
	CapProductsView:    "products.view",
	CapProductsEdit:    "products.edit",
	CapProductsDelete:  "products.delete",
	CapOrdersView:      "orders.view",
	CapOrdersEdit:      "orders.edit",
	CapCustomersView:   "customers.view",
	CapCustomersEdit:   "customers.edit",
	CapEmployeesView:   "employees.view",
	CapEmployeesEdit:   "employees.edit",
	CapPromotionsView:  "promotions.view",
	CapPromotionsEdit:  "promotions.edit",
	CapReviewsView:     "reviews.view",
	CapReviewsModerate: "reviews.moderate",
	CapMessagesView:    "messages.view",
	CapMessagesEdit:    "messages.edit",
	CapBannersView:     "banners.view",
	CapBannersEdit:     "banners.edit",
	CapSettingsView:    "settings.view",
	CapSettingsEdit:    "settings.edit",
	CapJobsView:        "jobs.view",
}

// AllCapabilities returns every defined capability in declaration order.
func AllCapabilities() []Capability {
	out := make([]Capability, 0, capCount-1)
	for c := CapDashboardView; c < capCount; c++ {
		out = append(out, c)
	}
	return out
}

// Valid reports whether c is a defined capability.
func (c Capability) Valid() bool {
	return c > capInvalid && c < capCount
}

func (c Capability) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return capabilityNames[c]
}

func (c Capability) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// ParseCapability resolves a dotted capability name.
func ParseCapability(s string) (Capability, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c := CapDashboardView; c < capCount; c++ {
		if capabilityNames[c] == s {
			return c, nil
		}
	}
	return capInvalid, fmt.Errorf("rbac: unknown capability %q", s)
}

// Principal describes the authenticated actor.
type Principal interface {
	GetID() int64
	GetRole() Role
}
