package rbac

// capSet is a bitset over Capability.
type capSet uint64

func setOf(caps ...Capability) capSet {
	var s capSet
	for _, c := range caps {
		s |= 1 << c
	}
	return s
}

func (s capSet) has(c Capability) bool {
	return c.Valid() && s&(1<<c) != 0
}

// The array is sized by roleCount, so every role has a defined, possibly empty, set.
var grants = [roleCount]capSet{
	RoleCustomer: 0,
	RoleSupport: setOf(
		CapDashboardView,
		CapOrdersView, CapOrdersEdit,
		CapCustomersView,
		CapReviewsView,
		CapMessagesView, CapMessagesEdit,
	),
	RoleEditor: setOf(
		CapDashboardView,
		CapProductsView, CapProductsEdit, CapProductsDelete,
		CapBannersView, CapBannersEdit,
		CapPromotionsView,
		CapReviewsView, CapReviewsModerate,
	),
	RoleAdmin: setOf(
		CapDashboardView,
		CapProductsView, CapProductsEdit, CapProductsDelete,
		CapOrdersView, CapOrdersEdit,
		CapCustomersView, CapCustomersEdit,
		CapEmployeesView,
		CapPromotionsView, CapPromotionsEdit,
		CapReviewsView, CapReviewsModerate,
		CapMessagesView, CapMessagesEdit,
		CapBannersView, CapBannersEdit,
		CapSettingsView,
		CapJobsView,
	),
	RoleSuperAdmin: setOf(AllCapabilities()...),
}

// HasPermission reports whether role holds capability. Undefined roles or capabilities are denied.
func HasPermission(role Role, capability Capability) bool {
	if !role.Valid() || !capability.Valid() {
		return false
	}
	return grants[role].has(capability)
}

// Capabilities lists the capabilities granted to role.
func Capabilities(role Role) []Capability {
	out := []Capability{}
	if !role.Valid() {
		return out
	}
	for _, c := range AllCapabilities() {
		if grants[role].has(c) {
			out = append(out, c)
		}
	}
	return out
}
