package domain

// Role is the closed set of user roles stored on a profile.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleManager    Role = "MANAGER"
	RoleObserver   Role = "OBSERVER"
)

// Capability is what an endpoint declares it needs.
type Capability int

const (
	CapViewCompanies Capability = iota + 1
	CapEditCompanies
	CapManageSettings
	CapManageUsers
)

func (c Capability) String() string {
	switch c {
	case CapViewCompanies:
		return "view_companies"
	case CapEditCompanies:
		return "edit_companies"
	case CapManageSettings:
		return "manage_settings"
	case CapManageUsers:
		return "manage_users"
	default:
		return "unknown"
	}
}

// Can reports whether the role grants the capability. Unknown roles grant nothing.
func (r Role) Can(c Capability) bool {
	switch r {
	case RoleSuperAdmin:
		return true
	case RoleManager:
		return c == CapViewCompanies || c == CapEditCompanies
	case RoleObserver:
		return c == CapViewCompanies
	default:
		return false
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleManager, RoleObserver:
		return true
	}
	return false
}

// Label is the human readable role name.
func (r Role) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "Супер-администратор"
	case RoleManager:
		return "Менеджер"
	case RoleObserver:
		return "Наблюдатель"
	default:
		return string(r)
	}
}

func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleManager, RoleObserver}
}
