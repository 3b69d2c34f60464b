package authz

import (
	"sort"
	"strings"
)

const (
	RoleAdministrator = "Administrator"
	RoleMediencoach   = "Mediencoach"
	RoleLehrer        = "Lehrer"
	RoleSchueler      = "Schüler"
)

// FallbackRole is assumed when role data cannot be resolved, so that login
// keeps working on a fresh install before the authorization tables carry
// any rows.
const FallbackRole = RoleLehrer

// rolePriority fixes which role counts as primary when a user holds
// several. Lower sorts first.
var rolePriority = map[string]int{
	RoleAdministrator: 0,
	RoleMediencoach:   1,
	RoleLehrer:        2,
	RoleSchueler:      3,
}

// CanonicalRole normalizes a role name for comparison. The legacy
// "admin"/"administrator" synonym pair maps to the one canonical
// Administrator name; everything else is matched case-insensitively
// against the built-in names and otherwise returned trimmed.
func CanonicalRole(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin", "administrator":
		return RoleAdministrator
	case "mediencoach":
		return RoleMediencoach
	case "lehrer":
		return RoleLehrer
	case "schüler", "schueler":
		return RoleSchueler
	}
	return strings.TrimSpace(name)
}

// IsAdministrator reports whether name denotes the Administrator role under
// synonym and case normalization.
func IsAdministrator(name string) bool {
	return CanonicalRole(name) == RoleAdministrator
}

// SortRoles orders role names by the fixed priority, unknown names
// alphabetically after the built-ins. The head of the sorted list is the
// user's primary role.
func SortRoles(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		pi, iok := rolePriority[CanonicalRole(names[i])]
		pj, jok := rolePriority[CanonicalRole(names[j])]
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		case jok:
			return false
		default:
			return names[i] < names[j]
		}
	})
}

// RoleSetsIntersect reports whether any held role matches any allowed role
// under canonical naming.
func RoleSetsIntersect(held, allowed []string) bool {
	canon := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		canon[CanonicalRole(a)] = struct{}{}
	}
	for _, h := range held {
		if _, ok := canon[CanonicalRole(h)]; ok {
			return true
		}
	}
	return false
}
