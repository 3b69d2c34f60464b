// Package authz resolves a user's effective roles and permissions and
// defines the recognized permission catalog and role name conventions.
package authz

import (
	"slices"
	"sort"
)

// PermAll is the wildcard: holding it (directly or via any role)
// satisfies every permission check.
const PermAll = "all"

const (
	PermAssetsManage     = "assets.manage"
	PermAssetsView       = "assets.view"
	PermLendingsManage   = "lendings.manage"
	PermLendingsView     = "lendings.view"
	PermContainersManage = "containers.manage"
	PermUsersManage      = "users.manage"
	PermRolesManage      = "roles.manage"
	PermReportsManage    = "reports.manage"
	PermLogsView         = "logs.view"
)

var registry = []string{
	PermAll,
	PermAssetsManage,
	PermAssetsView,
	PermLendingsManage,
	PermLendingsView,
	PermContainersManage,
	PermUsersManage,
	PermRolesManage,
	PermReportsManage,
	PermLogsView,
}

// Known reports whether perm is part of the recognized catalog. Permissions
// are free-form strings at the storage layer; validation happens here, at
// grant time.
func Known(perm string) bool {
	return slices.Contains(registry, perm)
}

// Catalog returns the recognized permission strings, wildcard included.
func Catalog() []string {
	out := make([]string, len(registry))
	copy(out, registry)
	sort.Strings(out)
	return out
}

// HasWildcard reports whether the set contains the "all" permission.
func HasWildcard(perms []string) bool {
	return slices.Contains(perms, PermAll)
}

// Intersects reports whether any required permission is present in held.
// Required lists have OR semantics.
func Intersects(held, required []string) bool {
	for _, want := range required {
		if slices.Contains(held, want) {
			return true
		}
	}
	return false
}
