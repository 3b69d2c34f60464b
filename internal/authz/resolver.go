package authz

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/logging"
	"github.com/hvkoch/verleihsystem/internal/models"
)

// Resolver aggregates a user's effective role and permission sets at login
// time. It holds no state between calls; everything lives in the store.
type Resolver struct {
	DB *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{DB: db}
}

// Resolve loads the role names assigned to the user, the union of those
// roles' permissions and the user's direct grants, deduplicated. The "all"
// wildcard stays a literal string here; expansion happens at check time.
//
// Resolution never fails the login: if the authorization tables cannot be
// queried (fresh install) the user degrades to the fallback role with no
// permissions.
func (r *Resolver) Resolve(ctx context.Context, userID uint) (roles []string, permissions []string) {
	l := logging.FromContext(ctx).With("svc", "authz.resolve", "user_id", userID)

	if err := r.DB.WithContext(ctx).
		Table("roles").
		Select("roles.name").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Scan(&roles).Error; err != nil {
		l.Warn("role lookup failed, using fallback role", "error", err)
		return []string{FallbackRole}, nil
	}
	if len(roles) == 0 {
		roles = []string{FallbackRole}
	}
	SortRoles(roles)

	var rolePerms []string
	if err := r.DB.WithContext(ctx).
		Table("role_permissions").
		Select("role_permissions.permission").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Scan(&rolePerms).Error; err != nil {
		l.Warn("role permission lookup failed", "error", err)
		return roles, nil
	}

	var direct []string
	if err := r.DB.WithContext(ctx).
		Model(&models.UserPermission{}).
		Where("user_id = ?", userID).
		Pluck("permission", &direct).Error; err != nil {
		l.Warn("direct permission lookup failed", "error", err)
		direct = nil
	}

	seen := make(map[string]struct{}, len(rolePerms)+len(direct))
	for _, p := range append(rolePerms, direct...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		permissions = append(permissions, p)
	}
	sort.Strings(permissions)

	return roles, permissions
}
