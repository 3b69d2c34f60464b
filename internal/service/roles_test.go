package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/authz"
	"github.com/hvkoch/verleihsystem/internal/models"
)

func TestRoleCreate_DuplicateName(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewRoleService(db)

	_, err := svc.Create(context.Background(), "Mediencoach", []string{authz.PermAssetsManage})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "Mediencoach", nil)
	assert.ErrorIs(t, err, apperr.ErrDuplicateRoleName)
}

func TestRoleCreate_UnknownPermission(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewRoleService(db)

	_, err := svc.Create(context.Background(), "Hausmeister", []string{"assets.explode"})
	assert.ErrorIs(t, err, apperr.ErrUnknownPermission)

	var count int64
	require.NoError(t, db.Model(&models.Role{}).Count(&count).Error)
	assert.Zero(t, count, "nothing written on rejection")
}

func TestRoleUpdate_ReplacesPermissions(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewRoleService(db)

	role, err := svc.Create(context.Background(), "Hausmeister",
		[]string{authz.PermAssetsView, authz.PermLendingsView})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), role.ID, "Hausmeister",
		[]string{authz.PermReportsManage})
	require.NoError(t, err)
	assert.Equal(t, []string{authz.PermReportsManage}, updated.Permissions)

	var perms []string
	require.NoError(t, db.Model(&models.RolePermission{}).
		Where("role_id = ?", role.ID).
		Pluck("permission", &perms).Error)
	assert.Equal(t, []string{authz.PermReportsManage}, perms, "full replace, not a diff")
}

func TestRoleUpdate_RenameSystemRoleAllowed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	role := seedRole(t, db, authz.RoleLehrer, true, authz.PermAssetsView)
	svc := NewRoleService(db)

	updated, err := svc.Update(context.Background(), role.ID, "Lehrkraft", []string{authz.PermAssetsView})
	require.NoError(t, err)
	assert.Equal(t, "Lehrkraft", updated.Name)
}

func TestRoleUpdate_DuplicateName(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedRole(t, db, "Mediencoach", false)
	role := seedRole(t, db, "Hausmeister", false)
	svc := NewRoleService(db)

	_, err := svc.Update(context.Background(), role.ID, "Mediencoach", nil)
	assert.ErrorIs(t, err, apperr.ErrDuplicateRoleName)
}

func TestRoleDelete_SystemRoleProtected(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	role := seedRole(t, db, authz.RoleAdministrator, true, authz.PermAll)
	svc := NewRoleService(db)

	err := svc.Delete(context.Background(), role.ID)
	assert.ErrorIs(t, err, apperr.ErrSystemRole)

	var count int64
	require.NoError(t, db.Model(&models.Role{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRoleDelete_CascadesAssignments(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	role := seedRole(t, db, "Hausmeister", false, authz.PermAssetsView)
	user := seedUser(t, db, "marie", "secret123", true, role)
	svc := NewRoleService(db)

	require.NoError(t, svc.Delete(context.Background(), role.ID))

	var perms, userRoles int64
	require.NoError(t, db.Model(&models.RolePermission{}).
		Where("role_id = ?", role.ID).Count(&perms).Error)
	require.NoError(t, db.Model(&models.UserRole{}).
		Where("role_id = ?", role.ID).Count(&userRoles).Error)
	assert.Zero(t, perms, "no dangling permission assignments")
	assert.Zero(t, userRoles, "no dangling user assignments")

	// The user itself survives.
	var u models.User
	require.NoError(t, db.First(&u, user.ID).Error)
}

func TestRoleDelete_NotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewRoleService(db)
	assert.ErrorIs(t, svc.Delete(context.Background(), 999), apperr.ErrNotFound)
}

func TestRoleList_SystemFirst(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedRole(t, db, "Aushilfe", false)
	seedRole(t, db, authz.RoleMediencoach, true)
	seedRole(t, db, authz.RoleAdministrator, true)
	svc := NewRoleService(db)

	roles, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, authz.RoleAdministrator, roles[0].Name)
	assert.Equal(t, authz.RoleMediencoach, roles[1].Name)
	assert.Equal(t, "Aushilfe", roles[2].Name)
}
