package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowsRequiresExplicitPermission(t *testing.T) {
	snap := Snapshot{
		UserID:      7,
		Name:        "Bob",
		Roles:       []string{"Editor"},
		Permissions: []string{PermUsersView, PermUsersEdit},
	}

	assert.True(t, snap.Allows(PermUsersView))
	assert.True(t, snap.Allows(PermUsersEdit))
	assert.False(t, snap.Allows(PermUsersDelete))
	assert.False(t, snap.Allows(PermRolesCreate))
}

func TestSuperRoleAlwaysWins(t *testing.T) {
	snap := Snapshot{UserID: 1, Name: "Admin", Roles: []string{SuperRole}}

	for _, def := range Catalog() {
		assert.True(t, snap.Allows(def.Name), def.Name)
	}
	// Even names outside the catalog pass; the super role shortcut does not
	// consult the permission list at all.
	assert.True(t, snap.Allows("reports.export"))
}

func TestNoRolesDeniesEverything(t *testing.T) {
	snap := Snapshot{UserID: 3, Name: "Nadie"}

	for _, def := range Catalog() {
		assert.False(t, snap.Allows(def.Name), def.Name)
	}
}

func TestAllowsAny(t *testing.T) {
	snap := Snapshot{UserID: 7, Permissions: []string{PermRolesView}}

	assert.True(t, snap.AllowsAny(PermRolesView, PermRolesAssign))
	assert.False(t, snap.AllowsAny(PermRolesCreate, PermRolesDelete))
	assert.True(t, snap.AllowsAny(), "empty requirement never blocks")
}

func TestAllowsAll(t *testing.T) {
	snap := Snapshot{UserID: 7, Permissions: []string{PermRolesView, PermRolesEdit}}

	assert.True(t, snap.AllowsAll(PermRolesView, PermRolesEdit))
	assert.False(t, snap.AllowsAll(PermRolesView, PermRolesDelete))

	admin := Snapshot{UserID: 1, Roles: []string{SuperRole}}
	assert.True(t, admin.AllowsAll(PermRolesView, PermRolesDelete))
}

func TestHasRoleAndAuthenticated(t *testing.T) {
	snap := Snapshot{UserID: 7, Roles: []string{"Editor"}}

	assert.True(t, snap.HasRole("Editor"))
	assert.False(t, snap.HasRole(SuperRole))
	assert.True(t, snap.Authenticated())
	assert.False(t, Snapshot{}.Authenticated())
}
