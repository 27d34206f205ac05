// Package authz holds the authorization core: the closed permission
// catalog, the evaluator both enforcement gates share, and the HTTP gate.
package authz

// Guard is the scope tag stored with every permission.
const Guard = "web"

// SuperRole grants every gated action regardless of explicit permissions.
const SuperRole = "Administrador"

// Category groups permissions for display. It never affects evaluation.
type Category string

const (
	CategoryMenu    Category = "menu"
	CategorySubmenu Category = "submenu"
	CategoryAction  Category = "action"
)

// Permission names. The catalog is closed: role syncs referencing a name
// outside this set are rejected at validation time.
const (
	PermDashboardView = "dashboard.view"

	PermUsersView    = "usuarios.view"
	PermUsersCreate  = "usuarios.create"
	PermUsersEdit    = "usuarios.edit"
	PermUsersDelete  = "usuarios.delete"
	PermUsersAssign  = "usuarios.assign-roles"

	PermRolesView   = "roles.view"
	PermRolesCreate = "roles.create"
	PermRolesEdit   = "roles.edit"
	PermRolesDelete = "roles.delete"
	PermRolesAssign = "roles.assign-permissions"
)

// Definition describes one catalog entry.
type Definition struct {
	Name        string
	Description string
	Category    Category
}

// catalog lists every permission in display order: menus, then submenus,
// then actions.
var catalog = []Definition{
	{Name: PermDashboardView, Description: "Ver Dashboard", Category: CategoryMenu},
	{Name: PermUsersView, Description: "Ver Menú Usuarios", Category: CategoryMenu},

	{Name: PermRolesView, Description: "Ver Gestión de Roles", Category: CategorySubmenu},

	{Name: PermUsersCreate, Description: "Crear Usuarios", Category: CategoryAction},
	{Name: PermUsersEdit, Description: "Editar Usuarios", Category: CategoryAction},
	{Name: PermUsersDelete, Description: "Eliminar Usuarios", Category: CategoryAction},
	{Name: PermUsersAssign, Description: "Asignar Roles a Usuarios", Category: CategoryAction},
	{Name: PermRolesCreate, Description: "Crear Roles", Category: CategoryAction},
	{Name: PermRolesEdit, Description: "Editar Roles", Category: CategoryAction},
	{Name: PermRolesDelete, Description: "Eliminar Roles", Category: CategoryAction},
	{Name: PermRolesAssign, Description: "Asignar Permisos a Roles", Category: CategoryAction},
}

var catalogIndex = func() map[string]Definition {
	idx := make(map[string]Definition, len(catalog))
	for _, def := range catalog {
		idx[def.Name] = def
	}
	return idx
}()

// Catalog returns every permission definition in stable display order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Known reports whether name is part of the closed catalog.
func Known(name string) bool {
	_, ok := catalogIndex[name]
	return ok
}

// Describe returns the definition for name.
func Describe(name string) (Definition, bool) {
	def, ok := catalogIndex[name]
	return def, ok
}

// UnknownNames returns the subset of names missing from the catalog.
func UnknownNames(names []string) []string {
	var unknown []string
	for _, name := range names {
		if !Known(name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
