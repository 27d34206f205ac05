package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monitop/monitop/internal/authz"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderHidesActionsWithoutPermission(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	data := TemplateData{
		Title: "Roles",
		Actor: authz.Snapshot{UserID: 7, Name: "Bob", Roles: []string{"Editor"}, Permissions: []string{authz.PermRolesView}},
		Data:  map[string]any{"Roles": nil, "Catalog": authz.Catalog()},
	}
	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, "pages/roles/list.html", data))

	body := rec.Body.String()
	assert.NotContains(t, body, `action="/roles" method="POST"`, "create form requires roles.create")
	assert.Contains(t, body, "Roles")
}

func TestRenderSuperRoleSeesEverything(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	data := TemplateData{
		Title: "Roles",
		Actor: authz.Snapshot{UserID: 1, Name: "Admin", Roles: []string{authz.SuperRole}},
		Data:  map[string]any{"Roles": nil, "Catalog": authz.Catalog()},
	}
	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, "pages/roles/list.html", data))
	assert.Contains(t, rec.Body.String(), `data-requires-permission="roles.create"`)
}
