package authz_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monitop/monitop/internal/authz"
	"github.com/monitop/monitop/internal/shared"
)

func apiRequest(t *testing.T, source authz.SnapshotSource, userID int64, path string) *httptest.ResponseRecorder {
	t.Helper()
	gate := authz.Middleware{Source: source}
	handler := authz.NewHandler(nil, gate)

	r := chi.NewRouter()
	r.Route("/api", handler.MountRoutes)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	req = req.WithContext(shared.ContextWithSession(context.Background(), sessionForUser(t, userID)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMeReturnsSnapshot(t *testing.T) {
	source := &stubSource{snapshots: map[int64]authz.Snapshot{
		7: {UserID: 7, Name: "Bob", Roles: []string{"Editor"}, Permissions: []string{authz.PermUsersView}},
	}}

	rec := apiRequest(t, source, 7, "/api/me")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User authz.Snapshot `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.User.UserID)
	assert.Equal(t, []string{"Editor"}, body.User.Roles)
	assert.Equal(t, []string{authz.PermUsersView}, body.User.Permissions)
}

func TestMeNormalizesNilSlices(t *testing.T) {
	source := &stubSource{snapshots: map[int64]authz.Snapshot{
		3: {UserID: 3, Name: "Nadie"},
	}}

	rec := apiRequest(t, source, 3, "/api/me")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"roles":[]`)
	assert.Contains(t, rec.Body.String(), `"permissions":[]`)
}

func TestMeRequiresAuthentication(t *testing.T) {
	rec := apiRequest(t, &stubSource{}, 0, "/api/me")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPermissionsListsCatalog(t *testing.T) {
	source := &stubSource{snapshots: map[int64]authz.Snapshot{
		7: {UserID: 7, Name: "Bob", Permissions: []string{authz.PermRolesAssign}},
	}}

	rec := apiRequest(t, source, 7, "/api/permissions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Permissions []struct {
			Name     string `json:"name"`
			Category string `json:"category"`
			Guard    string `json:"guard"`
		} `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Permissions, 11)
	assert.Equal(t, authz.PermDashboardView, body.Permissions[0].Name)
	assert.Equal(t, "web", body.Permissions[0].Guard)
}

func TestPermissionsDeniedWithoutRolesAccess(t *testing.T) {
	source := &stubSource{snapshots: map[int64]authz.Snapshot{
		7: {UserID: 7, Name: "Bob", Permissions: []string{authz.PermUsersView}},
	}}

	rec := apiRequest(t, source, 7, "/api/permissions")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
