package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/monitop/monitop/internal/platform/httpx"
	"github.com/monitop/monitop/internal/shared"
	_ "github.com/monitop/monitop/testing"
)

type stubRepo struct {
	users     map[int64]*User
	roleNames map[string]bool
	nextID    int64
}

func newStubRepo(roleNames ...string) *stubRepo {
	known := make(map[string]bool, len(roleNames))
	for _, name := range roleNames {
		known[name] = true
	}
	return &stubRepo{users: make(map[int64]*User), roleNames: known, nextID: 1}
}

func (s *stubRepo) List(ctx context.Context, req ListRequest) ([]User, int, error) {
	var out []User
	for _, user := range s.users {
		out = append(out, *user)
	}
	return out, len(s.users), nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (*User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return user, nil
}

func (s *stubRepo) Create(ctx context.Context, user User) (*User, error) {
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return nil, httpx.FieldErrors{"username": "Ya existe un usuario con este nombre de usuario."}
		}
		if existing.Email == user.Email {
			return nil, httpx.FieldErrors{"email": "Ya existe un usuario con este email."}
		}
	}
	stored := user
	stored.ID = s.nextID
	stored.Roles = []string{}
	s.users[stored.ID] = &stored
	s.nextID++
	return &stored, nil
}

func (s *stubRepo) Update(ctx context.Context, id int64, params UpdateParams) (*User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	user.Name = params.Name
	user.Username = params.Username
	user.Email = params.Email
	if params.PasswordHash != nil {
		user.PasswordHash = *params.PasswordHash
	}
	return user, nil
}

func (s *stubRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := s.users[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *stubRepo) SyncRoles(ctx context.Context, id int64, roleNames []string) error {
	user, ok := s.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	for _, name := range roleNames {
		if !s.roleNames[name] {
			return httpx.ErrValidation
		}
	}
	user.Roles = append([]string{}, roleNames...)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func TestCreateHashesPasswordAndFoldsIdentifiers(t *testing.T) {
	repo := newStubRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)

	user, err := svc.Create(context.Background(), 1, CreateRequest{
		Name:     "Bob Pérez",
		Username: "  BOB  ",
		Email:    "Bob@Example.COM",
		Password: "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.Equal(t, "bob@example.com", user.Email)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecret")))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "user.create", audit.logs[0].Action)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newStubRepo(), nil, nil)

	_, err := svc.Create(context.Background(), 1, CreateRequest{
		Name:     " ",
		Username: "",
		Email:    "no-es-un-email",
		Password: "corta",
	})
	require.Error(t, err)

	fields, ok := httpx.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Equal(t, "La contraseña debe tener al menos 8 caracteres.", fields["password"])
}

func TestCreateDuplicateUsername(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), 1, CreateRequest{Name: "Bob", Username: "bob", Email: "bob@x.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 1, CreateRequest{Name: "Otro", Username: "Bob", Email: "otro@x.com", Password: "supersecret"})
	require.Error(t, err)
	fields, ok := httpx.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fields, "username")
}

func TestUpdateKeepsHashWhenPasswordEmpty(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil)

	created, err := svc.Create(context.Background(), 1, CreateRequest{Name: "Bob", Username: "bob", Email: "bob@x.com", Password: "supersecret"})
	require.NoError(t, err)
	originalHash := created.PasswordHash

	updated, err := svc.Update(context.Background(), 1, created.ID, UpdateRequest{Name: "Robert", Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.Name)
	assert.Equal(t, originalHash, updated.PasswordHash)

	updated, err = svc.Update(context.Background(), 1, created.ID, UpdateRequest{Name: "Robert", Username: "bob", Email: "bob@x.com", Password: "otropassword"})
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, updated.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("otropassword")))
}

func TestUpdateRejectsShortPassword(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil)
	created, err := svc.Create(context.Background(), 1, CreateRequest{Name: "Bob", Username: "bob", Email: "bob@x.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), 1, created.ID, UpdateRequest{Name: "Bob", Username: "bob", Email: "bob@x.com", Password: "corta"})
	require.Error(t, err)
	fields, ok := httpx.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fields, "password")
}

func TestDeleteSelfForbidden(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil)
	created, err := svc.Create(context.Background(), 1, CreateRequest{Name: "Bob", Username: "bob", Email: "bob@x.com", Password: "supersecret"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), created.ID, created.ID)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Contains(t, repo.users, created.ID)

	// Another actor may delete the account, super role included.
	require.NoError(t, svc.Delete(context.Background(), created.ID+1, created.ID))
	assert.NotContains(t, repo.users, created.ID)
}

func TestSyncRolesEmptyListStripsAll(t *testing.T) {
	repo := newStubRepo("Editor")
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)

	created, err := svc.Create(context.Background(), 1, CreateRequest{Name: "Bob", Username: "bob", Email: "bob@x.com", Password: "supersecret"})
	require.NoError(t, err)
	require.NoError(t, svc.SyncRoles(context.Background(), 1, created.ID, []string{"Editor"}))
	assert.Equal(t, []string{"Editor"}, repo.users[created.ID].Roles)

	require.NoError(t, svc.SyncRoles(context.Background(), 1, created.ID, nil))
	assert.Empty(t, repo.users[created.ID].Roles)
}

func TestSyncRolesUnknownRole(t *testing.T) {
	repo := newStubRepo("Editor")
	svc := NewService(repo, nil, nil)
	created, err := svc.Create(context.Background(), 1, CreateRequest{Name: "Bob", Username: "bob", Email: "bob@x.com", Password: "supersecret"})
	require.NoError(t, err)

	err = svc.SyncRoles(context.Background(), 1, created.ID, []string{"Fantasma"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.users[created.ID].Roles)
}
