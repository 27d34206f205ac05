package users

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/monitop/monitop/internal/platform/httpx"
	"github.com/monitop/monitop/internal/shared"
)

// AuditRecorder queues audit trail entries for admin mutations.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// MinPasswordLength is enforced on create and on any password change.
const MinPasswordLength = 8

var folder = cases.Fold()

// Service handles user management business logic.
type Service struct {
	repo   Repository
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service instance. audit may be nil.
func NewService(repo Repository, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns one page of users plus the total count.
func (s *Service) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	pg := shared.NewPagination(page, perPage, 0)
	result, total, err := s.repo.List(ctx, ListRequest{Limit: pg.PerPage, Offset: pg.Offset()})
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(pg.Page, pg.PerPage, total), nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new account with a bcrypt hash of the given password.
func (s *Service) Create(ctx context.Context, actorID int64, req CreateRequest) (*User, error) {
	fields := validateProfile(req.Name, req.Username, req.Email)
	if req.Password == "" {
		fields["password"] = "La contraseña es obligatoria."
	} else if len(req.Password) < MinPasswordLength {
		fields["password"] = "La contraseña debe tener al menos 8 caracteres."
	}
	if len(fields) > 0 {
		return nil, fields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, User{
		Name:         strings.TrimSpace(req.Name),
		Username:     normalizeIdentifier(req.Username),
		Email:        normalizeIdentifier(req.Email),
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "user.create", user.ID, map[string]any{"username": user.Username})
	return user, nil
}

// Update changes the account profile. An empty password keeps the stored
// hash; a non-empty one must meet the minimum length and gets rehashed.
func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdateRequest) (*User, error) {
	fields := validateProfile(req.Name, req.Username, req.Email)
	if req.Password != "" && len(req.Password) < MinPasswordLength {
		fields["password"] = "La contraseña debe tener al menos 8 caracteres."
	}
	if len(fields) > 0 {
		return nil, fields
	}

	params := UpdateParams{
		Name:     strings.TrimSpace(req.Name),
		Username: normalizeIdentifier(req.Username),
		Email:    normalizeIdentifier(req.Email),
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hashed := string(hash)
		params.PasswordHash = &hashed
	}

	user, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "user.update", user.ID, map[string]any{"username": user.Username})
	return user, nil
}

// Delete removes an account. Actors can never delete themselves, no matter
// which roles they hold.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if id == actorID {
		return httpx.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.delete", id, nil)
	return nil
}

// SyncRoles replaces the user's role set wholesale. Every name must match an
// existing role; nothing is written otherwise. An empty list strips all
// roles and leaves the account with no permissions.
func (s *Service) SyncRoles(ctx context.Context, actorID, id int64, names []string) error {
	names = dedupe(names)
	if err := s.repo.SyncRoles(ctx, id, names); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.sync-roles", id, map[string]any{"roles": names})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	}
	if err := s.audit.RecordAudit(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("queue audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func validateProfile(name, username, email string) httpx.FieldErrors {
	fields := httpx.FieldErrors{}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "El nombre es obligatorio."
	}
	if strings.TrimSpace(username) == "" {
		fields["username"] = "El nombre de usuario es obligatorio."
	}
	email = strings.TrimSpace(email)
	if email == "" {
		fields["email"] = "El email es obligatorio."
	} else if !strings.Contains(email, "@") {
		fields["email"] = "El email no es válido."
	}
	return fields
}

// normalizeIdentifier case-folds usernames and emails so lookups and the
// unique indexes behave the same regardless of how the input was typed.
func normalizeIdentifier(s string) string {
	return folder.String(strings.TrimSpace(s))
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
