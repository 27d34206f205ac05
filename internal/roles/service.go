package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/monitop/monitop/internal/authz"
	"github.com/monitop/monitop/internal/platform/httpx"
	"github.com/monitop/monitop/internal/shared"
)

// AuditRecorder queues audit trail entries for admin mutations.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// Service handles role business logic.
type Service struct {
	repo   Repository
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service instance. audit may be nil.
func NewService(repo Repository, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns one page of roles plus the total count.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Role, shared.Pagination, error) {
	pg := shared.NewPagination(page, perPage, 0)
	result, total, err := s.repo.List(ctx, ListRequest{Limit: pg.PerPage, Offset: pg.Offset()})
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(pg.Page, pg.PerPage, total), nil
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new role.
func (s *Service) Create(ctx context.Context, actorID int64, name string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, httpx.FieldErrors{"name": "El nombre es obligatorio."}
	}
	role, err := s.repo.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "role.create", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// Update renames an existing role.
func (s *Service) Update(ctx context.Context, actorID, id int64, name string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, httpx.FieldErrors{"name": "El nombre es obligatorio."}
	}
	role, err := s.repo.Update(ctx, id, name)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "role.update", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// Delete removes a role. It fails with a conflict while users still hold
// the role.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "role.delete", id, nil)
	return nil
}

// SyncPermissions replaces the role's permission set wholesale. Every name
// must belong to the closed catalog; nothing is written otherwise.
func (s *Service) SyncPermissions(ctx context.Context, actorID, id int64, names []string) error {
	names = dedupe(names)
	if unknown := authz.UnknownNames(names); len(unknown) > 0 {
		return fmt.Errorf("%w: el permiso %q no existe", httpx.ErrValidation, unknown[0])
	}
	if err := s.repo.SyncPermissions(ctx, id, names); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "role.sync-permissions", id, map[string]any{"permissions": names})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, roleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     meta,
	}
	if err := s.audit.RecordAudit(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("queue audit record", slog.String("action", action), slog.Any("error", err))
	}
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
