package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the user behind a snapshot request does not exist.
var ErrNotFound = errors.New("authz: user not found")

// SnapshotSource resolves the current role/permission snapshot for a user.
// The server gate calls this fresh on every request; cached snapshots are
// only ever handed to the advisory client gate.
type SnapshotSource interface {
	Snapshot(ctx context.Context, userID int64) (Snapshot, error)
}

// Service resolves snapshots from PostgreSQL.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Snapshot loads the user's roles and effective permission union.
func (s *Service) Snapshot(ctx context.Context, userID int64) (Snapshot, error) {
	snap := Snapshot{UserID: userID}

	err := s.pool.QueryRow(ctx, `SELECT name FROM users WHERE id = $1`, userID).Scan(&snap.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("authz: load user: %w", err)
	}

	roles, err := s.userRoles(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Roles = roles

	perms, err := s.effectivePermissions(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Permissions = perms

	return snap, nil
}

func (s *Service) userRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("authz: load roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func (s *Service) effectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("authz: load permissions: %w", err)
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}

var _ SnapshotSource = (*Service)(nil)
