package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monitop/monitop/internal/platform/db"
	"github.com/monitop/monitop/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for roles and their
// permission assignments.
type Repository interface {
	List(ctx context.Context, req ListRequest) ([]Role, int, error)
	Get(ctx context.Context, id int64) (*Role, error)
	Create(ctx context.Context, name string) (*Role, error)
	Update(ctx context.Context, id int64, name string) (*Role, error)
	Delete(ctx context.Context, id int64) error
	SyncPermissions(ctx context.Context, id int64, names []string) error
	ListNames(ctx context.Context) ([]string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const roleColumns = `
	r.id, r.name, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id) AS users_count,
	COALESCE(array_agg(p.name ORDER BY p.name) FILTER (WHERE p.name IS NOT NULL), '{}') AS permissions`

func (r *repository) List(ctx context.Context, req ListRequest) ([]Role, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("roles: count: %w", err)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		GROUP BY r.id
		ORDER BY r.name
		LIMIT $1 OFFSET $2`, roleColumns), req.Limit, req.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()

	var result []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, role)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Role, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE r.id = $1
		GROUP BY r.id`, roleColumns), id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *repository) Create(ctx context.Context, name string) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name) VALUES ($1)
		RETURNING id, name, created_at, updated_at`, name).
		Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: ya existe un rol con este nombre", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("roles: create: %w", err)
	}
	role.Permissions = []string{}
	return &role, nil
}

func (r *repository) Update(ctx context.Context, id int64, name string) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, created_at, updated_at`, id, name).
		Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: ya existe un rol con este nombre", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("roles: update: %w", err)
	}
	return &role, nil
}

// Delete removes a role unless users still hold it. The count check and the
// delete run in one transaction so a concurrent assignment cannot slip in
// between them.
func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM roles WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("roles: delete lookup: %w", err)
		}
		if !exists {
			return httpx.ErrNotFound
		}

		var usersCount int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, id).Scan(&usersCount); err != nil {
			return fmt.Errorf("roles: delete count: %w", err)
		}
		if usersCount > 0 {
			return fmt.Errorf("%w: no se puede eliminar un rol que tiene usuarios asignados", httpx.ErrConflict)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("roles: delete permissions: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
			return fmt.Errorf("roles: delete: %w", err)
		}
		return nil
	})
}

// SyncPermissions atomically replaces the role's permission set with exactly
// the given names. Unknown names fail the whole transaction and leave the
// existing set untouched.
func (r *repository) SyncPermissions(ctx context.Context, id int64, names []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM roles WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("roles: sync lookup: %w", err)
		}
		if !exists {
			return httpx.ErrNotFound
		}

		rows, err := tx.Query(ctx, `SELECT id, name FROM permissions WHERE name = ANY($1)`, names)
		if err != nil {
			return fmt.Errorf("roles: sync resolve: %w", err)
		}
		resolved := make(map[string]int64, len(names))
		for rows.Next() {
			var permID int64
			var permName string
			if err := rows.Scan(&permID, &permName); err != nil {
				rows.Close()
				return err
			}
			resolved[permName] = permID
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, name := range names {
			if _, ok := resolved[name]; !ok {
				return fmt.Errorf("%w: el permiso %q no existe", httpx.ErrValidation, name)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("roles: sync clear: %w", err)
		}
		for _, name := range names {
			if _, err := tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, id, resolved[name]); err != nil {
				return fmt.Errorf("roles: sync attach: %w", err)
			}
		}
		return nil
	})
}

func (r *repository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("roles: list names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt, &role.UsersCount, &role.Permissions); err != nil {
		return Role{}, err
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	return role, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
