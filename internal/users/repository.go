package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monitop/monitop/internal/platform/db"
	"github.com/monitop/monitop/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for user accounts and
// their role assignments.
type Repository interface {
	List(ctx context.Context, req ListRequest) ([]User, int, error)
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user User) (*User, error)
	Update(ctx context.Context, id int64, params UpdateParams) (*User, error)
	Delete(ctx context.Context, id int64) error
	SyncRoles(ctx context.Context, id int64, roleNames []string) error
}

// UpdateParams holds the persisted fields for an update. PasswordHash nil
// preserves the existing hash.
type UpdateParams struct {
	Name         string
	Username     string
	Email        string
	PasswordHash *string
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const userColumns = `
	u.id, u.name, u.username, u.email, u.created_at, u.updated_at,
	COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles`

func (r *repository) List(ctx context.Context, req ListRequest) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		GROUP BY u.id
		ORDER BY u.name
		LIMIT $1 OFFSET $2`, userColumns), req.Limit, req.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, user)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		WHERE u.id = $1
		GROUP BY u.id`, userColumns), id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) Create(ctx context.Context, user User) (*User, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		user.Name, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if fieldErr := duplicateFieldError(err); fieldErr != nil {
			return nil, fieldErr
		}
		return nil, fmt.Errorf("users: create: %w", err)
	}
	user.Roles = []string{}
	return &user, nil
}

func (r *repository) Update(ctx context.Context, id int64, params UpdateParams) (*User, error) {
	var err error
	if params.PasswordHash != nil {
		_, err = r.pool.Exec(ctx, `
			UPDATE users SET name = $2, username = $3, email = $4, password_hash = $5, updated_at = NOW()
			WHERE id = $1`, id, params.Name, params.Username, params.Email, *params.PasswordHash)
	} else {
		_, err = r.pool.Exec(ctx, `
			UPDATE users SET name = $2, username = $3, email = $4, updated_at = NOW()
			WHERE id = $1`, id, params.Name, params.Username, params.Email)
	}
	if err != nil {
		if fieldErr := duplicateFieldError(err); fieldErr != nil {
			return nil, fieldErr
		}
		return nil, fmt.Errorf("users: update: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("users: delete roles: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("users: delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		return nil
	})
}

// SyncRoles atomically replaces the user's role set with exactly the named
// roles. Unknown role names fail the transaction with no partial write.
func (r *repository) SyncRoles(ctx context.Context, id int64, roleNames []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("users: sync lookup: %w", err)
		}
		if !exists {
			return httpx.ErrNotFound
		}

		rows, err := tx.Query(ctx, `SELECT id, name FROM roles WHERE name = ANY($1)`, roleNames)
		if err != nil {
			return fmt.Errorf("users: sync resolve: %w", err)
		}
		resolved := make(map[string]int64, len(roleNames))
		for rows.Next() {
			var roleID int64
			var roleName string
			if err := rows.Scan(&roleID, &roleName); err != nil {
				rows.Close()
				return err
			}
			resolved[roleName] = roleID
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, name := range roleNames {
			if _, ok := resolved[name]; !ok {
				return fmt.Errorf("%w: el rol %q no existe", httpx.ErrValidation, name)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("users: sync clear: %w", err)
		}
		for _, name := range roleNames {
			if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, id, resolved[name]); err != nil {
				return fmt.Errorf("users: sync attach: %w", err)
			}
		}
		return nil
	})
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.Name, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt, &user.Roles); err != nil {
		return User{}, err
	}
	if user.Roles == nil {
		user.Roles = []string{}
	}
	return user, nil
}

// duplicateFieldError maps a unique violation onto the offending field so
// forms can show the message inline.
func duplicateFieldError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return httpx.FieldErrors{"username": "Ya existe un usuario con este nombre de usuario."}
	case strings.Contains(pgErr.ConstraintName, "email"):
		return httpx.FieldErrors{"email": "Ya existe un usuario con este email."}
	default:
		return fmt.Errorf("%w: registro duplicado", httpx.ErrConflict)
	}
}
