package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/go-account-service/internal/models"
	"github.com/pribylovaa/go-account-service/internal/storage"
)

// userColumns — общий список колонок для выборок пользователя с ролью.
const userColumns = `
	u.id, u.email, u.username, COALESCE(u.password_hash, ''), u.active,
	u.role_id, r.id, r.name, COALESCE(r.description, ''),
	u.created_at, u.updated_at
`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Active,
		&user.RoleID,
		&user.Role.ID,
		&user.Role.Name,
		&user.Role.Description,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// SaveUser создает нового пользователя и заполняет его ID.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(email, username, password_hash, active, role_id, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Active,
		user.RoleID,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByEmail находит пользователя по email вместе с ролью.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.email = $1
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByID находит пользователя по ID вместе с ролью.
func (s *Storage) UserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateUser сохраняет изменённые email/username/password_hash.
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.UpdateUser"

	query := `
		UPDATE users
		SET email = $2, username = $3, password_hash = NULLIF($4, ''), updated_at = $5
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListUsers возвращает страницу пользователей и общее число записей.
// Сортировка фиксированная — по username, чтобы страницы были стабильными.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int64) ([]models.User, int64, error) {
	const op = "storage.postgres.ListUsers"

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN roles r ON r.id = u.role_id
		ORDER BY u.username ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}

		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return users, total, nil
}
