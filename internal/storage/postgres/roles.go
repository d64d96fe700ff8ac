package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-account-service/internal/models"
	"github.com/pribylovaa/go-account-service/internal/storage"
)

// RoleByName находит роль по имени.
func (s *Storage) RoleByName(ctx context.Context, name string) (*models.Role, error) {
	const op = "storage.postgres.RoleByName"

	query := `
		SELECT id, name, COALESCE(description, '')
		FROM roles
		WHERE name = $1
	`

	var role models.Role
	err := s.db.QueryRow(ctx, query, name).Scan(
		&role.ID,
		&role.Name,
		&role.Description,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &role, nil
}
