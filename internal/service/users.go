package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pribylovaa/go-account-service/internal/models"
	logctx "github.com/pribylovaa/go-account-service/internal/pkg/log"
	"github.com/pribylovaa/go-account-service/internal/pkg/redact"
	"github.com/pribylovaa/go-account-service/internal/storage"
)

// UpdateProfileParams — изменяемые поля профиля; nil-поле не трогается.
type UpdateProfileParams struct {
	Email    *string
	Username *string
	Password *string
}

// UpdateProfile обновляет профиль пользователя.
// Смена email проверяется на уникальность; новый пароль хэшируется,
// в хранилище попадает только хэш.
func (s *Service) UpdateProfile(ctx context.Context, user *models.User, params UpdateProfileParams) (*models.User, error) {
	const op = "service.users.UpdateProfile"

	lg := logctx.From(ctx)

	if params.Email != nil {
		normEmail, err := validateEmail(*params.Email)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
		}

		if normEmail != user.Email {
			_, err := s.storage.UserByEmail(ctx, normEmail)
			if err == nil {
				return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%s: %w", op, err)
			}

			user.Email = normEmail
		}
	}

	if params.Username != nil {
		username := strings.TrimSpace(*params.Username)
		if username == "" || len([]rune(username)) > 50 {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidUsername)
		}

		user.Username = username
	}

	if params.Password != nil {
		if err := validatePassword(*params.Password); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		hashed, err := hashPassword(*params.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		user.PasswordHash = hashed
	}

	user.UpdatedAt = time.Now().UTC()

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("profile_updated",
		slog.String("op", op),
		slog.Int64("user_id", user.ID),
		slog.String("email", redact.Email(user.Email)),
	)

	return user, nil
}

// Нормализация страницы для админского списка.
const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// ListUsers возвращает страницу пользователей для панели администратора.
// Доступно только пользователям с ролью admin.
func (s *Service) ListUsers(ctx context.Context, actor *models.User, page, limit int64) ([]models.User, int64, error) {
	const op = "service.users.ListUsers"

	if !actor.IsAdmin() {
		return nil, 0, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	users, total, err := s.storage.ListUsers(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return users, total, nil
}
