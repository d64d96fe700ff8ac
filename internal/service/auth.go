package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-account-service/internal/denylist"
	"github.com/pribylovaa/go-account-service/internal/models"
	logctx "github.com/pribylovaa/go-account-service/internal/pkg/log"
	"github.com/pribylovaa/go-account-service/internal/pkg/redact"
	"github.com/pribylovaa/go-account-service/internal/storage"
)

// RegisterUser регистрирует нового пользователя с ролью "user".
func (s *Service) RegisterUser(ctx context.Context, username, email, password string) (*models.User, error) {
	const op = "service.auth.RegisterUser"

	lg := logctx.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	username = strings.TrimSpace(username)
	if username == "" || len([]rune(username)) > 50 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidUsername)
	}

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	role, err := s.storage.RoleByName(ctx, models.RoleUser)
	if err != nil {
		lg.Error("default_role_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:        normEmail,
		Username:     username,
		PasswordHash: hashedPassword,
		Active:       true,
		RoleID:       role.ID,
		Role:         *role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}

		// Неожиданные ошибки регистрации логируем и отдаём без деталей.
		lg.Error("register_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(normEmail)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("op", op),
		slog.Int64("user_id", user.ID),
		slog.String("email", redact.Email(normEmail)),
	)

	return user, nil
}

// LoginUser выполняет вход по email+пароль и выпускает пару токенов.
// Неизвестный email и неверный пароль дают одну и ту же ошибку.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.LoginUser"

	lg := logctx.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("login_failed",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	// Пустой хэш — учётная запись внешнего провайдера, вход по паролю закрыт.
	if user.PasswordHash == "" || !checkPassword(user.PasswordHash, password) {
		lg.Warn("login_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(normEmail)),
		)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !user.Active {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInactiveAccount)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_ok",
		slog.String("op", op),
		slog.Int64("user_id", user.ID),
	)

	return pair, user, nil
}

// Authenticate проверяет access-токен и возвращает пользователя.
// Вызывается HTTP-слоем явно перед защищёнными операциями.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "service.auth.Authenticate"

	claims, err := s.parseToken(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, claims.userID())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Active {
		return nil, fmt.Errorf("%s: %w", op, ErrInactiveAccount)
	}

	return user, nil
}

// RefreshTokens обновляет пару токенов по refresh-токену (ротация).
//
// Одноразовость: jti предъявленного токена сначала проверяется по denylist,
// затем атомарно отзывается до выпуска новой пары. При конкурентных запросах
// с одним и тем же токеном побеждает ровно один — второй получает
// ErrTokenReused от "insert-if-absent" denylist, а не вторую живую сессию.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.RefreshTokens"

	lg := logctx.From(ctx)

	claims, err := s.parseToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Недоступность denylist — отказ, а не "не отозван".
		lg.Error("denylist_check_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	if revoked {
		lg.Warn("refresh_reuse_detected",
			slog.String("op", op),
			slog.Int64("user_id", claims.userID()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenReused)
	}

	user, err := s.storage.UserByID(ctx, claims.userID())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Active {
		return nil, fmt.Errorf("%s: %w", op, ErrInactiveAccount)
	}

	if err := s.denylist.Revoke(ctx, claims.ID, user.ID, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, denylist.ErrAlreadyRevoked) {
			// Гонка двух refresh с одним токеном: мы проиграли.
			lg.Warn("refresh_rotation_race_lost",
				slog.String("op", op),
				slog.Int64("user_id", user.ID),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrTokenReused)
		}

		lg.Error("denylist_revoke_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("refresh_rotated",
		slog.String("op", op),
		slog.Int64("user_id", user.ID),
	)

	return pair, nil
}

// Logout отзывает refresh-токен, если это возможно.
// Операция идемпотентна и никогда не возвращает ошибку: с точки зрения
// клиента сессия завершена независимо от судьбы токена.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	const op = "service.auth.Logout"

	lg := logctx.From(ctx)

	claims, err := s.parseToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		lg.Debug("logout_token_unusable", slog.String("op", op))
		return
	}

	if err := s.denylist.Revoke(ctx, claims.ID, claims.userID(), claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, denylist.ErrAlreadyRevoked) {
			return
		}

		lg.Warn("logout_revoke_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем. На битом хэше возвращает false.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю: длина >= 8.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
