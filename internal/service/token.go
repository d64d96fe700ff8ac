package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-account-service/internal/models"
	logctx "github.com/pribylovaa/go-account-service/internal/pkg/log"
)

// Типы токенов: значение клейма "type".
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// tokenClaims — полезная нагрузка JWT.
// Поля: sub (id пользователя), exp, iat, type; jti — только у refresh-токенов,
// он же ключ отзыва в denylist.
type tokenClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// issueToken подписывает токен заданного типа.
// Для refresh генерируется свежий случайный jti (uuid v4).
func (s *Service) issueToken(userID int64, typ string, ttl time.Duration, now time.Time) (string, error) {
	const op = "service.token.issueToken"

	claims := tokenClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	if typ == tokenTypeRefresh {
		claims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// parseToken валидирует подпись и срок действия и сверяет тип токена.
// Возвращает ErrTokenExpired строго при истечении срока; любые прочие
// дефекты (подпись, формат, тип, отсутствие jti у refresh) — ErrInvalidToken.
// Leeway не используется: истечение сравнивается точно.
func (s *Service) parseToken(tokenStr, wantType string) (*tokenClaims, error) {
	const op = "service.token.parseToken"

	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.Type != wantType {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if wantType == tokenTypeRefresh && claims.ID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if _, err := strconv.ParseInt(claims.Subject, 10, 64); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// userID возвращает субъект токена. Валидность sub проверена в parseToken.
func (c *tokenClaims) userID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

// issueTokenPair выпускает новую пару access+refresh токенов.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.token.issueTokenPair"

	now := time.Now().UTC()

	accessToken, err := s.issueToken(user.ID, tokenTypeAccess, s.cfg.AccessTokenTTL, now)
	if err != nil {
		logctx.From(ctx).Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.issueToken(user.ID, tokenTypeRefresh, s.cfg.RefreshTokenTTL, now)
	if err != nil {
		logctx.From(ctx).Error("refresh_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  now.Add(s.cfg.AccessTokenTTL),
		RefreshExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}, nil
}
