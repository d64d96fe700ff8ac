// denylist хранит идентификаторы (jti) отозванных refresh-токенов.
//
// Запись создаётся при ротации или logout и живёт ровно до истечения самого
// токена, поэтому хранилище самоочищается и фоновая уборка не обязательна.
// Недоступность хранилища — отдельное состояние ErrUnavailable: вызывающая
// сторона обязана отказать в операции, а не считать токен неотозванным.
package denylist

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyRevoked — jti уже есть в denylist. Для ротации это признак
	// гонки или повторного предъявления токена, а не штатный исход.
	ErrAlreadyRevoked = errors.New("already revoked")

	// ErrUnavailable — хранилище недоступно. Транспорт: HTTP 503.
	ErrUnavailable = errors.New("denylist unavailable")
)

// Denylist — минимальный контракт хранилища отозванных jti.
type Denylist interface {
	// IsRevoked проверяет наличие jti в denylist.
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// Revoke атомарно добавляет jti ("insert-if-absent"): при конкурентных
	// вызовах ровно один завершается успешно, остальные получают
	// ErrAlreadyRevoked. TTL записи равен остатку жизни токена.
	Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
	// Close закрывает соединение.
	Close() error
}
