// service содержит бизнес-логику сервиса аккаунтов: регистрацию и
// аутентификацию пользователей, жизненный цикл пары access/refresh токенов
// (выпуск, ротацию, отзыв), работу с профилем и админский список
// пользователей. Хранилища передаются явно через конструктор — пакет не
// держит состояния между вызовами, весь стейт живёт в БД и denylist.
//
// Основные аспекты:
//   - экземпляр Service безопасен для конкурентного использования при
//     потокобезопасных storage.Storage и denylist.Denylist;
//   - единственная гонка домена — конкурентная ротация одного refresh-токена;
//     она разрешается атомарным "insert-if-absent" в denylist, см. RefreshTokens;
//   - ошибки возвращаются сентинелами ниже и маппятся HTTP-слоем на статусы
//     (см. комментарии к переменным).
package service

import (
	"errors"

	"github.com/pribylovaa/go-account-service/internal/config"
	"github.com/pribylovaa/go-account-service/internal/denylist"
	"github.com/pribylovaa/go-account-service/internal/storage"
)

var (
	// ErrInvalidCredentials — пара email/пароль неверна или пользователь не найден.
	// Ошибка одинакова для обоих случаев, чтобы не раскрывать, что именно не так.
	// Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInactiveAccount — учётная запись деактивирована. Транспорт: HTTP 401.
	ErrInactiveAccount = errors.New("inactive account")

	// ErrInvalidToken — токен некорректен по формату/подписи/типу или без jti.
	// Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Отдельный сентинел:
	// истёкший токен никогда не считается "malformed". Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenReused — предъявлен refresh-токен с уже отозванным jti.
	// Повторное использование ротированного токена — событие безопасности,
	// а не повод для повтора. Транспорт: HTTP 401.
	ErrTokenReused = errors.New("token reused")

	// ErrUserNotFound — субъект токена больше не существует. Транспорт: HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnavailable — denylist недоступен. Никогда не интерпретируется как
	// "токен не отозван": отказоустойчивость здесь fail-closed. Транспорт: HTTP 503.
	ErrUnavailable = errors.New("service unavailable")

	// ErrAlreadyExists — email или username уже заняты. Транспорт: HTTP 409.
	ErrAlreadyExists = errors.New("already exists")

	// ErrPermissionDenied — операция доступна только администратору. Транспорт: HTTP 403.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidEmail — email имеет некорректный формат. Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidUsername — имя пользователя пустое или длиннее 50 символов.
	// Транспорт: HTTP 400.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrWeakPassword — пароль короче 8 символов. Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")
)

// Service описывает бизнес-логику сервиса аккаунтов.
type Service struct {
	storage  storage.Storage
	denylist denylist.Denylist
	cfg      config.AuthConfig
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, denylist denylist.Denylist, cfg config.AuthConfig) *Service {
	return &Service{
		storage:  storage,
		denylist: denylist,
		cfg:      cfg,
	}
}
