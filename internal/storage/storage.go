package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-account-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/роль).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/username).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
// Все методы возвращают пользователя с полностью загруженной ролью:
// сервисный слой никогда не работает с частично заполненными записями.
type UserStorage interface {
	// SaveUser создает нового пользователя и заполняет его ID.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id int64) (*models.User, error)
	// UpdateUser сохраняет изменённые email/username/password_hash.
	UpdateUser(ctx context.Context, user *models.User) error
	// ListUsers возвращает страницу пользователей и общее число записей.
	ListUsers(ctx context.Context, limit, offset int64) ([]models.User, int64, error)
}

// RoleStorage выполняет операции над ролями.
type RoleStorage interface {
	// RoleByName находит роль по имени.
	RoleByName(ctx context.Context, name string) (*models.Role, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RoleStorage
	Close()
}
