package models

import "time"

// User — учётная запись пользователя.
//
// PasswordHash может быть пустым: такие учётные записи созданы внешним
// провайдером аутентификации и вход по паролю для них невозможен.
// Пароль в открытом виде нигде не хранится и не логируется.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Active       bool
	RoleID       int64
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin сообщает, назначена ли пользователю роль администратора.
func (u *User) IsAdmin() bool {
	return u.Role.Name == RoleAdmin
}
