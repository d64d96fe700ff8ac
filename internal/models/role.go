package models

// Имена встроенных ролей. Записи создаются миграцией и не удаляются.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Role — именованная группа прав; на одну роль ссылается много пользователей.
type Role struct {
	ID          int64
	Name        string
	Description string
}
