package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-account-service/internal/models"
	"github.com/pribylovaa/go-account-service/internal/storage"
)

// Файл интеграционных тестов для пакета postgres:
// - поднимает реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// - применяет миграции из ./migrations (1_init.up.sql с ролями и пользователями);
// - проверяет happy-path, уникальность email/username, пагинацию ListUsers
//   и обработку ошибок контекста.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// repoRootFromThisFile — определяет корень репозитория относительно текущего файла тестов.
// Используется для поиска SQL-миграций в каталоге ./migrations независимо от текущего рабочего каталога.
func repoRootFromThisFile() string {
	// internal/storage/postgres/... -> подняться на 3 уровня до корня.
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

// readMigration — читает содержимое SQL-миграции из подкаталога ./migrations.
func readMigration(t *testing.T, name string) string {
	t.Helper()
	root := repoRootFromThisFile()
	path := filepath.Join(root, "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres — поднимает временный экземпляр PostgreSQL через testcontainers-go,
// применяет миграцию и возвращает инициализированное хранилище и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	// применяем миграции.
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, readMigration(t, "1_init.up.sql"))
	require.NoError(t, err)

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

// mustRole — роль из сидов миграции ('user'/'admin').
func mustRole(t *testing.T, st *Storage, name string) *models.Role {
	t.Helper()
	role, err := st.RoleByName(context.Background(), name)
	require.NoError(t, err)
	return role
}

func newTestUser(email, username string, roleID int64) *models.User {
	now := time.Now().UTC()
	return &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: "hash",
		Active:       true,
		RoleID:       roleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TestIntegration_SaveUser_And_GetByEmail_And_ByID_OK — happy-path:
// сохранение пользователя и последующий поиск по email и ID; роль подгружается целиком.
func TestIntegration_SaveUser_And_GetByEmail_And_ByID_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	role := mustRole(t, st, models.RoleUser)
	u := newTestUser("user@example.com", "alice", role.ID)

	require.NoError(t, st.SaveUser(context.Background(), u))
	require.NotZero(t, u.ID) // ID заполняется из RETURNING

	gotByEmail, err := st.UserByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, gotByEmail.ID)
	require.Equal(t, "alice", gotByEmail.Username)
	require.Equal(t, "hash", gotByEmail.PasswordHash)
	require.True(t, gotByEmail.Active)
	require.Equal(t, models.RoleUser, gotByEmail.Role.Name)
	require.WithinDuration(t, u.CreatedAt, gotByEmail.CreatedAt, time.Second)

	gotByID, err := st.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, gotByID.ID)
	require.Equal(t, u.Email, gotByID.Email)
}

// TestIntegration_SaveUser_EmptyPasswordHash_RoundTrips — пустой хэш хранится как
// NULL и читается обратно пустой строкой (учётные записи внешних провайдеров).
func TestIntegration_SaveUser_EmptyPasswordHash_RoundTrips(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	role := mustRole(t, st, models.RoleUser)
	u := newTestUser("oauth@example.com", "oauth-user", role.ID)
	u.PasswordHash = ""

	require.NoError(t, st.SaveUser(context.Background(), u))

	got, err := st.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Empty(t, got.PasswordHash)
}

// TestIntegration_SaveUser_UniqueViolations — конфликт уникальности по email
// и по username, ожидаем storage.ErrAlreadyExists.
func TestIntegration_SaveUser_UniqueViolations(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	role := mustRole(t, st, models.RoleUser)
	require.NoError(t, st.SaveUser(context.Background(), newTestUser("user@example.com", "alice", role.ID)))

	// Тот же email.
	err := st.SaveUser(context.Background(), newTestUser("user@example.com", "bob", role.ID))
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	// Тот же username.
	err = st.SaveUser(context.Background(), newTestUser("other@example.com", "alice", role.ID))
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

// TestIntegration_UpdateUser_OK — обновление username/email/password_hash и updated_at.
func TestIntegration_UpdateUser_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	role := mustRole(t, st, models.RoleUser)
	u := newTestUser("user@example.com", "alice", role.ID)
	require.NoError(t, st.SaveUser(context.Background(), u))

	u.Email = "renamed@example.com"
	u.Username = "alice2"
	u.PasswordHash = "new-hash"
	u.UpdatedAt = time.Now().UTC()
	require.NoError(t, st.UpdateUser(context.Background(), u))

	got, err := st.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed@example.com", got.Email)
	require.Equal(t, "alice2", got.Username)
	require.Equal(t, "new-hash", got.PasswordHash)
}

// TestIntegration_UpdateUser_NotFound_And_Conflict — отсутствующая запись даёт
// ErrNotFound, нарушение уникальности email — ErrAlreadyExists.
func TestIntegration_UpdateUser_NotFound_And_Conflict(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	role := mustRole(t, st, models.RoleUser)

	ghost := newTestUser("ghost@example.com", "ghost", role.ID)
	ghost.ID = 999999
	err := st.UpdateUser(context.Background(), ghost)
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)

	a := newTestUser("a@example.com", "usera", role.ID)
	b := newTestUser("b@example.com", "userb", role.ID)
	require.NoError(t, st.SaveUser(context.Background(), a))
	require.NoError(t, st.SaveUser(context.Background(), b))

	b.Email = a.Email
	err = st.UpdateUser(context.Background(), b)
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

// TestIntegration_ListUsers_Paging — пагинация с фиксированной сортировкой по
// username и корректный total независимо от страницы.
func TestIntegration_ListUsers_Paging(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	role := mustRole(t, st, models.RoleUser)
	for _, name := range []string{"charlie", "alice", "bob"} {
		u := newTestUser(name+"@example.com", name, role.ID)
		require.NoError(t, st.SaveUser(context.Background(), u))
	}

	users, total, err := st.ListUsers(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Username)
	require.Equal(t, "bob", users[1].Username)

	users, total, err = st.ListUsers(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, users, 1)
	require.Equal(t, "charlie", users[0].Username)
}

// TestIntegration_UserLookups_NotFound — поиск отсутствующих записей.
func TestIntegration_UserLookups_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	_, err := st.UserByEmail(context.Background(), "absent@example.com")
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByID(context.Background(), 424242)
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_RoleByName_SeededRoles — роли 'user'/'admin' создаются миграцией.
func TestIntegration_RoleByName_SeededRoles(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	user, err := st.RoleByName(context.Background(), models.RoleUser)
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, user.Name)

	admin, err := st.RoleByName(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Name)
	require.NotEqual(t, user.ID, admin.ID)

	_, err = st.RoleByName(context.Background(), "nonexistent")
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_Version_ReturnsServerVersion — /db-check использует Version().
func TestIntegration_Version_ReturnsServerVersion(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	version, err := st.Version(context.Background())
	require.NoError(t, err)
	require.Contains(t, version, "PostgreSQL")
}

// TestIntegration_UserQueries_ContextCanceled — отменённый контекст должен
// «просочиться» в ошибки чтения как context.Canceled.
func TestIntegration_UserQueries_ContextCanceled(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // отменяем заранее

	_, err := st.UserByEmail(ctx, "user@example.com")
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)

	_, err = st.UserByID(ctx, 1)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
