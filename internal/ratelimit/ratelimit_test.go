package ratelimit

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты лимитера фиксированного окна поверх Redis.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/ratelimit -v -race -count=1

// startLimiter поднимает Redis через testcontainers-go и создаёт лимитер
// с заданными limit/window. Без GO_TEST_INTEGRATION тест пропускается.
func startLimiter(t *testing.T, limit int64, window time.Duration) (Limiter, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "6379/tcp")
	url := fmt.Sprintf("redis://%s:%s/0", host, port.Port())

	lim, err := NewRedis(url, "test:", limit, window)
	require.NoError(t, err)

	cleanup := func() {
		_ = lim.Close()
		_ = c.Terminate(context.Background())
	}
	return lim, cleanup
}

// TestIntegration_Allow_UpToLimit_ThenBlocks — первые limit попыток проходят,
// следующая блокируется.
func TestIntegration_Allow_UpToLimit_ThenBlocks(t *testing.T) {
	lim, cleanup := startLimiter(t, 3, time.Minute)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := lim.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, ok, "attempt %d should pass", i+1)
	}

	ok, err := lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)
}

// TestIntegration_Allow_KeysAreIndependent — лимит считается на ключ (IP),
// блокировка одного не задевает другой.
func TestIntegration_Allow_KeysAreIndependent(t *testing.T) {
	lim, cleanup := startLimiter(t, 1, time.Minute)
	defer cleanup()

	ctx := context.Background()

	ok, err := lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = lim.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, ok)
}

// TestIntegration_Allow_WindowResets — по истечении окна счётчик исчезает
// вместе с ключом и попытки снова проходят.
func TestIntegration_Allow_WindowResets(t *testing.T) {
	lim, cleanup := startLimiter(t, 1, time.Second)
	defer cleanup()

	ctx := context.Background()

	ok, err := lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)

	time.Sleep(1500 * time.Millisecond)

	ok, err = lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)
}

// TestIntegration_Allow_ErrorAfterClose — закрытый клиент возвращает ошибку,
// а не ложное "разрешено"/"запрещено".
func TestIntegration_Allow_ErrorAfterClose(t *testing.T) {
	lim, cleanup := startLimiter(t, 1, time.Minute)
	defer cleanup()

	require.NoError(t, lim.Close())

	_, err := lim.Allow(context.Background(), "10.0.0.1")
	require.Error(t, err)
}
