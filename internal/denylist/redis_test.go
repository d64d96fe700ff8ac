package denylist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Файл интеграционных тестов для пакета denylist:
// - поднимает реальный Redis через testcontainers-go (образ redis:7-alpine);
// - проверяет семантику отзыва (SET NX), TTL записей и гонку конкурентных Revoke.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/denylist -v -race -count=1

// startRedis — поднимает временный экземпляр Redis через testcontainers-go
// и возвращает инициализированный denylist и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startRedis(t *testing.T) (Denylist, func()) {
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

	dl, err := NewRedis(url, "")
	require.NoError(t, err)

	cleanup := func() {
		_ = dl.Close()
		_ = c.Terminate(context.Background())
	}
	return dl, cleanup
}

// TestIntegration_Revoke_Then_IsRevoked — happy-path: после отзыва jti
// становится отозванным, незнакомый jti — нет.
func TestIntegration_Revoke_Then_IsRevoked(t *testing.T) {
	dl, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := dl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, dl.Revoke(ctx, jti, 7, time.Now().Add(time.Hour)))

	revoked, err = dl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	require.True(t, revoked)

	// Другой jti не затронут.
	revoked, err = dl.IsRevoked(ctx, uuid.NewString())
	require.NoError(t, err)
	require.False(t, revoked)
}

// TestIntegration_Revoke_Repeated_ReturnsAlreadyRevoked — повторный отзыв
// того же jti даёт ErrAlreadyRevoked.
func TestIntegration_Revoke_Repeated_ReturnsAlreadyRevoked(t *testing.T) {
	dl, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	jti := uuid.NewString()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, dl.Revoke(ctx, jti, 7, exp))

	err := dl.Revoke(ctx, jti, 7, exp)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAlreadyRevoked)
}

// TestIntegration_Revoke_Concurrent_ExactlyOneWinner — при N конкурентных
// отзывах одного jti успех ровно у одного, остальные — ErrAlreadyRevoked.
func TestIntegration_Revoke_Concurrent_ExactlyOneWinner(t *testing.T) {
	dl, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	jti := uuid.NewString()
	exp := time.Now().Add(time.Hour)

	const workers = 16
	var wins, losses atomic.Int64

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			err := dl.Revoke(ctx, jti, 7, exp)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyRevoked):
				losses.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int64(1), wins.Load())
	require.Equal(t, int64(workers-1), losses.Load())
}

// TestIntegration_Revoke_ExpiredToken_IsNoop — истёкший токен не пишется:
// TTL <= 0 означает, что проверка exp отсеет его и без denylist.
func TestIntegration_Revoke_ExpiredToken_IsNoop(t *testing.T) {
	dl, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	jti := uuid.NewString()

	require.NoError(t, dl.Revoke(ctx, jti, 7, time.Now().Add(-time.Minute)))

	revoked, err := dl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	require.False(t, revoked)
}

// TestIntegration_Revoke_EntryExpiresWithToken — запись живёт ровно до
// истечения токена, после чего Redis удаляет её сам.
func TestIntegration_Revoke_EntryExpiresWithToken(t *testing.T) {
	dl, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	jti := uuid.NewString()

	require.NoError(t, dl.Revoke(ctx, jti, 7, time.Now().Add(time.Second)))

	revoked, err := dl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	require.True(t, revoked)

	time.Sleep(1500 * time.Millisecond)

	revoked, err = dl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	require.False(t, revoked)
}

// TestIntegration_Ping_OK — используется /redis-check.
func TestIntegration_Ping_OK(t *testing.T) {
	dl, cleanup := startRedis(t)
	defer cleanup()

	require.NoError(t, dl.Ping(context.Background()))
}

// TestIntegration_Unavailable_AfterClose — операции на закрытом клиенте
// оборачиваются в ErrUnavailable, а не возвращают "не отозван" молча.
func TestIntegration_Unavailable_AfterClose(t *testing.T) {
	dl, cleanup := startRedis(t)
	defer cleanup()

	require.NoError(t, dl.Close())

	_, err := dl.IsRevoked(context.Background(), uuid.NewString())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnavailable)

	err = dl.Revoke(context.Background(), uuid.NewString(), 7, time.Now().Add(time.Hour))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnavailable)
}
