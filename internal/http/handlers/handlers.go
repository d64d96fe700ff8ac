package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apierrors "github.com/pribylovaa/go-account-service/internal/errors"
	"github.com/pribylovaa/go-account-service/internal/http/middleware"
	"github.com/pribylovaa/go-account-service/internal/models"
	"github.com/pribylovaa/go-account-service/internal/service"
)

// DBChecker — проверка состояния базы данных (эндпойнт /db-check).
type DBChecker interface {
	Version(ctx context.Context) (string, error)
}

// CacheChecker — проверка состояния Redis (эндпойнт /redis-check).
type CacheChecker interface {
	Ping(ctx context.Context) error
}

// Config — параметры HTTP-слоя, вычисленные из конфигурации при сборке роутера.
type Config struct {
	// ProjectName — имя проекта для приветственного эндпойнта.
	ProjectName string
	// CookiePath — путь refresh-cookie, например "/api/auth".
	CookiePath string
	// CookieSecure — ставить ли Secure на refresh-cookie (все окружения, кроме local).
	CookieSecure bool
	// RefreshTTL — Max-Age refresh-cookie.
	RefreshTTL time.Duration
	// AllowedOrigins — допустимые Origin/Referer для cookie-варианта refresh.
	AllowedOrigins []string
	// EnforceCSRF — проверять ли Origin/Referer (выключено в local).
	EnforceCSRF bool
}

// Handlers агрегирует зависимости HTTP-обработчиков.
type Handlers struct {
	Svc   *service.Service
	DB    DBChecker
	Cache CacheChecker
	Cfg   Config
}

func New(svc *service.Service, db DBChecker, cache CacheChecker, cfg Config) *Handlers {
	return &Handlers{Svc: svc, DB: db, Cache: cache, Cfg: cfg}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// errInvalidArgument — локальная ошибка парсинга тела запроса -> 400.
func errInvalidArgument() error {
	return fmt.Errorf("%w: bad request body", apierrors.ErrBadRequest)
}

// currentUser аутентифицирует запрос по bearer-токену из контекста.
// Отсутствующий токен равнозначен невалидному.
func (h *Handlers) currentUser(r *http.Request) (*models.User, error) {
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		return nil, service.ErrInvalidToken
	}

	return h.Svc.Authenticate(r.Context(), token)
}

// roleResponse/userResponse — сериализация пользователя для фронта.
type roleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type userResponse struct {
	ID       int64        `json:"id"`
	Email    string       `json:"email"`
	Username string       `json:"username"`
	Active   bool         `json:"is_active"`
	Role     roleResponse `json:"role"`
}

func userFromModel(u *models.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Active:   u.Active,
		Role: roleResponse{
			ID:          u.Role.ID,
			Name:        u.Role.Name,
			Description: u.Role.Description,
		},
	}
}
