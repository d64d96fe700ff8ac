package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-account-service/internal/http/handlers"
	"github.com/pribylovaa/go-account-service/internal/http/middleware"
	"github.com/pribylovaa/go-account-service/internal/ratelimit"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
	// LoginLimiter ограничивает частоту /auth/login; nil выключает лимит.
	LoginLimiter ratelimit.Limiter
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.AuthBearer(),         // вынимаем Bearer токен в контекст для хендлеров
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	// Регистрация маршрутов.
	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, opts)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, opts)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, opts Options) {
	// auth
	r.Post("/auth/register", h.RegisterUser)
	r.With(middleware.RateLimit(opts.LoginLimiter)).Post("/auth/login", h.LoginUser)
	r.Post("/auth/refresh", h.RefreshToken)
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/me", h.Me)
	r.Patch("/auth/me", h.UpdateMe)
	r.Post("/auth/reset-password", h.ResetPassword)

	// admin
	r.Get("/admin/users", h.ListUsers)

	// system
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/db-check", h.DBCheck)
	r.Get("/redis-check", h.RedisCheck)
	r.Get("/pod", h.PodName)
}
