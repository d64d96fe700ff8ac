package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	logctx "github.com/pribylovaa/go-account-service/internal/pkg/log"
)

// Root — приветствие с именем проекта.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Hello from %s!", h.Cfg.ProjectName),
	})
}

// Health — liveness/readiness-проба: процесс жив и отвечает.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DBCheck проверяет соединение с PostgreSQL и возвращает версию сервера.
// Ошибка отдаётся со статусом 200 и полем status=error: это отладочный
// эндпойнт, а не проба оркестратора.
func (h *Handlers) DBCheck(w http.ResponseWriter, r *http.Request) {
	version, err := h.DB.Version(r.Context())
	if err != nil {
		logctx.From(r.Context()).Error("db_check_failed", slog.String("err", err.Error()))
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"db_version": version,
	})
}

// RedisCheck проверяет доступность Redis командой PING.
func (h *Handlers) RedisCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Ping(r.Context()); err != nil {
		logctx.From(r.Context()).Error("redis_check_failed", slog.String("err", err.Error()))
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PodName возвращает имя пода из POD_NAME — удобно при отладке балансировки.
func (h *Handlers) PodName(w http.ResponseWriter, r *http.Request) {
	name := os.Getenv("POD_NAME")
	if name == "" {
		name = "local-development"
	}

	writeJSON(w, http.StatusOK, map[string]string{"pod_name": name})
}
