package handlers

import (
	"net/http"
	"strconv"

	apierrors "github.com/pribylovaa/go-account-service/internal/errors"
)

type listUsersResponse struct {
	Users []userResponse `json:"users"`
	Total int64          `json:"total"`
}

// ListUsers возвращает страницу пользователей для панели администратора.
// Фильтрация/сортировка сознательно не поддерживаются — только page/limit.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := h.currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	users, total, err := h.Svc.ListUsers(r.Context(), actor, page, limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := listUsersResponse{
		Users: make([]userResponse, 0, len(users)),
		Total: total,
	}
	for i := range users {
		out.Users = append(out.Users, userFromModel(&users[i]))
	}

	writeJSON(w, http.StatusOK, out)
}

// queryInt — числовой query-параметр с дефолтом; мусор игнорируется.
func queryInt(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}

	return v
}
