package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/go-account-service/internal/errors"
	"github.com/pribylovaa/go-account-service/internal/http/middleware"
	"github.com/pribylovaa/go-account-service/internal/service"
)

// refreshCookieName — имя HTTP-only cookie с refresh-токеном.
const refreshCookieName = "refresh_token"

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse — контракт ответа login/refresh: access-токен отдаётся в теле,
// refresh — только в cookie.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterUser создаёт новую учётную запись с ролью "user".
func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}

	user, err := h.Svc.RegisterUser(r.Context(), in.Username, in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(user))
}

// LoginUser выполняет вход: access-токен в теле ответа, refresh — в cookie.
func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}

	pair, _, err := h.Svc.LoginUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "bearer",
	})
}

// RefreshToken ротирует пару токенов.
//
// Refresh-токен берётся из Authorization: Bearer (предпочтительно — CSRF
// невозможен), при его отсутствии — из cookie с проверкой Origin/Referer.
// Невалидный/отозванный токен дополнительно стирает cookie, чтобы клиент
// не предъявлял его снова.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.refreshTokenFromRequest(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.Svc.RefreshTokens(r.Context(), token)
	if err != nil {
		if isSessionTerminal(err) {
			h.clearRefreshCookie(w)
		}
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "bearer",
	})
}

type logoutResponse struct {
	Detail string `json:"detail"`
}

// Logout завершает сессию: отзывает refresh-токен, если он пригоден,
// и безусловно стирает cookie. Всегда отвечает успехом — выход идемпотентен.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		h.Svc.Logout(r.Context(), cookie.Value)
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, logoutResponse{Detail: "Successfully logged out"})
}

// Me возвращает профиль текущего пользователя.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(user))
}

type updateMeRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// UpdateMe изменяет email/username/пароль текущего пользователя.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in updateMeRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}

	updated, err := h.Svc.UpdateProfile(r.Context(), user, service.UpdateProfileParams{
		Email:    in.Email,
		Username: in.Username,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(updated))
}

// refreshTokenFromRequest извлекает refresh-токен из запроса.
// Для cookie-варианта вне local-окружения требуется совпадение Origin или
// Referer с allowlist — это и есть CSRF-защита refresh-эндпойнта.
func (h *Handlers) refreshTokenFromRequest(r *http.Request) (string, error) {
	const op = "handlers.auth.refreshTokenFromRequest"

	if token, ok := middleware.TokenFromContext(r.Context()); ok {
		return token, nil
	}

	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", fmt.Errorf("%s: %w", op, service.ErrInvalidToken)
	}

	if h.Cfg.EnforceCSRF && !h.originAllowed(r) {
		return "", fmt.Errorf("%s: %w", op, service.ErrPermissionDenied)
	}

	return cookie.Value, nil
}

// originAllowed проверяет Origin/Referer против allowlist.
func (h *Handlers) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	referer := r.Header.Get("Referer")

	for _, allowed := range h.Cfg.AllowedOrigins {
		if (origin != "" && strings.HasPrefix(origin, allowed)) ||
			(referer != "" && strings.HasPrefix(referer, allowed)) {
			return true
		}
	}

	return false
}

// isSessionTerminal — ошибки refresh, после которых cookie больше не пригодна.
func isSessionTerminal(err error) bool {
	return errors.Is(err, service.ErrInvalidToken) ||
		errors.Is(err, service.ErrTokenExpired) ||
		errors.Is(err, service.ErrTokenReused) ||
		errors.Is(err, service.ErrUserNotFound) ||
		errors.Is(err, service.ErrInactiveAccount)
}

// setRefreshCookie выставляет refresh-cookie по контракту:
// HttpOnly, SameSite=Strict, Path — только auth-маршруты, Secure вне local,
// Max-Age равен TTL refresh-токена.
func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     h.Cfg.CookiePath,
		MaxAge:   int(h.Cfg.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie стирает refresh-cookie.
func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     h.Cfg.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
