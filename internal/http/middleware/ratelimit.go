package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	apierrors "github.com/pribylovaa/go-account-service/internal/errors"
	logctx "github.com/pribylovaa/go-account-service/internal/pkg/log"
	"github.com/pribylovaa/go-account-service/internal/ratelimit"
)

// RateLimit ограничивает частоту запросов по IP клиента.
// Лимитер — вспомогательный механизм: при недоступности Redis запрос
// пропускается (в отличие от denylist, где отказ обязателен).
func RateLimit(limiter ratelimit.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logctx.From(r.Context()).Warn("rate_limit_check_failed",
					slog.String("err", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !ok {
				writeTooManyRequests(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeTooManyRequests — 429 в едином формате ошибок.
func writeTooManyRequests(w http.ResponseWriter, r *http.Request) {
	resp := apierrors.ErrorResponse{
		Error: apierrors.APIError{
			Code:      "resource_exhausted",
			Message:   "too many requests",
			RequestID: r.Header.Get("X-Request-Id"),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(resp)
}

// clientIP — адрес клиента без порта; за прокси берём X-Forwarded-For.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
