package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-account-service/internal/errors"
)

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type resetPasswordResponse struct {
	Message string `json:"message"`
}

// ResetPassword принимает токен сброса и новый пароль.
// Проверка токена сброса не реализована: эндпойнт существует для
// совместимости контракта и всегда отвечает успехом на валидное тело.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetPasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}

	writeJSON(w, http.StatusOK, resetPasswordResponse{Message: "Password updated successfully"})
}
