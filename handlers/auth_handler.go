package handlers

import (
	"net/http"

	"github.com/Dosada05/dance-battle/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login обрабатывает POST /admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.AdminLoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	token, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": token.Token, "expires_at": token.ExpiresAt}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
