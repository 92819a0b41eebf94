package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vedran77/ourchat/internal/auth"
	"github.com/vedran77/ourchat/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	tokenTTL    time.Duration
	log         *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, tokenTTL time.Duration, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenTTL:    tokenTTL,
		log:         log.With(slog.String("handler", "auth")),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if !decode(w, r, &input) {
		return
	}

	resp, err := h.authService.Register(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.log, "register", err)
		return
	}

	h.setCookie(w, r, resp.AccessToken, h.tokenTTL)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if !decode(w, r, &input) {
		return
	}

	resp, err := h.authService.Login(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.log, "login", err)
		return
	}

	h.setCookie(w, r, resp.AccessToken, h.tokenTTL)
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, r, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// setCookie sets the session cookie; a negative ttl clears it.
func (h *AuthHandler) setCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	}
	if ttl < 0 {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}
