package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/vedran77/ourchat/internal/service"
	"github.com/vedran77/ourchat/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
	log         *slog.Logger
}

func NewUserHandler(userService *service.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log.With(slog.String("handler", "users")),
	}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, "get me", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	users, err := h.userService.Search(r.Context(), middleware.GetUserID(r.Context()), name)
	if err != nil {
		writeServiceError(w, h.log, "search users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
