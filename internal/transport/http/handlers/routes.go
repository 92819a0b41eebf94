package handlers

import (
	"net/http"
)

type Handlers struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Requests *RequestHandler
	Chats    *ChatHandler
	// WS is mounted as is; it authenticates the upgrade itself.
	WS http.Handler
}

// Register mounts the API on mux. authMW guards every route except health,
// register and login.
func Register(mux *http.ServeMux, h Handlers, authMW func(http.Handler) http.Handler) {
	protected := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authMW(fn))
	}

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /api/v1/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Auth.Login)
	if h.WS != nil {
		mux.Handle("GET /ws", h.WS)
	}

	// Protected - Account
	protected("POST /api/v1/auth/logout", h.Auth.Logout)
	protected("GET /api/v1/users/me", h.Users.Me)
	protected("GET /api/v1/users/search", h.Users.Search)

	// Protected - Friend requests
	protected("POST /api/v1/requests", h.Requests.Send)
	protected("GET /api/v1/requests/incoming", h.Requests.Incoming)
	protected("GET /api/v1/requests/outgoing", h.Requests.Outgoing)
	protected("PUT /api/v1/requests/{id}", h.Requests.Respond)
	protected("DELETE /api/v1/requests/{id}", h.Requests.Cancel)
	protected("GET /api/v1/friends", h.Requests.Friends)
	protected("GET /api/v1/relationships/{userId}", h.Requests.Relationship)

	// Protected - Chats
	protected("POST /api/v1/chats", h.Chats.Create)
	protected("GET /api/v1/chats", h.Chats.List)
	protected("GET /api/v1/chats/groups", h.Chats.Groups)
	protected("GET /api/v1/chats/{id}", h.Chats.Get)
	protected("PATCH /api/v1/chats/{id}", h.Chats.Rename)
	protected("DELETE /api/v1/chats/{id}", h.Chats.Delete)
	protected("POST /api/v1/chats/{id}/members", h.Chats.AddMembers)
	protected("DELETE /api/v1/chats/{id}/members/{uid}", h.Chats.RemoveMember)
	protected("POST /api/v1/chats/{id}/leave", h.Chats.Leave)
}
