package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/ourchat/internal/auth"
)

type fakeVerifier struct {
	valid  string
	userID uuid.UUID
}

func (f fakeVerifier) Verify(token string) (uuid.UUID, error) {
	if token != f.valid {
		return uuid.Nil, errors.New("nope")
	}
	return f.userID, nil
}

func Test_Auth(t *testing.T) {
	userID := uuid.New()
	var seen uuid.UUID
	handler := Auth(fakeVerifier{valid: "good", userID: userID})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{name: "no token", setup: func(*http.Request) {}, status: http.StatusUnauthorized},
		{name: "bad bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, status: http.StatusUnauthorized},
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, status: http.StatusOK},
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "good"}) }, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			r := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			tt.setup(r)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				require.Equal(t, userID, seen)
			} else {
				require.Contains(t, w.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func Test_CORS(t *testing.T) {
	req := require.New(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	handler := CORS([]string{"http://localhost:5173"})(next)

	// Allowed origin preflight
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/chats", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	req.Equal(http.StatusNoContent, w.Code)
	req.Equal("http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	req.Equal("true", w.Header().Get("Access-Control-Allow-Credentials"))

	// Unknown origin passes through without headers
	r = httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil)
	r.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	req.Equal(http.StatusTeapot, w.Code)
	req.Empty(w.Header().Get("Access-Control-Allow-Origin"))
}

func Test_Recovery(t *testing.T) {
	handler := Logging(slog.Default())(Recovery(slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
}
