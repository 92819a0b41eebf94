package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/ourchat/internal/auth"
)

type contextKey string

const UserIDKey contextKey = "user_id"

type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// Auth accepts a bearer token or the session cookie.
func Auth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.TokenFromRequest(r)
			if tokenStr == "" {
				unauthorized(w, "Missing or invalid token")
				return
			}

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"` + message + `"}}`))
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) uuid.UUID {
	return ctx.Value(UserIDKey).(uuid.UUID)
}
