package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"smartscribe-backend-go/internal/models"
	"smartscribe-backend-go/internal/services"
)

type contextKey string

const (
	ctxUser  contextKey = "user"
	ctxToken contextKey = "token"
)

// WithAuth validates the bearer token signature and loads the user
// row; a token for a deleted or disabled account is rejected.
func (s *Server) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			WriteError(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		token, claims, err := s.Tokens.ParseToken(tokenStr)
		if err != nil || !token.Valid {
			WriteError(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		userID, _ := claims["sub"].(string)
		user, err := services.GetUserByID(s.DB, userID)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "User not found")
			return
		}
		if user.Status != "ACTIVE" {
			WriteError(w, http.StatusForbidden, "Account disabled")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUser, user)
		ctx = context.WithValue(ctx, ctxToken, tokenStr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly additionally requires an active, unexpired session row
// bound to this exact token; a superseded or revoked token fails here
// before its signature-level expiry matters.
func (s *Server) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil || !user.IsAdmin {
			WriteError(w, http.StatusForbidden, "Admin access only")
			return
		}
		if _, err := services.ValidateAdminSession(s.DB, user.ID, CurrentToken(r)); err != nil {
			WriteServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func CurrentUser(r *http.Request) *models.User {
	if user, ok := r.Context().Value(ctxUser).(*models.User); ok {
		return user
	}
	return nil
}

func CurrentToken(r *http.Request) string {
	if token, ok := r.Context().Value(ctxToken).(string); ok {
		return token
	}
	return ""
}

// clientIP prefers the forwarded header so rate limiting and audit
// rows survive a reverse proxy.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
