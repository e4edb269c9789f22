package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/taskboard/internal/domain"
	"github.com/yourorg/taskboard/internal/security/audit"
	"github.com/yourorg/taskboard/internal/security/auth"
	"github.com/yourorg/taskboard/internal/security/ratelimit"
	"github.com/yourorg/taskboard/pkg/cache"
)

type UserContextKey struct{}

// TokenResolver turns a bearer token into the acting user.
// AuthService satisfies this.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.User, error)
}

func isPublic(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return true
	case "/v1/users/register", "/v1/users/login":
		return r.Method == http.MethodPost
	case "/v1/users":
		return r.Method == http.MethodGet
	}
	return false
}

// AuthMiddleware resolves the Authorization header into a user and stores
// it on the request context. Resolved users are cached briefly so bursts
// from the same client do not hit Redis and Postgres on every request.
func AuthMiddleware(resolver TokenResolver, userCache *cache.Cache, log *slog.Logger) func(http.Handler) http.Handler {
	const cacheTTL = 30 * time.Second

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthenticated(w)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				unauthenticated(w)
				return
			}

			if cached, ok := userCache.Get("token:" + tokenString); ok {
				user := cached.(*domain.User)
				next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
				return
			}

			user, err := resolver.ResolveToken(r.Context(), tokenString)
			if err != nil {
				log.Debug("token resolution failed", slog.String("error", err.Error()))
				unauthenticated(w)
				return
			}

			userCache.Set("token:"+tokenString, user, cacheTTL)
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// RateLimitMiddleware applies a per-user sliding window, with a stricter
// per-address window on login.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/users/login" && r.Method == http.MethodPost {
				if !limiter.AllowStrict(clientAddr(r), 10, time.Minute) {
					tooManyRequests(w)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			key := ""
			if user := GetUserFromContext(r.Context()); user != nil {
				key = user.ID
			}
			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded", slog.String("user_id", key))
				tooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records task mutations and login attempts
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := ""
			if user := GetUserFromContext(r.Context()); user != nil {
				userID = user.ID
			}

			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/v1/users/login":
				auditLog.LogLogin(r.Context(), userID, "attempted", "")
			case isTaskMutation(r):
				auditLog.LogTaskMutation(r.Context(), userID, strings.ToLower(r.Method), r.PathValue("task"), "initiated")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isTaskMutation(r *http.Request) bool {
	if !strings.Contains(r.URL.Path, "/tasks") {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func withUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, UserContextKey{}, user)
}

// GetUserFromContext returns the authenticated user, or nil on public routes
func GetUserFromContext(ctx context.Context) *domain.User {
	if u := ctx.Value(UserContextKey{}); u != nil {
		return u.(*domain.User)
	}
	return nil
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"message":"Unauthenticated."}`))
}

func tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"message":"Too many requests."}`))
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
