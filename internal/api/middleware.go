package api

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/api/handlers"
	"github.com/sadewadee/safety-observer/internal/auth"
	"github.com/sadewadee/safety-observer/internal/domain"
)

// SessionHeader carries the session token for API clients
const SessionHeader = "X-Session-Token"

// Logger logs HTTP requests
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		log.Printf(
			"%s %s %d %s",
			r.Method,
			r.URL.Path,
			rw.status,
			time.Since(start),
		)
	})
}

// Recovery recovers from panics
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered: %v", err)
				handlers.RenderError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// CORS handles cross-origin requests
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, "+SessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", "X-Stats-Sequence, X-Cache, Content-Disposition")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders adds security headers
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		next.ServeHTTP(w, r)
	})
}

// Auth checks the service API token. An empty token disables the check.
func Auth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || validToken(r, token) {
				next.ServeHTTP(w, r)
				return
			}

			handlers.RenderError(w, http.StatusUnauthorized, "Unauthorized")
		})
	}
}

func validToken(r *http.Request, token string) bool {
	matches := func(candidate string) bool {
		return candidate != "" && subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1
	}

	if parts := strings.Split(r.Header.Get("Authorization"), " "); len(parts) == 2 && parts[0] == "Bearer" {
		if matches(parts[1]) {
			return true
		}
	}

	return matches(r.Header.Get("X-API-Key")) || matches(r.URL.Query().Get("api_key"))
}

// SessionResolver turns a session token into the signed-in user
type SessionResolver interface {
	Resolve(ctx context.Context, token uuid.UUID) (*auth.Session, error)
}

// RequireSession resolves the session token from the X-Session-Token
// header or the session cookie and stores the session in the request
// context.
func RequireSession(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := sessionToken(r)
			if !ok {
				handlers.RenderError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			sess, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				handlers.RenderServiceError(w, "Session", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

func sessionToken(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(SessionHeader)
	if raw == "" {
		if c, err := r.Cookie(handlers.SessionCookie); err == nil {
			raw = c.Value
		}
	}

	token, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, false
	}
	return token, true
}

// RequireRole rejects users holding none of roles. Must run after
// RequireSession.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := auth.FromContext(r.Context())
			if !ok {
				handlers.RenderError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !sess.HasRole(roles...) {
				handlers.RenderError(w, http.StatusForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Chain chains multiple middlewares
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
