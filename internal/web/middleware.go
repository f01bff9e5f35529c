package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	cookiePrefix    = "codeskins_"
	cookieSessionID = cookiePrefix + "session-id"
	cookieMaxAge    = 60 * 60 * 48
)

type ctxKeySessionID struct{}
type ctxKeyLog struct{}

// EnsureSessionID assigns a session identity cookie when the browser does
// not present one. The cookie value keys all per-identity state: a new
// value means fresh controllers and a reset badge.
func EnsureSessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if c, err := r.Cookie(cookieSessionID); err == http.ErrNoCookie {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:   cookieSessionID,
				Value:  sessionID,
				MaxAge: cookieMaxAge,
				Path:   "/",
			})
			r.AddCookie(&http.Cookie{Name: cookieSessionID, Value: sessionID})
		} else if err != nil {
			http.Error(w, "invalid cookie", http.StatusBadRequest)
			return
		} else {
			sessionID = c.Value
		}
		ctx := context.WithValue(r.Context(), ctxKeySessionID{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ContextLogger injects a request-scoped logrus entry carrying the chi
// request ID and session identity.
func ContextLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"session":    sessionID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			ctx := context.WithValue(r.Context(), ctxKeyLog{}, entry)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeySessionID{}).(string); ok {
		return id
	}
	return ""
}

func requestLogger(ctx context.Context) logrus.FieldLogger {
	if entry, ok := ctx.Value(ctxKeyLog{}).(logrus.FieldLogger); ok {
		return entry
	}
	return logrus.StandardLogger()
}
