package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/skillnotes-be/internal/models"
	"github.com/rs/zerolog/log"
)

type contextKey string

// SessionKey is the context key for the signed-in session.
const SessionKey = contextKey("session")

// WithSession returns a copy of ctx carrying data.
func WithSession(ctx context.Context, data models.SessionData) context.Context {
	return context.WithValue(ctx, SessionKey, data)
}

// FromContext returns the session loaded by Sessions.
func FromContext(ctx context.Context) (models.SessionData, bool) {
	data, ok := ctx.Value(SessionKey).(models.SessionData)
	return data, ok && data.UserID != ""
}

// Sessions loads the request's session, when it has a valid one, into the
// request context. Requests without a session pass through unchanged.
func (m *SessionManager) Sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := m.Load(r)
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				log.Error().Err(err).Msg("Failed to load session")
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), data)))
	})
}

// RequireAPI rejects requests without a session with 401 and a JSON error.
func RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Not authenticated"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLogin redirects requests without a session to the landing page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
