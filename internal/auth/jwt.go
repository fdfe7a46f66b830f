package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/isdelr/skillnotes-be/internal/models"
	"github.com/isdelr/skillnotes-be/internal/sessions"
)

// CookieName is the session cookie set on the browser.
const CookieName = "skillnotes.sid"

// ErrNoSession is returned by Load when the request carries no usable session.
var ErrNoSession = errors.New("no session")

// Claims is the signed content of the session cookie. The subject is the sid.
type Claims struct {
	jwt.RegisteredClaims
}

// SessionManager issues and resolves session cookies backed by a sessions.Store.
type SessionManager struct {
	store  sessions.Store
	key    []byte
	ttl    time.Duration
	secure bool
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(store sessions.Store, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		store:  store,
		key:    []byte(secret),
		ttl:    ttl,
		secure: secure,
	}
}

// GenerateToken signs a cookie value for sid that expires at expire.
func (m *SessionManager) GenerateToken(sid string, expire time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sid,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expire),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.key)
}

// ValidateToken parses a cookie value and returns the sid it carries.
func (m *SessionManager) ValidateToken(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}

// Start creates a new session for data and sets the cookie.
func (m *SessionManager) Start(ctx context.Context, w http.ResponseWriter, data models.SessionData) error {
	sid := uuid.New().String()
	expire := time.Now().Add(m.ttl)

	if err := m.store.Save(ctx, sid, data, expire); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	token, err := m.GenerateToken(sid, expire)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, m.cookie(token, expire))
	return nil
}

// Load resolves the session of r. It returns ErrNoSession when the cookie is
// absent, forged, expired or unknown to the store.
func (m *SessionManager) Load(r *http.Request) (models.SessionData, error) {
	sid, err := m.sid(r)
	if err != nil {
		return models.SessionData{}, ErrNoSession
	}

	data, err := m.store.Get(r.Context(), sid)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.SessionData{}, ErrNoSession
		}
		return models.SessionData{}, err
	}
	return data, nil
}

// End destroys the session of r, if any, and clears the cookie.
func (m *SessionManager) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	sid, err := m.sid(r)
	if err != nil {
		return nil
	}
	return m.store.Destroy(ctx, sid)
}

func (m *SessionManager) sid(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return m.ValidateToken(cookie.Value)
}

func (m *SessionManager) cookie(value string, expire time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expire,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
