package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/isdelr/skillnotes-be/internal/auth"
	"github.com/isdelr/skillnotes-be/internal/models"
	"github.com/isdelr/skillnotes-be/internal/services"
	"github.com/rs/zerolog/log"
)

// Messages shown on the login page.
const (
	msgSignupMissing  = "Имя пользователя и пароль обязательны"
	msgLoginMissing   = "Введите имя и пароль"
	msgBadCredentials = "Неправильные учётные данные"
	msgSignupFailed   = "Ошибка регистрации: "
	msgLoginFailed    = "Ошибка: "
	msgUsernameTaken  = "пользователь с таким именем уже существует"
	msgInternal       = "внутренняя ошибка сервера"
)

// AuthHandler serves the login page, local accounts and GitHub sign-in.
type AuthHandler struct {
	users    services.UserServiceProvider
	sessions *auth.SessionManager
	github   *auth.GitHubProvider
}

// NewAuthHandler creates a new AuthHandler. github may be nil when GitHub
// sign-in is not configured.
func NewAuthHandler(users services.UserServiceProvider, sessions *auth.SessionManager, github *auth.GitHubProvider) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, github: github}
}

// CredentialsPayload defines the structure for signup and login requests.
type CredentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// readCredentials accepts JSON or form bodies. A malformed body yields empty
// credentials.
func readCredentials(r *http.Request) CredentialsPayload {
	var payload CredentialsPayload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return CredentialsPayload{}
		}
		return payload
	}
	if err := r.ParseForm(); err != nil {
		return CredentialsPayload{}
	}
	payload.Username = r.PostForm.Get("username")
	payload.Password = r.PostForm.Get("password")
	return payload
}

func (h *AuthHandler) renderIndex(w http.ResponseWriter, status int, authError string) {
	renderPage(w, status, "index.html", indexPage{
		AuthError:     authError,
		GitHubEnabled: h.github != nil,
	})
}

// Index renders the login page, or sends signed-in users to the dashboard.
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.renderIndex(w, http.StatusOK, "")
}

// SignUp handles new local account registration.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	payload := readCredentials(r)

	user, err := h.users.SignUp(r.Context(), payload.Username, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingCredentials):
			h.renderIndex(w, http.StatusBadRequest, msgSignupMissing)
		case errors.Is(err, models.ErrUsernameTaken):
			h.renderIndex(w, http.StatusConflict, msgSignupFailed+msgUsernameTaken)
		default:
			log.Error().Err(err).Str("username", payload.Username).Msg("Failed to register user")
			h.renderIndex(w, http.StatusInternalServerError, msgSignupFailed+msgInternal)
		}
		return
	}

	h.startSession(w, r, user, msgSignupFailed)
}

// Login handles local account authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	payload := readCredentials(r)

	user, err := h.users.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingCredentials):
			h.renderIndex(w, http.StatusBadRequest, msgLoginMissing)
		case errors.Is(err, models.ErrInvalidCredentials):
			log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
			h.renderIndex(w, http.StatusUnauthorized, msgBadCredentials)
		default:
			log.Error().Err(err).Str("username", payload.Username).Msg("Failed to authenticate user")
			h.renderIndex(w, http.StatusInternalServerError, msgLoginFailed+msgInternal)
		}
		return
	}

	h.startSession(w, r, user, msgLoginFailed)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user models.User, failurePrefix string) {
	data := models.SessionData{UserID: user.ID, Username: user.Username}
	if err := h.sessions.Start(r.Context(), w, data); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to start session")
		h.renderIndex(w, http.StatusInternalServerError, failurePrefix+msgInternal)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout destroys the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context(), w, r); err != nil {
		log.Error().Err(err).Msg("Failed to destroy session")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Dashboard renders the application shell for the signed-in user.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data, _ := auth.FromContext(r.Context())
	username := data.Username
	if username == "" {
		username = "User"
	}
	renderPage(w, http.StatusOK, "dashboard.html", dashboardPage{Username: username})
}

// GitHubLogin redirects to GitHub's consent screen.
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		NotFound(w, r)
		return
	}
	redirect, err := h.github.Begin(w)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start GitHub sign-in")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// GitHubCallback completes GitHub sign-in, creating the account on first use.
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		NotFound(w, r)
		return
	}

	profile, err := h.github.Complete(r.Context(), w, r)
	if err != nil {
		log.Warn().Err(err).Msg("GitHub sign-in failed")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	username := profile.Login
	if username == "" {
		username = profile.Name
	}
	user, err := h.users.FindOrCreateOAuthUser(r.Context(), services.ProviderGitHub, profile.ExternalID(), username)
	if err != nil {
		log.Error().Err(err).Str("github_id", profile.ExternalID()).Msg("Failed to resolve GitHub user")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	data := models.SessionData{UserID: user.ID, Username: user.Username}
	if err := h.sessions.Start(r.Context(), w, data); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to start session")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
