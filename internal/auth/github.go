package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/isdelr/skillnotes-be/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	stateCookieName = "skillnotes.oauth_state"
	stateTTL        = 10 * time.Minute
	githubUserURL   = "https://api.github.com/user"
)

var (
	// ErrInvalidState is returned when the callback state does not match the one issued.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrAuthDenied is returned when GitHub redirects back without a code.
	ErrAuthDenied = errors.New("oauth authorization denied")
)

// GitHubUser is the profile subset used to link accounts.
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

// ExternalID is the identity stored in users.oauth_id.
func (u GitHubUser) ExternalID() string {
	return strconv.FormatInt(u.ID, 10)
}

// GitHubProvider runs the GitHub OAuth authorization code flow.
type GitHubProvider struct {
	config  *oauth2.Config
	key     []byte
	secure  bool
	userURL string
}

// NewGitHubProvider creates a new GitHubProvider. secret signs the state value.
func NewGitHubProvider(cfg config.GitHubConfig, secret string, secure bool) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"user:email"},
		},
		key:     []byte(secret),
		secure:  secure,
		userURL: githubUserURL,
	}
}

// Begin sets the state cookie and returns the GitHub authorization URL.
func (p *GitHubProvider) Begin(w http.ResponseWriter) (string, error) {
	expire := time.Now().Add(stateTTL)
	claims := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(expire),
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/github",
		Expires:  expire,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return p.config.AuthCodeURL(state), nil
}

// Complete validates the callback request, exchanges the code and returns the
// GitHub profile. The state cookie is cleared in every case.
func (p *GitHubProvider) Complete(ctx context.Context, w http.ResponseWriter, r *http.Request) (GitHubUser, error) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/auth/github",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})

	if err := p.checkState(r); err != nil {
		return GitHubUser{}, err
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return GitHubUser{}, ErrAuthDenied
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return GitHubUser{}, fmt.Errorf("exchange oauth code: %w", err)
	}
	return p.fetchUser(ctx, token)
}

func (p *GitHubProvider) checkState(r *http.Request) error {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || state == "" || cookie.Value != state {
		return ErrInvalidState
	}

	_, err = jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return p.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return ErrInvalidState
	}
	return nil
}

func (p *GitHubProvider) fetchUser(ctx context.Context, token *oauth2.Token) (GitHubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return GitHubUser{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return GitHubUser{}, fmt.Errorf("fetch github user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GitHubUser{}, fmt.Errorf("fetch github user: unexpected status %d", resp.StatusCode)
	}

	var user GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return GitHubUser{}, fmt.Errorf("decode github user: %w", err)
	}
	if user.ID == 0 {
		return GitHubUser{}, fmt.Errorf("github user has no id")
	}
	return user, nil
}
