package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/isdelr/skillnotes-be/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// ProviderGitHub is the oauth_provider value stored for GitHub accounts.
const ProviderGitHub = "github"

// RegistrationHook runs after an account is created or signs in through OAuth.
type RegistrationHook func(ctx context.Context, user models.User) error

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	SignUp(ctx context.Context, username, password string) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	FindOrCreateOAuthUser(ctx context.Context, provider, externalID, username string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db    *sql.DB
	hooks []RegistrationHook
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, hooks ...RegistrationHook) *UserService {
	return &UserService{db: db, hooks: hooks}
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	if !validID(id) {
		return models.User{}, models.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, oauth_provider, oauth_id, created_at FROM users WHERE id = $1", id)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// SignUp creates a local account with a bcrypt-hashed password, then runs the
// registration hooks. A failing hook fails the signup.
func (s *UserService) SignUp(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, models.ErrMissingCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hashedPassword),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users(id, username, password_hash) VALUES($1, $2, $3)",
		user.ID, user.Username, user.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, models.ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	// Return user without password hash
	user.PasswordHash = ""

	// A failed hook undoes the signup so the username can be registered again.
	if err := s.runHooks(ctx, user); err != nil {
		if _, delErr := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", user.ID); delErr != nil {
			log.Error().Err(delErr).Str("user_id", user.ID).Msg("Failed to remove user after registration hook error")
		}
		return models.User{}, err
	}
	return user, nil
}

// Authenticate verifies a user's credentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, models.ErrMissingCredentials
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, oauth_provider, oauth_id, created_at FROM users WHERE username = $1", username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.User{}, models.ErrInvalidCredentials
		}
		return models.User{}, err
	}

	// OAuth-only accounts have no hash and can never match.
	if !user.HasPassword() {
		return models.User{}, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, models.ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// FindOrCreateOAuthUser returns the account linked to an external identity,
// creating it on first sign-in. Registration hooks run on every call; their
// errors are logged and do not fail the sign-in.
func (s *UserService) FindOrCreateOAuthUser(ctx context.Context, provider, externalID, username string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, oauth_provider, oauth_id, created_at FROM users WHERE oauth_provider = $1 AND oauth_id = $2",
		provider, externalID)
	user, err := scanUser(row)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		user, err = s.createOAuthUser(ctx, provider, externalID, username)
		if err != nil {
			return models.User{}, err
		}
	default:
		return models.User{}, err
	}
	user.PasswordHash = ""

	if err := s.runHooks(ctx, user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Registration hook failed for OAuth user")
	}
	return user, nil
}

func (s *UserService) createOAuthUser(ctx context.Context, provider, externalID, username string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = "gh_" + externalID
	}

	user := models.User{
		ID:            uuid.New().String(),
		Username:      username,
		OAuthProvider: provider,
		OAuthID:       externalID,
	}

	err := s.db.QueryRowContext(ctx,
		"INSERT INTO users(id, username, oauth_provider, oauth_id) VALUES($1, $2, $3, $4) RETURNING created_at",
		user.ID, user.Username, user.OAuthProvider, user.OAuthID).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, models.ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("insert oauth user: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("provider", provider).Msg("Created OAuth user")
	return user, nil
}

func (s *UserService) runHooks(ctx context.Context, user models.User) error {
	for _, hook := range s.hooks {
		if err := hook(ctx, user); err != nil {
			return fmt.Errorf("registration hook: %w", err)
		}
	}
	return nil
}

// scanUser is a helper function to scan a single row into a User struct.
func scanUser(scanner interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	var passwordHash, provider, oauthID sql.NullString
	err := scanner.Scan(&user.ID, &user.Username, &passwordHash, &provider, &oauthID, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, models.ErrNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.PasswordHash = passwordHash.String
	user.OAuthProvider = provider.String
	user.OAuthID = oauthID.String
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
