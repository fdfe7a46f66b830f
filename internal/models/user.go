package models

import "time"

// User represents a user account in the system.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"` // Never expose this to the client
	OAuthProvider string    `json:"oauthProvider,omitempty"`
	OAuthID       string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasPassword reports whether the account can sign in with a local password.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}
