package models

import "time"

// SessionData is the payload persisted for a signed-in browser session.
type SessionData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Session is a stored session row.
type Session struct {
	ID     string      `json:"sid"`
	Data   SessionData `json:"sess"`
	Expire time.Time   `json:"expire"`
}
