// Package sessions persists browser sessions for the cookie-based login.
package sessions

import (
	"context"
	"time"

	"github.com/isdelr/skillnotes-be/internal/models"
)

// Store persists session payloads by session id. Get returns
// models.ErrNotFound for unknown or expired sessions.
type Store interface {
	Get(ctx context.Context, sid string) (models.SessionData, error)
	Save(ctx context.Context, sid string, data models.SessionData, expire time.Time) error
	Destroy(ctx context.Context, sid string) error
	PruneExpired(ctx context.Context) (int64, error)
}
