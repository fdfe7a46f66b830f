package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/skillnotes-be/internal/models"
)

// PostgresStore keeps sessions in the "session" table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get loads an unexpired session.
func (s *PostgresStore) Get(ctx context.Context, sid string) (models.SessionData, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT sess FROM "session" WHERE sid = $1 AND expire > now()`, sid).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SessionData{}, models.ErrNotFound
		}
		return models.SessionData{}, fmt.Errorf("db error: %w", err)
	}

	var data models.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.SessionData{}, fmt.Errorf("decode session: %w", err)
	}
	return data, nil
}

// Save inserts or replaces a session. The expiry is sent as epoch seconds so
// Postgres converts it in the same time zone now() is compared in.
func (s *PostgresStore) Save(ctx context.Context, sid string, data models.SessionData, expire time.Time) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO "session"(sid, sess, expire) VALUES($1, $2, to_timestamp($3))
	ON CONFLICT (sid) DO UPDATE SET sess = EXCLUDED.sess, expire = EXCLUDED.expire`,
		sid, string(raw), expire.Unix())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Destroy removes a session. Unknown ids are ignored.
func (s *PostgresStore) Destroy(ctx context.Context, sid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM "session" WHERE sid = $1`, sid); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// PruneExpired deletes expired sessions and returns how many were removed.
func (s *PostgresStore) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM "session" WHERE expire < now()`)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
