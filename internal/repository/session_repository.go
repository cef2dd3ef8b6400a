package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/service-storefront/internal/session"
	"github.com/iliyamo/service-storefront/internal/utils"
)

// SessionRepo persists storefront sessions in MySQL.  Rows are keyed by the
// hashed session id; the bearer token is kept alongside its hash so a 401
// from the API can drop every session holding it.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionsDDL = `CREATE TABLE IF NOT EXISTS storefront_sessions (
  id_hash    CHAR(64)  NOT NULL PRIMARY KEY,
  token_hash CHAR(64)  NOT NULL,
  payload    JSON      NOT NULL,
  expires_at DATETIME  NOT NULL,
  updated_at DATETIME  NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  KEY idx_token_hash (token_hash)
)`

// Migrate creates the sessions table when missing.
func (r *SessionRepo) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, sessionsDDL)
	return err
}

// Load returns the record stored under key or session.ErrNoSession when it
// is missing or expired.
func (r *SessionRepo) Load(ctx context.Context, key string) (session.Record, error) {
	var (
		payload   []byte
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT payload, expires_at FROM storefront_sessions WHERE id_hash=? LIMIT 1",
		key).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Record{}, session.ErrNoSession
	}
	if err != nil {
		return session.Record{}, err
	}
	if time.Now().UTC().After(expiresAt) {
		return session.Record{}, session.ErrNoSession
	}
	var rec session.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return session.Record{}, err
	}
	return rec, nil
}

// Save upserts the record.
func (r *SessionRepo) Save(ctx context.Context, key string, rec session.Record, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO storefront_sessions (id_hash, token_hash, payload, expires_at) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE token_hash=VALUES(token_hash), payload=VALUES(payload), expires_at=VALUES(expires_at)`,
		key, utils.HashToken(rec.Token), payload, time.Now().UTC().Add(ttl))
	return err
}

// Delete removes one session.
func (r *SessionRepo) Delete(ctx context.Context, key string) (int, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM storefront_sessions WHERE id_hash=?", key)
	return affected(res, err)
}

// DeleteByToken removes all sessions holding token.
func (r *SessionRepo) DeleteByToken(ctx context.Context, token string) (int, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM storefront_sessions WHERE token_hash=?", utils.HashToken(token))
	return affected(res, err)
}

func affected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PurgeExpired deletes rows past their expiry and reports how many went.
func (r *SessionRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM storefront_sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
