package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh sessions in the 'refresh_tokens' table.
// Raw tokens never reach the database; rows carry only the SHA-256
// hash, so a leaked table cannot be replayed. Liveness (not revoked,
// not expired) is decided in SQL so a token is validated and filtered
// in one round trip.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh records a new refresh session for the user.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns the owning user id when a live session with
// this hash exists. Revoked or expired rows behave exactly like
// missing ones: sql.ErrNoRows.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens
		 WHERE token_hash=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()
		 LIMIT 1`,
		tokenHash).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// RevokeByHash revokes the session with this hash. The boolean
// reports whether a live session was actually revoked, which is what
// logout uses to distinguish success from an unknown or reused token.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP()
		 WHERE token_hash=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
		tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeAllForUser ends every live session the user holds.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// DeleteExpired removes rows that can never validate again. Run
// periodically; the table otherwise grows with every login.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at <= UTC_TIMESTAMP() OR revoked_at IS NOT NULL")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
