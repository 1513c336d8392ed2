package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/leakwatch/leakwatch/internal/model"
)

// TokenRepo persists and validates refresh tokens.  Only the SHA-256 hash
// of the signed token is stored, together with the role it was issued for,
// so the refresh flow can re-derive the principal from storage.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, role, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, role, token_hash, expires_at) VALUES (?,?,?,?)",
		userID, role, tokenHash, exp)
	return err
}

// LookupRefresh returns the owning user id and role for a stored,
// non-revoked token hash.  Unknown and revoked hashes are both ErrNotFound;
// callers must not distinguish "never issued" from "revoked".  A row whose
// expires_at has passed is ErrTokenExpired so the caller can delete it and
// report the expiry.
func (r *TokenRepo) LookupRefresh(ctx context.Context, tokenHash string) (uint64, string, error) {
	var (
		rt        model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, role, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&rt.UserID, &rt.Role, &rt.ExpiresAt, &revokedAt)
	if err == sql.ErrNoRows {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", err
	}
	if revokedAt.Valid {
		return 0, "", ErrNotFound
	}
	if time.Now().UTC().After(rt.ExpiresAt) {
		return 0, "", ErrTokenExpired
	}
	return rt.UserID, rt.Role, nil
}

// DeleteByHash removes a refresh token row outright.  Used when
// cryptographic verification fails so a dead token cannot be replayed.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	return err
}

// RevokeByHash marks a token as revoked.  Revoking an unknown or already
// revoked hash affects zero rows and is not an error, which keeps logout
// idempotent.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes every active token owned by a principal.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64, role string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND role=? AND revoked_at IS NULL",
		userID, role)
	return err
}
