package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LinhPhuong14/MediFlow/internal/auth/domain"
	"github.com/jackc/pgx/v5"
)

type RefreshTokenRepository struct {
	db PgxIface
}

func NewRefreshTokenRepository(db PgxIface) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

const tokenColumns = `id, user_id, token, ip_address, user_agent, expires_at, created_at, revoked, revoked_at`

func (r *RefreshTokenRepository) Store(ctx context.Context, rt *domain.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (id, user_id, token, ip_address, user_agent, expires_at, created_at, revoked)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		rt.ID, rt.UserID, rt.Token, rt.IPAddress, rt.UserAgent, rt.ExpiresAt, rt.CreatedAt, rt.Revoked)
	return err
}

func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token = $1 LIMIT 1;`
	return scanToken(r.db.QueryRow(ctx, query, token))
}

// Consume revokes the record only if it is still live. The WHERE clause is
// the compare-and-swap: of two concurrent callers, exactly one gets the row
// back, the other gets (nil, nil).
func (r *RefreshTokenRepository) Consume(ctx context.Context, token string, now time.Time) (*domain.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE token = $1 AND revoked = FALSE AND expires_at > $2
		RETURNING ` + tokenColumns + `;`
	return scanToken(r.db.QueryRow(ctx, query, token, now))
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string, now time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE token = $1 AND revoked = FALSE
	`, token, now)
	return err
}

func (r *RefreshTokenRepository) RevokeAllByUserID(ctx context.Context, userID string, now time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE user_id = $1 AND revoked = FALSE
	`, userID, now)
	return err
}

func (r *RefreshTokenRepository) ListActiveByUserID(ctx context.Context, userID string, limit int) ([]domain.RefreshToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE
		ORDER BY created_at DESC
		LIMIT $2;`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	defer rows.Close()

	var out []domain.RefreshToken
	for rows.Next() {
		var rt domain.RefreshToken
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.IPAddress, &rt.UserAgent,
			&rt.ExpiresAt, &rt.CreatedAt, &rt.Revoked, &rt.RevokedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}

	return out, rows.Err()
}

func (r *RefreshTokenRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM refresh_tokens WHERE created_at >= $1;`, since).Scan(&n)
	return n, err
}

func (r *RefreshTokenRepository) CountActive(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM refresh_tokens WHERE revoked = FALSE AND expires_at > $1;`, now).Scan(&n)
	return n, err
}

func scanToken(row pgx.Row) (*domain.RefreshToken, error) {
	var rt domain.RefreshToken
	err := row.Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.IPAddress, &rt.UserAgent,
		&rt.ExpiresAt, &rt.CreatedAt, &rt.Revoked, &rt.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &rt, nil
}
