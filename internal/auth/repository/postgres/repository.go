package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LinhPhuong14/MediFlow/internal/auth/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxIface is the subset of pgxpool.Pool the repositories use; pgxmock
// implements it in tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db PgxIface
}

func NewUserRepository(db PgxIface) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, role, is_email_verified, is_blocked, blocked_until,
		failed_login_attempts, last_login_at, password_reset_token_hash, password_reset_expires,
		external_id, is_oauth_user, created_at, updated_at`

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1;`
	return r.scanOne(r.db.QueryRow(ctx, query, email), "email")
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1;`
	return r.scanOne(r.db.QueryRow(ctx, query, id), "id")
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1 LIMIT 1;`
	return r.scanOne(r.db.QueryRow(ctx, query, externalID), "external id")
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, is_email_verified, external_id,
			is_oauth_user, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Email, user.PasswordHash, user.Role, user.IsEmailVerified,
		user.ExternalID, user.IsOAuthUser, user.CreatedAt, user.UpdatedAt)

	return err
}

// IncrementFailedAttempts is a single-statement increment so concurrent
// failures against the same account never lose an update.
func (r *UserRepository) IncrementFailedAttempts(ctx context.Context, userID string) (int, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1, updated_at = now()
		WHERE id = $1
		RETURNING failed_login_attempts;
	`
	var attempts int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("failed to increment failed attempts: %w", err)
	}
	return attempts, nil
}

func (r *UserRepository) Block(ctx context.Context, userID string, until time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET is_blocked = TRUE, blocked_until = $2, updated_at = now()
		WHERE id = $1
	`, userID, until)
	return err
}

func (r *UserRepository) ClearFailedAttempts(ctx context.Context, userID string, lastLoginAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, is_blocked = FALSE, blocked_until = NULL,
			last_login_at = $2, updated_at = now()
		WHERE id = $1
	`, userID, lastLoginAt)
	return err
}

func (r *UserRepository) SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_reset_token_hash = $2, password_reset_expires = $3, updated_at = now()
		WHERE id = $1
	`, userID, tokenHash, expiresAt)
	return err
}

// UpdatePassword also clears the reset-token fields, which is what makes a
// reset token single-use.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, password_reset_token_hash = NULL,
			password_reset_expires = NULL, updated_at = now()
		WHERE id = $1
	`, userID, passwordHash)
	return err
}

func (r *UserRepository) LinkExternalID(ctx context.Context, userID, externalID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET external_id = $2, is_oauth_user = TRUE, updated_at = now()
		WHERE id = $1
	`, userID, externalID)
	return err
}

func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users;`)
}

func (r *UserRepository) CountUsersCreatedSince(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users WHERE created_at >= $1;`, since)
}

func (r *UserRepository) CountBlockedUsers(ctx context.Context, now time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users WHERE is_blocked = TRUE AND blocked_until > $1;`, now)
}

func (r *UserRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *UserRepository) scanOne(row pgx.Row, by string) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.IsEmailVerified,
		&user.IsBlocked, &user.BlockedUntil, &user.FailedLoginAttempts, &user.LastLoginAt,
		&user.PasswordResetTokenHash, &user.PasswordResetExpires, &user.ExternalID,
		&user.IsOAuthUser, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", by, err)
	}

	return &user, nil
}
