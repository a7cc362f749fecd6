package domain

import (
	"context"
	"time"
)

type UserRepository interface {
	// GetByEmail returns the full record including the password hash, or
	// (nil, nil) when no user matches.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	Create(ctx context.Context, user *User) error

	// IncrementFailedAttempts bumps the failure counter in a single
	// statement and returns the new count. Concurrent callers must each
	// observe a distinct count.
	IncrementFailedAttempts(ctx context.Context, userID string) (int, error)
	Block(ctx context.Context, userID string, until time.Time) error
	// ClearFailedAttempts zeroes the counter, lifts any block and records
	// the login time.
	ClearFailedAttempts(ctx context.Context, userID string, lastLoginAt time.Time) error

	SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// UpdatePassword stores the new hash and clears the reset-token fields
	// in the same statement.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	LinkExternalID(ctx context.Context, userID, externalID string) error

	CountUsers(ctx context.Context) (int, error)
	CountUsersCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountBlockedUsers(ctx context.Context, now time.Time) (int, error)
}

type RefreshTokenRepository interface {
	Store(ctx context.Context, token *RefreshToken) error
	// GetByToken returns (nil, nil) when no record matches.
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)

	// Consume atomically marks the record revoked, but only if it is not
	// already revoked and not expired, and returns the consumed record.
	// It returns (nil, nil) when the condition did not hold; the caller
	// inspects the record separately to tell reuse from expiry.
	Consume(ctx context.Context, token string, now time.Time) (*RefreshToken, error)

	// Revoke marks the record revoked. Revoking an already revoked or
	// unknown token is not an error.
	Revoke(ctx context.Context, token string, now time.Time) error
	RevokeAllByUserID(ctx context.Context, userID string, now time.Time) error

	ListActiveByUserID(ctx context.Context, userID string, limit int) ([]RefreshToken, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountActive(ctx context.Context, now time.Time) (int, error)
}

// Mailer delivers notification mail. Callers treat every send as
// best-effort: failures are logged, never surfaced to the end user.
type Mailer interface {
	SendPasswordReset(email, resetToken string) error
	SendLoginBlockedAlert(email string, attempts int, blockedUntil time.Time) error
	SendWelcome(email string) error
	SendDailyReport(email string, report *AuthReport) error
}
