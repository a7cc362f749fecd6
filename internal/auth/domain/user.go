package domain

import "time"

type User struct {
	ID                     string
	Email                  string
	PasswordHash           string
	Role                   string
	IsEmailVerified        bool
	IsBlocked              bool
	BlockedUntil           *time.Time
	FailedLoginAttempts    int
	LastLoginAt            *time.Time
	PasswordResetTokenHash *string
	PasswordResetExpires   *time.Time
	ExternalID             *string
	IsOAuthUser            bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
	RevokedAt *time.Time
}

// AuthReport aggregates read-only counters for the periodic admin report.
type AuthReport struct {
	GeneratedAt  time.Time
	Since        time.Time
	TotalUsers   int
	NewUsers     int
	BlockedUsers int
	TokensIssued int
	ActiveTokens int
}
