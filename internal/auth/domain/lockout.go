package domain

import "time"

// LockoutPolicy holds the brute-force lockout parameters and the pure
// transitions over a user's failure counters. It performs no I/O; callers
// persist whatever it decides.
type LockoutPolicy struct {
	MaxFailedAttempts int
	BlockDuration     time.Duration
}

// IsBlocked reports whether the user is inside an active block window.
// An elapsed window means the user is treated as unblocked even if the
// record has not been rewritten yet.
func (p LockoutPolicy) IsBlocked(u *User, now time.Time) bool {
	return u.IsBlocked && u.BlockedUntil != nil && u.BlockedUntil.After(now)
}

// ShouldBlock reports whether the given failure count trips the lockout.
func (p LockoutPolicy) ShouldBlock(failedAttempts int) bool {
	return failedAttempts >= p.MaxFailedAttempts
}

// BlockUntil returns the end of a block window starting now.
func (p LockoutPolicy) BlockUntil(now time.Time) time.Time {
	return now.Add(p.BlockDuration)
}
