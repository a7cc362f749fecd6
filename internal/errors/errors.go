package errors

import (
	"errors"
)

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountBlocked         = errors.New("account is temporarily blocked")
	ErrEmailAlreadyInUse      = errors.New("email already in use")
	ErrTokenInvalid           = errors.New("refresh token invalid")
	ErrTokenExpired           = errors.New("refresh token expired")
	ErrTokenReused            = errors.New("refresh token reused")
	ErrResetTokenInvalid      = errors.New("reset token invalid or expired")
	ErrPasswordPolicyViolated = errors.New("password does not meet strength requirements")
	ErrEmailMismatch          = errors.New("email mismatch")
	ErrEmailDomainNotAllowed  = errors.New("email domain not allowed")
	ErrUserNotFound           = errors.New("user not found")
)
