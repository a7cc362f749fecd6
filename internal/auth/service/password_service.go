package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/LinhPhuong14/MediFlow/config"
	"github.com/LinhPhuong14/MediFlow/internal/auth/domain"
	autherror "github.com/LinhPhuong14/MediFlow/internal/errors"
	"github.com/LinhPhuong14/MediFlow/internal/logging"
	"github.com/jonboulle/clockwork"
)

// PasswordService implements the forgot/reset flow. Reset tokens are signed
// JWTs, but only a one-way hash of the token is stored on the user record;
// applying a reset clears that hash, which makes each token single-use.
type PasswordService struct {
	users  domain.UserRepository
	tokens domain.RefreshTokenRepository
	signer TokenGenerator
	hasher PasswordHasher
	mailer domain.Mailer
	clock  clockwork.Clock
	log    logging.Logger

	passwordMinLength int
}

func NewPasswordService(
	users domain.UserRepository,
	tokens domain.RefreshTokenRepository,
	signer TokenGenerator,
	hasher PasswordHasher,
	mailer domain.Mailer,
	cfg *config.Config,
	clock clockwork.Clock,
	log logging.Logger,
) *PasswordService {
	return &PasswordService{
		users:             users,
		tokens:            tokens,
		signer:            signer,
		hasher:            hasher,
		mailer:            mailer,
		clock:             clock,
		log:               log,
		passwordMinLength: cfg.PasswordMinLength,
	}
}

// RequestReset behaves identically whether or not the email exists; an
// unknown address returns without side effects so callers cannot probe for
// accounts.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	resetToken, err := s.signer.GenerateResetToken(user.ID, user.Email)
	if err != nil {
		return err
	}

	expiresAt := s.clock.Now().Add(s.signer.ResetTokenTTL())
	if err := s.users.SetPasswordResetToken(ctx, user.ID, hashResetToken(resetToken), expiresAt); err != nil {
		return err
	}

	// Mail delivery is fire-and-forget; a broken SMTP relay must not turn
	// into a user-visible error or corrupt the stored state.
	go func(email, token string) {
		if err := s.mailer.SendPasswordReset(email, token); err != nil {
			s.log.Error(context.Background(), "failed to send password reset email", "email", email, "error", err)
		}
	}(user.Email, resetToken)

	s.log.Info(ctx, "password reset requested", "email", email)
	return nil
}

// ApplyReset verifies the token signature, expiry and stored hash, then
// stores the new password and revokes every refresh token the user holds.
func (s *PasswordService) ApplyReset(ctx context.Context, token, newPassword string) error {
	if err := ValidatePasswordStrength(newPassword, s.passwordMinLength); err != nil {
		return err
	}

	claims, err := s.signer.VerifyResetToken(token)
	if err != nil {
		return autherror.ErrResetTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if user == nil || user.PasswordResetTokenHash == nil || user.PasswordResetExpires == nil {
		return autherror.ErrResetTokenInvalid
	}

	now := s.clock.Now()
	if !user.PasswordResetExpires.After(now) {
		return autherror.ErrResetTokenInvalid
	}

	// A validly signed token from a different request context will not
	// match the stored hash.
	if subtle.ConstantTimeCompare([]byte(hashResetToken(token)), []byte(*user.PasswordResetTokenHash)) != 1 {
		return autherror.ErrResetTokenInvalid
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return err
	}

	// Force re-authentication everywhere.
	if err := s.tokens.RevokeAllByUserID(ctx, user.ID, now); err != nil {
		return err
	}

	s.log.Info(ctx, "password reset applied", "email", user.Email)
	return nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
