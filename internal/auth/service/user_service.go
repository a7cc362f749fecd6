package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LinhPhuong14/MediFlow/config"
	"github.com/LinhPhuong14/MediFlow/internal/auth/domain"
	"github.com/LinhPhuong14/MediFlow/internal/auth/dto"
	autherror "github.com/LinhPhuong14/MediFlow/internal/errors"
	"github.com/LinhPhuong14/MediFlow/internal/logging"
	"github.com/LinhPhuong14/MediFlow/pkg/constant"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// UserService owns the login, refresh and logout flows: credential
// validation with lockout, token-pair issuance and refresh-token rotation.
type UserService struct {
	users   domain.UserRepository
	tokens  domain.RefreshTokenRepository
	signer  TokenGenerator
	hasher  PasswordHasher
	mailer  domain.Mailer
	lockout domain.LockoutPolicy
	clock   clockwork.Clock
	log     logging.Logger

	passwordMinLength int
	adminEmail        string
}

func NewUserService(
	users domain.UserRepository,
	tokens domain.RefreshTokenRepository,
	signer TokenGenerator,
	hasher PasswordHasher,
	mailer domain.Mailer,
	cfg *config.Config,
	clock clockwork.Clock,
	log logging.Logger,
) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		signer: signer,
		hasher: hasher,
		mailer: mailer,
		lockout: domain.LockoutPolicy{
			MaxFailedAttempts: cfg.MaxFailedAttempts,
			BlockDuration:     cfg.BlockDuration,
		},
		clock:             clock,
		log:               log,
		passwordMinLength: cfg.PasswordMinLength,
		adminEmail:        cfg.AdminEmail,
	}
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	if err := ValidatePasswordStrength(input.Password, s.passwordMinLength); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashed,
		Role:         constant.DefaultUserRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login validates the credentials under the lockout policy and, on success,
// issues a token pair and persists the refresh token.
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	now := s.clock.Now()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Unknown email gets the same answer as a wrong password.
		return nil, autherror.ErrInvalidCredentials
	}

	if s.lockout.IsBlocked(user, now) {
		return nil, autherror.ErrAccountBlocked
	}

	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		if err := s.handleFailedLogin(ctx, user); err != nil {
			return nil, err
		}
		return nil, autherror.ErrInvalidCredentials
	}

	if err := s.users.ClearFailedAttempts(ctx, user.ID, now); err != nil {
		return nil, err
	}

	pair, err := s.issueSession(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user logged in", "email", user.Email, "ip", input.IPAddress)

	return &dto.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User: dto.UserOutput{
			ID:              user.ID,
			Email:           user.Email,
			Role:            user.Role,
			IsEmailVerified: user.IsEmailVerified,
		},
	}, nil
}

// Refresh rotates a refresh token: the presented token is consumed
// atomically and a successor pair is minted. Presenting an already consumed
// token is a security event.
func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	now := s.clock.Now()

	if _, err := s.signer.VerifyRefreshToken(input.RefreshToken); err != nil {
		return nil, err
	}

	consumed, err := s.tokens.Consume(ctx, input.RefreshToken, now)
	if err != nil {
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	if consumed == nil {
		return nil, s.classifyConsumeFailure(ctx, input, now)
	}

	user, err := s.users.GetByID(ctx, consumed.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrTokenInvalid
	}

	pair, err := s.issueSession(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to store successor refresh token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout revokes the presented refresh token. Revoking twice is not an
// error.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken, s.clock.Now())
}

// Sessions returns recent non-revoked refresh-token metadata for the user.
func (s *UserService) Sessions(ctx context.Context, userID string) ([]dto.SessionOutput, error) {
	records, err := s.tokens.ListActiveByUserID(ctx, userID, constant.DefaultSessionHistoryLimit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SessionOutput, 0, len(records))
	for _, rt := range records {
		out = append(out, dto.SessionOutput{
			ID:        rt.ID,
			IPAddress: rt.IPAddress,
			UserAgent: rt.UserAgent,
			CreatedAt: rt.CreatedAt,
			ExpiresAt: rt.ExpiresAt,
		})
	}
	return out, nil
}

// IssueSession mints and persists a token pair for an already
// authenticated user (OAuth logins reuse this).
func (s *UserService) IssueSession(ctx context.Context, user *domain.User, ip, userAgent string) (*TokenPair, error) {
	return s.issueSession(ctx, user, ip, userAgent)
}

func (s *UserService) issueSession(ctx context.Context, user *domain.User, ip, userAgent string) (*TokenPair, error) {
	pair, err := s.signer.GeneratePair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     pair.RefreshToken,
		IPAddress: ip,
		UserAgent: userAgent,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: now,
	}

	if err := s.tokens.Store(ctx, record); err != nil {
		return nil, err
	}

	return pair, nil
}

func (s *UserService) handleFailedLogin(ctx context.Context, user *domain.User) error {
	attempts, err := s.users.IncrementFailedAttempts(ctx, user.ID)
	if err != nil {
		return err
	}

	if !s.lockout.ShouldBlock(attempts) {
		return nil
	}

	until := s.lockout.BlockUntil(s.clock.Now())
	if err := s.users.Block(ctx, user.ID, until); err != nil {
		return err
	}

	s.log.Warn(ctx, "account blocked after repeated failures",
		"email", user.Email, "attempts", attempts, "blocked_until", until)

	// Alert mail is best-effort and must not delay the response.
	go func(email string, attempts int, until time.Time) {
		if err := s.mailer.SendLoginBlockedAlert(email, attempts, until); err != nil {
			s.log.Error(context.Background(), "failed to send lockout alert", "email", email, "error", err)
		}
	}(user.Email, attempts, until)

	return nil
}

// classifyConsumeFailure tells apart the three ways an atomic consume can
// come back empty: the token was never stored, it already expired, or it was
// already consumed. The last one means someone is replaying a stolen
// credential.
func (s *UserService) classifyConsumeFailure(ctx context.Context, input dto.RefreshInput, now time.Time) error {
	stored, err := s.tokens.GetByToken(ctx, input.RefreshToken)
	if err != nil {
		return err
	}
	if stored == nil {
		return autherror.ErrTokenInvalid
	}
	if stored.Revoked {
		s.log.Warn(ctx, "refresh token reuse detected",
			"user_id", stored.UserID, "token_id", stored.ID, "ip", input.IPAddress)
		return autherror.ErrTokenReused
	}
	if !stored.ExpiresAt.After(now) {
		return autherror.ErrTokenExpired
	}
	return autherror.ErrTokenInvalid
}
