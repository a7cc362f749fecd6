package service

import (
	"context"
	"strings"

	"github.com/LinhPhuong14/MediFlow/config"
	"github.com/LinhPhuong14/MediFlow/internal/auth/domain"
	"github.com/LinhPhuong14/MediFlow/internal/auth/dto"
	autherror "github.com/LinhPhuong14/MediFlow/internal/errors"
	"github.com/LinhPhuong14/MediFlow/internal/logging"
	"github.com/LinhPhuong14/MediFlow/pkg/constant"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// OAuthService resolves external identities to local user records. The
// provider is trusted to have verified the email, so accounts created here
// start out verified. Sign-in is limited to the configured email domains.
type OAuthService struct {
	users          domain.UserRepository
	hasher         PasswordHasher
	mailer         domain.Mailer
	clock          clockwork.Clock
	log            logging.Logger
	allowedDomains []string
}

func NewOAuthService(
	users domain.UserRepository,
	hasher PasswordHasher,
	mailer domain.Mailer,
	cfg *config.Config,
	clock clockwork.Clock,
	log logging.Logger,
) *OAuthService {
	return &OAuthService{
		users:          users,
		hasher:         hasher,
		mailer:         mailer,
		clock:          clock,
		log:            log,
		allowedDomains: cfg.OAuthAllowedDomains,
	}
}

// Resolve finds or creates the local user for an external profile. Calling
// it twice with the same profile yields the same user, and an existing
// password hash is never overwritten. Profiles outside the allowed email
// domains are rejected before any lookup.
func (s *OAuthService) Resolve(ctx context.Context, profile dto.ExternalProfile) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))

	if !s.domainAllowed(email) {
		s.log.Warn(ctx, "oauth sign-in rejected, email domain not allowed", "email", email)
		return nil, autherror.ErrEmailDomainNotAllowed
	}

	user, err := s.users.GetByExternalID(ctx, profile.ProviderID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
	}

	if user == nil {
		return s.createOAuthUser(ctx, profile.ProviderID, email)
	}

	if user.ExternalID == nil {
		if err := s.users.LinkExternalID(ctx, user.ID, profile.ProviderID); err != nil {
			return nil, err
		}
		externalID := profile.ProviderID
		user.ExternalID = &externalID
		user.IsOAuthUser = true
		s.log.Info(ctx, "existing account linked to oauth provider", "email", user.Email)
	}

	// A user already bound to a different external id is returned as-is.
	return user, nil
}

// Link binds an external identity to an already authenticated user. The
// profile email must match the account email, otherwise an attacker could
// attach their provider identity to someone else's account.
func (s *OAuthService) Link(ctx context.Context, userID string, profile dto.ExternalProfile) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrUserNotFound
	}

	if !strings.EqualFold(user.Email, profile.Email) {
		return autherror.ErrEmailMismatch
	}

	return s.users.LinkExternalID(ctx, userID, profile.ProviderID)
}

// Status reports the OAuth linkage of a user.
func (s *OAuthService) Status(ctx context.Context, userID string) (*dto.OAuthStatusOutput, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	out := &dto.OAuthStatusOutput{
		IsOAuthUser: user.IsOAuthUser,
		Email:       user.Email,
	}
	if user.ExternalID != nil {
		out.ExternalID = *user.ExternalID
	}
	return out, nil
}

func (s *OAuthService) domainAllowed(email string) bool {
	if len(s.allowedDomains) == 0 {
		return true
	}

	_, host, ok := strings.Cut(email, "@")
	if !ok {
		return false
	}
	for _, allowed := range s.allowedDomains {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}

func (s *OAuthService) createOAuthUser(ctx context.Context, providerID, email string) (*domain.User, error) {
	// Local password login stays unusable until the user sets one through
	// the reset flow.
	placeholder, err := s.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	externalID := providerID
	user := &domain.User{
		ID:              uuid.NewString(),
		Email:           email,
		PasswordHash:    placeholder,
		Role:            constant.DefaultUserRole,
		IsEmailVerified: true,
		IsOAuthUser:     true,
		ExternalID:      &externalID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	go func(email string) {
		if err := s.mailer.SendWelcome(email); err != nil {
			s.log.Error(context.Background(), "failed to send welcome email", "email", email, "error", err)
		}
	}(email)

	s.log.Info(ctx, "new oauth user created", "email", email)
	return user, nil
}
