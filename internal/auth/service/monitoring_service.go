package service

import (
	"context"
	"time"

	"github.com/LinhPhuong14/MediFlow/internal/auth/domain"
	"github.com/LinhPhuong14/MediFlow/internal/logging"
	"github.com/jonboulle/clockwork"
)

// MonitoringService produces read-only aggregate reports over the auth
// store. Scheduling lives with the caller.
type MonitoringService struct {
	users      domain.UserRepository
	tokens     domain.RefreshTokenRepository
	mailer     domain.Mailer
	clock      clockwork.Clock
	log        logging.Logger
	adminEmail string
}

func NewMonitoringService(
	users domain.UserRepository,
	tokens domain.RefreshTokenRepository,
	mailer domain.Mailer,
	adminEmail string,
	clock clockwork.Clock,
	log logging.Logger,
) *MonitoringService {
	return &MonitoringService{
		users:      users,
		tokens:     tokens,
		mailer:     mailer,
		clock:      clock,
		log:        log,
		adminEmail: adminEmail,
	}
}

// BuildReport collects counters for the trailing 24 hours.
func (s *MonitoringService) BuildReport(ctx context.Context) (*domain.AuthReport, error) {
	now := s.clock.Now()
	since := now.Add(-24 * time.Hour)

	totalUsers, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	newUsers, err := s.users.CountUsersCreatedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	blockedUsers, err := s.users.CountBlockedUsers(ctx, now)
	if err != nil {
		return nil, err
	}
	tokensIssued, err := s.tokens.CountCreatedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	activeTokens, err := s.tokens.CountActive(ctx, now)
	if err != nil {
		return nil, err
	}

	return &domain.AuthReport{
		GeneratedAt:  now,
		Since:        since,
		TotalUsers:   totalUsers,
		NewUsers:     newUsers,
		BlockedUsers: blockedUsers,
		TokensIssued: tokensIssued,
		ActiveTokens: activeTokens,
	}, nil
}

// SendDailyReport builds the report and mails it to the admin address.
// Failures are logged; the next tick tries again.
func (s *MonitoringService) SendDailyReport(ctx context.Context) {
	if s.adminEmail == "" {
		return
	}

	report, err := s.BuildReport(ctx)
	if err != nil {
		s.log.Error(ctx, "failed to build daily auth report", "error", err)
		return
	}

	if err := s.mailer.SendDailyReport(s.adminEmail, report); err != nil {
		s.log.Error(ctx, "failed to send daily auth report", "error", err)
		return
	}

	s.log.Info(ctx, "daily auth report sent", "to", s.adminEmail)
}
