// Package mailer sends the service's notification mail over SMTP.
package mailer

import (
	"fmt"
	"time"

	"github.com/LinhPhuong14/MediFlow/config"
	"github.com/LinhPhuong14/MediFlow/internal/auth/domain"
	"gopkg.in/gomail.v2"
)

type SMTPMailer struct {
	dialer      *gomail.Dialer
	from        string
	frontendURL string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer:      gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:        cfg.SMTPFrom,
		frontendURL: cfg.FrontendURL,
	}
}

func (m *SMTPMailer) SendPasswordReset(email, resetToken string) error {
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, resetToken)
	body := fmt.Sprintf(
		"You have requested to reset your password.\n\n"+
			"Open the link below to proceed:\n%s\n\n"+
			"The link expires in 15 minutes. If you didn't request this, ignore this email.",
		resetLink)

	return m.send(email, "Password Reset Request", body)
}

func (m *SMTPMailer) SendLoginBlockedAlert(email string, attempts int, blockedUntil time.Time) error {
	body := fmt.Sprintf(
		"Account %s has been temporarily blocked after %d failed login attempts.\n"+
			"The block lifts at %s.",
		email, attempts, blockedUntil.Format(time.RFC1123))

	return m.send(email, "Account Temporarily Blocked", body)
}

func (m *SMTPMailer) SendWelcome(email string) error {
	body := fmt.Sprintf(
		"Welcome to MediFlow!\n\n"+
			"Your account %s has been created. You can sign in at %s.",
		email, m.frontendURL)

	return m.send(email, "Welcome to MediFlow", body)
}

func (m *SMTPMailer) SendDailyReport(email string, report *domain.AuthReport) error {
	body := fmt.Sprintf(
		"Daily authentication report (%s to %s)\n\n"+
			"Total users:            %d\n"+
			"New users:              %d\n"+
			"Currently blocked:      %d\n"+
			"Refresh tokens issued:  %d\n"+
			"Active refresh tokens:  %d\n",
		report.Since.Format(time.RFC1123), report.GeneratedAt.Format(time.RFC1123),
		report.TotalUsers, report.NewUsers, report.BlockedUsers,
		report.TokensIssued, report.ActiveTokens)

	return m.send(email, "Daily Auth Report", body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}
