package dto

import (
	"time"
)

type ReportOutput struct {
	GeneratedAt  time.Time `json:"generated_at"`
	Since        time.Time `json:"since"`
	TotalUsers   int       `json:"total_users"`
	NewUsers     int       `json:"new_users"`
	BlockedUsers int       `json:"blocked_users"`
	TokensIssued int       `json:"tokens_issued"`
	ActiveTokens int       `json:"active_tokens"`
}
