package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LinhPhuong14/MediFlow/pkg/constant"
)

// Config is read once at startup and passed around immutably. Nothing else
// in the service touches the environment.
type Config struct {
	Env   string
	Port  string
	DBURL string

	AccessTokenSecret  string
	RefreshTokenSecret string
	ResetTokenSecret   string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	ResetTokenTTL      time.Duration

	MaxFailedAttempts int
	BlockDuration     time.Duration
	PasswordMinLength int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	FrontendURL string
	AdminEmail  string

	OAuthAllowedDomains []string
}

func Load() *Config {
	return &Config{
		Env:   getEnv("ENV", "development"),
		Port:  getEnv("PORT", constant.DefaultPort),
		DBURL: mustGetEnv("DB_URL"),

		AccessTokenSecret:  mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: mustGetEnv("REFRESH_TOKEN_SECRET"),
		ResetTokenSecret:   mustGetEnv("RESET_TOKEN_SECRET"),
		AccessTokenTTL:     time.Duration(getEnvAsInt("ACCESS_TOKEN_TTL_HOURS", constant.DefaultAccessTokenTTLHours)) * time.Hour,
		RefreshTokenTTL:    time.Duration(getEnvAsInt("REFRESH_TOKEN_TTL_HOURS", constant.DefaultRefreshTokenTTLHours)) * time.Hour,
		ResetTokenTTL:      time.Duration(getEnvAsInt("RESET_TOKEN_TTL_MINUTES", constant.DefaultResetTokenTTLMinutes)) * time.Minute,

		MaxFailedAttempts: getEnvAsInt("MAX_FAILED_ATTEMPTS", constant.DefaultMaxFailedAttempts),
		BlockDuration:     time.Duration(getEnvAsInt("BLOCK_DURATION_MINUTES", constant.DefaultBlockDurationMinutes)) * time.Minute,
		PasswordMinLength: getEnvAsInt("PASSWORD_MIN_LENGTH", constant.DefaultPasswordMinLength),

		SMTPHost: getEnv("SMTP_HOST", "localhost"),
		SMTPPort: getEnvAsInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		SMTPFrom: getEnv("SMTP_FROM", "no-reply@mediflow.local"),

		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		AdminEmail:  getEnv("ADMIN_EMAIL", ""),

		OAuthAllowedDomains: getEnvAsSlice("OAUTH_ALLOWED_DOMAINS", constant.DefaultOAuthAllowedDomains),
	}
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsSlice(key string, defaultVal string) []string {
	raw := getEnv(key, defaultVal)

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}
