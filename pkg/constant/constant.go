package constant

// Role tags carried in the access-token claims.
const (
	RoleDoctor     = "doctor"
	RoleSuperAdmin = "super_admin"
)

// DefaultUserRole is assigned on signup and on first OAuth login.
const DefaultUserRole = RoleDoctor

const (
	DefaultPort                 = "8080"
	DefaultMaxFailedAttempts    = 5
	DefaultBlockDurationMinutes = 30
	DefaultAccessTokenTTLHours  = 72  // 3 days
	DefaultRefreshTokenTTLHours = 168 // 7 days
	DefaultResetTokenTTLMinutes = 15
	DefaultPasswordMinLength    = 8
	DefaultSessionHistoryLimit  = 10
)

// DefaultOAuthAllowedDomains lists the email domains accepted for OAuth
// sign-in when OAUTH_ALLOWED_DOMAINS is not set.
const DefaultOAuthAllowedDomains = "hospital.com,clinic.com"
