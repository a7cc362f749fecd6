package dto

// ExternalProfile is the identity asserted by the OAuth provider after it
// has validated the authorization code. Provider emails are treated as
// verified.
type ExternalProfile struct {
	ProviderID string `json:"provider_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Picture    string `json:"picture"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

type OAuthStatusOutput struct {
	IsOAuthUser bool   `json:"is_oauth_user"`
	ExternalID  string `json:"external_id,omitempty"`
	Email       string `json:"email"`
}
