package connectors

// BodyFormat selects how the token endpoint wants its request body.
type BodyFormat string

const (
	BodyForm BodyFormat = "form" // application/x-www-form-urlencoded (RFC default)
	BodyJSON BodyFormat = "json" // e.g. Kit
)

// ClientAuth selects how client credentials are presented to the token endpoint.
type ClientAuth string

const (
	ClientAuthBody  ClientAuth = "body"  // client_id/client_secret in the body (RFC default)
	ClientAuthBasic ClientAuth = "basic" // HTTP Basic, e.g. Klaviyo, Pinterest
)

// OAuthConfig is a platform's registry entry: endpoints, default scopes and
// capability flags. Immutable after process start; the single source of truth
// every connector consults. Never duplicate these values inside a connector.
type OAuthConfig struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	// VerifyURL is the lightweight endpoint for token verification.
	// Empty means the platform has no cheap verify call; VerifyToken then
	// returns true optimistically and logs the gap.
	VerifyURL string

	DefaultScopes []string
	// ScopeSeparator joins scopes in the authorize URL (" " or ",").
	ScopeSeparator string

	// ClientIDParam is the authorize-URL parameter carrying the client id.
	// Defaults to "client_id"; TikTok insists on "client_key".
	ClientIDParam string

	// AuthParams are provider-mandated static authorize parameters
	// (e.g. Google's access_type=offline&prompt=consent).
	AuthParams map[string]string
	// TokenParams are static extras for token requests.
	TokenParams map[string]string
	// APIHeaders are custom headers for API calls (user info, verify).
	APIHeaders map[string]string

	SupportsRefreshTokens bool
	RequiresPKCE          bool
	// NeedsLongLivedExchange marks platforms whose code exchange yields a
	// short-lived token that must be upgraded immediately (Meta).
	NeedsLongLivedExchange bool

	TokenBody  BodyFormat
	ClientAuth ClientAuth
}

// registry maps each platform to its OAuth configuration. Loaded once,
// never mutated.
var registry = map[Platform]OAuthConfig{
	PlatformMeta: {
		AuthURL:        "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:       "https://graph.facebook.com/v19.0/oauth/access_token",
		UserInfoURL:    "https://graph.facebook.com/v19.0/me",
		VerifyURL:      "https://graph.facebook.com/v19.0/me",
		DefaultScopes:  []string{"ads_management", "ads_read", "business_management", "pages_show_list"},
		ScopeSeparator: ",",
		// Meta issues no refresh tokens: once the 60-day long-lived token
		// expires, re-authorization is the only path back.
		SupportsRefreshTokens:  false,
		NeedsLongLivedExchange: true,
		TokenBody:              BodyForm,
		ClientAuth:             ClientAuthBody,
	},
	PlatformGoogle: {
		AuthURL:        "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:       "https://oauth2.googleapis.com/token",
		UserInfoURL:    "https://openidconnect.googleapis.com/v1/userinfo",
		VerifyURL:      "https://oauth2.googleapis.com/tokeninfo",
		DefaultScopes:  []string{"https://www.googleapis.com/auth/analytics.readonly", "openid", "email"},
		ScopeSeparator: " ",
		// offline + forced consent guarantees a refresh token on every grant.
		AuthParams:            map[string]string{"access_type": "offline", "prompt": "consent"},
		SupportsRefreshTokens: true,
		TokenBody:             BodyForm,
		ClientAuth:            ClientAuthBody,
	},
	PlatformLinkedIn: {
		AuthURL:               "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:              "https://www.linkedin.com/oauth/v2/accessToken",
		UserInfoURL:           "https://api.linkedin.com/v2/userinfo",
		VerifyURL:             "https://api.linkedin.com/v2/userinfo",
		DefaultScopes:         []string{"r_ads", "r_ads_reporting", "rw_ads"},
		ScopeSeparator:        " ",
		SupportsRefreshTokens: true,
		TokenBody:             BodyForm,
		ClientAuth:            ClientAuthBody,
	},
	PlatformTikTok: {
		AuthURL:               "https://business-api.tiktok.com/portal/auth",
		TokenURL:              "https://business-api.tiktok.com/open_api/v1.3/oauth2/access_token/",
		UserInfoURL:           "https://business-api.tiktok.com/open_api/v1.3/user/info/",
		DefaultScopes:         []string{"ad.read", "ad.manage"},
		ScopeSeparator:        ",",
		ClientIDParam:         "client_key",
		SupportsRefreshTokens: true,
		TokenBody:             BodyJSON,
		ClientAuth:            ClientAuthBody,
	},
	PlatformPinterest: {
		AuthURL:               "https://www.pinterest.com/oauth/",
		TokenURL:              "https://api.pinterest.com/v5/oauth/token",
		UserInfoURL:           "https://api.pinterest.com/v5/user_account",
		VerifyURL:             "https://api.pinterest.com/v5/user_account",
		DefaultScopes:         []string{"ads:read", "ads:write", "user_accounts:read"},
		ScopeSeparator:        ",",
		SupportsRefreshTokens: true,
		TokenBody:             BodyForm,
		ClientAuth:            ClientAuthBasic,
	},
	PlatformKlaviyo: {
		AuthURL:               "https://www.klaviyo.com/oauth/authorize",
		TokenURL:              "https://a.klaviyo.com/oauth/token",
		VerifyURL:             "https://a.klaviyo.com/api/accounts/",
		DefaultScopes:         []string{"accounts:read", "campaigns:read", "lists:read", "metrics:read"},
		ScopeSeparator:        " ",
		APIHeaders:            map[string]string{"revision": "2024-10-15"},
		SupportsRefreshTokens: true,
		RequiresPKCE:          true,
		TokenBody:             BodyForm,
		ClientAuth:            ClientAuthBasic,
	},
	PlatformMailchimp: {
		AuthURL:     "https://login.mailchimp.com/oauth2/authorize",
		TokenURL:    "https://login.mailchimp.com/oauth2/token",
		UserInfoURL: "https://login.mailchimp.com/oauth2/metadata",
		// Mailchimp tokens never expire and cannot be refreshed.
		ScopeSeparator:        " ",
		SupportsRefreshTokens: false,
		TokenBody:             BodyForm,
		ClientAuth:            ClientAuthBody,
	},
	PlatformKit: {
		AuthURL:               "https://app.kit.com/oauth/authorize",
		TokenURL:              "https://app.kit.com/oauth/token",
		UserInfoURL:           "https://api.kit.com/v4/account",
		VerifyURL:             "https://api.kit.com/v4/account",
		ScopeSeparator:        " ",
		SupportsRefreshTokens: true,
		TokenBody:             BodyJSON,
		ClientAuth:            ClientAuthBody,
	},
	PlatformBeehiiv: {
		AuthURL:               "https://app.beehiiv.com/oauth/authorize",
		TokenURL:              "https://api.beehiiv.com/oauth/token",
		UserInfoURL:           "https://api.beehiiv.com/v2/publications",
		ScopeSeparator:        " ",
		SupportsRefreshTokens: true,
		TokenBody:             BodyForm,
		ClientAuth:            ClientAuthBody,
	},
}

// GetPlatformConfig returns the registry entry for a platform.
func GetPlatformConfig(p Platform) (OAuthConfig, error) {
	cfg, ok := registry[p]
	if !ok {
		return OAuthConfig{}, E(p, CodeUnknownPlatform, "platform not registered")
	}
	return cfg, nil
}
