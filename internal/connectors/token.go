package connectors

import "time"

// TokenResponse is the normalized token every connector must produce,
// regardless of the provider's native response shape.
//
// Invariants: AccessToken and ExpiresAt are always populated. Providers whose
// tokens never expire report a synthetic far-future ExpiresAt instead of
// leaving it zero, so downstream expiry scheduling has a single code path.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	// RefreshToken is present only when the platform issues one.
	RefreshToken string `json:"refresh_token,omitempty"`
	// ExpiresIn is the provider-reported lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
	// ExpiresAt is the absolute expiry instant.
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type,omitempty"`
	// Scope is the granted scope string, joined with the platform's separator.
	Scope string `json:"scope,omitempty"`
	// Metadata carries provider-specific extras (e.g. mailchimp data center).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// UserInfo is the normalized provider profile.
type UserInfo struct {
	ID    string         `json:"id"`
	Email string         `json:"email,omitempty"`
	Name  string         `json:"name,omitempty"`
	Raw   map[string]any `json:"-"`
}

// AccessLevel is the delegated-access level requested or found.
type AccessLevel string

const (
	AccessLevelRead  AccessLevel = "read"
	AccessLevelWrite AccessLevel = "write"
	AccessLevelAdmin AccessLevel = "admin"
)

// Asset is a concrete platform asset covered by a delegated-access grant.
type Asset struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	// Kind is platform-specific: "ad_account", "page", "property", ...
	Kind string `json:"kind"`
}

// ClientAccessRequest asks whether an agency's own token already grants
// access to a named client's assets (delegated-access model).
type ClientAccessRequest struct {
	AgencyToken   string
	ClientEmail   string
	ClientBizID   string
	RequiredLevel AccessLevel
}

// ClientAccessResult is advisory: a negative result plus Diagnostic, never
// an error, feeds the UI prompt.
type ClientAccessResult struct {
	HasAccess bool
	Level     AccessLevel
	Assets    []Asset
	// Diagnostic explains a negative or partial result.
	Diagnostic string
}
