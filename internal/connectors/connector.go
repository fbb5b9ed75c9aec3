// Package connectors normalizes OAuth 2.0 (and OAuth-like) flows across the
// third-party advertising and marketing platforms agencies connect to.
//
// Every provider implements the same contract (build authorize URL, exchange
// code, refresh, verify, fetch user info) and produces the same normalized
// token shape. Provider heterogeneity (PKCE, Basic auth, JSON token bodies,
// long-lived upgrades, non-expiring tokens) is absorbed at exactly one seam
// per deviation: a Normalizer override, a PostExchange hook, or an optional
// capability interface. Callers never see a provider-specific shape.
//
// Connectors are stateless; the only shared state is the read-only registry
// and (for PKCE platforms) the verifier stash. Operations perform no retries:
// they complete or fail with a *connectors.Error, and the caller decides.
package connectors

import "context"

// Connector is the contract every platform implements.
type Connector interface {
	// Platform returns the platform identifier.
	Platform() Platform

	// AuthURL builds the provider authorization URL. The state token is
	// caller-supplied (unguessable, single-use); the connector neither
	// generates nor validates it. Empty scopes fall back to registry
	// defaults. For PKCE platforms this stashes a code verifier keyed by
	// state, which is the only reason the operation takes a context.
	AuthURL(ctx context.Context, state string, scopes []string, redirectURI string) (string, error)

	// ExchangeCode trades an authorization code for a normalized token.
	// redirectURI must match the one used in AuthURL byte for byte.
	// state is required only on PKCE platforms, to recover the verifier.
	ExchangeCode(ctx context.Context, code, redirectURI, state string) (*TokenResponse, error)

	// RefreshToken obtains a fresh token. Fails with REFRESH_NOT_SUPPORTED
	// (and no network call) when the registry says the platform cannot
	// refresh; callers must treat that as "re-authorization required".
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// VerifyToken is an advisory liveness check. It never returns an error:
	// any non-2xx response or transport failure yields false. Platforms
	// without a verify endpoint return true and log the gap.
	VerifyToken(ctx context.Context, accessToken string) bool

	// GetUserInfo fetches the provider profile behind a token.
	GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
}

// LongLivedExchanger upgrades a short-lived token into a long-lived one.
// Only Meta needs this; on other platforms the capability is absent.
type LongLivedExchanger interface {
	LongLivedToken(ctx context.Context, shortLived string) (*TokenResponse, error)
}

// TokenRevoker revokes a token at the provider.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, token string) error
}

// ClientAccessVerifier checks whether an agency's own token already grants
// access to a named client's assets (delegated-access model). Best effort:
// implementations return a negative result with a diagnostic, not an error,
// for "no access" outcomes.
type ClientAccessVerifier interface {
	VerifyClientAccess(ctx context.Context, req ClientAccessRequest) (*ClientAccessResult, error)
}
