package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/authhub/authhub/internal/observability/logger"
)

// Credentials are a platform's OAuth client id and secret.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// CredentialsFromEnv reads {PLATFORM}_CLIENT_ID / {PLATFORM}_CLIENT_SECRET.
// Missing values fail fast rather than proceeding with empty credentials.
func CredentialsFromEnv(p Platform) (Credentials, error) {
	prefix := strings.ToUpper(string(p))
	id := strings.TrimSpace(os.Getenv(prefix + "_CLIENT_ID"))
	if id == "" {
		return Credentials{}, E(p, CodeMissingClientID, prefix+"_CLIENT_ID not set")
	}
	secret := strings.TrimSpace(os.Getenv(prefix + "_CLIENT_SECRET"))
	if secret == "" {
		return Credentials{}, E(p, CodeMissingClientSecret, prefix+"_CLIENT_SECRET not set")
	}
	return Credentials{ClientID: id, ClientSecret: secret}, nil
}

// Normalizer converts a raw token-endpoint response body into the common
// shape. This is the seam where all format heterogeneity is absorbed; every
// other operation is written against TokenResponse only.
type Normalizer func(body []byte, now time.Time) (*TokenResponse, error)

// PostExchange runs after a successful code exchange, before the token is
// returned. Used only by providers needing a second round trip (Meta's
// short-lived to long-lived upgrade).
type PostExchange func(ctx context.Context, tok *TokenResponse) (*TokenResponse, error)

// UserInfoMapper converts a raw user-info response body into a UserInfo.
type UserInfoMapper func(body []byte) (*UserInfo, error)

// Base implements the Connector contract generically from the registry
// entry. Providers either use it directly or wrap it, overriding exactly
// the seam where they deviate.
type Base struct {
	platform     Platform
	cfg          OAuthConfig
	creds        Credentials
	http         *http.Client
	normalize    Normalizer
	postExchange PostExchange
	userInfoMap  UserInfoMapper
	verifiers    VerifierStore
}

// Option customizes a Base connector at construction time.
type Option func(*Base)

// WithHTTPClient replaces the outbound HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(b *Base) { b.http = c } }

// WithNormalizer installs a provider-specific token normalizer.
func WithNormalizer(n Normalizer) Option { return func(b *Base) { b.normalize = n } }

// WithPostExchange installs a post-exchange hook.
func WithPostExchange(h PostExchange) Option { return func(b *Base) { b.postExchange = h } }

// WithUserInfoMapper installs a provider-specific user-info mapping.
func WithUserInfoMapper(m UserInfoMapper) Option { return func(b *Base) { b.userInfoMap = m } }

// WithVerifierStore installs the PKCE verifier stash. Mandatory for
// platforms whose registry entry sets RequiresPKCE.
func WithVerifierStore(s VerifierStore) Option { return func(b *Base) { b.verifiers = s } }

// WithConfig replaces the registry entry. Providers use it for per-instance
// endpoint tweaks; tests point it at local servers.
func WithConfig(cfg OAuthConfig) Option { return func(b *Base) { b.cfg = cfg } }

// NewBase builds a generic connector for a platform.
func NewBase(p Platform, creds Credentials, opts ...Option) (*Base, error) {
	cfg, err := GetPlatformConfig(p)
	if err != nil {
		return nil, err
	}
	if creds.ClientID == "" {
		return nil, E(p, CodeMissingClientID, "client id is empty")
	}
	if creds.ClientSecret == "" {
		return nil, E(p, CodeMissingClientSecret, "client secret is empty")
	}

	b := &Base{
		platform: p,
		cfg:      cfg,
		creds:    creds,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.normalize == nil {
		b.normalize = NormalizeDefault
	}
	return b, nil
}

// Platform returns the platform identifier.
func (b *Base) Platform() Platform { return b.platform }

// Config returns the effective registry entry.
func (b *Base) Config() OAuthConfig { return b.cfg }

// Creds returns the client credentials (for provider-specific calls).
func (b *Base) Creds() Credentials { return b.creds }

// HTTP returns the outbound client (for provider-specific calls).
func (b *Base) HTTP() *http.Client { return b.http }

// AuthURL builds the authorization URL: client id, redirect URI, opaque
// state, scopes (registry defaults when empty), response_type=code and any
// provider-mandated static parameters. No client secret ever appears here.
func (b *Base) AuthURL(ctx context.Context, state string, scopes []string, redirectURI string) (string, error) {
	u, err := url.Parse(b.cfg.AuthURL)
	if err != nil {
		return "", E(b.platform, CodeUnknownPlatform, "malformed authorize URL in registry").WithDetails(err.Error())
	}

	if len(scopes) == 0 {
		scopes = b.cfg.DefaultScopes
	}
	sep := b.cfg.ScopeSeparator
	if sep == "" {
		sep = " "
	}
	idParam := b.cfg.ClientIDParam
	if idParam == "" {
		idParam = "client_id"
	}

	q := u.Query()
	q.Set(idParam, b.creds.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("response_type", "code")
	if len(scopes) > 0 {
		q.Set("scope", strings.Join(scopes, sep))
	}
	for k, v := range b.cfg.AuthParams {
		q.Set(k, v)
	}

	if b.cfg.RequiresPKCE {
		if b.verifiers == nil {
			return "", E(b.platform, CodePKCEVerifierMissing, "platform requires PKCE but no verifier store is configured")
		}
		verifier, err := GenerateCodeVerifier()
		if err != nil {
			return "", E(b.platform, CodePKCEVerifierMissing, "generate code verifier").WithDetails(err.Error())
		}
		if err := b.verifiers.Put(ctx, state, verifier); err != nil {
			return "", E(b.platform, CodePKCEVerifierMissing, "stash code verifier").WithDetails(err.Error())
		}
		q.Set("code_challenge", CodeChallenge(verifier))
		q.Set("code_challenge_method", "S256")
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode performs the code-for-token POST and normalizes the result.
// Authorization codes are single-use: a rejected code is never retryable.
func (b *Base) ExchangeCode(ctx context.Context, code, redirectURI, state string) (*TokenResponse, error) {
	params := map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": redirectURI,
	}

	if b.cfg.RequiresPKCE {
		if b.verifiers == nil {
			return nil, E(b.platform, CodePKCEVerifierMissing, "platform requires PKCE but no verifier store is configured")
		}
		verifier, err := b.verifiers.Take(ctx, state)
		if err != nil {
			return nil, E(b.platform, CodePKCEVerifierMissing, "read code verifier").WithDetails(err.Error())
		}
		if verifier == "" {
			return nil, E(b.platform, CodePKCEVerifierMissing, "no code verifier stashed for state (expired or reused)")
		}
		params["code_verifier"] = verifier
	}

	body, err := b.tokenRequest(ctx, params)
	if err != nil {
		if ce, ok := err.(*Error); ok {
			return nil, &Error{Platform: ce.Platform, Code: CodeExchangeFailed, Message: "token endpoint rejected the exchange", Details: ce.Details}
		}
		return nil, E(b.platform, CodeExchangeFailed, "token endpoint request failed").WithDetails(err.Error())
	}

	tok, err := b.normalize(body, time.Now())
	if err != nil {
		return nil, E(b.platform, CodeExchangeFailed, "normalize token response").WithDetails(err.Error())
	}

	if b.postExchange != nil {
		return b.postExchange(ctx, tok)
	}
	return tok, nil
}

// RefreshToken performs the refresh grant and normalizes the result.
func (b *Base) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if !b.cfg.SupportsRefreshTokens {
		return nil, E(b.platform, CodeRefreshNotSupported, "platform does not issue refresh tokens; re-authorization required")
	}

	body, err := b.tokenRequest(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
	if err != nil {
		if ce, ok := err.(*Error); ok {
			return nil, &Error{Platform: ce.Platform, Code: CodeRefreshFailed, Message: "token endpoint rejected the refresh", Details: ce.Details}
		}
		return nil, E(b.platform, CodeRefreshFailed, "token endpoint request failed").WithDetails(err.Error())
	}

	tok, err := b.normalize(body, time.Now())
	if err != nil {
		return nil, E(b.platform, CodeRefreshFailed, "normalize token response").WithDetails(err.Error())
	}
	return tok, nil
}

// VerifyToken hits the verify endpoint with the token. Advisory: degrades to
// false on any failure and never returns an error.
func (b *Base) VerifyToken(ctx context.Context, accessToken string) bool {
	if b.cfg.VerifyURL == "" {
		// Documented gap, not silently wrong: without a verify endpoint we
		// assume the token is alive until refresh or an API call says otherwise.
		logger.From(ctx).Warn("no verify endpoint configured; assuming token valid",
			logger.Platform(string(b.platform)))
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.VerifyURL, nil)
	if err != nil {
		return false
	}
	b.setAPIHeaders(req, accessToken)

	resp, err := b.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// GetUserInfo fetches and maps the provider profile.
func (b *Base) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	if b.cfg.UserInfoURL == "" {
		return nil, E(b.platform, CodeNoUserInfoURL, "no user info endpoint configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, E(b.platform, CodeUserInfoFailed, "build user info request").WithDetails(err.Error())
	}
	b.setAPIHeaders(req, accessToken)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, E(b.platform, CodeUserInfoFailed, "user info request failed").WithDetails(err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, E(b.platform, CodeUserInfoFailed, fmt.Sprintf("user info endpoint returned %d", resp.StatusCode)).WithDetails(string(body))
	}

	if b.userInfoMap != nil {
		return b.userInfoMap(body)
	}
	return MapUserInfoDefault(body)
}

// tokenRequest POSTs to the token endpoint with the configured body format
// and client authentication, returning the raw body. Non-2xx responses come
// back as a *Error carrying the body in Details (caller rewrites the code).
func (b *Base) tokenRequest(ctx context.Context, params map[string]string) ([]byte, error) {
	for k, v := range b.cfg.TokenParams {
		params[k] = v
	}

	idParam := b.cfg.ClientIDParam
	if idParam == "" {
		idParam = "client_id"
	}

	var reqBody io.Reader
	var contentType string

	switch b.cfg.TokenBody {
	case BodyJSON:
		payload := make(map[string]string, len(params)+2)
		for k, v := range params {
			payload[k] = v
		}
		if b.cfg.ClientAuth != ClientAuthBasic {
			payload[idParam] = b.creds.ClientID
			payload["client_secret"] = b.creds.ClientSecret
		}
		j, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(j)
		contentType = "application/json"
	default:
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		if b.cfg.ClientAuth != ClientAuthBasic {
			form.Set(idParam, b.creds.ClientID)
			form.Set("client_secret", b.creds.ClientSecret)
		}
		reqBody = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.TokenURL, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if b.cfg.ClientAuth == ClientAuthBasic {
		req.SetBasicAuth(b.creds.ClientID, b.creds.ClientSecret)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, E(b.platform, CodeExchangeFailed, fmt.Sprintf("token endpoint returned %d", resp.StatusCode)).WithDetails(string(body))
	}
	return body, nil
}

func (b *Base) setAPIHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	for k, v := range b.cfg.APIHeaders {
		req.Header.Set(k, v)
	}
}

// rawTokenResponse is the RFC 6749 token response shape.
type rawTokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    json.Number     `json:"expires_in"`
	TokenType    string          `json:"token_type"`
	Scope        json.RawMessage `json:"scope"`
}

// NormalizeDefault maps a standard OAuth 2.0 JSON token response. Providers
// deviating from the RFC shape install their own Normalizer instead.
func NormalizeDefault(body []byte, now time.Time) (*TokenResponse, error) {
	var raw rawTokenResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if raw.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	expiresIn, _ := raw.ExpiresIn.Int64()
	if expiresIn <= 0 {
		// Provider reported nothing; assume a conservative hour so the
		// expiry invariant (always a concrete future instant) holds.
		expiresIn = 3600
	}

	return &TokenResponse{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		ExpiresIn:    expiresIn,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second),
		TokenType:    raw.TokenType,
		Scope:        decodeScope(raw.Scope),
	}, nil
}

// decodeScope tolerates both string and array scope encodings.
func decodeScope(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return strings.Join(arr, " ")
	}
	return ""
}

// MapUserInfoDefault maps the common {id|sub, email, name} profile shape.
func MapUserInfoDefault(body []byte) (*UserInfo, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}

	info := &UserInfo{Raw: raw}
	for _, key := range []string{"id", "sub"} {
		if v, ok := raw[key]; ok {
			info.ID = fmt.Sprint(v)
			break
		}
	}
	if v, ok := raw["email"].(string); ok {
		info.Email = v
	}
	if v, ok := raw["name"].(string); ok {
		info.Name = v
	}
	return info, nil
}
