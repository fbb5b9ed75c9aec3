package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	cachemem "github.com/authhub/authhub/internal/cache/memory"
)

func testCreds() Credentials {
	return Credentials{ClientID: "test-client", ClientSecret: "test-secret"}
}

func TestNewBaseRequiresCredentials(t *testing.T) {
	if _, err := NewBase(PlatformLinkedIn, Credentials{ClientSecret: "s"}); !IsCode(err, CodeMissingClientID) {
		t.Fatalf("expected MISSING_CLIENT_ID, got %v", err)
	}
	if _, err := NewBase(PlatformLinkedIn, Credentials{ClientID: "id"}); !IsCode(err, CodeMissingClientSecret) {
		t.Fatalf("expected MISSING_CLIENT_SECRET, got %v", err)
	}
	if _, err := NewBase(Platform("myspace"), testCreds()); !IsCode(err, CodeUnknownPlatform) {
		t.Fatalf("expected UNKNOWN_PLATFORM, got %v", err)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("LINKEDIN_CLIENT_ID", "abc")
	t.Setenv("LINKEDIN_CLIENT_SECRET", "xyz")

	creds, err := CredentialsFromEnv(PlatformLinkedIn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.ClientID != "abc" || creds.ClientSecret != "xyz" {
		t.Fatalf("unexpected creds: %+v", creds)
	}

	t.Setenv("LINKEDIN_CLIENT_SECRET", "")
	if _, err := CredentialsFromEnv(PlatformLinkedIn); !IsCode(err, CodeMissingClientSecret) {
		t.Fatalf("expected MISSING_CLIENT_SECRET, got %v", err)
	}

	t.Setenv("LINKEDIN_CLIENT_ID", "")
	if _, err := CredentialsFromEnv(PlatformLinkedIn); !IsCode(err, CodeMissingClientID) {
		t.Fatalf("expected MISSING_CLIENT_ID, got %v", err)
	}
}

func TestAuthURL(t *testing.T) {
	b, err := NewBase(PlatformLinkedIn, testCreds(), WithConfig(OAuthConfig{
		AuthURL:        "https://provider.example/authorize",
		DefaultScopes:  []string{"ads.read", "ads.write"},
		ScopeSeparator: ",",
		AuthParams:     map[string]string{"prompt": "consent"},
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}

	raw, err := b.AuthURL(context.Background(), "state-123", nil, "https://app.example/callback")
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	q := u.Query()
	if got := q.Get("client_id"); got != "test-client" {
		t.Errorf("client_id = %q", got)
	}
	if got := q.Get("redirect_uri"); got != "https://app.example/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
	if got := q.Get("state"); got != "state-123" {
		t.Errorf("state = %q", got)
	}
	if got := q.Get("response_type"); got != "code" {
		t.Errorf("response_type = %q", got)
	}
	if got := q.Get("scope"); got != "ads.read,ads.write" {
		t.Errorf("scope = %q", got)
	}
	if got := q.Get("prompt"); got != "consent" {
		t.Errorf("prompt = %q", got)
	}
	if strings.Contains(raw, "test-secret") {
		t.Fatal("client secret leaked into the authorize URL")
	}
}

func TestAuthURLExplicitScopesAndClientIDParam(t *testing.T) {
	b, err := NewBase(PlatformTikTok, testCreds(), WithConfig(OAuthConfig{
		AuthURL:        "https://provider.example/authorize",
		DefaultScopes:  []string{"default.scope"},
		ScopeSeparator: " ",
		ClientIDParam:  "client_key",
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}

	raw, err := b.AuthURL(context.Background(), "s", []string{"only.this"}, "https://cb")
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	u, _ := url.Parse(raw)
	if got := u.Query().Get("scope"); got != "only.this" {
		t.Errorf("scope = %q, want explicit scope to win over defaults", got)
	}
	if got := u.Query().Get("client_key"); got != "test-client" {
		t.Errorf("client_key = %q", got)
	}
	if u.Query().Has("client_id") {
		t.Error("client_id must be absent when the platform renames the parameter")
	}
}

func TestExchangeCode(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":7200,"token_type":"Bearer","scope":"a b"}`))
	}))
	defer srv.Close()

	b, err := NewBase(PlatformLinkedIn, testCreds(), WithConfig(OAuthConfig{
		AuthURL:  "https://provider.example/authorize",
		TokenURL: srv.URL,
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}

	before := time.Now()
	tok, err := b.ExchangeCode(context.Background(), "code-1", "https://cb", "state-1")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}

	if gotForm.Get("grant_type") != "authorization_code" {
		t.Errorf("grant_type = %q", gotForm.Get("grant_type"))
	}
	if gotForm.Get("code") != "code-1" {
		t.Errorf("code = %q", gotForm.Get("code"))
	}
	if gotForm.Get("redirect_uri") != "https://cb" {
		t.Errorf("redirect_uri = %q", gotForm.Get("redirect_uri"))
	}
	if gotForm.Get("client_id") != "test-client" || gotForm.Get("client_secret") != "test-secret" {
		t.Error("client credentials missing from the token request body")
	}

	if tok.AccessToken != "at-1" || tok.RefreshToken != "rt-1" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if tok.ExpiresIn != 7200 {
		t.Errorf("ExpiresIn = %d", tok.ExpiresIn)
	}
	wantExp := before.Add(7200 * time.Second)
	if tok.ExpiresAt.Before(wantExp.Add(-5*time.Second)) || tok.ExpiresAt.After(wantExp.Add(5*time.Second)) {
		t.Errorf("ExpiresAt = %v, want ~%v", tok.ExpiresAt, wantExp)
	}
	if tok.Scope != "a b" {
		t.Errorf("Scope = %q", tok.Scope)
	}
}

func TestExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	b, err := NewBase(PlatformLinkedIn, testCreds(), WithConfig(OAuthConfig{
		AuthURL:  "https://provider.example/authorize",
		TokenURL: srv.URL,
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}

	_, err = b.ExchangeCode(context.Background(), "bad-code", "https://cb", "s")
	if !IsCode(err, CodeExchangeFailed) {
		t.Fatalf("expected EXCHANGE_FAILED, got %v", err)
	}
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !strings.Contains(ce.Details, "invalid_grant") {
		t.Errorf("Details should carry the provider body, got %q", ce.Details)
	}
}

func TestExchangeCodeBasicAuthJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-client" || pass != "test-secret" {
			t.Errorf("missing or wrong basic auth: %q/%q", user, pass)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode json body: %v", err)
		}
		if _, leaked := payload["client_secret"]; leaked {
			t.Error("client_secret must not appear in the body under basic auth")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-2","expires_in":3600}`))
	}))
	defer srv.Close()

	b, err := NewBase(PlatformKit, testCreds(), WithConfig(OAuthConfig{
		AuthURL:    "https://provider.example/authorize",
		TokenURL:   srv.URL,
		TokenBody:  BodyJSON,
		ClientAuth: ClientAuthBasic,
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	tok, err := b.ExchangeCode(context.Background(), "c", "https://cb", "s")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tok.AccessToken != "at-2" {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestRefreshTokenUnsupportedMakesNoRequest(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	b, err := NewBase(PlatformMeta, testCreds(), WithConfig(OAuthConfig{
		AuthURL:               "https://provider.example/authorize",
		TokenURL:              srv.URL,
		SupportsRefreshTokens: false,
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}

	_, err = b.RefreshToken(context.Background(), "rt")
	if !IsCode(err, CodeRefreshNotSupported) {
		t.Fatalf("expected REFRESH_NOT_SUPPORTED, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("token endpoint was hit %d times; refusal must be local", hits)
	}
}

func TestRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("refresh_token") != "rt-old" {
			t.Errorf("refresh_token = %q", r.PostForm.Get("refresh_token"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-new","refresh_token":"rt-new","expires_in":1800}`))
	}))
	defer srv.Close()

	b, err := NewBase(PlatformGoogle, testCreds(), WithConfig(OAuthConfig{
		AuthURL:               "https://provider.example/authorize",
		TokenURL:              srv.URL,
		SupportsRefreshTokens: true,
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}

	tok, err := b.RefreshToken(context.Background(), "rt-old")
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if tok.AccessToken != "at-new" || tok.RefreshToken != "rt-new" {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestRefreshTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	b, err := NewBase(PlatformGoogle, testCreds(), WithConfig(OAuthConfig{
		AuthURL:               "https://provider.example/authorize",
		TokenURL:              srv.URL,
		SupportsRefreshTokens: true,
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	if _, err := b.RefreshToken(context.Background(), "rt"); !IsCode(err, CodeRefreshFailed) {
		t.Fatalf("expected REFRESH_FAILED, got %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	ctx := context.Background()

	// no verify endpoint: optimistic true
	b, err := NewBase(PlatformMailchimp, testCreds(), WithConfig(OAuthConfig{
		AuthURL: "https://provider.example/authorize",
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	if !b.VerifyToken(ctx, "whatever") {
		t.Fatal("VerifyToken without a verify endpoint must report true")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer live-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err = NewBase(PlatformLinkedIn, testCreds(), WithConfig(OAuthConfig{
		AuthURL:   "https://provider.example/authorize",
		VerifyURL: srv.URL,
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	if !b.VerifyToken(ctx, "live-token") {
		t.Error("expected a 200 verify to report true")
	}
	if b.VerifyToken(ctx, "dead-token") {
		t.Error("expected a 401 verify to report false")
	}

	srv.Close()
	if b.VerifyToken(ctx, "any") {
		t.Error("expected a transport failure to report false, not error")
	}
}

func TestGetUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Custom") != "yes" {
			t.Errorf("missing custom API header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"u-1","email":"user@example.com","name":"User One"}`))
	}))
	defer srv.Close()

	b, err := NewBase(PlatformLinkedIn, testCreds(), WithConfig(OAuthConfig{
		AuthURL:     "https://provider.example/authorize",
		UserInfoURL: srv.URL,
		APIHeaders:  map[string]string{"X-Custom": "yes"},
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}

	info, err := b.GetUserInfo(context.Background(), "tok")
	if err != nil {
		t.Fatalf("GetUserInfo: %v", err)
	}
	if info.ID != "u-1" || info.Email != "user@example.com" || info.Name != "User One" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestGetUserInfoNoEndpoint(t *testing.T) {
	b, err := NewBase(PlatformKlaviyo, testCreds(), WithConfig(OAuthConfig{
		AuthURL: "https://provider.example/authorize",
	}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	if _, err := b.GetUserInfo(context.Background(), "tok"); !IsCode(err, CodeNoUserInfoURL) {
		t.Fatalf("expected NO_USER_INFO_URL, got %v", err)
	}
}

func TestPKCEFlowThroughBase(t *testing.T) {
	var gotVerifier string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotVerifier = r.PostForm.Get("code_verifier")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","expires_in":60}`))
	}))
	defer srv.Close()

	store := NewVerifierStore(cachemem.New(""))
	b, err := NewBase(PlatformKlaviyo, testCreds(),
		WithVerifierStore(store),
		WithConfig(OAuthConfig{
			AuthURL:      "https://provider.example/authorize",
			TokenURL:     srv.URL,
			RequiresPKCE: true,
		}))
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	ctx := context.Background()

	raw, err := b.AuthURL(ctx, "state-pkce", nil, "https://cb")
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	u, _ := url.Parse(raw)
	challenge := u.Query().Get("code_challenge")
	if challenge == "" {
		t.Fatal("authorize URL missing code_challenge")
	}
	if got := u.Query().Get("code_challenge_method"); got != "S256" {
		t.Fatalf("code_challenge_method = %q", got)
	}

	if _, err := b.ExchangeCode(ctx, "c", "https://cb", "state-pkce"); err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if gotVerifier == "" {
		t.Fatal("exchange did not send a code_verifier")
	}
	if CodeChallenge(gotVerifier) != challenge {
		t.Fatal("sent verifier does not match the advertised challenge")
	}

	// verifiers are single-use: a replay of the same state must fail
	if _, err := b.ExchangeCode(ctx, "c", "https://cb", "state-pkce"); !IsCode(err, CodePKCEVerifierMissing) {
		t.Fatalf("expected PKCE_VERIFIER_MISSING on replay, got %v", err)
	}
}

func TestNormalizeDefault(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tok, err := NormalizeDefault([]byte(`{"access_token":"at","expires_in":"7200","scope":["a","b"]}`), now)
	if err != nil {
		t.Fatalf("NormalizeDefault: %v", err)
	}
	if tok.ExpiresIn != 7200 {
		t.Errorf("string expires_in not tolerated: %d", tok.ExpiresIn)
	}
	if !tok.ExpiresAt.Equal(now.Add(2 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", tok.ExpiresAt)
	}
	if tok.Scope != "a b" {
		t.Errorf("array scope not joined: %q", tok.Scope)
	}

	tok, err = NormalizeDefault([]byte(`{"access_token":"at"}`), now)
	if err != nil {
		t.Fatalf("NormalizeDefault: %v", err)
	}
	if tok.ExpiresIn != 3600 {
		t.Errorf("missing expires_in must fall back to an hour, got %d", tok.ExpiresIn)
	}
	if !tok.ExpiresAt.After(now) {
		t.Error("ExpiresAt must always be a concrete future instant")
	}

	if _, err := NormalizeDefault([]byte(`{"expires_in":60}`), now); err == nil {
		t.Fatal("missing access_token must be rejected")
	}
	if _, err := NormalizeDefault([]byte(`not json`), now); err == nil {
		t.Fatal("malformed body must be rejected")
	}
}

func TestMapUserInfoDefault(t *testing.T) {
	info, err := MapUserInfoDefault([]byte(`{"id":12345,"email":"a@b.c","name":"N"}`))
	if err != nil {
		t.Fatalf("MapUserInfoDefault: %v", err)
	}
	if info.ID != "12345" {
		t.Errorf("numeric id must be stringified, got %q", info.ID)
	}
	if info.Email != "a@b.c" || info.Name != "N" {
		t.Errorf("unexpected info: %+v", info)
	}

	info, err = MapUserInfoDefault([]byte(`{"sub":"oidc-1"}`))
	if err != nil {
		t.Fatalf("MapUserInfoDefault: %v", err)
	}
	if info.ID != "oidc-1" {
		t.Errorf("sub fallback failed, got %q", info.ID)
	}
}
