// Package mailchimp implements the Mailchimp connector.
//
// Deviations from the base flow: tokens never expire (the provider reports
// expires_in of 0), so normalization assigns a synthetic one-year expiry to
// keep downstream expiry scheduling on a single code path; there is no
// refresh token; and user info takes two sequential calls: the metadata
// endpoint first, to learn the account's data-center subdomain, then the
// account root against that subdomain. Mailchimp OAuth endpoints also want
// "Authorization: OAuth <token>" rather than Bearer.
package mailchimp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/authhub/authhub/internal/connectors"
)

// syntheticLifetime stands in for "never expires". One year keeps the
// connection on the normal verification cadence without ever looking
// expired in practice.
const syntheticLifetime = 365 * 24 * time.Hour

type Connector struct {
	*connectors.Base
}

// Factory builds the Mailchimp connector.
func Factory(deps connectors.Deps) (connectors.Connector, error) {
	return New(deps)
}

func New(deps connectors.Deps) (*Connector, error) {
	creds, err := deps.Creds(connectors.PlatformMailchimp)
	if err != nil {
		return nil, err
	}

	opts := []connectors.Option{
		connectors.WithNormalizer(Normalize),
	}
	if deps.HTTP != nil {
		opts = append(opts, connectors.WithHTTPClient(deps.HTTP))
	}

	base, err := connectors.NewBase(connectors.PlatformMailchimp, creds, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{Base: base}, nil
}

// Normalize maps Mailchimp's token response. expires_in is always 0; the
// synthetic expiry is a concrete future instant, never zero or past.
func Normalize(body []byte, now time.Time) (*connectors.TokenResponse, error) {
	var raw struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if raw.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	expiresIn := raw.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = int64(syntheticLifetime / time.Second)
	}

	return &connectors.TokenResponse{
		AccessToken: raw.AccessToken,
		ExpiresIn:   expiresIn,
		ExpiresAt:   now.Add(time.Duration(expiresIn) * time.Second),
		TokenType:   raw.TokenType,
		Scope:       raw.Scope,
		// The data center is unknown until the metadata fetch happens.
		Metadata: map[string]string{"needs_metadata_fetch": "true"},
	}, nil
}

// metadataResponse is the shape of GET /oauth2/metadata.
type metadataResponse struct {
	DC          string `json:"dc"`
	APIEndpoint string `json:"api_endpoint"`
	Login       struct {
		Email   string `json:"email"`
		LoginID int64  `json:"login_id"`
	} `json:"login"`
}

// GetUserInfo resolves the data center via the metadata endpoint, then reads
// the account root on that data center's subdomain.
func (c *Connector) GetUserInfo(ctx context.Context, accessToken string) (*connectors.UserInfo, error) {
	meta, err := c.fetchMetadata(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if meta.APIEndpoint == "" {
		return nil, connectors.E(connectors.PlatformMailchimp, connectors.CodeUserInfoFailed,
			"metadata response missing api_endpoint")
	}

	body, err := c.oauthGET(ctx, meta.APIEndpoint+"/3.0/", accessToken)
	if err != nil {
		return nil, connectors.E(connectors.PlatformMailchimp, connectors.CodeUserInfoFailed,
			"account info request failed").WithDetails(err.Error())
	}

	var acct struct {
		AccountID   string `json:"account_id"`
		AccountName string `json:"account_name"`
		Email       string `json:"email"`
	}
	if err := json.Unmarshal(body, &acct); err != nil {
		return nil, connectors.E(connectors.PlatformMailchimp, connectors.CodeUserInfoFailed,
			"decode account info").WithDetails(err.Error())
	}

	email := acct.Email
	if email == "" {
		email = meta.Login.Email
	}

	return &connectors.UserInfo{
		ID:    acct.AccountID,
		Email: email,
		Name:  acct.AccountName,
		Raw:   map[string]any{"dc": meta.DC, "api_endpoint": meta.APIEndpoint},
	}, nil
}

func (c *Connector) fetchMetadata(ctx context.Context, accessToken string) (*metadataResponse, error) {
	body, err := c.oauthGET(ctx, c.Config().UserInfoURL, accessToken)
	if err != nil {
		return nil, connectors.E(connectors.PlatformMailchimp, connectors.CodeUserInfoFailed,
			"metadata request failed").WithDetails(err.Error())
	}
	var meta metadataResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, connectors.E(connectors.PlatformMailchimp, connectors.CodeUserInfoFailed,
			"decode metadata").WithDetails(err.Error())
	}
	return &meta, nil
}

// oauthGET performs a GET with Mailchimp's OAuth authorization scheme.
func (c *Connector) oauthGET(ctx context.Context, u, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
