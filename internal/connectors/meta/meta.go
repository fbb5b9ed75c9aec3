// Package meta implements the Meta (Facebook/Instagram) Marketing API
// connector.
//
// Deviations from the base flow: Meta issues no refresh tokens, and the
// short-lived token from the code exchange must be upgraded to a 60-day
// long-lived token immediately via a second exchange. The user-info endpoint
// returns no email under Marketing API scopes.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/authhub/authhub/internal/connectors"
)

// longLivedLifetime is the documented lifetime of an upgraded token. Used
// when the exchange response omits expires_in.
const longLivedLifetime = 60 * 24 * time.Hour

type Connector struct {
	*connectors.Base

	// GraphBase is the Graph API root for business/asset calls.
	// Overridable in tests.
	GraphBase string
}

// Factory builds the Meta connector.
func Factory(deps connectors.Deps) (connectors.Connector, error) {
	return New(deps)
}

func New(deps connectors.Deps) (*Connector, error) {
	creds, err := deps.Creds(connectors.PlatformMeta)
	if err != nil {
		return nil, err
	}

	c := &Connector{GraphBase: "https://graph.facebook.com/v19.0"}

	opts := []connectors.Option{
		connectors.WithNormalizer(normalize),
		// Upgrade the short-lived token right after every code exchange.
		connectors.WithPostExchange(func(ctx context.Context, tok *connectors.TokenResponse) (*connectors.TokenResponse, error) {
			return c.LongLivedToken(ctx, tok.AccessToken)
		}),
		connectors.WithUserInfoMapper(mapUserInfo),
	}
	if deps.HTTP != nil {
		opts = append(opts, connectors.WithHTTPClient(deps.HTTP))
	}

	base, err := connectors.NewBase(connectors.PlatformMeta, creds, opts...)
	if err != nil {
		return nil, err
	}
	c.Base = base
	return c, nil
}

// normalize maps Meta's token response. Meta sometimes omits expires_in on
// long-lived tokens; fall back to the documented 60-day lifetime so the
// expiry invariant holds.
func normalize(body []byte, now time.Time) (*connectors.TokenResponse, error) {
	var raw struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if raw.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	expiresIn := raw.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = int64(longLivedLifetime / time.Second)
	}

	return &connectors.TokenResponse{
		AccessToken: raw.AccessToken,
		ExpiresIn:   expiresIn,
		ExpiresAt:   now.Add(time.Duration(expiresIn) * time.Second),
		TokenType:   raw.TokenType,
	}, nil
}

// GetUserInfo requests explicit fields; email is absent under Marketing API
// scopes and stays empty in the result.
func (c *Connector) GetUserInfo(ctx context.Context, accessToken string) (*connectors.UserInfo, error) {
	body, err := c.graphGET(ctx, "/me?fields=id,name,email", accessToken)
	if err != nil {
		return nil, connectors.E(connectors.PlatformMeta, connectors.CodeUserInfoFailed, "user info request failed").WithDetails(err.Error())
	}
	return mapUserInfo(body)
}

func mapUserInfo(body []byte) (*connectors.UserInfo, error) {
	return connectors.MapUserInfoDefault(body)
}

// LongLivedToken exchanges a short-lived token for a ~60-day one
// (grant_type=fb_exchange_token).
func (c *Connector) LongLivedToken(ctx context.Context, shortLived string) (*connectors.TokenResponse, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", c.Creds().ClientID)
	q.Set("client_secret", c.Creds().ClientSecret)
	q.Set("fb_exchange_token", shortLived)

	u := c.Config().TokenURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, connectors.E(connectors.PlatformMeta, connectors.CodeExchangeFailed, "build long-lived exchange request").WithDetails(err.Error())
	}

	resp, err := c.HTTP().Do(req)
	if err != nil {
		return nil, connectors.E(connectors.PlatformMeta, connectors.CodeExchangeFailed, "long-lived exchange request failed").WithDetails(err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, connectors.E(connectors.PlatformMeta, connectors.CodeExchangeFailed,
			fmt.Sprintf("long-lived exchange returned %d", resp.StatusCode)).WithDetails(string(body))
	}

	tok, err := normalize(body, time.Now())
	if err != nil {
		return nil, connectors.E(connectors.PlatformMeta, connectors.CodeExchangeFailed, "normalize long-lived token").WithDetails(err.Error())
	}
	tok.Metadata = map[string]string{"long_lived": "true"}
	return tok, nil
}

// VerifyClientAccess walks the agency business's clients edge looking for an
// actual partner relationship with the target client business, then lists
// the client ad accounts the agency can reach. A bare "business exists"
// check is not sufficient: a business can exist without any partnership.
func (c *Connector) VerifyClientAccess(ctx context.Context, req connectors.ClientAccessRequest) (*connectors.ClientAccessResult, error) {
	if req.ClientBizID == "" {
		return &connectors.ClientAccessResult{
			Diagnostic: "meta delegated access requires the client business id",
		}, nil
	}

	// Resolve the agency's own businesses.
	body, err := c.graphGET(ctx, "/me/businesses?fields=id,name", req.AgencyToken)
	if err != nil {
		return &connectors.ClientAccessResult{Diagnostic: "listing agency businesses failed: " + err.Error()}, nil
	}
	agencyBusinesses, err := decodeEdge(body)
	if err != nil {
		return &connectors.ClientAccessResult{Diagnostic: "decode agency businesses: " + err.Error()}, nil
	}

	for _, biz := range agencyBusinesses {
		// Partner relationships live on the business's clients edge.
		body, err := c.graphGET(ctx, "/"+biz.ID+"/clients?fields=id,name", req.AgencyToken)
		if err != nil {
			continue
		}
		clientBizs, err := decodeEdge(body)
		if err != nil {
			continue
		}
		for _, cb := range clientBizs {
			if cb.ID != req.ClientBizID {
				continue
			}
			assets := c.clientAdAccounts(ctx, biz.ID, req.AgencyToken)
			return &connectors.ClientAccessResult{
				HasAccess: true,
				Level:     connectors.AccessLevelRead,
				Assets:    assets,
			}, nil
		}
	}

	return &connectors.ClientAccessResult{
		Diagnostic: "no partner relationship found between the agency businesses and client " + req.ClientBizID,
	}, nil
}

// clientAdAccounts lists the client ad accounts the agency business manages.
// Best effort: an empty list is a valid answer.
func (c *Connector) clientAdAccounts(ctx context.Context, agencyBizID, token string) []connectors.Asset {
	body, err := c.graphGET(ctx, "/"+agencyBizID+"/client_ad_accounts?fields=id,name", token)
	if err != nil {
		return nil
	}
	nodes, err := decodeEdge(body)
	if err != nil {
		return nil
	}

	assets := make([]connectors.Asset, 0, len(nodes))
	for _, n := range nodes {
		assets = append(assets, connectors.Asset{ID: n.ID, Name: n.Name, Kind: "ad_account"})
	}
	return assets
}

type edgeNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// decodeEdge unwraps a Graph API {"data": [...]} edge response.
func decodeEdge(body []byte) ([]edgeNode, error) {
	var raw struct {
		Data []edgeNode `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return raw.Data, nil
}

func (c *Connector) graphGET(ctx context.Context, path, token string) ([]byte, error) {
	u := c.GraphBase + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("graph api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
