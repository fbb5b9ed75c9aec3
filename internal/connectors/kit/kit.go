// Package kit implements the Kit (formerly ConvertKit) connector.
//
// Deviations from the base flow: the token endpoint expects a JSON body
// (registry flag), token lifetime is anchored to the provider-supplied Unix
// created_at rather than our request time, and the account endpoint reports
// the address in a nonstandard primary_email_address field.
//
// The product has since moved Kit onboarding to a team-invitation flow that
// exchanges no tokens at all (see the connect service); this OAuth connector
// remains the routed implementation and the rollback path.
package kit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/authhub/authhub/internal/connectors"
)

type Connector struct {
	*connectors.Base
}

// Factory builds the Kit connector.
func Factory(deps connectors.Deps) (connectors.Connector, error) {
	return New(deps)
}

func New(deps connectors.Deps) (*Connector, error) {
	creds, err := deps.Creds(connectors.PlatformKit)
	if err != nil {
		return nil, err
	}

	opts := []connectors.Option{
		connectors.WithNormalizer(Normalize),
		connectors.WithUserInfoMapper(mapUserInfo),
	}
	if deps.HTTP != nil {
		opts = append(opts, connectors.WithHTTPClient(deps.HTTP))
	}

	base, err := connectors.NewBase(connectors.PlatformKit, creds, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{Base: base}, nil
}

// Normalize anchors expiry to the provider's created_at instant: Kit reports
// when the token was minted, and created_at+expires_in is authoritative even
// if our exchange request was slow.
func Normalize(body []byte, now time.Time) (*connectors.TokenResponse, error) {
	var raw struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		CreatedAt    int64  `json:"created_at"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if raw.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	issuedAt := now
	if raw.CreatedAt > 0 {
		issuedAt = time.Unix(raw.CreatedAt, 0)
	}
	expiresIn := raw.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	return &connectors.TokenResponse{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		ExpiresIn:    expiresIn,
		ExpiresAt:    issuedAt.Add(time.Duration(expiresIn) * time.Second),
		TokenType:    raw.TokenType,
		Scope:        raw.Scope,
	}, nil
}

// mapUserInfo unwraps the v4 account envelope and maps
// primary_email_address onto the normalized email field.
func mapUserInfo(body []byte) (*connectors.UserInfo, error) {
	var raw struct {
		Account struct {
			ID                  json.Number `json:"id"`
			Name                string      `json:"name"`
			PrimaryEmailAddress string      `json:"primary_email_address"`
		} `json:"account"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode account response: %w", err)
	}

	var rawMap map[string]any
	_ = json.Unmarshal(body, &rawMap)

	return &connectors.UserInfo{
		ID:    raw.Account.ID.String(),
		Email: raw.Account.PrimaryEmailAddress,
		Name:  raw.Account.Name,
		Raw:   rawMap,
	}, nil
}
