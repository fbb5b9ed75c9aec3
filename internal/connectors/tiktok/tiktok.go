// Package tiktok implements the TikTok Business connector.
//
// Deviations from the base flow: the authorize URL carries client_key
// instead of client_id and the token endpoint takes JSON (both registry
// flags), and every Business API response wraps its payload in a
// {code, message, data} envelope that must be unwrapped; a code other
// than 0 is an error even on HTTP 200.
package tiktok

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/authhub/authhub/internal/connectors"
)

type Connector struct {
	*connectors.Base
}

// Factory builds the TikTok connector.
func Factory(deps connectors.Deps) (connectors.Connector, error) {
	return New(deps)
}

func New(deps connectors.Deps) (*Connector, error) {
	creds, err := deps.Creds(connectors.PlatformTikTok)
	if err != nil {
		return nil, err
	}

	opts := []connectors.Option{
		connectors.WithNormalizer(normalize),
		connectors.WithUserInfoMapper(mapUserInfo),
	}
	if deps.HTTP != nil {
		opts = append(opts, connectors.WithHTTPClient(deps.HTTP))
	}

	base, err := connectors.NewBase(connectors.PlatformTikTok, creds, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{Base: base}, nil
}

// envelope is TikTok's universal response wrapper.
type envelope struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func unwrap(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("tiktok api error %d: %s", env.Code, env.Message)
	}
	return env.Data, nil
}

func normalize(body []byte, now time.Time) (*connectors.TokenResponse, error) {
	data, err := unwrap(body)
	if err != nil {
		return nil, err
	}

	var raw struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		Scope        string `json:"scope"`
		TokenType    string `json:"token_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode token data: %w", err)
	}
	if raw.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	expiresIn := raw.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 86400
	}

	return &connectors.TokenResponse{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		ExpiresIn:    expiresIn,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second),
		TokenType:    raw.TokenType,
		Scope:        raw.Scope,
	}, nil
}

func mapUserInfo(body []byte) (*connectors.UserInfo, error) {
	data, err := unwrap(body)
	if err != nil {
		return nil, err
	}

	var raw struct {
		CoreUserID  string `json:"core_user_id"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode user data: %w", err)
	}

	var rawMap map[string]any
	_ = json.Unmarshal(data, &rawMap)

	return &connectors.UserInfo{
		ID:    raw.CoreUserID,
		Email: raw.Email,
		Name:  raw.DisplayName,
		Raw:   rawMap,
	}, nil
}
