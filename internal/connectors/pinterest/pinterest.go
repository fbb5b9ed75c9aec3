// Package pinterest implements the Pinterest connector.
//
// Deviation from the base flow: the token endpoint requires HTTP Basic
// client authentication (registry flag). The user_account response has no
// email; Pinterest identifies accounts by username.
package pinterest

import (
	"encoding/json"
	"fmt"

	"github.com/authhub/authhub/internal/connectors"
)

type Connector struct {
	*connectors.Base
}

// Factory builds the Pinterest connector.
func Factory(deps connectors.Deps) (connectors.Connector, error) {
	return New(deps)
}

func New(deps connectors.Deps) (*Connector, error) {
	creds, err := deps.Creds(connectors.PlatformPinterest)
	if err != nil {
		return nil, err
	}

	opts := []connectors.Option{
		connectors.WithUserInfoMapper(mapUserInfo),
	}
	if deps.HTTP != nil {
		opts = append(opts, connectors.WithHTTPClient(deps.HTTP))
	}

	base, err := connectors.NewBase(connectors.PlatformPinterest, creds, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{Base: base}, nil
}

func mapUserInfo(body []byte) (*connectors.UserInfo, error) {
	var raw struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode user_account: %w", err)
	}

	var rawMap map[string]any
	_ = json.Unmarshal(body, &rawMap)

	return &connectors.UserInfo{
		ID:   raw.ID,
		Name: raw.Username,
		Raw:  rawMap,
	}, nil
}
