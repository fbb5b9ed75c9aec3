// Package beehiiv implements the beehiiv connector. Vanilla OAuth 2.0;
// the publications list doubles as the profile call, so the first
// publication is mapped as the account identity.
package beehiiv

import (
	"encoding/json"
	"fmt"

	"github.com/authhub/authhub/internal/connectors"
)

type Connector struct {
	*connectors.Base
}

// Factory builds the beehiiv connector.
func Factory(deps connectors.Deps) (connectors.Connector, error) {
	return New(deps)
}

func New(deps connectors.Deps) (*Connector, error) {
	creds, err := deps.Creds(connectors.PlatformBeehiiv)
	if err != nil {
		return nil, err
	}

	opts := []connectors.Option{
		connectors.WithUserInfoMapper(mapUserInfo),
	}
	if deps.HTTP != nil {
		opts = append(opts, connectors.WithHTTPClient(deps.HTTP))
	}

	base, err := connectors.NewBase(connectors.PlatformBeehiiv, creds, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{Base: base}, nil
}

func mapUserInfo(body []byte) (*connectors.UserInfo, error) {
	var raw struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode publications: %w", err)
	}
	if len(raw.Data) == 0 {
		return nil, fmt.Errorf("no publications visible to this token")
	}

	var rawMap map[string]any
	_ = json.Unmarshal(body, &rawMap)

	return &connectors.UserInfo{
		ID:   raw.Data[0].ID,
		Name: raw.Data[0].Name,
		Raw:  rawMap,
	}, nil
}
