// Package linkedin implements the LinkedIn Marketing connector.
// The flow is vanilla OAuth 2.0 and the OIDC userinfo endpoint matches the
// default profile mapping, so nothing is overridden.
package linkedin

import (
	"github.com/authhub/authhub/internal/connectors"
)

type Connector struct {
	*connectors.Base
}

// Factory builds the LinkedIn connector.
func Factory(deps connectors.Deps) (connectors.Connector, error) {
	return New(deps)
}

func New(deps connectors.Deps) (*Connector, error) {
	creds, err := deps.Creds(connectors.PlatformLinkedIn)
	if err != nil {
		return nil, err
	}

	var opts []connectors.Option
	if deps.HTTP != nil {
		opts = append(opts, connectors.WithHTTPClient(deps.HTTP))
	}

	base, err := connectors.NewBase(connectors.PlatformLinkedIn, creds, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{Base: base}, nil
}
