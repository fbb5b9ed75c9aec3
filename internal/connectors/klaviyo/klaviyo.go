// Package klaviyo implements the Klaviyo connector.
//
// Deviations from the base flow: PKCE is mandatory (the authorize URL
// carries an S256 code challenge and the verifier is stashed server-side,
// keyed by state), and both exchange and refresh authenticate with HTTP
// Basic instead of body credentials. The base connector handles both given
// the registry flags; this package only enforces that a verifier store is
// actually wired, since without one the exchange fails by construction.
package klaviyo

import (
	"github.com/authhub/authhub/internal/connectors"
)

type Connector struct {
	*connectors.Base
}

// Factory builds the Klaviyo connector.
func Factory(deps connectors.Deps) (connectors.Connector, error) {
	return New(deps)
}

func New(deps connectors.Deps) (*Connector, error) {
	creds, err := deps.Creds(connectors.PlatformKlaviyo)
	if err != nil {
		return nil, err
	}
	if deps.Verifiers == nil {
		return nil, connectors.E(connectors.PlatformKlaviyo, connectors.CodePKCEVerifierMissing,
			"klaviyo requires a PKCE verifier store")
	}

	opts := []connectors.Option{
		connectors.WithVerifierStore(deps.Verifiers),
	}
	if deps.HTTP != nil {
		opts = append(opts, connectors.WithHTTPClient(deps.HTTP))
	}

	base, err := connectors.NewBase(connectors.PlatformKlaviyo, creds, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{Base: base}, nil
}
