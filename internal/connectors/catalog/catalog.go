// Package catalog wires every provider factory into a connector registry.
// It exists so the core connectors package never imports its own providers.
package catalog

import (
	"github.com/authhub/authhub/internal/connectors"
	"github.com/authhub/authhub/internal/connectors/beehiiv"
	"github.com/authhub/authhub/internal/connectors/googleads"
	"github.com/authhub/authhub/internal/connectors/kit"
	"github.com/authhub/authhub/internal/connectors/klaviyo"
	"github.com/authhub/authhub/internal/connectors/linkedin"
	"github.com/authhub/authhub/internal/connectors/mailchimp"
	"github.com/authhub/authhub/internal/connectors/meta"
	"github.com/authhub/authhub/internal/connectors/pinterest"
	"github.com/authhub/authhub/internal/connectors/tiktok"
)

// NewRegistry builds a registry with every supported platform registered.
func NewRegistry(deps connectors.Deps) *connectors.Registry {
	r := connectors.NewRegistry(deps)
	r.Register(connectors.PlatformMeta, meta.Factory)
	r.Register(connectors.PlatformGoogle, googleads.Factory)
	r.Register(connectors.PlatformLinkedIn, linkedin.Factory)
	r.Register(connectors.PlatformTikTok, tiktok.Factory)
	r.Register(connectors.PlatformPinterest, pinterest.Factory)
	r.Register(connectors.PlatformKlaviyo, klaviyo.Factory)
	r.Register(connectors.PlatformMailchimp, mailchimp.Factory)
	r.Register(connectors.PlatformKit, kit.Factory)
	r.Register(connectors.PlatformBeehiiv, beehiiv.Factory)
	return r
}
