package connectors

import "fmt"

// Platform identifies a supported third-party advertising/marketing platform.
// The set is closed: every platform must have a registry entry.
type Platform string

const (
	PlatformMeta      Platform = "meta"
	PlatformGoogle    Platform = "google"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
	PlatformPinterest Platform = "pinterest"
	PlatformKlaviyo   Platform = "klaviyo"
	PlatformMailchimp Platform = "mailchimp"
	PlatformKit       Platform = "kit"
	PlatformBeehiiv   Platform = "beehiiv"
)

// Platforms lists every supported platform in a stable order.
func Platforms() []Platform {
	return []Platform{
		PlatformMeta,
		PlatformGoogle,
		PlatformLinkedIn,
		PlatformTikTok,
		PlatformPinterest,
		PlatformKlaviyo,
		PlatformMailchimp,
		PlatformKit,
		PlatformBeehiiv,
	}
}

// ParsePlatform validates a raw platform identifier.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if _, ok := registry[p]; !ok {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}
