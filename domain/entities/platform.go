package entities

import "fmt"

// Platform is the surface an application is built for.
type Platform string

// Supported platforms.
const (
	PlatformWeb     Platform = "web"
	PlatformDesktop Platform = "desktop"
)

// ParsePlatform validates a platform name.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformWeb, PlatformDesktop:
		return Platform(s), nil
	default:
		return "", fmt.Errorf("unknown platform %q (want web or desktop)", s)
	}
}
