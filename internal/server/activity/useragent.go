package activity

import "strings"

// Unknown is the fallback classification for any unrecognized user agent.
const Unknown = "Unknown"

// Client is the best-effort classification of a user-agent string.
type Client struct {
	Browser string
	OS      string
	Device  string
}

// Classify inspects a declared user-agent string and returns a coarse
// browser/OS/device classification. It is substring matching only, defaults
// to Unknown, and never errors.
func Classify(userAgent string) Client {
	ua := strings.ToLower(userAgent)

	c := Client{Browser: Unknown, OS: Unknown, Device: Unknown}
	if ua == "" {
		return c
	}

	switch {
	case strings.Contains(ua, "firefox"):
		c.Browser = "Firefox"
	case strings.Contains(ua, "edg"):
		// Edge ships "edg/" tokens and also claims Chrome, so check it first.
		c.Browser = "Edge"
	case strings.Contains(ua, "chrome"):
		c.Browser = "Chrome"
	case strings.Contains(ua, "safari"):
		c.Browser = "Safari"
	}

	switch {
	case strings.Contains(ua, "windows"):
		c.OS = "Windows"
	case strings.Contains(ua, "android"):
		c.OS = "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		c.OS = "iOS"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		c.OS = "macOS"
	case strings.Contains(ua, "linux"):
		c.OS = "Linux"
	}

	switch {
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		c.Device = "Tablet"
	case strings.Contains(ua, "mobi"), strings.Contains(ua, "iphone"), strings.Contains(ua, "android"):
		c.Device = "Mobile"
	default:
		c.Device = "Desktop"
	}

	return c
}
