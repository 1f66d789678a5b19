package session

import "strings"

// SummarizeUserAgent reduces a raw User-Agent header to the browser/OS/device
// triple stored on the record. It is a display aid, not a fingerprint; unknown
// agents fall through to the raw product token.
func SummarizeUserAgent(ua string) Device {
	d := Device{Browser: "Unknown Browser", OS: "Unknown OS", Device: "Desktop/Unknown"}
	if strings.TrimSpace(ua) == "" {
		return d
	}
	lower := strings.ToLower(ua)

	switch {
	case strings.Contains(lower, "edg/"):
		d.Browser = "Edge"
	case strings.Contains(lower, "opr/") || strings.Contains(lower, "opera"):
		d.Browser = "Opera"
	case strings.Contains(lower, "firefox/"):
		d.Browser = "Firefox"
	case strings.Contains(lower, "chrome/"):
		d.Browser = "Chrome"
	case strings.Contains(lower, "safari/"):
		d.Browser = "Safari"
	case strings.Contains(lower, "curl/"):
		d.Browser = "curl"
	default:
		if tok, _, ok := strings.Cut(ua, " "); ok || tok != "" {
			d.Browser = tok
		}
	}

	switch {
	case strings.Contains(lower, "windows"):
		d.OS = "Windows"
	case strings.Contains(lower, "android"):
		d.OS = "Android"
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"), strings.Contains(lower, "ios"):
		d.OS = "iOS"
	case strings.Contains(lower, "mac os"), strings.Contains(lower, "macintosh"):
		d.OS = "macOS"
	case strings.Contains(lower, "linux"):
		d.OS = "Linux"
	}

	switch {
	case strings.Contains(lower, "iphone"):
		d.Device = "iPhone"
	case strings.Contains(lower, "ipad"):
		d.Device = "iPad"
	case strings.Contains(lower, "android") && strings.Contains(lower, "mobile"):
		d.Device = "Android Phone"
	case strings.Contains(lower, "android"):
		d.Device = "Android Tablet"
	}
	return d
}
