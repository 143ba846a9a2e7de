// Package useragentinfo classifies User-Agent strings into the device
// type and browser family recorded with click events.
package useragentinfo

import (
	"github.com/mileusna/useragent"
)

// Info is the classification of a single User-Agent string.
type Info struct {
	// DeviceType is one of "mobile", "tablet", "desktop" or "unknown".
	DeviceType string

	// Browser is the browser family, or "unknown".
	Browser string
}

// Parse classifies the given User-Agent header value.
// An empty input yields unknown/unknown.
func Parse(userAgent string) Info {
	info := Info{
		DeviceType: "unknown",
		Browser:    "unknown",
	}

	if userAgent == "" {
		return info
	}

	ua := useragent.Parse(userAgent)
	switch {
	case ua.Mobile:
		info.DeviceType = "mobile"
	case ua.Tablet:
		info.DeviceType = "tablet"
	case ua.Desktop:
		info.DeviceType = "desktop"
	}

	if ua.Name != "" {
		info.Browser = ua.Name
	}

	return info
}
