// Package geoip resolves client IP addresses to ISO country codes using
// a local MaxMind country database. The database file is optional:
// without it every lookup returns an empty country and click events are
// simply stored without geo data.
package geoip

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Resolver answers country lookups for click tracking.
type Resolver struct {
	reader *geoip2.Reader
}

// New opens the MaxMind database at the given path. An empty path
// returns a disabled resolver.
func New(dbPath string) (*Resolver, error) {
	if dbPath == "" {
		return &Resolver{}, nil
	}

	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("in internal/geoip/geoip.go/New(): error while `geoip2.Open()` calling: %w", err)
	}

	return &Resolver{reader: reader}, nil
}

// CountryCode returns the ISO 3166-1 alpha-2 code for the given IP, or
// an empty string when the resolver is disabled, the IP is invalid or
// the address is not in the database.
func (r *Resolver) CountryCode(ipAddress string) string {
	if r.reader == nil {
		return ""
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return ""
	}

	record, err := r.reader.Country(ip)
	if err != nil {
		return ""
	}

	return record.Country.IsoCode
}

// CountryName maps an ISO code to a display name for analytics
// responses. Unknown codes map to themselves.
func (r *Resolver) CountryName(code string) string {
	return CountryName(code)
}

// CountryName maps an ISO code to a display name. Unknown codes map to
// themselves.
func CountryName(code string) string {
	if name, ok := countryNames[code]; ok {
		return name
	}

	return code
}

// Close releases the database reader.
func (r *Resolver) Close() error {
	if r.reader == nil {
		return nil
	}

	return r.reader.Close()
}

var countryNames = map[string]string{
	"US": "United States",
	"GB": "United Kingdom",
	"CA": "Canada",
	"AU": "Australia",
	"DE": "Germany",
	"FR": "France",
	"IT": "Italy",
	"ES": "Spain",
	"NL": "Netherlands",
	"BR": "Brazil",
	"JP": "Japan",
	"CN": "China",
	"IN": "India",
	"MX": "Mexico",
	"AR": "Argentina",
	"CL": "Chile",
	"CO": "Colombia",
	"PE": "Peru",
	"RU": "Russia",
	"UA": "Ukraine",
	"PL": "Poland",
	"SE": "Sweden",
	"NO": "Norway",
	"DK": "Denmark",
	"FI": "Finland",
	"CH": "Switzerland",
	"AT": "Austria",
	"BE": "Belgium",
	"PT": "Portugal",
	"IE": "Ireland",
	"NZ": "New Zealand",
	"ZA": "South Africa",
	"EG": "Egypt",
	"NG": "Nigeria",
	"KE": "Kenya",
	"MA": "Morocco",
	"TH": "Thailand",
	"VN": "Vietnam",
	"SG": "Singapore",
	"MY": "Malaysia",
	"ID": "Indonesia",
	"PH": "Philippines",
	"KR": "South Korea",
	"TR": "Turkey",
	"SA": "Saudi Arabia",
	"AE": "UAE",
	"IL": "Israel",
	"QA": "Qatar",
}
