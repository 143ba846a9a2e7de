// Package ipchecker provides utilities for extracting the real client
// IP address from HTTP requests behind proxies and load balancers.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client's IP address from an HTTP request,
// checking in order: the "X-Forwarded-For" header (first entry), the
// "X-Real-IP" header, and finally the request's RemoteAddr field.
//
// Returns the parsed IP address or an error if extraction fails.
func GetClientIP(request *http.Request) (net.IP, error) {
	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		ip := net.ParseIP(strings.TrimSpace(ips[0]))
		if ip != nil {
			return ip, nil
		}
	}

	if realIP := request.Header.Get("X-Real-IP"); realIP != "" {
		ip := net.ParseIP(realIP)
		if ip != nil {
			return ip, nil
		}
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		// RemoteAddr may already be a bare IP (no port) in tests.
		if ip := net.ParseIP(request.RemoteAddr); ip != nil {
			return ip, nil
		}
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/GetClientIP(): error while `net.SplitHostPort()` calling: %w", err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("cannot parse client IP from %q", request.RemoteAddr)
	}

	return ip, nil
}

// ClientIPString returns the client IP as a string, or an empty string
// when it cannot be determined. Click tracking uses it so a bad header
// never fails the redirect.
func ClientIPString(request *http.Request) string {
	ip, err := GetClientIP(request)
	if err != nil {
		return ""
	}

	return ip.String()
}
