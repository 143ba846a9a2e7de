// Package hostchecker validates the Host header of incoming requests
// against a configured allow list. Entries are exact hostnames or
// wildcards of the form "*.example.com".
package hostchecker

import (
	"net"
	"net/http"
	"strings"
)

// HostChecker rejects requests addressed to hosts outside the allow
// list. An empty list disables the check.
type HostChecker struct {
	exact     map[string]bool
	wildcards []string
}

// New creates a HostChecker from the configured ALLOWED_HOSTS entries.
func New(allowedHosts []string) *HostChecker {
	checker := &HostChecker{
		exact: map[string]bool{},
	}

	for _, host := range allowedHosts {
		host = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(host, ",")))
		if host == "" {
			continue
		}
		if strings.HasPrefix(host, "*.") {
			checker.wildcards = append(checker.wildcards, strings.TrimPrefix(host, "*"))
			continue
		}
		checker.exact[host] = true
	}

	return checker
}

// Check reports whether the given Host header value is allowed.
func (checker *HostChecker) Check(hostHeader string) bool {
	if len(checker.exact) == 0 && len(checker.wildcards) == 0 {
		return true
	}

	host := strings.ToLower(hostHeader)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if checker.exact[host] {
		return true
	}

	for _, suffix := range checker.wildcards {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}

	return false
}

// Middleware returns 400 for requests addressed to untrusted hosts.
func (checker *HostChecker) Middleware(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !checker.Check(request.Host) {
			http.Error(response, "invalid host header", http.StatusBadRequest)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
