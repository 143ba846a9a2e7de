package ipchecker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "remote_addr_only",
			remoteAddr: "192.0.2.10:54321",
			expected:   "192.0.2.10",
		},
		{
			name:       "x_real_ip",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.5"},
			expected:   "203.0.113.5",
		},
		{
			name:       "x_forwarded_for_single",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.7"},
			expected:   "198.51.100.7",
		},
		{
			name:       "x_forwarded_for_chain_takes_first",
			remoteAddr: "10.0.0.1:1234",
			headers: map[string]string{
				"X-Forwarded-For": "198.51.100.7, 10.0.0.2, 10.0.0.3",
			},
			expected: "198.51.100.7",
		},
		{
			name:       "forwarded_for_wins_over_real_ip",
			remoteAddr: "10.0.0.1:1234",
			headers: map[string]string{
				"X-Forwarded-For": "198.51.100.7",
				"X-Real-IP":       "203.0.113.5",
			},
			expected: "198.51.100.7",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = testCase.remoteAddr
			for name, value := range testCase.headers {
				req.Header.Set(name, value)
			}

			ip, err := GetClientIP(req)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, ip.String())
			assert.Equal(t, testCase.expected, ClientIPString(req))
		})
	}
}

func TestGetClientIPInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "not-an-address"

	_, err := GetClientIP(req)
	require.Error(t, err)
	assert.Empty(t, ClientIPString(req))
}
