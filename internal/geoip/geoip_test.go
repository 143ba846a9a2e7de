package geoip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledResolver(t *testing.T) {
	resolver, err := New("")
	require.NoError(t, err)

	assert.Empty(t, resolver.CountryCode("8.8.8.8"))
	require.NoError(t, resolver.Close())
}

func TestNewRejectsMissingDatabase(t *testing.T) {
	_, err := New("/nonexistent/GeoLite2-Country.mmdb")
	require.Error(t, err)
}

func TestCountryName(t *testing.T) {
	assert.Equal(t, "United States", CountryName("US"))
	assert.Equal(t, "Germany", CountryName("DE"))
	assert.Equal(t, "ZZ", CountryName("ZZ"), "unknown codes map to themselves")

	resolver, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "United Kingdom", resolver.CountryName("GB"))
}
