package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("ARCHIVE_BROWSE_WS_JSON_01_SERVICE", `{"service": {"port": "8080"}}`)
	t.Setenv("ARCHIVE_BROWSE_WS_JSON_02_ARCHIVE", `{"archive": {"host": "https://archive.org", "conn_timeout": "5", "read_timeout": "10"}}`)

	cfg := loadConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "8080", cfg.Service.Port)
	assert.Equal(t, "https://archive.org", cfg.Archive.Host)
}

func TestLoadConfigSearchDefaults(t *testing.T) {
	t.Setenv("ARCHIVE_BROWSE_WS_JSON_01_SERVICE", `{"service": {"port": "8080"}}`)

	cfg := loadConfig()

	assert.Equal(t, 50, cfg.Search.DefaultRows)
	assert.Equal(t, 1000, cfg.Search.DebounceMS)
	assert.Equal(t, 100, cfg.Search.ThrottleMS)
	assert.Equal(t, 50, cfg.Search.FacetsPerPage)
	assert.Equal(t, 2000, cfg.Search.FacetRetryMS)
}

func TestLoadConfigConvenienceOverride(t *testing.T) {
	t.Setenv("ARCHIVE_BROWSE_WS_JSON_01_ARCHIVE", `{"archive": {"host": "https://archive.org"}}`)
	t.Setenv("ARCHIVE_BROWSE_WS_ARCHIVE_HOST", "https://other.example.org")

	cfg := loadConfig()

	assert.Equal(t, "https://other.example.org", cfg.Archive.Host)
}
