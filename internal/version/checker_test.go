package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNewer(t *testing.T) {
	tests := []struct {
		name     string
		latest   string
		current  string
		expected bool
	}{
		{"same version", "0.1.0", "0.1.0", false},
		{"patch upgrade", "0.1.1", "0.1.0", true},
		{"minor downgrade", "0.0.9", "0.1.0", false},
		{"major upgrade", "1.0.0", "0.9.9", true},
		{"multi-digit patch", "0.0.100", "0.0.99", true},
		{"shorter latest", "1.0", "0.9.3", true},
		{"shorter current", "0.9.3", "1.0", false},
		{"pre-release same base", "0.1.0-rc1", "0.1.0", false},
		{"build metadata", "0.1.1+abc", "0.1.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNewer(tt.latest, tt.current))
		})
	}
}

func TestChecker_Check(t *testing.T) {
	userAgents := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgents <- r.Header.Get("User-Agent")
		w.Write([]byte(`{"tag_name": "v0.2.0", "name": "0.2.0", "html_url": "https://example.com/r/0.2.0"}`))
	}))
	defer server.Close()

	checker := &Checker{URL: server.URL, Client: server.Client()}

	release, newer, err := checker.Check(context.Background(), "0.1.0")
	require.NoError(t, err)
	assert.True(t, newer)
	assert.Equal(t, "towered/0.1.0", <-userAgents)
	assert.Equal(t, "0.2.0", release.Version())
	assert.Equal(t, "https://example.com/r/0.2.0", release.HTMLURL)

	_, newer, err = checker.Check(context.Background(), "v0.2.0")
	require.NoError(t, err)
	assert.False(t, newer, "a v-prefixed current version compares equal")
	assert.Equal(t, "towered/v0.2.0", <-userAgents)
}

func TestChecker_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"not found", http.StatusNotFound, `{}`, "unexpected status code: 404"},
		{"bad json", http.StatusOK, `{`, "failed to decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, _, err := (&Checker{URL: server.URL}).Check(context.Background(), "0.1.0")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
