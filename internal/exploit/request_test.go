package exploit

import (
	"testing"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ua = "VulnerabilityValidator/1.0"

func TestBuildRequest_GET(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		request  models.NormalizedRequest
		expected string
	}{
		{
			name:     "bare query payload",
			base:     "http://target:8080",
			request:  models.NormalizedRequest{Method: "GET", Endpoint: "/api/fetch", Payload: "url=http://internal/secret"},
			expected: "http://target:8080/api/fetch?url=http://internal/secret",
		},
		{
			name:     "named parameter",
			base:     "http://target",
			request:  models.NormalizedRequest{Method: "get", Endpoint: "/search", Payload: "<b>x</b>", Parameter: "q"},
			expected: "http://target/search?q=%3Cb%3Ex%3C/b%3E",
		},
		{
			name:     "existing query merged with ampersand",
			base:     "http://target",
			request:  models.NormalizedRequest{Method: "GET", Endpoint: "/items?page=2", Payload: "1' OR '1'='1", Parameter: "id"},
			expected: "http://target/items?page=2&id=1%27%20OR%20%271%27=%271",
		},
		{
			name:     "no payload leaves url untouched",
			base:     "http://target",
			request:  models.NormalizedRequest{Method: "GET", Endpoint: "/admin", Parameter: "id"},
			expected: "http://target/admin",
		},
		{
			name:     "empty method defaults to GET",
			base:     "http://target",
			request:  models.NormalizedRequest{Endpoint: "/ping", Payload: "a=b"},
			expected: "http://target/ping?a=b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := BuildRequest(tt.base, tt.request, ua)
			require.NoError(t, err)
			assert.Equal(t, "GET", req.Method)
			assert.Equal(t, tt.expected, req.URL)
			assert.Empty(t, req.Body)
			assert.Equal(t, ua, req.Headers.Get("User-Agent"))
		})
	}
}

func TestBuildRequest_FormBodies(t *testing.T) {
	tests := []struct {
		name    string
		request models.NormalizedRequest
		body    string
	}{
		{
			name:    "single named field",
			request: models.NormalizedRequest{Method: "POST", Endpoint: "/login", Payload: "admin' --", Parameter: "username"},
			body:    "username=admin%27+--",
		},
		{
			name:    "key value pairs",
			request: models.NormalizedRequest{Method: "POST", Endpoint: "/login", Payload: "user=a&pass=b"},
			body:    "pass=b&user=a",
		},
		{
			name:    "opaque payload goes to data",
			request: models.NormalizedRequest{Method: "POST", Endpoint: "/comment", Payload: "<script>"},
			body:    "data=%3Cscript%3E",
		},
		{
			name:    "other verbs use the same rule",
			request: models.NormalizedRequest{Method: "PUT", Endpoint: "/profile", Payload: "x", Parameter: "bio"},
			body:    "bio=x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := BuildRequest("http://target", tt.request, ua)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(req.Body))
			assert.Equal(t, "application/x-www-form-urlencoded", req.Headers.Get("Content-Type"))
		})
	}
}

func TestBuildRequest_NoBodyWithoutPayload(t *testing.T) {
	req, err := BuildRequest("http://target", models.NormalizedRequest{Method: "DELETE", Endpoint: "/users/1"}, ua)
	require.NoError(t, err)

	assert.Equal(t, "DELETE", req.Method)
	assert.Equal(t, "http://target/users/1", req.URL)
	assert.Empty(t, req.Body)
	assert.Empty(t, req.Headers.Get("Content-Type"))
}

func TestBuildRequest_InvalidBase(t *testing.T) {
	_, err := BuildRequest("http://[::1", models.NormalizedRequest{Endpoint: "/x"}, ua)
	assert.Error(t, err)
}
