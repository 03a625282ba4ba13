package evidence

import (
	"testing"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAssemble_NoEvidenceGivesSentinels(t *testing.T) {
	ev := Assemble("1", nil, nil)
	assert.Equal(t, models.EmptyEvidence(), ev)

	ev = Assemble("1", &models.StaticResult{}, &models.DynamicResult{})
	assert.Equal(t, models.EmptyEvidence(), ev)
}

func TestAssemble_UnknownIDContributesNothing(t *testing.T) {
	static := &models.StaticResult{Assessments: []models.StaticVerdict{{
		VulnerabilityID: "2",
		CodeLocations:   []string{"app.py:1-2"},
		Evidence:        "raw query",
	}}}

	assert.Equal(t, models.EmptyEvidence(), Assemble("1", static, nil))
}

func TestAssemble_StaticOnly(t *testing.T) {
	static := &models.StaticResult{Assessments: []models.StaticVerdict{{
		VulnerabilityID: "1",
		MatchedFindings: []string{"python.sqli.raw-query", "python.sqli.format"},
		CodeLocations:   []string{"app/db.py:10-12", "app/users.py: Found SELECT pattern"},
		Evidence:        "User input concatenated into SQL",
	}}}

	ev := Assemble("1", static, nil)

	assert.Equal(t, "python.sqli.raw-query; python.sqli.format", ev.VulnerableCodeSnippet)
	assert.Equal(t, "app/db.py:10-12; app/users.py: Found SELECT pattern", ev.FileLocation)
	assert.Equal(t, "Static Analysis PoC: User input concatenated into SQL", ev.ProofOfConcept)
	assert.Equal(t, models.NoHTTPRequest, ev.HTTPRequestExample)
	assert.Equal(t, models.NoHTTPResponse, ev.HTTPResponseExample)
	assert.Equal(t, models.NoPayload, ev.ExploitationPayload)
}

func TestAssemble_DynamicGET(t *testing.T) {
	dynamic := &models.DynamicResult{Results: []models.DynamicVerdict{{
		VulnerabilityID: "1",
		Attempts: []models.Attempt{{
			Method:       "GET",
			Endpoint:     "/api/fetch",
			Payload:      "url=http://internal/secret",
			StatusCode:   200,
			ResponseSize: 512,
			Evidence:     "internal secret leaked",
		}},
	}}}

	ev := Assemble("1", nil, dynamic)

	assert.Equal(t, "GET /api/fetch?url=http://internal/secret HTTP/1.1", ev.HTTPRequestExample)
	assert.Equal(t, "HTTP/1.1 200\nContent-Length: 512", ev.HTTPResponseExample)
	assert.Equal(t, "url=http://internal/secret", ev.ExploitationPayload)
	assert.Equal(t, "Dynamic Analysis PoC: internal secret leaked", ev.ProofOfConcept)
	assert.Equal(t, models.NoCodeEvidence, ev.VulnerableCodeSnippet)
	assert.Equal(t, models.NoLocation, ev.FileLocation)
}

func TestAssemble_StaticThenDynamicPoCAppended(t *testing.T) {
	static := &models.StaticResult{Assessments: []models.StaticVerdict{{VulnerabilityID: "4", Evidence: "no CSRF token check"}}}
	dynamic := &models.DynamicResult{Results: []models.DynamicVerdict{{
		VulnerabilityID: "4",
		Attempts: []models.Attempt{{
			Method:       "POST",
			Endpoint:     "/transfer",
			Parameter:    "amount",
			Payload:      "1000",
			StatusCode:   302,
			ResponseSize: 0,
			Evidence:     "Transfer accepted without token",
		}},
	}}}

	ev := Assemble("4", static, dynamic)

	assert.Equal(t,
		"Static Analysis PoC: no CSRF token check; Dynamic Analysis PoC: Transfer accepted without token",
		ev.ProofOfConcept)
	assert.Equal(t,
		"POST /transfer HTTP/1.1\nContent-Type: application/x-www-form-urlencoded\n\namount=1000",
		ev.HTTPRequestExample)
	assert.Equal(t, "HTTP/1.1 302\nContent-Length: 0", ev.HTTPResponseExample)
	assert.Equal(t, "1000", ev.ExploitationPayload)
}

func TestAssemble_TransportErrorKeepsResponseSentinel(t *testing.T) {
	dynamic := &models.DynamicResult{Results: []models.DynamicVerdict{{
		VulnerabilityID: "1",
		Attempts: []models.Attempt{{
			Method:   "GET",
			Endpoint: "/api/fetch",
			Payload:  "url=x",
			Error:    "connection refused",
		}},
	}}}

	ev := Assemble("1", nil, dynamic)

	assert.Equal(t, "GET /api/fetch?url=x HTTP/1.1", ev.HTTPRequestExample)
	assert.Equal(t, models.NoHTTPResponse, ev.HTTPResponseExample)
	assert.Equal(t, models.NoProofOfConcept, ev.ProofOfConcept)
}

func TestRenderRequest(t *testing.T) {
	tests := []struct {
		name     string
		attempt  models.Attempt
		expected string
	}{
		{"get with parameter", models.Attempt{Method: "GET", Endpoint: "/search", Parameter: "q", Payload: "<script>"}, "GET /search?q=<script> HTTP/1.1"},
		{"get without payload", models.Attempt{Method: "GET", Endpoint: "/admin"}, "GET /admin HTTP/1.1"},
		{"post raw payload", models.Attempt{Method: "post", Endpoint: "/login", Payload: "user=a&pass=b"}, "POST /login HTTP/1.1\nContent-Type: application/x-www-form-urlencoded\n\nuser=a&pass=b"},
		{"delete without body", models.Attempt{Method: "DELETE", Endpoint: "/users/1"}, "DELETE /users/1 HTTP/1.1"},
		{"missing endpoint", models.Attempt{Method: "GET", Payload: "x"}, ""},
		{"missing method", models.Attempt{Endpoint: "/x"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RenderRequest(tt.attempt))
		})
	}
}
