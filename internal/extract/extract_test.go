package extract

import (
	"fmt"
	"testing"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRequest_SSRFScenario(t *testing.T) {
	claim := models.VulnerabilityClaim{
		ID:                 "1",
		Type:               "SSRF",
		AffectedComponents: []string{"/api/fetch"},
		ProofOfConcept:     "GET /api/fetch?url=http://internal/secret HTTP/1.1",
	}

	got := Request(claim)

	assert.Equal(t, models.NormalizedRequest{
		Method:    "GET",
		Endpoint:  "/api/fetch",
		Payload:   "url=http://internal/secret",
		Parameter: "",
	}, got)
}

func TestRequest_GetRequestLineInPoC(t *testing.T) {
	cases := []struct {
		path  string
		query string
	}{
		{"/search", "q=test"},
		{"/api/v1/items", "id=1&sort=asc"},
		{"/view.php", "file=../../etc/passwd"},
		{"/redirect", "next=http://evil.example/"},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			claim := models.VulnerabilityClaim{
				ProofOfConcept: fmt.Sprintf("Send GET %s?%s HTTP/1.1 and observe the response", tc.path, tc.query),
			}

			got := Request(claim)

			assert.Equal(t, "GET", got.Method)
			assert.Equal(t, tc.path, got.Endpoint, "Endpoint must be the path without the query string")
			assert.Equal(t, tc.query, got.Payload)
		})
	}
}

func TestRequest_PostSubstringWins(t *testing.T) {
	pocs := []string{
		"Submit a POST with username=admin'-- to the form",
		"curl -X POST http://target/login -d 'a=b'",
		"GET /form?x=1 first, then POST the token back",
	}

	for _, poc := range pocs {
		got := Request(models.VulnerabilityClaim{AffectedComponents: []string{"/login"}, ProofOfConcept: poc})
		assert.Equal(t, "POST", got.Method, "poc: %s", poc)
	}
}

func TestRequest_MethodPriority(t *testing.T) {
	got := Request(models.VulnerabilityClaim{AffectedComponents: []string{"/x"}, ProofOfConcept: "use PUT or DELETE"})
	assert.Equal(t, "PUT", got.Method, "PUT is checked before DELETE")

	got = Request(models.VulnerabilityClaim{AffectedComponents: []string{"/x"}, ProofOfConcept: "just DELETE it"})
	assert.Equal(t, "DELETE", got.Method)

	got = Request(models.VulnerabilityClaim{AffectedComponents: []string{"/x"}, ProofOfConcept: "open the page"})
	assert.Equal(t, "GET", got.Method)
}

func TestRequest_CapturedVerb(t *testing.T) {
	got := Request(models.VulnerabilityClaim{ProofOfConcept: "DELETE /api/users/5 HTTP/1.1"})

	assert.Equal(t, "DELETE", got.Method)
	assert.Equal(t, "/api/users/5", got.Endpoint)
}

func TestRequest_ExplicitFieldsWin(t *testing.T) {
	claim := models.VulnerabilityClaim{
		Method:             "put",
		Endpoint:           "/api/profile",
		Payload:            "role=admin",
		Parameter:          "data",
		AffectedComponents: []string{"/other"},
		ProofOfConcept:     "POST /ignored?x=1",
	}

	got := Request(claim)

	assert.Equal(t, models.NormalizedRequest{Method: "PUT", Endpoint: "/api/profile", Payload: "role=admin", Parameter: "data"}, got)
}

func TestRequest_AliasFields(t *testing.T) {
	got := Request(models.VulnerabilityClaim{URL: "/api/a", Exploit: "<svg>", Param: "q"})

	assert.Equal(t, "/api/a", got.Endpoint)
	assert.Equal(t, "<svg>", got.Payload)
	assert.Equal(t, "q", got.Parameter)
}

func TestRequest_RootEndpointIgnored(t *testing.T) {
	got := Request(models.VulnerabilityClaim{Endpoint: "/", AffectedComponents: []string{"/admin"}})
	assert.Equal(t, "/admin", got.Endpoint)
}

func TestRequest_PostPayloadPatterns(t *testing.T) {
	got := Request(models.VulnerabilityClaim{ProofOfConcept: `POST /login with payload="admin"`})
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "/login", got.Endpoint)
	assert.Equal(t, "admin", got.Payload)

	got = Request(models.VulnerabilityClaim{
		AffectedComponents: []string{"/login"},
		ProofOfConcept:     "Send POST body password=hunter2&remember=1",
	})
	assert.Equal(t, "hunter2", got.Payload)
}

func TestRequest_InjectionMarkers(t *testing.T) {
	got := Request(models.VulnerabilityClaim{
		AffectedComponents: []string{"/download"},
		ProofOfConcept:     "Request file=../../etc/passwd to read system files",
	})
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, "../../etc/passwd", got.Payload)

	got = Request(models.VulnerabilityClaim{
		AffectedComponents: []string{"/comment"},
		ProofOfConcept:     `Inject "<script>alert(1)</script>" into the comment box`,
	})
	assert.Contains(t, got.Payload, "<script>")
}

func TestRequest_ParameterNeverInferred(t *testing.T) {
	got := Request(models.VulnerabilityClaim{ProofOfConcept: "GET /a?id=1 parameter id is injectable"})
	assert.Equal(t, "", got.Parameter)
}

func TestRequest_Untestable(t *testing.T) {
	got := Request(models.VulnerabilityClaim{ID: "9", Title: "Vague finding", Description: "something is wrong"})

	assert.True(t, got.Empty())
	assert.Equal(t, models.NormalizedRequest{}, got)
}

func TestRequest_VerbMustBeWholeWord(t *testing.T) {
	got := Request(models.VulnerabilityClaim{ProofOfConcept: "TARGET /admin and FORGET it"})
	assert.Equal(t, models.NormalizedRequest{}, got)

	got = Request(models.VulnerabilityClaim{ProofOfConcept: "TARGET /admin, then GET /search?q=1"})
	assert.Equal(t, "/search", got.Endpoint)
	assert.Equal(t, "GET", got.Method)
}
