package exploit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/BetterCallFirewall/Revalidator/internal/llm"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticReasoner(reply string) llm.Reasoner {
	return llm.ReasonerFunc(func(context.Context, string) (string, error) {
		return reply, nil
	})
}

func newTestExecutor(reasoner llm.Reasoner) *Executor {
	return NewExecutor(NewNetHTTPClient(nil, 0, 0), reasoner, "", nil)
}

func serve(t *testing.T, status int, contentType, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Header().Set("Server", "nginx")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func ssrfClaim(id string) models.VulnerabilityClaim {
	return models.VulnerabilityClaim{
		ID:                 models.ClaimID(id),
		Title:              "SSRF in fetch",
		Type:               "SSRF",
		AffectedComponents: []string{"/api/fetch"},
		ProofOfConcept:     "GET /api/fetch?url=http://internal/secret HTTP/1.1",
	}
}

func TestExecutor_ConfirmedByReasoner(t *testing.T) {
	var gotUA, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, "internal secret: s3cr3t")
	}))
	defer ts.Close()

	e := newTestExecutor(staticReasoner(`Analysis: {"vulnerable": true, "evidence": "internal secret leaked", "confidence": "high"}`))

	verdict := e.Test(context.Background(), ts.URL, ssrfClaim("1"))

	assert.Equal(t, models.DynamicConfirmed, verdict.Status)
	assert.Equal(t, models.ConfidenceHigh, verdict.Confidence)
	require.Len(t, verdict.Attempts, 1)

	attempt := verdict.Attempts[0]
	assert.Equal(t, "internal secret leaked", attempt.Evidence)
	assert.Equal(t, http.StatusOK, attempt.StatusCode)
	assert.Equal(t, ts.URL+"/api/fetch?url=http://internal/secret", attempt.URL)
	assert.Empty(t, attempt.Error)
	assert.Equal(t, "VulnerabilityValidator/1.0", gotUA)
	assert.Equal(t, "url=http://internal/secret", gotQuery)
}

func TestExecutor_HeuristicFallbackWhenReasonerUnavailable(t *testing.T) {
	ts, _ := serve(t, http.StatusOK, "text/plain", "root:x:0:0:root:/root:/bin/bash")
	e := newTestExecutor(llm.Unavailable{})

	claim := models.VulnerabilityClaim{
		ID:       "7",
		Type:     "Path Traversal",
		Method:   "GET",
		Endpoint: "/download",
		Payload:  "file=../../etc/passwd",
	}
	verdict := e.Test(context.Background(), ts.URL, claim)

	assert.Equal(t, models.DynamicConfirmed, verdict.Status)
	require.Len(t, verdict.Attempts, 1)
	assert.Equal(t, "root:", verdict.Attempts[0].Indicator)
	assert.Equal(t, "Potential vulnerability indicator detected: root:", verdict.Attempts[0].Evidence)
}

func TestExecutor_UnparseableReplyUsesHeuristics(t *testing.T) {
	ts, _ := serve(t, http.StatusOK, "text/html", "<html><body>You have an error in your SQL syntax</body></html>")
	e := newTestExecutor(staticReasoner("I think it is probably vulnerable"))

	verdict := e.Test(context.Background(), ts.URL, ssrfClaim("2"))

	assert.Equal(t, models.DynamicConfirmed, verdict.Status)
	assert.Equal(t, "error", verdict.Attempts[0].Indicator)
	assert.Contains(t, verdict.Attempts[0].Evidence, "SQL error detected")
}

func TestExecutor_SecondarySignals(t *testing.T) {
	notVulnerable := staticReasoner(`{"vulnerable": false, "evidence": "payload not reflected"}`)

	t.Run("server error", func(t *testing.T) {
		ts, _ := serve(t, http.StatusInternalServerError, "text/plain", "oops")
		verdict := newTestExecutor(notVulnerable).Test(context.Background(), ts.URL, ssrfClaim("1"))

		assert.Equal(t, models.DynamicPossible, verdict.Status)
		assert.Equal(t, models.ConfidenceMedium, verdict.Confidence)
		assert.Equal(t, "Server error response: 500", verdict.Attempts[0].Evidence)
	})

	t.Run("generic error words", func(t *testing.T) {
		ts, _ := serve(t, http.StatusOK, "text/plain", "Warning: upstream lookup failed")
		verdict := newTestExecutor(notVulnerable).Test(context.Background(), ts.URL, ssrfClaim("1"))

		assert.Equal(t, models.DynamicPossible, verdict.Status)
		assert.Equal(t, "Error messages detected in response", verdict.Attempts[0].Evidence)
	})

	t.Run("nothing matched", func(t *testing.T) {
		ts, _ := serve(t, http.StatusOK, "text/plain", "ok")
		verdict := newTestExecutor(notVulnerable).Test(context.Background(), ts.URL, ssrfClaim("1"))

		assert.Equal(t, models.DynamicNotReproducible, verdict.Status)
		assert.Equal(t, models.ConfidenceLow, verdict.Confidence)
		assert.Equal(t, "payload not reflected", verdict.Attempts[0].Evidence)
	})
}

func TestExecutor_ResponseBodyCappedForReasoner(t *testing.T) {
	body := strings.Repeat("a", 5000)
	ts, _ := serve(t, http.StatusOK, "text/plain", body)

	var prompt string
	reasoner := llm.ReasonerFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return `{"vulnerable": false}`, nil
	})

	verdict := newTestExecutor(reasoner).Test(context.Background(), ts.URL, ssrfClaim("1"))

	attempt := verdict.Attempts[0]
	assert.Equal(t, 5000, attempt.ResponseSize)
	assert.Len(t, attempt.BodySample, 2000)
	assert.Contains(t, prompt, strings.Repeat("a", 2000))
	assert.NotContains(t, prompt, strings.Repeat("a", 2001))
}

func TestExecutor_PageEnrichment(t *testing.T) {
	page := `<html><head><title>Login</title></head><body>
<form method="post"><input name="username"><input name="csrf_token" type="hidden"></form>
</body></html>`
	ts, _ := serve(t, http.StatusOK, "text/html; charset=utf-8", page)

	verdict := newTestExecutor(staticReasoner(`{"vulnerable": false, "evidence": "login page"}`)).
		Test(context.Background(), ts.URL, ssrfClaim("1"))

	attempt := verdict.Attempts[0]
	assert.Equal(t, "Login", attempt.PageTitle)
	assert.Equal(t, []string{"username", "csrf_token"}, attempt.FormFields)
	assert.Equal(t, "text/html; charset=utf-8", attempt.Headers["Content-Type"])
	assert.Equal(t, "nginx", attempt.Headers["Server"])
}

func TestExecutor_UntestableClaimSendsNothing(t *testing.T) {
	ts, hits := serve(t, http.StatusOK, "text/plain", "ok")

	claim := models.VulnerabilityClaim{ID: "3", Title: "Weak password policy", Description: "Passwords may be short"}
	verdict := newTestExecutor(llm.Unavailable{}).Test(context.Background(), ts.URL, claim)

	assert.True(t, verdict.Untestable)
	assert.Equal(t, models.DynamicNotReproducible, verdict.Status)
	assert.Equal(t, models.ConfidenceLow, verdict.Confidence)
	assert.Empty(t, verdict.Attempts)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestExecutor_ConnectionErrorDoesNotStopBatch(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	live, hits := serve(t, http.StatusOK, "text/plain", "root:x:0:0")

	broken := models.VulnerabilityClaim{
		ID:       "1",
		Type:     "SSRF",
		Method:   "GET",
		Endpoint: deadURL + "/api/fetch",
		Payload:  "url=http://internal/",
	}
	working := models.VulnerabilityClaim{
		ID:       "2",
		Type:     "LFI",
		Method:   "GET",
		Endpoint: "/download",
		Payload:  "file=../../etc/passwd",
	}

	result := newTestExecutor(llm.Unavailable{}).TestAll(
		context.Background(), live.URL, []models.VulnerabilityClaim{broken, working}, 2,
	)

	require.Len(t, result.Results, 2)

	first := result.Results[0]
	assert.Equal(t, models.ClaimID("1"), first.VulnerabilityID)
	assert.Equal(t, models.DynamicNotReproducible, first.Status)
	require.Len(t, first.Attempts, 1)
	assert.NotEmpty(t, first.Attempts[0].Error)

	second := result.Results[1]
	assert.Equal(t, models.ClaimID("2"), second.VulnerabilityID)
	assert.Equal(t, models.DynamicConfirmed, second.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	assert.Equal(t, models.DynamicSummary{Tested: 2, Confirmed: 1, NotReproducible: 1}, result.Summary)
}

func TestExecutor_TestAllEmpty(t *testing.T) {
	result := newTestExecutor(nil).TestAll(context.Background(), "http://target", nil, 4)

	assert.Equal(t, "http://target", result.TargetURL)
	assert.Empty(t, result.Results)
	assert.Equal(t, models.DynamicSummary{}, result.Summary)
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]models.DynamicVerdict{
		{Status: models.DynamicConfirmed},
		{Status: models.DynamicPossible},
		{Status: models.DynamicNotReproducible},
		{Status: models.DynamicNotReproducible, Untestable: true},
	})

	assert.Equal(t, models.DynamicSummary{Tested: 3, Confirmed: 1, Possible: 1, NotReproducible: 1, Untestable: 1}, summary)
}
