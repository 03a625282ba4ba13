package static

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BetterCallFirewall/Revalidator/internal/llm"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/BetterCallFirewall/Revalidator/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	report *scanner.ScanReport
}

func (f fakeScanner) Scan(context.Context, string) *scanner.ScanReport {
	return f.report
}

func reply(text string) llm.Reasoner {
	return llm.ReasonerFunc(func(context.Context, string) (string, error) {
		return text, nil
	})
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyze_ScannerExitTwoDegradesToEmptyVerdicts(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "semgrep")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexit 2\n"), 0o755))

	c := NewCorrelator(scanner.NewSemgrep(bin, 5*time.Second, 1000000), llm.Unavailable{}, nil)
	claims := []models.VulnerabilityClaim{{ID: "1", Title: "SQLi", Type: "SQL Injection"}}

	result := c.Analyze(context.Background(), t.TempDir(), claims)

	require.NotNil(t, result)
	assert.NotNil(t, result.Assessments)
	assert.Empty(t, result.Assessments)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Semgrep execution failed")
	assert.True(t, result.ParsingError)
}

func TestCorrelate_FallbackOnUnparseableReply(t *testing.T) {
	findings := []models.ScannerFinding{{RuleID: "a"}, {RuleID: "b"}, {RuleID: "c"}}
	c := NewCorrelator(fakeScanner{}, reply("The code looks fine to me."), nil)

	result := c.Correlate(context.Background(), "/src", findings, []models.VulnerabilityClaim{{ID: "1"}})

	assert.True(t, result.ParsingError)
	assert.Equal(t, "Static analysis completed with limited interpretation", result.AnalysisSummary)
	assert.Empty(t, result.Assessments)
	assert.Equal(t, []models.AdditionalFinding{{
		Type:        "Semgrep Finding",
		Description: "Found 3 potential issues",
		Severity:    "Unknown",
		Location:    "Various files",
	}}, result.AdditionalFindings)
	assert.Equal(t, findings, result.Findings)
}

func TestCorrelate_NormalizesReply(t *testing.T) {
	text := "```json\n" + `{
  "analysis_summary": "One confirmed, one possible",
  "vulnerability_assessments": [
    {"vulnerability_id": 1, "static_status": "vulnerable", "evidence": "raw query", "semgrep_matches": ["sqli-rule"], "code_locations": ["app/db.py:10-12"], "confidence": "High"},
    {"vulnerability_id": "2", "static_status": "Possibly Vulnerable", "evidence": "maybe", "confidence": "Low"},
    {"vulnerability_id": "99", "static_status": "Vulnerable", "evidence": "not in report"},
    {"vulnerability_id": "1", "static_status": "Not Vulnerable", "evidence": "duplicate"}
  ]
}` + "\n```"

	claims := []models.VulnerabilityClaim{{ID: "1", Type: "SSRF"}, {ID: "2", Type: "SSRF"}}
	c := NewCorrelator(fakeScanner{}, reply(text), nil)

	result := c.Correlate(context.Background(), t.TempDir(), nil, claims)

	assert.False(t, result.ParsingError)
	assert.Equal(t, "One confirmed, one possible", result.AnalysisSummary)
	require.Len(t, result.Assessments, 2)

	first := result.Assessments[0]
	assert.Equal(t, models.ClaimID("1"), first.VulnerabilityID)
	assert.Equal(t, models.StaticVulnerable, first.Status)
	assert.Equal(t, []string{"sqli-rule"}, first.MatchedFindings)
	assert.Equal(t, []string{"app/db.py:10-12"}, first.CodeLocations)

	second := result.Assessments[1]
	assert.Equal(t, models.ClaimID("2"), second.VulnerabilityID)
	assert.Equal(t, models.StaticPossible, second.Status)
	assert.NotNil(t, second.MatchedFindings)
	assert.NotNil(t, second.CodeLocations)
	assert.NotNil(t, result.AdditionalFindings)
}

func TestCorrelate_PromptCapsFindings(t *testing.T) {
	findings := make([]models.ScannerFinding, 25)
	for i := range findings {
		findings[i] = models.ScannerFinding{RuleID: fmt.Sprintf("rule-%d", i), Message: "m", Path: "f.py"}
	}

	var prompt string
	r := llm.ReasonerFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return `{"vulnerability_assessments": []}`, nil
	})

	NewCorrelator(fakeScanner{}, r, nil).Correlate(context.Background(), t.TempDir(), findings, nil)

	assert.Contains(t, prompt, "first 20 of 25")
	assert.Contains(t, prompt, "rule-19:")
	assert.NotContains(t, prompt, "rule-20:")
}

func TestCorrelate_SecondaryPassAppendsCodeLocations(t *testing.T) {
	root := t.TempDir()
	usersPy := writeFile(t, root, "app/users.py", `cursor.execute("SELECT * FROM users WHERE id=" + uid)`)
	writeFile(t, root, "app/users.txt", "SELECT")
	writeFile(t, root, "app/orders.py", "SELECT")

	claims := []models.VulnerabilityClaim{{
		ID:                 "1",
		Type:               "SQL Injection",
		AffectedComponents: []string{"Users"},
	}}
	text := `{"vulnerability_assessments": [{"vulnerability_id": "1", "static_status": "Vulnerable", "code_locations": ["app/users.py:1-1"]}]}`

	result := NewCorrelator(fakeScanner{}, reply(text), nil).Correlate(context.Background(), root, nil, claims)

	v, ok := result.Verdict("1")
	require.True(t, ok)
	assert.Equal(t, []string{
		"app/users.py:1-1",
		usersPy + ": Found SELECT pattern; Found execute( pattern",
	}, v.CodeLocations)
}

func TestCorrelate_SecondaryPassInspectsAtMostThreeFiles(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, root, fmt.Sprintf("login/handler%d.js", i), "el.innerHTML = msg")
	}

	claims := []models.VulnerabilityClaim{{ID: "1", Type: "XSS", AffectedComponents: []string{"login"}}}
	text := `{"vulnerability_assessments": [{"vulnerability_id": "1", "static_status": "Possible"}]}`

	result := NewCorrelator(fakeScanner{}, reply(text), nil).Correlate(context.Background(), root, nil, claims)

	v, ok := result.Verdict("1")
	require.True(t, ok)
	require.Len(t, v.CodeLocations, 3)
	for _, loc := range v.CodeLocations {
		assert.Contains(t, loc, ": Found innerHTML pattern")
	}
}

func TestCorrelate_SecondaryPassRecordsOnlyHits(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "login/handler.js", "console.log(1)")

	claims := []models.VulnerabilityClaim{{ID: "1", Type: "XSS", AffectedComponents: []string{"login"}}}
	text := `{"vulnerability_assessments": [{"vulnerability_id": "1", "static_status": "Possible", "code_locations": ["login/view.js:4-4"]}]}`

	result := NewCorrelator(fakeScanner{}, reply(text), nil).Correlate(context.Background(), root, nil, claims)

	v, ok := result.Verdict("1")
	require.True(t, ok)
	assert.Equal(t, []string{"login/view.js:4-4"}, v.CodeLocations)
}

func TestCorrelate_SecondaryPassSkippedWithoutVerdict(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "api/fetch.py", "requests.get(url)")

	claims := []models.VulnerabilityClaim{{ID: "1", Type: "SSRF", AffectedComponents: []string{"fetch"}}}
	result := NewCorrelator(fakeScanner{}, reply(`{"vulnerability_assessments": []}`), nil).
		Correlate(context.Background(), root, nil, claims)

	assert.Empty(t, result.Assessments)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, models.StaticVulnerable, NormalizeStatus(" VULNERABLE "))
	assert.Equal(t, models.StaticPossible, NormalizeStatus("possible"))
	assert.Equal(t, models.StaticNotVulnerable, NormalizeStatus("Not Vulnerable"))
	assert.Equal(t, models.StaticNotVulnerable, NormalizeStatus("unclear"))
}
