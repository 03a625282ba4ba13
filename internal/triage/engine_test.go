package triage

import (
	"context"
	"fmt"
	"testing"

	"github.com/BetterCallFirewall/Revalidator/internal/llm"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replyWith(text string) llm.Reasoner {
	return llm.ReasonerFunc(func(context.Context, string) (string, error) {
		return text, nil
	})
}

func sampleClaims() []models.VulnerabilityClaim {
	return []models.VulnerabilityClaim{
		{ID: "1", Title: "SQLi in login", Type: "SQL Injection", Severity: "Critical"},
		{ID: "2", Title: "Reflected XSS", Type: "XSS", Severity: "High"},
		{ID: "3", Title: "Verbose errors", Type: "Information Disclosure", Severity: "Low"},
	}
}

const llmTriageReply = `Here is the triage:
{
  "triage_summary": {"total_vulnerabilities_analyzed": "number", "confirmed_vulnerable": 42},
  "vulnerability_triage": [
    {
      "vulnerability_id": 1,
      "final_status": "Vulnerable",
      "confidence_level": "high",
      "priority": "critical",
      "evidence_summary": {"pdf_evidence": "Reported with PoC", "static_evidence": "", "dynamic_evidence": "Login bypassed"},
      "technical_evidence": {"vulnerable_code_snippet": "made up by the model"},
      "correlation_analysis": "Static and dynamic agree",
      "risk_rating": "Critical"
    },
    {
      "vulnerability_id": "2",
      "final_status": "Possible",
      "confidence_level": "Medium",
      "priority": "High"
    },
    {
      "vulnerability_id": "99",
      "final_status": "Vulnerable",
      "priority": "Critical"
    }
  ],
  "additional_security_issues": [
    {"type": "Hardcoded secret", "description": "API key in config.py", "severity": "High", "source": "static", "recommendation": "Rotate"}
  ],
  "methodology_effectiveness": {"pdf_analysis_quality": "Good", "static_analysis_coverage": "Broad", "dynamic_testing_depth": "Targeted", "overall_assessment_confidence": "High"},
  "recommendations": ["Use parameterized queries"]
}`

func TestEngine_NormalizesReasonerReply(t *testing.T) {
	static := &models.StaticResult{Assessments: []models.StaticVerdict{{
		VulnerabilityID: "1", Status: models.StaticVulnerable, MatchedFindings: []string{"sqli-rule"}, CodeLocations: []string{"auth.py:10-11"},
	}}}
	e := NewEngine(replyWith(llmTriageReply), nil, "en", "test-model")

	result := e.Triage(context.Background(), sampleClaims(), static, nil)

	assert.False(t, result.FallbackMode)
	require.Len(t, result.Verdicts, 3)

	first := result.Verdicts[0]
	assert.Equal(t, models.ClaimID("1"), first.VulnerabilityID)
	assert.Equal(t, "SQLi in login", first.Title)
	assert.Equal(t, "Critical", first.OriginalSeverity)
	assert.Equal(t, models.FinalVulnerable, first.FinalStatus)
	assert.Equal(t, models.ConfidenceHigh, first.ConfidenceLevel)
	assert.Equal(t, "Critical", first.Priority)
	assert.Equal(t, "Reported with PoC", first.EvidenceSummary.PDFEvidence)
	assert.Equal(t, "Static analysis: Vulnerable", first.EvidenceSummary.StaticEvidence)
	assert.Equal(t, "Login bypassed", first.EvidenceSummary.DynamicEvidence)
	assert.Equal(t, "sqli-rule", first.TechnicalEvidence.VulnerableCodeSnippet)
	assert.Equal(t, "auth.py:10-11", first.TechnicalEvidence.FileLocation)
	assert.Equal(t, "Static and dynamic agree", first.CorrelationAnalysis)
	assert.Equal(t, "Critical", first.RiskRating)
	assert.Equal(t, "Limited assessment available", first.ExploitabilityAssessment)

	second := result.Verdicts[1]
	assert.Equal(t, models.FinalNotVulnerable, second.FinalStatus)
	assert.Equal(t, "Low", second.Priority)
	assert.Equal(t, models.ConfidenceLow, second.ConfidenceLevel)

	third := result.Verdicts[2]
	assert.Equal(t, models.ClaimID("3"), third.VulnerabilityID)
	assert.Equal(t, models.FinalNotVulnerable, third.FinalStatus)
	assert.Equal(t, "Automated correlation (fallback mode)", third.CorrelationAnalysis)

	assert.Equal(t, models.TriageSummary{Total: 3, Confirmed: 1, NotVulnerable: 2, HighPriorityCount: 1}, result.Summary)
	assert.Len(t, result.AdditionalIssue, 1)
	assert.Equal(t, "Broad", result.Methodology.StaticAnalysisCoverage)
	assert.Equal(t, []string{"Use parameterized queries"}, result.Recommendations)
}

func TestEngine_ReplyCannotPromoteClaimWithoutEvidence(t *testing.T) {
	reply := `{"vulnerability_triage":[
		{"vulnerability_id":"1","final_status":"Vulnerable","confidence_level":"High","priority":"Critical"},
		{"vulnerability_id":"3","final_status":"Vulnerable","confidence_level":"High","priority":"Critical"}
	]}`
	dynamic := &models.DynamicResult{Results: []models.DynamicVerdict{{VulnerabilityID: "1", Status: models.DynamicConfirmed}}}
	e := NewEngine(replyWith(reply), nil, "en", "")

	result := e.Triage(context.Background(), sampleClaims(), nil, dynamic)

	assert.False(t, result.FallbackMode)
	require.Len(t, result.Verdicts, 3)

	confirmed := result.Verdicts[0]
	assert.Equal(t, models.FinalVulnerable, confirmed.FinalStatus)
	assert.Equal(t, "Critical", confirmed.Priority)

	unbacked := result.Verdicts[2]
	assert.Equal(t, models.ClaimID("3"), unbacked.VulnerabilityID)
	assert.Equal(t, models.FinalNotVulnerable, unbacked.FinalStatus)
	assert.Equal(t, models.ConfidenceLow, unbacked.ConfidenceLevel)
	assert.Equal(t, "Low", unbacked.Priority)

	assert.Equal(t, 1, result.Summary.Confirmed)
	assert.Equal(t, 2, result.Summary.NotVulnerable)
}

func TestEngine_FallbackWhenReasonerUnavailable(t *testing.T) {
	dynamic := &models.DynamicResult{Results: []models.DynamicVerdict{{VulnerabilityID: "2", Status: models.DynamicConfirmed}}}
	e := NewEngine(llm.Unavailable{}, nil, "es", "")

	result := e.Triage(context.Background(), sampleClaims(), nil, dynamic)

	assert.True(t, result.FallbackMode)
	assert.Equal(t, models.FinalVulnerable, result.Verdicts[1].FinalStatus)
	assert.Equal(t, FallbackRecommendations("es"), result.Recommendations)
}

func TestEngine_FallbackOnUnparseableReply(t *testing.T) {
	e := NewEngine(replyWith(`{"vulnerability_triage": [ {"vulnerability_id": "1", `), nil, "en", "")

	result := e.Triage(context.Background(), sampleClaims(), nil, nil)

	assert.True(t, result.FallbackMode)
	assert.Len(t, result.Verdicts, 3)
}

func TestEngine_EmptyReplyFieldsUseDefaults(t *testing.T) {
	e := NewEngine(replyWith(`{"vulnerability_triage": []}`), nil, "en", "")

	result := e.Triage(context.Background(), sampleClaims(), nil, nil)

	assert.False(t, result.FallbackMode)
	assert.Equal(t, fallbackMethodology, result.Methodology)
	assert.Equal(t, FallbackRecommendations("en"), result.Recommendations)
	assert.NotNil(t, result.AdditionalIssue)
	for _, v := range result.Verdicts {
		assert.Equal(t, models.FinalNotVulnerable, v.FinalStatus)
	}
}

func TestEngine_PromptCapsClaimsAndUsesLanguage(t *testing.T) {
	claims := make([]models.VulnerabilityClaim, 12)
	for i := range claims {
		claims[i] = models.VulnerabilityClaim{ID: models.ClaimID(fmt.Sprint(i + 1)), Title: "claim"}
	}

	var prompt string
	r := llm.ReasonerFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "no json", nil
	})

	NewEngine(r, nil, "es", "").Triage(context.Background(), claims, nil, nil)

	assert.Contains(t, prompt, `"id": "10"`)
	assert.NotContains(t, prompt, `"id": "11"`)
	assert.Contains(t, prompt, "Proporciona tu análisis y reporte final en español.")
}

func TestNormalizeFinalStatus(t *testing.T) {
	assert.Equal(t, models.FinalVulnerable, NormalizeFinalStatus("Vulnerable"))
	assert.Equal(t, models.FinalVulnerable, NormalizeFinalStatus(" confirmed vulnerable "))
	assert.Equal(t, models.FinalNotVulnerable, NormalizeFinalStatus("Possible"))
	assert.Equal(t, models.FinalNotVulnerable, NormalizeFinalStatus("Not Vulnerable"))
	assert.Equal(t, models.FinalNotVulnerable, NormalizeFinalStatus(""))
}

func TestNewEngine_UnsupportedLanguageFallsBackToEnglish(t *testing.T) {
	e := NewEngine(nil, nil, "fr", "")
	assert.Equal(t, "en", e.language)
}
