package llm

import (
	"fmt"
)

var languageInstructions = map[string]string{
	"en": "Provide your analysis and final report in English.",
	"es": "Proporciona tu análisis y reporte final en español.",
}

// TriagePromptInput - size-capped JSON sections for the triage prompt
type TriagePromptInput struct {
	ClaimsJSON  string
	StaticJSON  string
	DynamicJSON string
	Language    string
}

// BuildTriagePrompt creates prompt for the final triage write-up
func BuildTriagePrompt(in *TriagePromptInput) string {
	instruction, ok := languageInstructions[in.Language]
	if !ok {
		instruction = languageInstructions["en"]
	}

	return fmt.Sprintf(
		`You are a vulnerability triage specialist. Correlate report claims with static and dynamic evidence.

=== REPORTED VULNERABILITIES ===
%s

=== STATIC ANALYSIS RESULTS ===
%s

=== DYNAMIC TESTING RESULTS ===
%s

=== DECISION CRITERIA ===
- Vulnerable: dynamic testing status is "Confirmed Vulnerable" OR static status is "Vulnerable".
- Not Vulnerable: anything else.
- final_status MUST be exactly "Vulnerable" or "Not Vulnerable". There is no third value.
- ONLY work with the reported vulnerabilities. Put anything else in additional_security_issues.
- priority is "Low" for every Not Vulnerable claim.

IMPORTANT: %s

Respond with JSON only:
{
  "triage_summary": {
    "total_vulnerabilities_analyzed": 0,
    "confirmed_vulnerable": 0,
    "possible_vulnerable": 0,
    "not_vulnerable": 0,
    "high_priority_count": 0
  },
  "vulnerability_triage": [
    {
      "vulnerability_id": "string",
      "title": "string",
      "type": "string",
      "original_severity": "string",
      "final_status": "Vulnerable|Not Vulnerable",
      "confidence_level": "High|Medium|Low",
      "priority": "Critical|High|Medium|Low",
      "evidence_summary": {"pdf_evidence": "string", "static_evidence": "string", "dynamic_evidence": "string"},
      "correlation_analysis": "string",
      "exploitability_assessment": "string",
      "risk_rating": "string",
      "remediation_priority": "string",
      "false_positive_likelihood": "string"
    }
  ],
  "additional_security_issues": [
    {"type": "string", "description": "string", "severity": "string", "source": "static|dynamic", "recommendation": "string"}
  ],
  "methodology_effectiveness": {
    "pdf_analysis_quality": "string",
    "static_analysis_coverage": "string",
    "dynamic_testing_depth": "string",
    "overall_assessment_confidence": "string"
  },
  "recommendations": ["string"]
}`,
		in.ClaimsJSON,
		in.StaticJSON,
		in.DynamicJSON,
		instruction,
	)
}
