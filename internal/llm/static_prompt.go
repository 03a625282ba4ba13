package llm

import (
	"fmt"
	"strings"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
)

// BuildStaticCorrelationPrompt creates prompt for correlating scanner findings with reported claims.
// Only the first maxFindings findings are included to bound prompt size.
func BuildStaticCorrelationPrompt(claims []models.VulnerabilityClaim, findings []models.ScannerFinding, maxFindings int) string {
	return fmt.Sprintf(
		`You are a static code analysis expert. Correlate scanner findings with the reported vulnerabilities.

=== REPORTED VULNERABILITIES ===
%s

=== SCANNER FINDINGS (first %d of %d) ===
%s

=== RULES ===
- Respond ONLY about the reported vulnerabilities above. Discard every other finding from
  vulnerability_assessments (you may list them in additional_findings).
- static_status must be exactly one of: "Vulnerable", "Possible", "Not Vulnerable".
- semgrep_matches: rule ids / messages of the findings that support the verdict.
- code_locations: "file:line_start-line_end" strings.
- Use the vulnerability id exactly as given.

=== OUTPUT FORMAT ===
Respond with JSON only:
{
  "analysis_summary": "string",
  "vulnerability_assessments": [
    {
      "vulnerability_id": "string",
      "static_status": "Vulnerable|Possible|Not Vulnerable",
      "evidence": "string",
      "semgrep_matches": ["string"],
      "code_locations": ["string"],
      "confidence": "High|Medium|Low",
      "reasoning": "string"
    }
  ],
  "additional_findings": [
    {"type": "string", "description": "string", "severity": "string", "location": "string"}
  ]
}`,
		formatClaimsForStatic(claims),
		min(maxFindings, len(findings)),
		len(findings),
		formatFindings(findings, maxFindings),
	)
}

func formatClaimsForStatic(claims []models.VulnerabilityClaim) string {
	if len(claims) == 0 {
		return "No specific vulnerabilities provided"
	}
	var sb strings.Builder
	for _, c := range claims {
		fmt.Fprintf(&sb, "- [%s] %s: %s in %v\n", c.ID, orUnknown(c.Title), orUnknown(c.Type), c.AffectedComponents)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatFindings(findings []models.ScannerFinding, max int) string {
	if len(findings) == 0 {
		return "No scanner findings"
	}
	var sb strings.Builder
	for i, f := range findings {
		if i >= max {
			break
		}
		fmt.Fprintf(&sb, "- %s: %s in %s:%d-%d\n",
			orUnknown(f.RuleID), orDefault(f.Message, "No message"), orUnknown(f.Path), f.LineStart, f.LineEnd)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func orUnknown(s string) string {
	return orDefault(s, "Unknown")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
