package triage

import (
	"strings"

	"github.com/BetterCallFirewall/Revalidator/internal/evidence"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
)

const unknown = "Unknown"

// Значения, которые проставляет rule-based путь
const (
	fallbackCorrelation    = "Automated correlation (fallback mode)"
	fallbackExploitability = "Limited assessment available"
	fallbackRiskRating     = "Medium"
	fallbackRemediation    = "Medium"
	fallbackFalsePositive  = "Unknown"
)

var fallbackMethodology = models.MethodologyAssessment{
	PDFAnalysisQuality:          "Limited",
	StaticAnalysisCoverage:      "Basic",
	DynamicTestingDepth:         "Basic",
	OverallAssessmentConfidence: "Low",
}

// Priorities - допустимые приоритеты, в порядке убывания
var Priorities = []string{"Critical", "High", "Medium", "Low"}

// Decide применяет политику: динамическое подтверждение, затем статика, иначе Not Vulnerable
func Decide(dynamicStatus, staticStatus string) (finalStatus, confidence string) {
	switch {
	case dynamicStatus == models.DynamicConfirmed:
		return models.FinalVulnerable, models.ConfidenceHigh
	case staticStatus == models.StaticVulnerable:
		return models.FinalVulnerable, models.ConfidenceMedium
	default:
		return models.FinalNotVulnerable, models.ConfidenceLow
	}
}

// Priority: Not Vulnerable всегда Low, иначе заявленная severity или Medium для неизвестной
func Priority(severity, finalStatus string) string {
	if finalStatus != models.FinalVulnerable {
		return "Low"
	}
	for _, p := range Priorities {
		if severity == p {
			return p
		}
	}
	return "Medium"
}

// RuleBased строит вердикт по одной заявке без обращения к модели
func RuleBased(claim models.VulnerabilityClaim, static *models.StaticResult, dynamic *models.DynamicResult) models.TriageVerdict {
	dynamicStatus := models.FinalNotVulnerable
	dynamicEvidence := "No dynamic testing performed"
	if v, ok := dynamic.Verdict(claim.ID); ok {
		dynamicStatus = orDefault(v.Status, models.FinalNotVulnerable)
		dynamicEvidence = "Dynamic testing: " + dynamicStatus
	}

	staticStatus := models.StaticNotVulnerable
	staticEvidence := "No static analysis performed"
	if v, ok := static.Verdict(claim.ID); ok {
		staticStatus = orDefault(v.Status, models.StaticNotVulnerable)
		staticEvidence = "Static analysis: " + staticStatus
	}

	finalStatus, confidence := Decide(dynamicStatus, staticStatus)
	title := orDefault(claim.Title, unknown)

	return models.TriageVerdict{
		VulnerabilityID:  claim.ID,
		Title:            title,
		Type:             orDefault(claim.Type, unknown),
		OriginalSeverity: orDefault(claim.Severity, unknown),
		FinalStatus:      finalStatus,
		ConfidenceLevel:  confidence,
		Priority:         Priority(claim.Severity, finalStatus),
		EvidenceSummary: models.EvidenceSummary{
			PDFEvidence:     "Reported in PDF: " + title,
			StaticEvidence:  staticEvidence,
			DynamicEvidence: dynamicEvidence,
		},
		TechnicalEvidence:        evidence.Assemble(claim.ID, static, dynamic),
		CorrelationAnalysis:      fallbackCorrelation,
		ExploitabilityAssessment: fallbackExploitability,
		RiskRating:               fallbackRiskRating,
		RemediationPriority:      fallbackRemediation,
		FalsePositiveLikelihood:  fallbackFalsePositive,
	}
}

// Fallback - детерминированный триаж всех заявок. Единственный путь, когда модель недоступна.
func Fallback(claims []models.VulnerabilityClaim, static *models.StaticResult, dynamic *models.DynamicResult, language string) *models.TriageResult {
	verdicts := make([]models.TriageVerdict, 0, len(claims))
	for _, claim := range claims {
		verdicts = append(verdicts, RuleBased(claim, static, dynamic))
	}

	return &models.TriageResult{
		Summary:         Summarize(verdicts),
		Verdicts:        verdicts,
		AdditionalIssue: []models.AdditionalIssue{},
		Methodology:     fallbackMethodology,
		Recommendations: FallbackRecommendations(language),
		FallbackMode:    true,
	}
}

// Summarize пересчитывает счётчики по вердиктам; possible_vulnerable всегда 0
func Summarize(verdicts []models.TriageVerdict) models.TriageSummary {
	s := models.TriageSummary{Total: len(verdicts)}
	for _, v := range verdicts {
		if v.FinalStatus == models.FinalVulnerable {
			s.Confirmed++
		}
		if v.Priority == "Critical" || v.Priority == "High" {
			s.HighPriorityCount++
		}
	}
	s.NotVulnerable = s.Total - s.Confirmed
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
