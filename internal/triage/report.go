package triage

import (
	"time"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
)

const analysisType = "Comprehensive Vulnerability Validation"

// ReportInput - всё, что попадает в финальный отчёт
type ReportInput struct {
	Triage  *models.TriageResult
	Reader  *models.ReaderResult
	Static  *models.StaticResult
	Dynamic *models.DynamicResult
}

// BuildReport assembles the persisted final report from the triage result and
// the raw stage outputs.
func (e *Engine) BuildReport(in ReportInput) *models.FinalReport {
	tr := in.Triage
	if tr == nil {
		tr = Fallback(nil, in.Static, in.Dynamic, e.language)
	}

	return &models.FinalReport{
		ReportMetadata: models.ReportMetadata{
			GeneratedAt:  e.now().UTC().Format(time.RFC3339),
			AnalysisType: analysisType,
			Language:     e.language,
			Model:        e.model,
			FallbackMode: tr.FallbackMode,
			ToolsUsed:    toolsUsed(in),
		},
		ExecutiveSummary:      ExecutiveSummary(tr.Summary, e.language),
		VulnerabilitySummary:  tr.Summary,
		Vulnerabilities:       tr.Verdicts,
		AdditionalFindings:    tr.AdditionalIssue,
		MethodologyAssessment: tr.Methodology,
		Recommendations:       tr.Recommendations,
		DetailedAnalysis: models.DetailedAnalysis{
			PDFAnalysis:     in.Reader,
			StaticAnalysis:  in.Static,
			DynamicAnalysis: in.Dynamic,
		},
		RiskMatrix: BuildRiskMatrix(tr.Verdicts),
		NextSteps:  NextSteps(tr.Summary.Confirmed, e.language),
	}
}

func toolsUsed(in ReportInput) []string {
	tools := []string{}
	if in.Reader != nil {
		tools = append(tools, "PDF Analysis")
	}
	if in.Static != nil {
		tools = append(tools, "Semgrep Static Analysis")
	}
	if in.Dynamic != nil {
		tools = append(tools, "Dynamic Testing")
	}
	return tools
}

// BuildRiskMatrix считает severity x final_status. Неизвестные severity не учитываются.
func BuildRiskMatrix(verdicts []models.TriageVerdict) models.RiskMatrix {
	matrix := make(models.RiskMatrix, len(Priorities))
	for _, severity := range Priorities {
		matrix[severity] = map[string]int{
			models.FinalVulnerable:    0,
			models.FinalNotVulnerable: 0,
		}
	}

	for _, v := range verdicts {
		row, ok := matrix[v.OriginalSeverity]
		if !ok {
			continue
		}
		if _, ok := row[v.FinalStatus]; ok {
			row[v.FinalStatus]++
		}
	}
	return matrix
}
