package models

// EvidenceSummary - короткие строки о том, что сказал каждый источник
type EvidenceSummary struct {
	PDFEvidence     string `json:"pdf_evidence"`
	StaticEvidence  string `json:"static_evidence"`
	DynamicEvidence string `json:"dynamic_evidence"`
}

// TriageVerdict - итоговая запись по уязвимости
type TriageVerdict struct {
	VulnerabilityID          ClaimID           `json:"vulnerability_id"`
	Title                    string            `json:"title"`
	Type                     string            `json:"type"`
	OriginalSeverity         string            `json:"original_severity"`
	FinalStatus              string            `json:"final_status"`
	ConfidenceLevel          string            `json:"confidence_level"`
	Priority                 string            `json:"priority"`
	EvidenceSummary          EvidenceSummary   `json:"evidence_summary"`
	TechnicalEvidence        TechnicalEvidence `json:"technical_evidence"`
	CorrelationAnalysis      string            `json:"correlation_analysis"`
	ExploitabilityAssessment string            `json:"exploitability_assessment"`
	RiskRating               string            `json:"risk_rating"`
	RemediationPriority      string            `json:"remediation_priority"`
	FalsePositiveLikelihood  string            `json:"false_positive_likelihood"`
}

type TriageSummary struct {
	Total             int `json:"total_vulnerabilities_analyzed"`
	Confirmed         int `json:"confirmed_vulnerable"`
	Possible          int `json:"possible_vulnerable"`
	NotVulnerable     int `json:"not_vulnerable"`
	HighPriorityCount int `json:"high_priority_count"`
}

type AdditionalIssue struct {
	Type           string `json:"type"`
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	Source         string `json:"source"`
	Recommendation string `json:"recommendation"`
}

type MethodologyAssessment struct {
	PDFAnalysisQuality          string `json:"pdf_analysis_quality"`
	StaticAnalysisCoverage      string `json:"static_analysis_coverage"`
	DynamicTestingDepth         string `json:"dynamic_testing_depth"`
	OverallAssessmentConfidence string `json:"overall_assessment_confidence"`
}

// TriageResult - результат ядра триажа (до сборки финального отчёта)
type TriageResult struct {
	Summary         TriageSummary         `json:"triage_summary"`
	Verdicts        []TriageVerdict       `json:"vulnerability_triage"`
	AdditionalIssue []AdditionalIssue     `json:"additional_security_issues"`
	Methodology     MethodologyAssessment `json:"methodology_effectiveness"`
	Recommendations []string              `json:"recommendations"`
	FallbackMode    bool                  `json:"fallback_mode,omitempty"`
}

// RiskMatrix maps original severity to counts per final status.
type RiskMatrix map[string]map[string]int

type ReportMetadata struct {
	GeneratedAt  string   `json:"generated_at"`
	AnalysisType string   `json:"analysis_type"`
	Language     string   `json:"language"`
	Model        string   `json:"model,omitempty"`
	FallbackMode bool     `json:"fallback_mode"`
	ToolsUsed    []string `json:"tools_used"`
}

type DetailedAnalysis struct {
	PDFAnalysis     *ReaderResult  `json:"pdf_analysis,omitempty"`
	StaticAnalysis  *StaticResult  `json:"static_analysis,omitempty"`
	DynamicAnalysis *DynamicResult `json:"dynamic_analysis,omitempty"`
}

// FinalReport - то, что сохраняется в final_result документа оценки
type FinalReport struct {
	ReportMetadata        ReportMetadata        `json:"report_metadata"`
	ExecutiveSummary      string                `json:"executive_summary"`
	VulnerabilitySummary  TriageSummary         `json:"vulnerability_summary"`
	Vulnerabilities       []TriageVerdict       `json:"vulnerabilities"`
	AdditionalFindings    []AdditionalIssue     `json:"additional_findings"`
	MethodologyAssessment MethodologyAssessment `json:"methodology_assessment"`
	Recommendations       []string              `json:"recommendations"`
	DetailedAnalysis      DetailedAnalysis      `json:"detailed_analysis"`
	RiskMatrix            RiskMatrix            `json:"risk_matrix"`
	NextSteps             []string              `json:"next_steps"`
}
