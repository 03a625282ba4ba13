package models

// ReaderResult - вывод стадии разбора отчёта
type ReaderResult struct {
	ReportPath       string               `json:"report_path,omitempty"`
	ExecutiveSummary string               `json:"executive_summary,omitempty"`
	Vulnerabilities  []VulnerabilityClaim `json:"vulnerabilities"`
	ParsingError     bool                 `json:"parsing_error,omitempty"`
	RawContent       string               `json:"raw_content,omitempty"`
}
