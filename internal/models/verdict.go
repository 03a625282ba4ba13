package models

// Статусы статического анализа
const (
	StaticVulnerable    = "Vulnerable"
	StaticPossible      = "Possible"
	StaticNotVulnerable = "Not Vulnerable"
)

// Статусы динамической проверки
const (
	DynamicConfirmed       = "Confirmed Vulnerable"
	DynamicPossible        = "Possibly Vulnerable"
	DynamicNotReproducible = "Not Reproducible"
)

// Итоговый статус всегда двузначный
const (
	FinalVulnerable    = "Vulnerable"
	FinalNotVulnerable = "Not Vulnerable"
)

const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// ScannerFinding - one result produced by the external static scanner.
type ScannerFinding struct {
	RuleID    string `json:"check_id"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Path      string `json:"path"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	Snippet   string `json:"snippet,omitempty"`
}

// StaticVerdict - результат Static Correlator для одной уязвимости
type StaticVerdict struct {
	VulnerabilityID ClaimID  `json:"vulnerability_id"`
	Status          string   `json:"static_status"`
	Evidence        string   `json:"evidence"`
	MatchedFindings []string `json:"semgrep_matches"`
	CodeLocations   []string `json:"code_locations"`
	Confidence      string   `json:"confidence"`
	Reasoning       string   `json:"reasoning,omitempty"`
}

type AdditionalFinding struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Location    string `json:"location"`
}

// StaticResult - весь вывод стадии статического анализа
type StaticResult struct {
	SourcePath         string              `json:"source_path"`
	AnalysisSummary    string              `json:"analysis_summary"`
	Assessments        []StaticVerdict     `json:"vulnerability_assessments"`
	AdditionalFindings []AdditionalFinding `json:"additional_findings"`
	Findings           []ScannerFinding    `json:"scanner_findings,omitempty"`
	Errors             []string            `json:"errors,omitempty"`
	ParsingError       bool                `json:"parsing_error,omitempty"`
}

// Verdict returns the static verdict for id, if any.
func (r *StaticResult) Verdict(id ClaimID) (*StaticVerdict, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Assessments {
		if r.Assessments[i].VulnerabilityID == id {
			return &r.Assessments[i], true
		}
	}
	return nil, false
}

// Attempt - один HTTP запрос, отправленный для воспроизведения уязвимости
type Attempt struct {
	Method         string            `json:"method"`
	Endpoint       string            `json:"endpoint"`
	URL            string            `json:"url"`
	Payload        string            `json:"payload"`
	Parameter      string            `json:"parameter"`
	StatusCode     int               `json:"response_code"`
	ElapsedSeconds float64           `json:"response_time"`
	ResponseSize   int               `json:"response_size"`
	BodySample     string            `json:"response_sample"`
	Headers        map[string]string `json:"response_headers,omitempty"`
	PageTitle      string            `json:"page_title,omitempty"`
	FormFields     []string          `json:"form_fields,omitempty"`
	Evidence       string            `json:"evidence"`
	Indicator      string            `json:"indicator,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// DynamicVerdict - результат Exploitation Executor для одной уязвимости
type DynamicVerdict struct {
	VulnerabilityID ClaimID   `json:"vulnerability_id"`
	Title           string    `json:"title"`
	Type            string    `json:"type"`
	Status          string    `json:"dynamic_status"`
	Attempts        []Attempt `json:"test_attempts"`
	Confidence      string    `json:"confidence"`
	Untestable      bool      `json:"untestable,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

type DynamicSummary struct {
	Tested          int `json:"tested"`
	Confirmed       int `json:"confirmed"`
	Possible        int `json:"possible"`
	NotReproducible int `json:"not_reproducible"`
	Untestable      int `json:"untestable"`
}

// DynamicResult - весь вывод стадии динамической проверки
type DynamicResult struct {
	TargetURL string           `json:"target_url"`
	Results   []DynamicVerdict `json:"vulnerability_tests"`
	Summary   DynamicSummary   `json:"summary"`
}

// Verdict returns the dynamic verdict for id, if any.
func (r *DynamicResult) Verdict(id ClaimID) (*DynamicVerdict, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Results {
		if r.Results[i].VulnerabilityID == id {
			return &r.Results[i], true
		}
	}
	return nil, false
}
