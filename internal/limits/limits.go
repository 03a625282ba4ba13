package limits

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// AnalysisLimits определяет лимиты размеров данных, которые уходят в LLM и на диск
type AnalysisLimits struct {
	MaxResponseBodyForLLM int   `json:"max_response_body_for_llm" yaml:"maxResponseBodyForLLM"`
	MaxFindingsInPrompt   int   `json:"max_findings_in_prompt" yaml:"maxFindingsInPrompt"`
	MaxCandidateFiles     int   `json:"max_candidate_files" yaml:"maxCandidateFiles"`
	MaxInspectedFiles     int   `json:"max_inspected_files" yaml:"maxInspectedFiles"`
	MaxReportChars        int   `json:"max_report_chars" yaml:"maxReportChars"`
	MaxRawContentChars    int   `json:"max_raw_content_chars" yaml:"maxRawContentChars"`
	MaxTriageSection      int   `json:"max_triage_section" yaml:"maxTriageSection"`
	MaxClaimsInTriage     int   `json:"max_claims_in_triage" yaml:"maxClaimsInTriage"`
	MaxFileSize           int64 `json:"max_file_size" yaml:"maxFileSize"`
}

// DefaultAnalysisLimits возвращает лимиты по умолчанию
func DefaultAnalysisLimits() *AnalysisLimits {
	return &AnalysisLimits{
		MaxResponseBodyForLLM: 2000,
		MaxFindingsInPrompt:   20,
		MaxCandidateFiles:     10,
		MaxInspectedFiles:     3,
		MaxReportChars:        10_000,
		MaxRawContentChars:    5000,
		MaxTriageSection:      8000,
		MaxClaimsInTriage:     10,
		MaxFileSize:           10 * 1024 * 1024,
	}
}

// Limiter даёт доступ к лимитам и обрезает данные по ним
type Limiter struct {
	limits *AnalysisLimits
}

// NewLimiter создает новый лимитер, nil означает лимиты по умолчанию
func NewLimiter(limits *AnalysisLimits) *Limiter {
	if limits == nil {
		limits = DefaultAnalysisLimits()
	}
	return &Limiter{
		limits: limits,
	}
}

// GetLimits возвращает текущие лимиты
func (l *Limiter) GetLimits() *AnalysisLimits {
	return l.limits
}

// UpdateLimits обновляет лимиты после проверки
func (l *Limiter) UpdateLimits(limits *AnalysisLimits) error {
	if err := validatePositive(limits); err != nil {
		return err
	}
	l.limits = limits
	return nil
}

// ValidateLimits проверяет валидность текущих лимитов
func (l *Limiter) ValidateLimits() error {
	if err := validatePositive(l.limits); err != nil {
		return err
	}
	if l.limits.MaxInspectedFiles > l.limits.MaxCandidateFiles {
		return fmt.Errorf("MaxInspectedFiles (%d) exceeds MaxCandidateFiles (%d)",
			l.limits.MaxInspectedFiles, l.limits.MaxCandidateFiles)
	}
	if l.limits.MaxFindingsInPrompt > 500 {
		return fmt.Errorf("MaxFindingsInPrompt too large (> 500)")
	}
	if l.limits.MaxReportChars > 200_000 {
		return fmt.Errorf("MaxReportChars too large (> 200000)")
	}
	return nil
}

func validatePositive(limits *AnalysisLimits) error {
	if limits == nil {
		return fmt.Errorf("limits are nil")
	}
	checks := []struct {
		name  string
		value int64
	}{
		{"MaxResponseBodyForLLM", int64(limits.MaxResponseBodyForLLM)},
		{"MaxFindingsInPrompt", int64(limits.MaxFindingsInPrompt)},
		{"MaxCandidateFiles", int64(limits.MaxCandidateFiles)},
		{"MaxInspectedFiles", int64(limits.MaxInspectedFiles)},
		{"MaxReportChars", int64(limits.MaxReportChars)},
		{"MaxRawContentChars", int64(limits.MaxRawContentChars)},
		{"MaxTriageSection", int64(limits.MaxTriageSection)},
		{"MaxClaimsInTriage", int64(limits.MaxClaimsInTriage)},
		{"MaxFileSize", limits.MaxFileSize},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("%s must be positive", c.name)
		}
	}
	return nil
}

// Truncate обрезает строку до max символов (не байт)
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// TruncateWithMarker обрезает строку и добавляет маркер с количеством отброшенных символов
func TruncateWithMarker(s string, max int) string {
	total := utf8.RuneCountInString(s)
	if total <= max {
		return s
	}
	omitted := total - max
	return Truncate(s, max) + "\n\n... [TRUNCATED: " + strconv.Itoa(omitted) + " chars omitted]"
}
