// Package scanner wraps external tools: the semgrep static scanner and pdftotext.
package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/rs/zerolog/log"
)

// ScanReport - нормализованный вывод сканера. Errors заполняется вместо возврата ошибки.
type ScanReport struct {
	Findings []models.ScannerFinding `json:"results"`
	Errors   []string                `json:"errors,omitempty"`
	ExitCode int                     `json:"exit_code"`
	Duration float64                 `json:"duration_seconds"`
}

// Scanner - коллаборатор статического анализа
type Scanner interface {
	Scan(ctx context.Context, sourcePath string) *ScanReport
}

// Semgrep runs `semgrep --config=auto --json` over a source tree
type Semgrep struct {
	Binary         string
	Timeout        time.Duration
	MaxTargetBytes int
}

func NewSemgrep(binary string, timeout time.Duration, maxTargetBytes int) *Semgrep {
	if binary == "" {
		binary = "semgrep"
	}
	return &Semgrep{Binary: binary, Timeout: timeout, MaxTargetBytes: maxTargetBytes}
}

// semgrepOutput - подмножество JSON формата semgrep
type semgrepOutput struct {
	Results []struct {
		CheckID string `json:"check_id"`
		Path    string `json:"path"`
		Start   struct {
			Line int `json:"line"`
		} `json:"start"`
		End struct {
			Line int `json:"line"`
		} `json:"end"`
		Extra struct {
			Message  string `json:"message"`
			Severity string `json:"severity"`
			Lines    string `json:"lines"`
		} `json:"extra"`
	} `json:"results"`
	Errors []json.RawMessage `json:"errors"`
}

// Scan never fails: process errors, timeouts, a missing binary and bad JSON all
// degrade to an empty finding list plus an error note.
func (s *Semgrep) Scan(ctx context.Context, sourcePath string) *ScanReport {
	log.Info().Str("path", sourcePath).Msg("🔍 Running semgrep scan")

	res, err := Run(ctx, Command{
		Name: s.Binary,
		Args: []string{
			"--config=auto",
			"--json",
			"--no-git-ignore",
			"--max-target-bytes=" + strconv.Itoa(s.MaxTargetBytes),
			sourcePath,
		},
		Timeout: s.Timeout,
	})

	report := &ScanReport{Findings: []models.ScannerFinding{}}
	if res != nil {
		report.ExitCode = res.ExitCode
		report.Duration = res.Duration.Seconds()
	}

	switch {
	case errors.Is(err, ErrNotInstalled):
		log.Error().Str("binary", s.Binary).Msg("❌ Semgrep not found")
		report.Errors = append(report.Errors, "Semgrep not installed")
		return report
	case errors.Is(err, ErrTimeout):
		log.Error().Dur("timeout", s.Timeout).Msg("❌ Semgrep scan timed out")
		report.Errors = append(report.Errors, "Semgrep scan timed out")
		return report
	case err != nil:
		log.Error().Err(err).Msg("❌ Unexpected error running semgrep")
		report.Errors = append(report.Errors, fmt.Sprintf("Unexpected error: %v", err))
		return report
	}

	// 0 - чисто, 1 - есть находки
	if res.ExitCode != 0 && res.ExitCode != 1 {
		stderr := strings.TrimSpace(string(res.Stderr))
		log.Error().Int("exit_code", res.ExitCode).Str("stderr", stderr).Msg("❌ Semgrep failed")
		report.Errors = append(report.Errors, fmt.Sprintf("Semgrep execution failed (exit %d): %s", res.ExitCode, stderr))
		return report
	}

	findings, parseErr := ParseSemgrepJSON(res.Stdout)
	if parseErr != nil {
		log.Error().Err(parseErr).Msg("❌ Failed to parse semgrep JSON output")
		report.Errors = append(report.Errors, "Failed to parse Semgrep output")
		return report
	}

	report.Findings = findings
	log.Info().Int("findings", len(findings)).Msg("✅ Semgrep scan complete")
	return report
}

// ParseSemgrepJSON converts semgrep's JSON report into scanner findings
func ParseSemgrepJSON(data []byte) ([]models.ScannerFinding, error) {
	var out semgrepOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	findings := make([]models.ScannerFinding, 0, len(out.Results))
	for _, r := range out.Results {
		findings = append(findings, models.ScannerFinding{
			RuleID:    r.CheckID,
			Message:   r.Extra.Message,
			Severity:  r.Extra.Severity,
			Path:      r.Path,
			LineStart: r.Start.Line,
			LineEnd:   r.End.Line,
			Snippet:   r.Extra.Lines,
		})
	}
	return findings, nil
}
