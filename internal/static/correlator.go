// Package static correlates scanner findings with reported claims.
package static

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BetterCallFirewall/Revalidator/internal/limits"
	"github.com/BetterCallFirewall/Revalidator/internal/llm"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/BetterCallFirewall/Revalidator/internal/scanner"
	"github.com/rs/zerolog/log"
)

// correlationReply - ожидаемый JSON от модели
type correlationReply struct {
	AnalysisSummary    string                     `json:"analysis_summary"`
	Assessments        []models.StaticVerdict     `json:"vulnerability_assessments"`
	AdditionalFindings []models.AdditionalFinding `json:"additional_findings"`
}

// Correlator - стадия статического анализа
type Correlator struct {
	scanner  scanner.Scanner
	reasoner llm.Reasoner
	limiter  *limits.Limiter
	patterns []TypePattern
}

func NewCorrelator(sc scanner.Scanner, reasoner llm.Reasoner, limiter *limits.Limiter) *Correlator {
	if reasoner == nil {
		reasoner = llm.Unavailable{}
	}
	if limiter == nil {
		limiter = limits.NewLimiter(nil)
	}
	return &Correlator{
		scanner:  sc,
		reasoner: reasoner,
		limiter:  limiter,
		patterns: DefaultTypePatterns,
	}
}

// Analyze runs the scanner once over sourcePath and correlates its findings with claims.
// Scanner problems end up in StaticResult.Errors, never as a returned error.
func (c *Correlator) Analyze(ctx context.Context, sourcePath string, claims []models.VulnerabilityClaim) *models.StaticResult {
	log.Info().Str("source", sourcePath).Int("claims", len(claims)).Msg("🔬 Starting static analysis")

	report := c.scanner.Scan(ctx, sourcePath)

	result := c.Correlate(ctx, sourcePath, report.Findings, claims)
	result.Errors = append(result.Errors, report.Errors...)
	return result
}

// Correlate asks the reasoner for one verdict per claim. On an unusable reply
// the result is degraded (no assessments, ParsingError set).
func (c *Correlator) Correlate(
	ctx context.Context,
	sourcePath string,
	findings []models.ScannerFinding,
	claims []models.VulnerabilityClaim,
) *models.StaticResult {
	lim := c.limiter.GetLimits()

	prompt := llm.BuildStaticCorrelationPrompt(claims, findings, lim.MaxFindingsInPrompt)
	reply, err := llm.CompleteJSON[correlationReply](ctx, c.reasoner, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Static correlation reply unusable, using fallback")
		return fallbackResult(sourcePath, findings)
	}

	result := &models.StaticResult{
		SourcePath:         sourcePath,
		AnalysisSummary:    reply.AnalysisSummary,
		Assessments:        normalizeAssessments(reply.Assessments, claims),
		AdditionalFindings: reply.AdditionalFindings,
		Findings:           findings,
	}
	if result.AdditionalFindings == nil {
		result.AdditionalFindings = []models.AdditionalFinding{}
	}

	if len(claims) > 0 {
		c.inspectFiles(result, sourcePath, claims)
	}

	log.Info().Int("assessments", len(result.Assessments)).Msg("✅ Static correlation completed")
	return result
}

func fallbackResult(sourcePath string, findings []models.ScannerFinding) *models.StaticResult {
	return &models.StaticResult{
		SourcePath:      sourcePath,
		AnalysisSummary: "Static analysis completed with limited interpretation",
		Assessments:     []models.StaticVerdict{},
		AdditionalFindings: []models.AdditionalFinding{{
			Type:        "Semgrep Finding",
			Description: fmt.Sprintf("Found %d potential issues", len(findings)),
			Severity:    "Unknown",
			Location:    "Various files",
		}},
		Findings:     findings,
		ParsingError: true,
	}
}

// normalizeAssessments отбрасывает id, которых нет в отчёте, и приводит статус к трём значениям
func normalizeAssessments(in []models.StaticVerdict, claims []models.VulnerabilityClaim) []models.StaticVerdict {
	known := make(map[models.ClaimID]bool, len(claims))
	for _, cl := range claims {
		known[cl.ID] = true
	}

	out := make([]models.StaticVerdict, 0, len(in))
	seen := make(map[models.ClaimID]bool)
	for _, a := range in {
		if !known[a.VulnerabilityID] || seen[a.VulnerabilityID] {
			continue
		}
		seen[a.VulnerabilityID] = true

		a.Status = NormalizeStatus(a.Status)
		if a.MatchedFindings == nil {
			a.MatchedFindings = []string{}
		}
		if a.CodeLocations == nil {
			a.CodeLocations = []string{}
		}
		out = append(out, a)
	}
	return out
}

// NormalizeStatus приводит статус модели к Vulnerable / Possible / Not Vulnerable
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "vulnerable":
		return models.StaticVulnerable
	case "possible", "possibly vulnerable":
		return models.StaticPossible
	default:
		return models.StaticNotVulnerable
	}
}

// inspectFiles - вторичный проход: ищет файлы по affected_components и дописывает
// совпадения сигнатур в code_locations соответствующего вердикта
func (c *Correlator) inspectFiles(result *models.StaticResult, sourcePath string, claims []models.VulnerabilityClaim) {
	lim := c.limiter.GetLimits()

	for _, claim := range claims {
		verdict, ok := result.Verdict(claim.ID)
		if !ok {
			continue
		}

		for _, component := range claim.AffectedComponents {
			files := FindRelevantFiles(sourcePath, component, lim.MaxCandidateFiles)
			if len(files) > lim.MaxInspectedFiles {
				files = files[:lim.MaxInspectedFiles]
			}

			for _, path := range files {
				content, err := readSource(path, lim.MaxFileSize)
				if err != nil {
					log.Warn().Err(err).Str("file", path).Msg("⚠️ Could not analyze file")
					continue
				}
				finding := MatchPatterns(c.patterns, claim.Type, content)
				if finding == noPatternsFound {
					continue
				}
				verdict.CodeLocations = append(verdict.CodeLocations, path+": "+finding)
			}
		}
	}
}

func readSource(path string, maxSize int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if maxSize > 0 && info.Size() > maxSize {
		return "", fmt.Errorf("file too large: %d bytes", info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
