// Package triage reduces claims plus static and dynamic verdicts to one
// authoritative status per vulnerability and builds the final report.
package triage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/BetterCallFirewall/Revalidator/internal/evidence"
	"github.com/BetterCallFirewall/Revalidator/internal/limits"
	"github.com/BetterCallFirewall/Revalidator/internal/llm"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/rs/zerolog/log"
)

// replyVerdict - вердикт из ответа модели. technical_evidence не читаем: его всегда собирает агрегатор.
type replyVerdict struct {
	VulnerabilityID          models.ClaimID         `json:"vulnerability_id"`
	FinalStatus              string                 `json:"final_status"`
	ConfidenceLevel          string                 `json:"confidence_level"`
	Priority                 string                 `json:"priority"`
	EvidenceSummary          models.EvidenceSummary `json:"evidence_summary"`
	CorrelationAnalysis      string                 `json:"correlation_analysis"`
	ExploitabilityAssessment string                 `json:"exploitability_assessment"`
	RiskRating               string                 `json:"risk_rating"`
	RemediationPriority      string                 `json:"remediation_priority"`
	FalsePositiveLikelihood  string                 `json:"false_positive_likelihood"`
}

// triageReply - ожидаемый JSON. triage_summary модели игнорируется и пересчитывается.
type triageReply struct {
	Verdicts         []replyVerdict               `json:"vulnerability_triage"`
	AdditionalIssues []models.AdditionalIssue     `json:"additional_security_issues"`
	Methodology      models.MethodologyAssessment `json:"methodology_effectiveness"`
	Recommendations  []string                     `json:"recommendations"`
}

// Engine - стадия триажа
type Engine struct {
	reasoner llm.Reasoner
	limiter  *limits.Limiter
	language string
	model    string
	now      func() time.Time
}

func NewEngine(reasoner llm.Reasoner, limiter *limits.Limiter, language, model string) *Engine {
	if reasoner == nil {
		reasoner = llm.Unavailable{}
	}
	if limiter == nil {
		limiter = limits.NewLimiter(nil)
	}
	return &Engine{
		reasoner: reasoner,
		limiter:  limiter,
		language: normalizeLanguage(language),
		model:    model,
		now:      time.Now,
	}
}

// Triage asks the reasoner for the correlation write-up and falls back to the
// rule-based policy when the reply is unusable.
func (e *Engine) Triage(
	ctx context.Context,
	claims []models.VulnerabilityClaim,
	static *models.StaticResult,
	dynamic *models.DynamicResult,
) *models.TriageResult {
	log.Info().Int("claims", len(claims)).Msg("⚖️ Starting vulnerability triage")

	reply, err := llm.CompleteJSON[triageReply](ctx, e.reasoner, e.buildPrompt(claims, static, dynamic))
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Triage reply unusable, using rule-based fallback")
		return Fallback(claims, static, dynamic, e.language)
	}

	result := e.normalize(reply, claims, static, dynamic)
	log.Info().
		Int("vulnerable", result.Summary.Confirmed).
		Int("not_vulnerable", result.Summary.NotVulnerable).
		Msg("✅ Triage completed")
	return result
}

func (e *Engine) buildPrompt(claims []models.VulnerabilityClaim, static *models.StaticResult, dynamic *models.DynamicResult) string {
	lim := e.limiter.GetLimits()

	subset := claims
	if len(subset) > lim.MaxClaimsInTriage {
		subset = subset[:lim.MaxClaimsInTriage]
	}

	return llm.BuildTriagePrompt(&llm.TriagePromptInput{
		ClaimsJSON:  capJSON(subset, lim.MaxTriageSection),
		StaticJSON:  capJSON(static, lim.MaxTriageSection),
		DynamicJSON: capJSON(dynamic, lim.MaxTriageSection),
		Language:    e.language,
	})
}

func capJSON(v any, max int) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return limits.TruncateWithMarker(string(data), max)
}

// normalize приводит ответ модели к инвариантам: только заявленные id, двузначный статус,
// Low для Not Vulnerable, evidence от агрегатора, summary пересчитан
func (e *Engine) normalize(
	reply *triageReply,
	claims []models.VulnerabilityClaim,
	static *models.StaticResult,
	dynamic *models.DynamicResult,
) *models.TriageResult {
	byID := make(map[models.ClaimID]replyVerdict, len(reply.Verdicts))
	for _, v := range reply.Verdicts {
		if _, dup := byID[v.VulnerabilityID]; !dup {
			byID[v.VulnerabilityID] = v
		}
	}

	verdicts := make([]models.TriageVerdict, 0, len(claims))
	for _, claim := range claims {
		base := RuleBased(claim, static, dynamic)
		rv, ok := byID[claim.ID]
		if !ok {
			log.Debug().Str("vulnerability_id", claim.ID.String()).Msg("Claim missing from triage reply, using rule-based verdict")
			verdicts = append(verdicts, base)
			continue
		}
		verdicts = append(verdicts, merge(base, rv, claim, static, dynamic))
	}

	result := &models.TriageResult{
		Summary:         Summarize(verdicts),
		Verdicts:        verdicts,
		AdditionalIssue: reply.AdditionalIssues,
		Methodology:     reply.Methodology,
		Recommendations: reply.Recommendations,
	}
	if result.AdditionalIssue == nil {
		result.AdditionalIssue = []models.AdditionalIssue{}
	}
	if result.Methodology == (models.MethodologyAssessment{}) {
		result.Methodology = fallbackMethodology
	}
	if len(result.Recommendations) == 0 {
		result.Recommendations = FallbackRecommendations(e.language)
	}
	return result
}

func merge(
	base models.TriageVerdict,
	rv replyVerdict,
	claim models.VulnerabilityClaim,
	static *models.StaticResult,
	dynamic *models.DynamicResult,
) models.TriageVerdict {
	v := base
	v.FinalStatus = NormalizeFinalStatus(rv.FinalStatus)
	v.ConfidenceLevel = pick(rv.ConfidenceLevel, []string{models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow}, base.ConfidenceLevel)

	// без подтверждения от static или dynamic модель не может поднять статус до Vulnerable
	if base.FinalStatus == models.FinalNotVulnerable {
		v.FinalStatus = models.FinalNotVulnerable
		v.ConfidenceLevel = models.ConfidenceLow
	}

	if v.FinalStatus == models.FinalVulnerable {
		v.Priority = pick(rv.Priority, Priorities, Priority(claim.Severity, v.FinalStatus))
	} else {
		v.Priority = "Low"
	}

	v.EvidenceSummary = models.EvidenceSummary{
		PDFEvidence:     orDefault(rv.EvidenceSummary.PDFEvidence, base.EvidenceSummary.PDFEvidence),
		StaticEvidence:  orDefault(rv.EvidenceSummary.StaticEvidence, base.EvidenceSummary.StaticEvidence),
		DynamicEvidence: orDefault(rv.EvidenceSummary.DynamicEvidence, base.EvidenceSummary.DynamicEvidence),
	}
	v.TechnicalEvidence = evidence.Assemble(claim.ID, static, dynamic)
	v.CorrelationAnalysis = orDefault(rv.CorrelationAnalysis, base.CorrelationAnalysis)
	v.ExploitabilityAssessment = orDefault(rv.ExploitabilityAssessment, base.ExploitabilityAssessment)
	v.RiskRating = orDefault(rv.RiskRating, base.RiskRating)
	v.RemediationPriority = orDefault(rv.RemediationPriority, base.RemediationPriority)
	v.FalsePositiveLikelihood = orDefault(rv.FalsePositiveLikelihood, base.FalsePositiveLikelihood)
	return v
}

// NormalizeFinalStatus сводит любой ответ модели к Vulnerable / Not Vulnerable.
// "Possible" и всё неизвестное считается Not Vulnerable.
func NormalizeFinalStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "vulnerable", "confirmed vulnerable":
		return models.FinalVulnerable
	default:
		return models.FinalNotVulnerable
	}
}

// pick возвращает значение из allowed без учёта регистра, иначе def
func pick(value string, allowed []string, def string) string {
	value = strings.TrimSpace(value)
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return a
		}
	}
	return def
}
