// Package exploit fires one HTTP attempt per reported claim against a live
// target and classifies the response.
package exploit

import (
	"context"
	"fmt"
	"sync"

	"github.com/BetterCallFirewall/Revalidator/internal/extract"
	"github.com/BetterCallFirewall/Revalidator/internal/limits"
	"github.com/BetterCallFirewall/Revalidator/internal/llm"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/BetterCallFirewall/Revalidator/internal/utils"
	"github.com/Jeffail/tunny"
	"github.com/rs/zerolog/log"
)

// Outcome - результат классификации одной попытки
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomePossible
	OutcomeConfirmed
)

// slowResponseSeconds - порог для time-based сигнала
const slowResponseSeconds = 5.0

// Executor воспроизводит уязвимости из отчёта на живой цели
type Executor struct {
	client    Client
	reasoner  llm.Reasoner
	limiter   *limits.Limiter
	forms     *utils.FormExtractor
	userAgent string
}

func NewExecutor(client Client, reasoner llm.Reasoner, userAgent string, limiter *limits.Limiter) *Executor {
	if reasoner == nil {
		reasoner = llm.Unavailable{}
	}
	if limiter == nil {
		limiter = limits.NewLimiter(nil)
	}
	if userAgent == "" {
		userAgent = "VulnerabilityValidator/1.0"
	}
	return &Executor{
		client:    client,
		reasoner:  reasoner,
		limiter:   limiter,
		forms:     utils.NewFormExtractor(),
		userAgent: userAgent,
	}
}

// Test builds the request for one claim, sends exactly one attempt and maps the
// outcome to a dynamic status. It never returns an error.
func (e *Executor) Test(ctx context.Context, targetURL string, claim models.VulnerabilityClaim) models.DynamicVerdict {
	verdict := models.DynamicVerdict{
		VulnerabilityID: claim.ID,
		Title:           claim.Title,
		Type:            claim.Type,
		Status:          models.DynamicNotReproducible,
		Attempts:        []models.Attempt{},
		Confidence:      models.ConfidenceLow,
	}

	nr := extract.Request(claim)
	if nr.Empty() {
		log.Warn().Str("vulnerability_id", claim.ID.String()).Msg("⚠️ Nothing to send, claim is untestable")
		verdict.Untestable = true
		verdict.Notes = "No request could be extracted from the report"
		return verdict
	}

	attempt, outcome := e.Execute(ctx, targetURL, claim, nr)
	verdict.Attempts = append(verdict.Attempts, attempt)

	switch outcome {
	case OutcomeConfirmed:
		verdict.Status = models.DynamicConfirmed
		verdict.Confidence = models.ConfidenceHigh
	case OutcomePossible:
		verdict.Status = models.DynamicPossible
		verdict.Confidence = models.ConfidenceMedium
	}

	log.Info().
		Str("vulnerability_id", claim.ID.String()).
		Str("status", verdict.Status).
		Msg("🎯 Exploitation attempt classified")

	return verdict
}

// Execute sends one request and classifies the response. Transport errors end
// up in Attempt.Error with OutcomeNone.
func (e *Executor) Execute(
	ctx context.Context,
	targetURL string,
	claim models.VulnerabilityClaim,
	nr models.NormalizedRequest,
) (models.Attempt, Outcome) {
	attempt := models.Attempt{
		Method:    nr.Method,
		Endpoint:  nr.Endpoint,
		Payload:   nr.Payload,
		Parameter: nr.Parameter,
	}

	req, err := BuildRequest(targetURL, nr, e.userAgent)
	if err != nil {
		attempt.Error = fmt.Sprintf("build request: %v", err)
		return attempt, OutcomeNone
	}
	attempt.Method = req.Method
	attempt.URL = req.URL

	resp, err := e.client.Do(ctx, req)
	if err != nil {
		attempt.Error = err.Error()
		return attempt, OutcomeNone
	}

	body := string(resp.Body)
	maxBody := e.limiter.GetLimits().MaxResponseBodyForLLM

	attempt.StatusCode = resp.StatusCode
	attempt.ElapsedSeconds = resp.Elapsed.Seconds()
	attempt.ResponseSize = len(resp.Body)
	attempt.BodySample = limits.Truncate(body, maxBody)
	attempt.Headers = pickHeaders(resp)

	if page, ok := e.forms.ExtractPage(body, resp.Headers.Get("Content-Type")); ok {
		attempt.PageTitle = page.Title
		attempt.FormFields = page.FormFields
	}

	return attempt, e.classify(ctx, claim, &attempt, resp, body)
}

// classify: LLM -> индикаторы (только если LLM не ответил) -> вторичные сигналы
func (e *Executor) classify(
	ctx context.Context,
	claim models.VulnerabilityClaim,
	attempt *models.Attempt,
	resp *Response,
	body string,
) Outcome {
	prompt := llm.BuildExploitJudgementPrompt(&llm.ExploitJudgementRequest{
		VulnerabilityType: claim.Type,
		Description:       claim.Description,
		Method:            attempt.Method,
		URL:               attempt.URL,
		Payload:           attempt.Payload,
		StatusCode:        attempt.StatusCode,
		ResponseBody:      attempt.BodySample,
	})
	judgement, err := llm.CompleteJSON[llm.ExploitJudgement](ctx, e.reasoner, prompt)

	if err == nil {
		if judgement.Vulnerable {
			attempt.Evidence = orDefault(judgement.Evidence, "Vulnerability indicators detected")
			return OutcomeConfirmed
		}
		attempt.Evidence = orDefault(judgement.Evidence, "No vulnerability indicators found")
	} else {
		log.Warn().Err(err).Str("vulnerability_id", claim.ID.String()).Msg("⚠️ LLM judgement unavailable, using heuristics")
		if indicator, ok := utils.MatchIndicator(body); ok {
			attempt.Indicator = indicator
			attempt.Evidence = utils.DescribeIndicator(indicator, body)
			return OutcomeConfirmed
		}
	}

	switch {
	case resp.StatusCode >= 500:
		attempt.Evidence = fmt.Sprintf("Server error response: %d", resp.StatusCode)
		return OutcomePossible
	case attempt.ElapsedSeconds > slowResponseSeconds:
		attempt.Evidence = fmt.Sprintf("Unusual response time: %.2fs (possible time-based attack)", attempt.ElapsedSeconds)
		return OutcomePossible
	}
	if _, ok := utils.MatchGenericError(body); ok {
		attempt.Evidence = "Error messages detected in response"
		return OutcomePossible
	}
	return OutcomeNone
}

func pickHeaders(resp *Response) map[string]string {
	headers := make(map[string]string)
	for _, name := range []string{"Content-Type", "Server"} {
		if v := resp.Headers.Get(name); v != "" {
			headers[name] = v
		}
	}
	return headers
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// TestAll прогоняет все claims через пул воркеров. Порядок результатов совпадает с порядком claims.
func (e *Executor) TestAll(
	ctx context.Context,
	targetURL string,
	claims []models.VulnerabilityClaim,
	concurrency int,
) *models.DynamicResult {
	result := &models.DynamicResult{
		TargetURL: targetURL,
		Results:   make([]models.DynamicVerdict, len(claims)),
	}
	if len(claims) == 0 {
		log.Warn().Msg("⚠️ No vulnerabilities provided for testing")
		return result
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	log.Info().
		Str("target", targetURL).
		Int("claims", len(claims)).
		Int("workers", concurrency).
		Msg("🚀 Starting targeted vulnerability testing")

	pool := tunny.NewFunc(concurrency, func(payload interface{}) interface{} {
		return e.safeTest(ctx, targetURL, payload.(models.VulnerabilityClaim))
	})
	defer pool.Close()

	var wg sync.WaitGroup
	for i, claim := range claims {
		wg.Add(1)
		go func(i int, claim models.VulnerabilityClaim) {
			defer wg.Done()
			result.Results[i] = pool.Process(claim).(models.DynamicVerdict)
		}(i, claim)
	}
	wg.Wait()

	result.Summary = Summarize(result.Results)
	log.Info().
		Int("tested", result.Summary.Tested).
		Int("confirmed", result.Summary.Confirmed).
		Msg("✅ Dynamic testing completed")
	return result
}

// safeTest изолирует панику одной проверки от остального батча
func (e *Executor) safeTest(ctx context.Context, targetURL string, claim models.VulnerabilityClaim) (verdict models.DynamicVerdict) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("vulnerability_id", claim.ID.String()).Msg("❌ Exploitation test panicked")
			verdict = models.DynamicVerdict{
				VulnerabilityID: claim.ID,
				Title:           claim.Title,
				Type:            claim.Type,
				Status:          models.DynamicNotReproducible,
				Attempts:        []models.Attempt{{Error: fmt.Sprintf("panic: %v", r)}},
				Confidence:      models.ConfidenceLow,
			}
		}
	}()
	return e.Test(ctx, targetURL, claim)
}

// Summarize считает статусы по всем вердиктам
func Summarize(results []models.DynamicVerdict) models.DynamicSummary {
	var s models.DynamicSummary
	for _, r := range results {
		if r.Untestable {
			s.Untestable++
			continue
		}
		s.Tested++
		switch r.Status {
		case models.DynamicConfirmed:
			s.Confirmed++
		case models.DynamicPossible:
			s.Possible++
		default:
			s.NotReproducible++
		}
	}
	return s
}
