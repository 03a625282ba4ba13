// Package reader turns a vulnerability report into a list of claims.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BetterCallFirewall/Revalidator/internal/assessment"
	"github.com/BetterCallFirewall/Revalidator/internal/limits"
	"github.com/BetterCallFirewall/Revalidator/internal/llm"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/BetterCallFirewall/Revalidator/internal/scanner"
	"github.com/rs/zerolog/log"
)

const fallbackSummary = "Failed to parse report structure. Raw content available."

// ErrEmptyReport - из отчёта не извлеклось ни одного символа текста
var ErrEmptyReport = errors.New("no readable text in report")

type Reader struct {
	pdf      scanner.PDFToText
	reasoner llm.Reasoner
	limiter  *limits.Limiter
}

func NewReader(pdf scanner.PDFToText, reasoner llm.Reasoner, limiter *limits.Limiter) *Reader {
	if reasoner == nil {
		reasoner = llm.Unavailable{}
	}
	if limiter == nil {
		limiter = limits.NewLimiter(nil)
	}
	return &Reader{pdf: pdf, reasoner: reasoner, limiter: limiter}
}

// Read извлекает текст и просит модель структурировать его.
// Ошибка только если отчёт не читается; плохой ответ модели даёт ParsingError.
func (r *Reader) Read(ctx context.Context, path string) (*models.ReaderResult, error) {
	log.Info().Str("report", path).Msg("📄 Processing report")

	lim := r.limiter.GetLimits()
	extractor := scanner.ExtractorFor(path, r.pdf, lim.MaxFileSize)
	text, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extract report text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyReport)
	}

	result := r.Interpret(ctx, text)
	result.ReportPath = path
	return result, nil
}

// Interpret - часть Read после извлечения текста
func (r *Reader) Interpret(ctx context.Context, text string) *models.ReaderResult {
	lim := r.limiter.GetLimits()
	prompt := llm.BuildReaderPrompt(limits.Truncate(text, lim.MaxReportChars))

	reply, err := r.reasoner.Complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Reasoner unavailable, report kept as raw content")
		return fallback(text, lim.MaxRawContentChars)
	}

	result, ok := llm.ParseOrFallback(reply, func(err error) models.ReaderResult {
		log.Warn().Err(err).Msg("⚠️ Failed to parse report structure")
		return *fallback(text, lim.MaxRawContentChars)
	})
	if !ok {
		return &result
	}

	if result.Vulnerabilities == nil {
		result.Vulnerabilities = []models.VulnerabilityClaim{}
	}
	assessment.AssignOrdinalIDs(result.Vulnerabilities)

	log.Info().Int("vulnerabilities", len(result.Vulnerabilities)).Msg("✅ Report parsed")
	return &result
}

func fallback(text string, maxRaw int) *models.ReaderResult {
	return &models.ReaderResult{
		ExecutiveSummary: fallbackSummary,
		Vulnerabilities:  []models.VulnerabilityClaim{},
		ParsingError:     true,
		RawContent:       limits.Truncate(text, maxRaw),
	}
}
