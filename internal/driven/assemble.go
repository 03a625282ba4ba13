package driven

import (
	"github.com/BetterCallFirewall/Revalidator/internal/assessment"
	"github.com/BetterCallFirewall/Revalidator/internal/config"
	"github.com/BetterCallFirewall/Revalidator/internal/exploit"
	"github.com/BetterCallFirewall/Revalidator/internal/limits"
	"github.com/BetterCallFirewall/Revalidator/internal/llm"
	"github.com/BetterCallFirewall/Revalidator/internal/reader"
	"github.com/BetterCallFirewall/Revalidator/internal/scanner"
	"github.com/BetterCallFirewall/Revalidator/internal/static"
	"github.com/BetterCallFirewall/Revalidator/internal/storage"
	"github.com/BetterCallFirewall/Revalidator/internal/triage"
)

// Assemble собирает пайплайн из конфига. publisher может быть nil.
func Assemble(
	cfg *config.Config,
	reasoner llm.Reasoner,
	store storage.DocumentStore,
	publisher assessment.Publisher,
) *Pipeline {
	limiter := limits.NewLimiter(cfg.Limits)

	pdf := scanner.PDFToText{Binary: cfg.Scanner.PDFToText, Timeout: cfg.Scanner.Timeout}
	semgrep := scanner.NewSemgrep(cfg.Scanner.Binary, cfg.Scanner.Timeout, cfg.Scanner.MaxTargetBytes)
	client := exploit.NewNetHTTPClient(nil, cfg.HTTP.Timeout, limiter.GetLimits().MaxFileSize)

	return NewPipeline(Options{
		Reader:      reader.NewReader(pdf, reasoner, limiter),
		Correlator:  static.NewCorrelator(semgrep, reasoner, limiter),
		Executor:    exploit.NewExecutor(client, reasoner, cfg.HTTP.UserAgent, limiter),
		Engine:      triage.NewEngine(reasoner, limiter, cfg.Report.Language, cfg.LLM.Model),
		Tracker:     assessment.NewTracker(store, publisher),
		Sink:        storage.NewFileSink(cfg.Store.OutputDir),
		Concurrency: cfg.HTTP.Concurrency,
		Model:       cfg.LLM.Model,
	})
}
