// Package driven drives one assessment end to end:
// report -> (static ∥ dynamic) -> triage -> final report.
package driven

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/BetterCallFirewall/Revalidator/internal/assessment"
	"github.com/BetterCallFirewall/Revalidator/internal/exploit"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/BetterCallFirewall/Revalidator/internal/reader"
	"github.com/BetterCallFirewall/Revalidator/internal/static"
	"github.com/BetterCallFirewall/Revalidator/internal/storage"
	"github.com/BetterCallFirewall/Revalidator/internal/triage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Режимы запуска
const (
	ModeFull    = "full"
	ModeReader  = "reader"
	ModeStatic  = "static"
	ModeDynamic = "dynamic"
)

var Modes = []string{ModeFull, ModeReader, ModeStatic, ModeDynamic}

// ErrInvalidInput - не хватает входных данных для выбранного режима
var ErrInvalidInput = errors.New("invalid assessment input")

// Input - что нужно для одного прогона
type Input struct {
	Mode       string                      `json:"mode"`
	ReportPath string                      `json:"pdf_path,omitempty"`
	SourcePath string                      `json:"source_path,omitempty"`
	TargetURL  string                      `json:"target_url,omitempty"`
	Claims     []models.VulnerabilityClaim `json:"claims,omitempty"`
	OutputName string                      `json:"-"` // имя файла для FileSink, пусто - только при сбое хранилища
}

// Validate проверяет, что для режима есть все входы
func (in *Input) Validate() error {
	if in.Mode == "" {
		in.Mode = ModeFull
	}
	switch in.Mode {
	case ModeFull:
		if in.ReportPath == "" && len(in.Claims) == 0 {
			return fmt.Errorf("%w: full mode needs a report or a claims list", ErrInvalidInput)
		}
		if in.SourcePath == "" && in.TargetURL == "" {
			return fmt.Errorf("%w: full mode needs a source path or a target url", ErrInvalidInput)
		}
	case ModeReader:
		if in.ReportPath == "" {
			return fmt.Errorf("%w: reader mode needs a report", ErrInvalidInput)
		}
	case ModeStatic:
		if in.SourcePath == "" {
			return fmt.Errorf("%w: static mode needs a source path", ErrInvalidInput)
		}
	case ModeDynamic:
		if in.TargetURL == "" {
			return fmt.Errorf("%w: dynamic mode needs a target url", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, in.Mode)
	}
	return nil
}

// Outcome - результаты всех стадий в памяти, даже если запись в хранилище не удалась
type Outcome struct {
	DocumentID string
	Reader     *models.ReaderResult
	Static     *models.StaticResult
	Dynamic    *models.DynamicResult
	Triage     *models.TriageResult
	Report     *models.FinalReport
	// Final - то, что ушло в final_result (Report в режиме full, иначе вывод стадии)
	Final     any
	SavedFile string
}

type Pipeline struct {
	reader      *reader.Reader
	correlator  *static.Correlator
	executor    *exploit.Executor
	engine      *triage.Engine
	tracker     *assessment.Tracker
	sink        *storage.FileSink
	concurrency int
	model       string
}

type Options struct {
	Reader      *reader.Reader
	Correlator  *static.Correlator
	Executor    *exploit.Executor
	Engine      *triage.Engine
	Tracker     *assessment.Tracker
	Sink        *storage.FileSink
	Concurrency int
	Model       string
}

func NewPipeline(opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		reader:      opts.Reader,
		correlator:  opts.Correlator,
		executor:    opts.Executor,
		engine:      opts.Engine,
		tracker:     opts.Tracker,
		sink:        opts.Sink,
		concurrency: opts.Concurrency,
		model:       opts.Model,
	}
}

// Run = Start + Execute
func (p *Pipeline) Run(ctx context.Context, in Input) (*Outcome, error) {
	id, err := p.Start(ctx, in)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, id, in)
}

// Start проверяет вход и создаёт документ оценки
func (p *Pipeline) Start(ctx context.Context, in Input) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	doc, err := p.tracker.Start(ctx, models.ExecutionMetadata{
		PDFPath:       in.ReportPath,
		SourcePath:    in.SourcePath,
		TargetURL:     in.TargetURL,
		ModelUsed:     p.model,
		ExecutionMode: in.Mode,
	})
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

// Abort помечает документ failed, если прогон так и не был запущен
func (p *Pipeline) Abort(ctx context.Context, id, reason string) error {
	_, err := p.tracker.Fail(ctx, id, reason)
	return err
}

// Execute прогоняет стадии для уже созданного документа.
// Ошибки стадий не выходят наружу; возвращаемая ошибка - только про хранилище
// или нечитаемый отчёт, и к этому моменту результат уже сохранён в файл.
func (p *Pipeline) Execute(ctx context.Context, id string, in Input) (*Outcome, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	// id нужны всем стадиям: вердикты сопоставляются с claims по id
	if len(in.Claims) > 0 {
		in.Claims = append([]models.VulnerabilityClaim(nil), in.Claims...)
		assessment.AssignOrdinalIDs(in.Claims)
	}
	run := &runState{pipeline: p, id: id, out: &Outcome{DocumentID: id}}

	log.Info().Str("document_id", id).Str("mode", in.Mode).Msg("🚀 Starting assessment")

	var err error
	switch in.Mode {
	case ModeReader:
		err = run.readerOnly(ctx, in)
	case ModeStatic:
		run.staticOnly(ctx, in)
	case ModeDynamic:
		run.dynamicOnly(ctx, in)
	default:
		err = run.full(ctx, in)
	}
	if err != nil {
		if _, failErr := p.tracker.Fail(ctx, id, err.Error()); failErr != nil {
			run.persistFailed(failErr)
		}
		return run.out, err
	}

	run.finish(ctx, in)
	return run.out, run.persistErr()
}

// runState - состояние одного прогона
type runState struct {
	pipeline *Pipeline
	id       string
	out      *Outcome

	mu          sync.Mutex
	persistErrs []error
}

func (r *runState) persistFailed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistErrs = append(r.persistErrs, err)
}

func (r *runState) persistErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.persistErrs...)
}

func (r *runState) advance(ctx context.Context, stage string, payload any) {
	if _, err := r.pipeline.tracker.Advance(ctx, r.id, stage, payload); err != nil {
		r.persistFailed(err)
	}
}

func (r *runState) claims(ctx context.Context, in Input) ([]models.VulnerabilityClaim, error) {
	if in.ReportPath == "" {
		r.out.Reader = &models.ReaderResult{Vulnerabilities: in.Claims}
		return in.Claims, nil
	}

	res, err := r.pipeline.reader.Read(ctx, in.ReportPath)
	if err != nil {
		return nil, err
	}
	r.out.Reader = res
	return res.Vulnerabilities, nil
}

func (r *runState) full(ctx context.Context, in Input) error {
	claims, err := r.claims(ctx, in)
	if err != nil {
		return err
	}
	r.advance(ctx, models.StagePDF, r.out.Reader)

	// static и dynamic читают только claims, общего изменяемого состояния нет
	g, gctx := errgroup.WithContext(ctx)
	if in.SourcePath != "" {
		g.Go(func() error {
			r.out.Static = r.pipeline.correlator.Analyze(gctx, in.SourcePath, claims)
			r.advance(gctx, models.StageStatic, r.out.Static)
			return nil
		})
	}
	if in.TargetURL != "" {
		g.Go(func() error {
			r.out.Dynamic = r.pipeline.executor.TestAll(gctx, in.TargetURL, claims, r.pipeline.concurrency)
			r.advance(gctx, models.StageDynamic, r.out.Dynamic)
			return nil
		})
	}
	_ = g.Wait()

	r.out.Triage = r.pipeline.engine.Triage(ctx, claims, r.out.Static, r.out.Dynamic)
	r.advance(ctx, models.StageTriage, r.out.Triage)

	r.out.Report = r.pipeline.engine.BuildReport(triage.ReportInput{
		Triage:  r.out.Triage,
		Reader:  r.out.Reader,
		Static:  r.out.Static,
		Dynamic: r.out.Dynamic,
	})
	r.out.Final = r.out.Report
	return nil
}

func (r *runState) readerOnly(ctx context.Context, in Input) error {
	if _, err := r.claims(ctx, in); err != nil {
		return err
	}
	r.advance(ctx, models.StagePDF, r.out.Reader)
	r.out.Final = r.out.Reader
	return nil
}

func (r *runState) staticOnly(ctx context.Context, in Input) {
	r.out.Static = r.pipeline.correlator.Analyze(ctx, in.SourcePath, in.Claims)
	r.advance(ctx, models.StageStatic, r.out.Static)
	r.out.Final = r.out.Static
}

func (r *runState) dynamicOnly(ctx context.Context, in Input) {
	r.out.Dynamic = r.pipeline.executor.TestAll(ctx, in.TargetURL, in.Claims, r.pipeline.concurrency)
	r.advance(ctx, models.StageDynamic, r.out.Dynamic)
	r.out.Final = r.out.Dynamic
}

// finish закрывает документ и при необходимости пишет файл
func (r *runState) finish(ctx context.Context, in Input) {
	if _, err := r.pipeline.tracker.Complete(ctx, r.id, r.out.Final); err != nil {
		r.persistFailed(err)
	}

	failed := r.persistErr() != nil
	if r.pipeline.sink == nil || (in.OutputName == "" && !failed) {
		return
	}
	if failed {
		log.Warn().Str("document_id", r.id).Msg("⚠️ Store write failed, saving result to file")
	}

	name := in.OutputName
	if name == "" {
		name = fmt.Sprintf("assessment_%s.json", r.id)
	}
	path, err := r.pipeline.sink.Save(name, r.out.Final)
	if err != nil {
		log.Error().Err(err).Msg("❌ Fallback file sink failed")
		return
	}
	r.out.SavedFile = path
}
