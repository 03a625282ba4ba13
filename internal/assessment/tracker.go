// Package assessment ведёт документ оценки по стадиям
// initializing -> pdf_analysis -> static_analysis -> dynamic_analysis -> triage_analysis -> completed.
//
// Каждая запись идёт через storage.DocumentStore.Update, поэтому параллельные
// стадии (static и dynamic) не теряют изменения друг друга.
package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/BetterCallFirewall/Revalidator/internal/storage"
	"github.com/rs/zerolog/log"
)

var ErrUnknownStage = errors.New("unknown assessment stage")

// Publisher получает событие после каждой успешной записи
type Publisher interface {
	Publish(event models.StageEventDTO)
}

type Tracker struct {
	store     storage.DocumentStore
	publisher Publisher
}

func NewTracker(store storage.DocumentStore, publisher Publisher) *Tracker {
	return &Tracker{store: store, publisher: publisher}
}

// Start создаёт документ до запуска любой стадии. Метаданные больше не меняются.
func (t *Tracker) Start(ctx context.Context, meta models.ExecutionMetadata) (*models.AssessmentDocument, error) {
	doc := &models.AssessmentDocument{
		Status:            models.StatusInProgress,
		CurrentStage:      models.StageInitializing,
		ExecutionMetadata: meta,
	}
	if err := t.store.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}

	log.Info().Str("document_id", doc.ID).Str("mode", meta.ExecutionMode).Msg("📝 Assessment document created")
	t.publish(doc)
	return doc, nil
}

// Advance записывает результат стадии. Повтор уже пройденной стадии
// перезаписывает её результат, процент не меняется.
func (t *Tracker) Advance(ctx context.Context, id, stage string, payload any) (*models.AssessmentDocument, error) {
	merge, ok := stageMerges[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	raw, err := toRaw(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", stage, err)
	}

	doc, err := t.store.Update(ctx, id, func(doc *models.AssessmentDocument) error {
		meta := doc.ExecutionMetadata

		if doc.StageResults == nil {
			doc.StageResults = make(map[string]json.RawMessage)
		}
		doc.StageResults[stage] = raw
		merge(doc, raw)

		markStage(doc, stage)
		doc.ExecutionMetadata = meta
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("document_id", id).Str("stage", stage).Msg("❌ Failed to persist stage result")
		return nil, fmt.Errorf("advance %s: %w", stage, err)
	}

	log.Info().
		Str("document_id", id).
		Str("stage", stage).
		Int("completion", doc.CompletionPercentage).
		Msg("✅ Stage persisted")
	t.publish(doc)
	return doc, nil
}

// Complete - финальная запись: все стадии, 100%, completed. Не зависит от того,
// что успели записать Advance.
func (t *Tracker) Complete(ctx context.Context, id string, finalResult any) (*models.AssessmentDocument, error) {
	raw, err := toRaw(finalResult)
	if err != nil {
		return nil, fmt.Errorf("encode final result: %w", err)
	}

	doc, err := t.store.Update(ctx, id, func(doc *models.AssessmentDocument) error {
		doc.StagesCompleted = append([]string(nil), models.TrackedStages...)
		doc.CompletionPercentage = 100
		doc.Status = models.StatusCompleted
		doc.CurrentStage = models.StageCompleted
		doc.FinalResult = raw
		applyTriageOverlay(doc, raw)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("document_id", id).Msg("❌ Failed to complete assessment")
		return nil, fmt.Errorf("complete assessment: %w", err)
	}

	log.Info().Str("document_id", id).Msg("🏁 Assessment completed")
	t.publish(doc)
	return doc, nil
}

// Fail помечает документ failed и сохраняет причину
func (t *Tracker) Fail(ctx context.Context, id, reason string) (*models.AssessmentDocument, error) {
	doc, err := t.store.Update(ctx, id, func(doc *models.AssessmentDocument) error {
		doc.Status = models.StatusFailed
		if reason != "" {
			doc.Errors = append(doc.Errors, reason)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fail assessment: %w", err)
	}

	log.Warn().Str("document_id", id).Str("reason", reason).Msg("⚠️ Assessment marked failed")
	t.publish(doc)
	return doc, nil
}

// RecordError добавляет заметку об ошибке, не меняя статус
func (t *Tracker) RecordError(ctx context.Context, id, note string) error {
	_, err := t.store.Update(ctx, id, func(doc *models.AssessmentDocument) error {
		doc.Errors = append(doc.Errors, note)
		return nil
	})
	return err
}

func (t *Tracker) Get(ctx context.Context, id string) (*models.AssessmentDocument, error) {
	return t.store.Get(ctx, id)
}

func (t *Tracker) List(ctx context.Context, limit int) ([]models.AssessmentSummary, error) {
	return t.store.List(ctx, limit)
}

// markStage добавляет стадию в множество и пересчитывает процент
func markStage(doc *models.AssessmentDocument, stage string) {
	if !doc.HasStage(stage) {
		doc.StagesCompleted = append(doc.StagesCompleted, stage)
	}
	doc.CurrentStage = stage
	doc.CompletionPercentage = CompletionPercentage(doc.StagesCompleted)
	if doc.CompletionPercentage == 100 {
		doc.Status = models.StatusCompleted
		doc.CurrentStage = models.StageCompleted
	}
}

// CompletionPercentage = 100 * |отслеживаемые стадии| / 4, повторы не считаются
func CompletionPercentage(stages []string) int {
	seen := make(map[string]struct{}, len(stages))
	for _, s := range stages {
		for _, tracked := range models.TrackedStages {
			if s == tracked {
				seen[s] = struct{}{}
			}
		}
	}
	return 100 * len(seen) / len(models.TrackedStages)
}

func toRaw(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, errors.New("invalid JSON payload")
		}
		return p, nil
	case []byte:
		if json.Valid(p) {
			return json.RawMessage(p), nil
		}
		return json.Marshal(string(p))
	default:
		return json.Marshal(v)
	}
}

func (t *Tracker) publish(doc *models.AssessmentDocument) {
	if t.publisher == nil {
		return
	}
	t.publisher.Publish(models.StageEventDTO{
		DocumentID:           doc.ID,
		Stage:                doc.CurrentStage,
		Status:               doc.Status,
		CompletionPercentage: doc.CompletionPercentage,
		Vulnerabilities:      len(doc.Vulnerabilities),
	})
}
