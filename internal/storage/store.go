// Package storage persists assessment documents.
//
// Every backend implements DocumentStore. Update is an atomic
// read-modify-write: the mutate callback sees the latest stored document
// and its result is written only if nothing else changed the document in
// between.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BetterCallFirewall/Revalidator/internal/config"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("assessment document not found")
	ErrNotConnected  = errors.New("document store is not reachable")
	ErrAlreadyExists = errors.New("assessment document already exists")
)

// DefaultListLimit - сколько последних оценок показывать по умолчанию
const DefaultListLimit = 10

// MutateFunc изменяет документ на месте. Ошибка отменяет запись.
type MutateFunc func(doc *models.AssessmentDocument) error

type DocumentStore interface {
	Create(ctx context.Context, doc *models.AssessmentDocument) error
	Get(ctx context.Context, id string) (*models.AssessmentDocument, error)
	Update(ctx context.Context, id string, fn MutateFunc) (*models.AssessmentDocument, error)
	List(ctx context.Context, limit int) ([]models.AssessmentSummary, error)
	Close() error
}

// NewDocumentID генерирует идентификатор документа
func NewDocumentID() string {
	return uuid.NewString()
}

// Open создаёт хранилище по конфигу. Недоступное хранилище - ErrNotConnected.
func Open(ctx context.Context, cfg config.StoreConfig) (DocumentStore, error) {
	switch cfg.Kind {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreSQLite:
		return NewSQLiteStore(ctx, cfg.DSN)
	case config.StoreRedis:
		return NewRedisStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

func encode(doc *models.AssessmentDocument) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}
	return data, nil
}

func decode(data []byte) (*models.AssessmentDocument, error) {
	var doc models.AssessmentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}

// prepareNew заполняет служебные поля нового документа
func prepareNew(doc *models.AssessmentDocument) error {
	if doc == nil {
		return errors.New("document cannot be nil")
	}
	if doc.ID == "" {
		doc.ID = NewDocumentID()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.Version == "" {
		doc.Version = models.DocumentVersion
	}
	if doc.StagesCompleted == nil {
		doc.StagesCompleted = []string{}
	}
	if doc.Vulnerabilities == nil {
		doc.Vulnerabilities = []models.VulnerabilityRecord{}
	}
	return nil
}

// applyMutation прогоняет fn над документом и обновляет UpdatedAt.
// ID менять нельзя.
func applyMutation(doc *models.AssessmentDocument, fn MutateFunc) error {
	id := doc.ID
	if err := fn(doc); err != nil {
		return err
	}
	doc.ID = id
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
