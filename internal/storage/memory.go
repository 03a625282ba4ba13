package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
)

// MemoryStore хранит документы сериализованными, чтобы вызывающий код
// не мог изменить сохранённое состояние через указатель
type MemoryStore struct {
	docs map[string][]byte
	mu   sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
	}
}

func (s *MemoryStore) Create(_ context.Context, doc *models.AssessmentDocument) error {
	if err := prepareNew(doc); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return fmt.Errorf("create %s: %w", doc.ID, ErrAlreadyExists)
	}
	s.docs[doc.ID] = data
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.AssessmentDocument, error) {
	s.mu.RLock()
	data, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return decode(data)
}

func (s *MemoryStore) Update(_ context.Context, id string, fn MutateFunc) (*models.AssessmentDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := applyMutation(doc, fn); err != nil {
		return nil, err
	}
	updated, err := encode(doc)
	if err != nil {
		return nil, err
	}
	s.docs[id] = updated
	return doc, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]models.AssessmentSummary, error) {
	s.mu.RLock()
	summaries := make([]models.AssessmentSummary, 0, len(s.docs))
	for _, data := range s.docs {
		doc, err := decode(data)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		summaries = append(summaries, doc.Summarize())
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if limit = normalizeLimit(limit); len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
