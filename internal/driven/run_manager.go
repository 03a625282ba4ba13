package driven

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrTooManyRuns = errors.New("too many assessments in progress")
	ErrRunExists   = errors.New("assessment is already running")
)

// RunInfo - снимок состояния фонового прогона
type RunInfo struct {
	ID         string `json:"document_id"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at,omitempty"`
	Running    bool   `json:"running"`
	Error      string `json:"error,omitempty"`
}

type run struct {
	info   RunInfo
	cancel context.CancelFunc
	done   chan struct{}
}

// RunManager управляет фоновыми прогонами (serve режим) с лимитом и очисткой
type RunManager struct {
	runs              map[string]*run
	mutex             sync.RWMutex
	cleanupTicker     *time.Ticker
	stopChan          chan struct{}
	baseCtx           context.Context
	cancelAll         context.CancelFunc
	wg                sync.WaitGroup
	maxActive         int
	retention         time.Duration
	lastGlobalCleanup int64
}

// RunManagerOptions опции для создания менеджера
type RunManagerOptions struct {
	MaxActive       int
	CleanupInterval time.Duration
	Retention       time.Duration
}

// DefaultRunManagerOptions возвращает опции по умолчанию
func DefaultRunManagerOptions() *RunManagerOptions {
	return &RunManagerOptions{
		MaxActive:       4,                // Одновременных прогонов
		CleanupInterval: 15 * time.Minute, // Очистка каждые 15 минут
		Retention:       24 * time.Hour,   // Сколько помнить завершённые
	}
}

func NewRunManager() *RunManager {
	return NewRunManagerWithOptions(nil)
}

func NewRunManagerWithOptions(opts *RunManagerOptions) *RunManager {
	if opts == nil {
		opts = DefaultRunManagerOptions()
	}
	if opts.MaxActive <= 0 {
		opts.MaxActive = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	manager := &RunManager{
		runs:              make(map[string]*run),
		stopChan:          make(chan struct{}),
		baseCtx:           ctx,
		cancelAll:         cancel,
		maxActive:         opts.MaxActive,
		retention:         opts.Retention,
		lastGlobalCleanup: time.Now().Unix(),
	}

	if opts.CleanupInterval > 0 {
		manager.startCleanupRoutine(opts.CleanupInterval)
	}
	return manager
}

func (m *RunManager) startCleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	m.cleanupTicker = ticker
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.PerformGlobalCleanup()
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Launch запускает fn в фоне. Контекст fn не зависит от контекста HTTP запроса
// и отменяется через Cancel или Stop.
func (m *RunManager) Launch(id string, fn func(ctx context.Context) error) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, exists := m.runs[id]; exists && r.info.Running {
		return fmt.Errorf("%s: %w", id, ErrRunExists)
	}
	if m.activeLocked() >= m.maxActive {
		return ErrTooManyRuns
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	r := &run{
		info:   RunInfo{ID: id, StartedAt: time.Now().Unix(), Running: true},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.runs[id] = r

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(r.done)
		defer cancel()

		err := m.safeCall(ctx, id, fn)

		m.mutex.Lock()
		r.info.Running = false
		r.info.FinishedAt = time.Now().Unix()
		if err != nil {
			r.info.Error = err.Error()
		}
		m.mutex.Unlock()
	}()
	return nil
}

func (m *RunManager) safeCall(ctx context.Context, id string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("document_id", id).Interface("panic", rec).Msg("❌ Assessment run panicked")
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}

func (m *RunManager) activeLocked() int {
	n := 0
	for _, r := range m.runs {
		if r.info.Running {
			n++
		}
	}
	return n
}

// Get возвращает снимок прогона
func (m *RunManager) Get(id string) (RunInfo, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.runs[id]
	if !ok {
		return RunInfo{}, false
	}
	return r.info, true
}

// Wait блокируется до завершения прогона или отмены ctx
func (m *RunManager) Wait(ctx context.Context, id string) error {
	m.mutex.RLock()
	r, ok := m.runs[id]
	m.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel отменяет прогон, если он ещё идёт
func (m *RunManager) Cancel(id string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.runs[id]
	if !ok || !r.info.Running {
		return false
	}
	r.cancel()
	return true
}

// ActiveIDs возвращает id идущих прогонов, по времени старта
func (m *RunManager) ActiveIDs() []string {
	m.mutex.RLock()
	active := make([]RunInfo, 0, len(m.runs))
	for _, r := range m.runs {
		if r.info.Running {
			active = append(active, r.info)
		}
	}
	m.mutex.RUnlock()

	sort.Slice(active, func(i, j int) bool {
		if active[i].StartedAt == active[j].StartedAt {
			return active[i].ID < active[j].ID
		}
		return active[i].StartedAt < active[j].StartedAt
	})
	ids := make([]string, 0, len(active))
	for _, info := range active {
		ids = append(ids, info.ID)
	}
	return ids
}

// PerformGlobalCleanup забывает завершённые прогоны старше retention
func (m *RunManager) PerformGlobalCleanup() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	evicted := 0
	for id, r := range m.runs {
		if r.info.Running {
			continue
		}
		if now.Sub(time.Unix(r.info.FinishedAt, 0)) >= m.retention {
			delete(m.runs, id)
			evicted++
		}
	}
	m.lastGlobalCleanup = now.Unix()

	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Int("remaining", len(m.runs)).Msg("🧹 Run cleanup completed")
	}
}

// GetStats возвращает статистику менеджера
func (m *RunManager) GetStats() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	failed := 0
	for _, r := range m.runs {
		if r.info.Error != "" {
			failed++
		}
	}
	return map[string]interface{}{
		"total_runs":          len(m.runs),
		"active_runs":         m.activeLocked(),
		"failed_runs":         failed,
		"max_active":          m.maxActive,
		"last_global_cleanup": m.lastGlobalCleanup,
	}
}

// Stop отменяет все прогоны и ждёт их завершения
func (m *RunManager) Stop() {
	if m.cleanupTicker != nil {
		close(m.stopChan)
		m.cleanupTicker.Stop()
		m.cleanupTicker = nil
	}
	m.cancelAll()
	m.wg.Wait()
}
