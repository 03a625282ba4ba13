package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// FileSink - запасной вывод результата в JSON файл, когда хранилище недоступно
// или пользователь попросил --output
type FileSink struct {
	Dir string
	now func() time.Time
}

type fileEnvelope struct {
	Timestamp string `json:"timestamp"`
	Result    any    `json:"result"`
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir, now: time.Now}
}

// Save пишет {timestamp, result} в Dir/name и возвращает путь файла.
// Пустое имя заменяется на assessment_<время>.json.
func (f *FileSink) Save(name string, result any) (string, error) {
	now := f.now().UTC()
	if name == "" {
		name = fmt.Sprintf("assessment_%s.json", now.Format("20060102_150405"))
	}
	name = filepath.Base(name)
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}

	if f.Dir != "" {
		if err := os.MkdirAll(f.Dir, 0o755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}
	path := filepath.Join(f.Dir, name)

	data, err := json.MarshalIndent(fileEnvelope{
		Timestamp: now.Format(time.RFC3339),
		Result:    result,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("❌ Failed to save result to file")
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	log.Info().Str("path", path).Msg("💾 Assessment result saved to file")
	return path, nil
}
