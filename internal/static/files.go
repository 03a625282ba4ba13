package static

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// sourceExtensions - файлы, которые имеет смысл осматривать
var sourceExtensions = []string{".py", ".js", ".php", ".java", ".cs", ".rb", ".go"}

// FindRelevantFiles ищет файлы исходников, в имени или пути (относительно sourcePath)
// которых есть component, без учёта регистра
func FindRelevantFiles(sourcePath, component string, limit int) []string {
	needle := strings.ToLower(strings.TrimSpace(component))
	if needle == "" || limit <= 0 {
		return nil
	}

	var found []string
	err := filepath.WalkDir(sourcePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// нечитаемые директории пропускаем
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !hasSourceExtension(d.Name()) {
			return nil
		}

		rel, relErr := filepath.Rel(sourcePath, path)
		if relErr != nil {
			rel = path
		}
		if strings.Contains(strings.ToLower(d.Name()), needle) || strings.Contains(strings.ToLower(rel), needle) {
			found = append(found, path)
			if len(found) >= limit {
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		log.Warn().Err(err).Str("component", component).Msg("⚠️ Error finding relevant files")
	}

	return found
}

func hasSourceExtension(name string) bool {
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
