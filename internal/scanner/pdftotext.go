package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TextExtractor - внешний коллаборатор извлечения текста из отчёта
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// FileExtractor читает текстовые отчёты (.txt, .md, .json) как есть
type FileExtractor struct {
	MaxFileSize int64
}

func (e FileExtractor) Extract(_ context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat report: %w", err)
	}
	if e.MaxFileSize > 0 && info.Size() > e.MaxFileSize {
		return "", fmt.Errorf("report %s is too large (%d bytes > %d)", path, info.Size(), e.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	return string(data), nil
}

// PDFToText runs `pdftotext <path> -` and returns stdout
type PDFToText struct {
	Binary  string
	Timeout time.Duration
}

func (e PDFToText) Extract(ctx context.Context, path string) (string, error) {
	binary := e.Binary
	if binary == "" {
		binary = "pdftotext"
	}

	res, err := Run(ctx, Command{
		Name:    binary,
		Args:    []string{"-layout", path, "-"},
		Timeout: e.Timeout,
	})
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("pdftotext exited with %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return string(res.Stdout), nil
}

// ExtractorFor выбирает extractor по расширению файла
func ExtractorFor(path string, pdf PDFToText, maxFileSize int64) TextExtractor {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pdf
	}
	return FileExtractor{MaxFileSize: maxFileSize}
}
