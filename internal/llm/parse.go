package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON - в ответе модели не нашлось JSON объекта
var ErrNoJSON = errors.New("no JSON object found in model output")

// ParseJSONResponse разбирает недоверенный ответ модели в два этапа:
// строгий json.Unmarshal, затем первый сбалансированный {...} фрагмент.
func ParseJSONResponse[T any](text string) (*T, error) {
	trimmed := stripCodeFence(strings.TrimSpace(text))
	if trimmed == "" {
		return nil, ErrNoJSON
	}

	var out T
	strictErr := json.Unmarshal([]byte(trimmed), &out)
	if strictErr == nil {
		return &out, nil
	}

	span, ok := ExtractJSONObject(trimmed)
	if !ok {
		return nil, fmt.Errorf("%w (strict parse: %v)", ErrNoJSON, strictErr)
	}

	out = *new(T)
	if err := json.Unmarshal([]byte(span), &out); err != nil {
		return nil, fmt.Errorf("parse extracted JSON: %w", err)
	}
	return &out, nil
}

// ParseOrFallback - полный трёхэтапный разбор: если обе попытки провалились,
// результат строит fallback. Второе значение false означает, что сработал fallback.
func ParseOrFallback[T any](text string, fallback func(err error) T) (T, bool) {
	out, err := ParseJSONResponse[T](text)
	if err != nil {
		return fallback(err), false
	}
	return *out, true
}

// CompleteJSON asks the reasoner once and parses the reply into T.
func CompleteJSON[T any](ctx context.Context, r Reasoner, prompt string) (*T, error) {
	text, err := r.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("reasoner call: %w", err)
	}
	return ParseJSONResponse[T](text)
}

// ExtractJSONObject находит первый сбалансированный и валидный {...} с учётом строк и экранирования
func ExtractJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := matchBrace(text, start); ok {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		rel := strings.IndexByte(text[start+1:], '{')
		if rel < 0 {
			break
		}
		start += 1 + rel
	}
	return "", false
}

// matchBrace возвращает индекс закрывающей скобки для text[start] == '{'
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
