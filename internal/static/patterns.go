package static

import (
	"fmt"
	"strings"
)

// TypePattern - ключевое слово типа уязвимости и сигнатуры, которые ищутся в исходниках.
// Таблица открытая: авторы отчётов пишут тип как угодно, поэтому матчинг по подстроке.
type TypePattern struct {
	Keyword  string
	Patterns []string
}

// DefaultTypePatterns - порядок важен, вывод детерминирован
var DefaultTypePatterns = []TypePattern{
	{Keyword: "xss", Patterns: []string{"innerHTML", "document.write", "eval(", "dangerouslySetInnerHTML"}},
	{Keyword: "sql", Patterns: []string{"SELECT", "INSERT", "UPDATE", "DELETE", "query(", "execute("}},
	{Keyword: "csrf", Patterns: []string{"@csrf_exempt", "csrf_token", "X-CSRFToken"}},
	{Keyword: "lfi", Patterns: []string{"include(", "require(", "file_get_contents", "readfile"}},
	{Keyword: "rce", Patterns: []string{"exec(", "system(", "shell_exec", "eval(", "subprocess"}},
}

// noPatternsFound - результат осмотра файла без совпадений
const noPatternsFound = "No obvious patterns found"

// MatchPatterns проверяет содержимое файла сигнатурами всех ключевых слов, входящих в vulnType
func MatchPatterns(table []TypePattern, vulnType, content string) string {
	lowerType := strings.ToLower(vulnType)

	var hits []string
	for _, tp := range table {
		if !strings.Contains(lowerType, tp.Keyword) {
			continue
		}
		for _, p := range tp.Patterns {
			if strings.Contains(content, p) {
				hits = append(hits, fmt.Sprintf("Found %s pattern", p))
			}
		}
	}

	if len(hits) == 0 {
		return noPatternsFound
	}
	return strings.Join(hits, "; ")
}
