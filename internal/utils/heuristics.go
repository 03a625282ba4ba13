package utils

import (
	"regexp"
	"strings"
)

// Heuristic Analysis: быстрые проверки ответа без LLM

// FallbackIndicators - признаки уязвимости, когда LLM недоступен или ответ не разобрался
var FallbackIndicators = []string{
	"error", "exception", "warning", "failed", "syntax",
	"database", "sql", "uid=", "root:", "/etc/", "system32",
}

// GenericErrorWords - вторичный сигнал "possible"
var GenericErrorWords = []string{"error", "exception", "warning", "failed"}

var (
	sqlErrorPatterns = compileAll(
		`sql syntax`,
		`mysql_`,
		`postgresql`,
		`ora-[0-9]+`,
		`sqlite`,
		`syntax error at or near`,
		`unclosed quotation mark`,
		`quoted string not properly terminated`,
		`invalid column name`,
		`table or view does not exist`,
		`ambiguous column name`,
	)

	errorTracePatterns = compileAll(
		`at java\.`,
		`at org\.`,
		`at com\.`,
		`traceback \(most recent call last\)`,
		`file "/`,
		`line [0-9]+, in`,
		`exception in thread`,
		`stack trace:`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// MatchIndicator возвращает первый найденный индикатор из FallbackIndicators
func MatchIndicator(body string) (string, bool) {
	return firstContained(strings.ToLower(body), FallbackIndicators)
}

// MatchGenericError возвращает первое найденное общее слово ошибки
func MatchGenericError(body string) (string, bool) {
	return firstContained(strings.ToLower(body), GenericErrorWords)
}

func firstContained(lower string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return n, true
		}
	}
	return "", false
}

// ContainsSQLError проверяет наличие SQL ошибок
func ContainsSQLError(body string) bool {
	return matchAny(sqlErrorPatterns, strings.ToLower(body))
}

// ContainsErrorTrace проверяет наличие stack traces
func ContainsErrorTrace(body string) bool {
	return matchAny(errorTracePatterns, strings.ToLower(body))
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// DescribeIndicator добавляет к индикатору уточнение, если ответ похож на SQL ошибку или stack trace
func DescribeIndicator(indicator, body string) string {
	evidence := "Potential vulnerability indicator detected: " + indicator
	switch {
	case ContainsSQLError(body):
		evidence += " (SQL error detected in response)"
	case ContainsErrorTrace(body):
		evidence += " (error trace detected in response)"
	}
	return evidence
}
