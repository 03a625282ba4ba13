// Package extract pulls a normalized exploitation request out of a reported claim.
// Everything here is pure: no I/O, no errors, no panics on odd input.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
)

// Паттерны компилируются один раз при старте
var (
	// requestLinePattern - "<VERB> <path>" внутри PoC
	requestLinePattern = regexp.MustCompile(`\b(GET|POST|PUT|DELETE)\s+(\S+)`)

	// postPayloadPattern - явные присваивания в теле POST
	postPayloadPattern = regexp.MustCompile(`(?i)payload[\s=:]+['"]([^'"]+)['"]|with payload[\s=:]+['"]([^'"]+)['"]|username=([^&\s]+)|password=([^&\s]+)`)

	// injectionPatterns пробуются по порядку, первый матч выигрывает
	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)['"]([^'"]*(?:or|script|\.\.|/)[^'"]*)['"]?`),
		regexp.MustCompile(`(?i)=([^&\s]*(?:or|script|\.\.|/)[^&\s]*)`),
		regexp.MustCompile(`(?i)url=([^&\s]+)`),
	}

	// injectionMarkers ищутся в PoC в нижнем регистре
	injectionMarkers = []string{"' or", "<script", "../", "http://"}

	// methodPriority - порядок поиска глаголов в тексте PoC
	methodPriority = []string{"POST", "PUT", "DELETE"}
)

// Request builds the normalized request for a claim. Fields that cannot be
// determined are empty strings; an all-empty result means "untestable".
func Request(claim models.VulnerabilityClaim) models.NormalizedRequest {
	poc := claim.ProofOfConcept

	endpoint, verb := endpointAndVerb(claim, poc)
	method := resolveMethod(claim, verb, poc)

	nr := models.NormalizedRequest{
		Method:    method,
		Endpoint:  endpoint,
		Payload:   resolvePayload(claim, method, poc),
		Parameter: firstNonEmpty(claim.Parameter, claim.Param),
	}
	// нечего отправлять - метод тоже не выдумываем
	if nr.Empty() {
		return models.NormalizedRequest{}
	}
	return nr
}

// endpointAndVerb: explicit endpoint/url -> affected_components[0] -> request line in PoC.
// The verb is only captured when the endpoint came from the PoC request line.
func endpointAndVerb(claim models.VulnerabilityClaim, poc string) (endpoint, verb string) {
	explicit := strings.TrimSpace(firstNonEmpty(claim.Endpoint, claim.URL))
	if explicit != "" && explicit != "/" {
		return explicit, ""
	}

	if len(claim.AffectedComponents) > 0 {
		if c := strings.TrimSpace(claim.AffectedComponents[0]); c != "" {
			return c, ""
		}
	}

	if m := requestLinePattern.FindStringSubmatch(poc); m != nil {
		path := m[2]
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		return path, m[1]
	}
	return "", ""
}

// resolveMethod: explicit method -> captured verb -> POST/PUT/DELETE substring in PoC -> GET.
// A GET candidate that was not given explicitly still yields to a verb found in the PoC text.
func resolveMethod(claim models.VulnerabilityClaim, verb, poc string) string {
	if m := strings.ToUpper(strings.TrimSpace(claim.Method)); m != "" {
		return m
	}
	if verb != "" && verb != "GET" {
		return verb
	}
	for _, candidate := range methodPriority {
		if strings.Contains(poc, candidate) {
			return candidate
		}
	}
	return "GET"
}

func resolvePayload(claim models.VulnerabilityClaim, method, poc string) string {
	if p := firstNonEmpty(claim.Payload, claim.Exploit); p != "" {
		return p
	}
	if poc == "" {
		return ""
	}

	if method == "GET" {
		if _, query, ok := strings.Cut(poc, "?"); ok {
			if end := strings.IndexFunc(query, unicode.IsSpace); end >= 0 {
				query = query[:end]
			}
			if query != "" {
				return query
			}
		}
	}

	if method == "POST" {
		if m := postPayloadPattern.FindStringSubmatch(poc); m != nil {
			for _, group := range m[1:] {
				if group != "" {
					return group
				}
			}
		}
	}

	if hasInjectionMarker(poc) {
		for _, pattern := range injectionPatterns {
			if m := pattern.FindStringSubmatch(poc); m != nil && m[1] != "" {
				return m[1]
			}
		}
	}
	return ""
}

func hasInjectionMarker(poc string) bool {
	lower := strings.ToLower(poc)
	for _, marker := range injectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
