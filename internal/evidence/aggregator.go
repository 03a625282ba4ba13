// Package evidence merges static and dynamic verdicts into one technical evidence record.
package evidence

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
)

// Assemble starts from the sentinel record and overlays whatever the static and
// dynamic stages produced for id. Every field is always a non-empty string.
func Assemble(id models.ClaimID, static *models.StaticResult, dynamic *models.DynamicResult) models.TechnicalEvidence {
	ev := models.EmptyEvidence()

	if v, ok := static.Verdict(id); ok {
		overlayStatic(&ev, v)
	}
	if v, ok := dynamic.Verdict(id); ok {
		overlayDynamic(&ev, v)
	}
	return ev
}

func overlayStatic(ev *models.TechnicalEvidence, v *models.StaticVerdict) {
	if len(v.CodeLocations) > 0 {
		ev.FileLocation = strings.Join(v.CodeLocations, models.EvidenceSeparator)
	}
	if len(v.MatchedFindings) > 0 {
		ev.VulnerableCodeSnippet = strings.Join(v.MatchedFindings, models.EvidenceSeparator)
	}
	if v.Evidence != "" {
		ev.ProofOfConcept = models.StaticPoCPrefix + v.Evidence
	}
}

func overlayDynamic(ev *models.TechnicalEvidence, v *models.DynamicVerdict) {
	for _, a := range v.Attempts {
		if line := RenderRequest(a); line != "" {
			ev.HTTPRequestExample = line
		}
		if a.Payload != "" {
			ev.ExploitationPayload = a.Payload
		}
		if a.StatusCode != 0 {
			ev.HTTPResponseExample = RenderResponse(a)
		}
		if a.Evidence != "" {
			appendPoC(ev, models.DynamicPoCPrefix+a.Evidence)
		}
	}
}

// appendPoC дописывает через "; ", если PoC уже не заглушка
func appendPoC(ev *models.TechnicalEvidence, line string) {
	if ev.ProofOfConcept == models.NoProofOfConcept {
		ev.ProofOfConcept = line
		return
	}
	ev.ProofOfConcept += models.EvidenceSeparator + line
}

// RenderRequest рисует запрос попытки в виде HTTP/1.1 текста.
// GET: payload в query строке. Остальные методы: заголовок form-urlencoded и тело.
func RenderRequest(a models.Attempt) string {
	method := strings.ToUpper(a.Method)
	if method == "" || a.Endpoint == "" {
		return ""
	}

	body := a.Payload
	if a.Parameter != "" && a.Payload != "" {
		body = a.Parameter + "=" + a.Payload
	}

	if method == http.MethodGet {
		if body == "" {
			return fmt.Sprintf("GET %s HTTP/1.1", a.Endpoint)
		}
		return fmt.Sprintf("GET %s?%s HTTP/1.1", a.Endpoint, body)
	}

	if body == "" {
		return fmt.Sprintf("%s %s HTTP/1.1", method, a.Endpoint)
	}
	return fmt.Sprintf("%s %s HTTP/1.1\nContent-Type: application/x-www-form-urlencoded\n\n%s", method, a.Endpoint, body)
}

// RenderResponse - краткое описание ответа: статус и размер
func RenderResponse(a models.Attempt) string {
	return fmt.Sprintf("HTTP/1.1 %d\nContent-Length: %d", a.StatusCode, a.ResponseSize)
}
