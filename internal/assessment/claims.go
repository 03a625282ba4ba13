package assessment

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/BetterCallFirewall/Revalidator/internal/llm"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
)

// сколько уровней result/raw_output разворачиваем
const maxNestingDepth = 6

// ExtractClaims достаёт список уязвимостей из вывода стадии разбора отчёта.
// Принимает голый список, {vulnerabilities:[...]}, а также вложенные
// {result:{...}} и {raw_output:"<json text>"}. Пустые id заменяются на порядковые.
func ExtractClaims(raw json.RawMessage) ([]models.VulnerabilityClaim, bool) {
	claims, ok := extractClaims(raw, 0)
	if !ok {
		return nil, false
	}
	AssignOrdinalIDs(claims)
	return claims, true
}

func extractClaims(raw json.RawMessage, depth int) ([]models.VulnerabilityClaim, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || depth > maxNestingDepth {
		return nil, false
	}

	switch raw[0] {
	case '[':
		var claims []models.VulnerabilityClaim
		if err := json.Unmarshal(raw, &claims); err != nil {
			return nil, false
		}
		return claims, true

	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, false
		}
		return extractClaimsFromText(text, depth+1)

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
		if list, ok := obj["vulnerabilities"]; ok {
			if claims, ok := extractClaims(list, depth+1); ok {
				return claims, true
			}
		}
		for _, key := range []string{"result", "raw_output"} {
			if nested, ok := obj[key]; ok {
				if claims, ok := extractClaims(nested, depth+1); ok {
					return claims, true
				}
			}
		}
	}
	return nil, false
}

// текст от модели: сначала строго, потом первый {...}
func extractClaimsFromText(text string, depth int) ([]models.VulnerabilityClaim, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	if claims, ok := extractClaims(json.RawMessage(text), depth); ok {
		return claims, true
	}
	span, ok := llm.ExtractJSONObject(text)
	if !ok {
		return nil, false
	}
	return extractClaims(json.RawMessage(span), depth)
}

// AssignOrdinalIDs выдаёт "1", "2", ... тем claim, у которых нет id
func AssignOrdinalIDs(claims []models.VulnerabilityClaim) {
	for i := range claims {
		if claims[i].ID == "" {
			claims[i].ID = models.ClaimID(strconv.Itoa(i + 1))
		}
	}
}
