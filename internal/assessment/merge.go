package assessment

import (
	"bytes"
	"encoding/json"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/rs/zerolog/log"
)

// mergeFunc вливает payload стадии в документ
type mergeFunc func(doc *models.AssessmentDocument, raw json.RawMessage)

var stageMerges = map[string]mergeFunc{
	models.StagePDF:     mergePDF,
	models.StageStatic:  mergeStatic,
	models.StageDynamic: mergeDynamic,
	models.StageTriage:  mergeTriage,
}

// pdf_analysis заменяет список уязвимостей целиком
func mergePDF(doc *models.AssessmentDocument, raw json.RawMessage) {
	claims, ok := ExtractClaims(raw)
	if !ok {
		log.Warn().Str("document_id", doc.ID).Msg("⚠️ No vulnerability list found in report stage payload")
		return
	}
	records := make([]models.VulnerabilityRecord, 0, len(claims))
	for _, c := range claims {
		records = append(records, models.VulnerabilityRecord{Claim: c})
	}
	doc.Vulnerabilities = records
}

func mergeStatic(doc *models.AssessmentDocument, raw json.RawMessage) {
	if len(doc.Vulnerabilities) == 0 {
		log.Debug().Str("document_id", doc.ID).Msg("No vulnerabilities yet, static evidence dropped")
		return
	}
	result, ok := decodeStatic(raw)
	if !ok {
		return
	}
	for _, v := range result.Assessments {
		rec, found := doc.FindVulnerability(v.VulnerabilityID)
		if !found {
			continue
		}
		verdict := v
		rec.StaticAnalysis = &verdict
	}
}

// decodeStatic понимает и плоский StaticResult, и обёртку vulnerability_analysis
func decodeStatic(raw json.RawMessage) (*models.StaticResult, bool) {
	var result models.StaticResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false
	}
	if len(result.Assessments) > 0 {
		return &result, true
	}

	var wrapped struct {
		Analysis *models.StaticResult `json:"vulnerability_analysis"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Analysis != nil {
		return wrapped.Analysis, true
	}
	return &result, true
}

func mergeDynamic(doc *models.AssessmentDocument, raw json.RawMessage) {
	if len(doc.Vulnerabilities) == 0 {
		log.Debug().Str("document_id", doc.ID).Msg("No vulnerabilities yet, dynamic evidence dropped")
		return
	}
	var result models.DynamicResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return
	}
	for _, v := range result.Results {
		rec, found := doc.FindVulnerability(v.VulnerabilityID)
		if !found {
			continue
		}
		verdict := v
		rec.DynamicAnalysis = &verdict
	}
}

// triageOverlay - поля итогового вердикта, которые копируются в запись уязвимости
type triageOverlay struct {
	ID              models.ClaimID `json:"vulnerability_id"`
	FinalStatus     string         `json:"final_status"`
	ConfidenceLevel string         `json:"confidence_level"`
	Priority        string         `json:"priority"`
	RiskRating      string         `json:"risk_rating"`
}

// triage_analysis: final_result как есть, плюс вердикты поверх уязвимостей
func mergeTriage(doc *models.AssessmentDocument, raw json.RawMessage) {
	doc.FinalResult = append(json.RawMessage(nil), raw...)
	applyTriageOverlay(doc, raw)
}

func applyTriageOverlay(doc *models.AssessmentDocument, raw json.RawMessage) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return
	}
	var lists struct {
		Triage          []triageOverlay `json:"vulnerability_triage"`
		Vulnerabilities []triageOverlay `json:"vulnerabilities"`
	}
	if err := json.Unmarshal(raw, &lists); err != nil {
		log.Warn().Err(err).Str("document_id", doc.ID).Msg("⚠️ Triage payload has no usable verdict list")
		return
	}

	overlays := lists.Triage
	if len(overlays) == 0 {
		overlays = lists.Vulnerabilities
	}
	for _, o := range overlays {
		rec, found := doc.FindVulnerability(o.ID)
		if !found {
			continue
		}
		setIfNotEmpty(&rec.FinalStatus, o.FinalStatus)
		setIfNotEmpty(&rec.ConfidenceLevel, o.ConfidenceLevel)
		setIfNotEmpty(&rec.Priority, o.Priority)
		setIfNotEmpty(&rec.RiskRating, o.RiskRating)
	}
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
