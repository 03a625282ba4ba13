package models

import (
	"encoding/json"
	"time"
)

// Стадии оценки
const (
	StageInitializing = "initializing"
	StagePDF          = "pdf_analysis"
	StageStatic       = "static_analysis"
	StageDynamic      = "dynamic_analysis"
	StageTriage       = "triage_analysis"
	StageCompleted    = "completed"
)

// TrackedStages - стадии, которые учитываются в completion_percentage
var TrackedStages = []string{StagePDF, StageStatic, StageDynamic, StageTriage}

// Статусы документа
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const DocumentVersion = "1.0"

type ExecutionMetadata struct {
	PDFPath       string `json:"pdf_path,omitempty"`
	SourcePath    string `json:"source_path,omitempty"`
	TargetURL     string `json:"target_url,omitempty"`
	ModelUsed     string `json:"model_used,omitempty"`
	ExecutionMode string `json:"execution_mode,omitempty"`
}

// VulnerabilityRecord - claim плюс всё, что стадии к нему добавили
type VulnerabilityRecord struct {
	Claim           VulnerabilityClaim `json:"claim"`
	StaticAnalysis  *StaticVerdict     `json:"static_analysis,omitempty"`
	DynamicAnalysis *DynamicVerdict    `json:"dynamic_analysis,omitempty"`
	FinalStatus     string             `json:"final_status,omitempty"`
	ConfidenceLevel string             `json:"confidence_level,omitempty"`
	Priority        string             `json:"priority,omitempty"`
	RiskRating      string             `json:"risk_rating,omitempty"`
}

// AssessmentDocument - один сквозной прогон
type AssessmentDocument struct {
	ID                   string                     `json:"document_id"`
	Version              string                     `json:"version"`
	CreatedAt            time.Time                  `json:"created_at"`
	UpdatedAt            time.Time                  `json:"updated_at"`
	Status               string                     `json:"status"`
	CurrentStage         string                     `json:"current_stage"`
	StagesCompleted      []string                   `json:"stages_completed"`
	CompletionPercentage int                        `json:"completion_percentage"`
	Vulnerabilities      []VulnerabilityRecord      `json:"vulnerabilities"`
	StageResults         map[string]json.RawMessage `json:"stage_results,omitempty"`
	FinalResult          json.RawMessage            `json:"final_result,omitempty"`
	ExecutionMetadata    ExecutionMetadata          `json:"execution_metadata"`
	Errors               []string                   `json:"errors,omitempty"`
}

// HasStage reports whether stage is already in StagesCompleted.
func (d *AssessmentDocument) HasStage(stage string) bool {
	for _, s := range d.StagesCompleted {
		if s == stage {
			return true
		}
	}
	return false
}

// FindVulnerability returns the record with the given id.
func (d *AssessmentDocument) FindVulnerability(id ClaimID) (*VulnerabilityRecord, bool) {
	for i := range d.Vulnerabilities {
		if d.Vulnerabilities[i].Claim.ID == id {
			return &d.Vulnerabilities[i], true
		}
	}
	return nil, false
}

// AssessmentSummary - краткая строка для списка последних оценок
type AssessmentSummary struct {
	ID                   string    `json:"document_id"`
	CreatedAt            time.Time `json:"created_at"`
	Status               string    `json:"status"`
	CurrentStage         string    `json:"current_stage"`
	CompletionPercentage int       `json:"completion_percentage"`
	ExecutionMode        string    `json:"execution_mode"`
	TargetURL            string    `json:"target_url,omitempty"`
	Vulnerabilities      int       `json:"vulnerabilities"`
}

// Summarize builds the list-view row for a document.
func (d *AssessmentDocument) Summarize() AssessmentSummary {
	return AssessmentSummary{
		ID:                   d.ID,
		CreatedAt:            d.CreatedAt,
		Status:               d.Status,
		CurrentStage:         d.CurrentStage,
		CompletionPercentage: d.CompletionPercentage,
		ExecutionMode:        d.ExecutionMetadata.ExecutionMode,
		TargetURL:            d.ExecutionMetadata.TargetURL,
		Vulnerabilities:      len(d.Vulnerabilities),
	}
}
