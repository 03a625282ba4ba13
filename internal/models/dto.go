package models

// StartAssessmentDTO - тело POST /assessments
type StartAssessmentDTO struct {
	Mode       string               `json:"mode"`
	PDFPath    string               `json:"pdf_path,omitempty"`
	SourcePath string               `json:"source_path,omitempty"`
	TargetURL  string               `json:"target_url,omitempty"`
	Claims     []VulnerabilityClaim `json:"claims,omitempty"`
}

// StageEventDTO отправляется через WebSocket после каждой записи стадии
type StageEventDTO struct {
	DocumentID           string `json:"document_id"`
	Stage                string `json:"stage"`
	Status               string `json:"status"`
	CompletionPercentage int    `json:"completion_percentage"`
	Vulnerabilities      int    `json:"vulnerabilities"`
}

type ErrorDTO struct {
	Error string `json:"error"`
}
