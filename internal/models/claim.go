package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ClaimID идентификатор уязвимости внутри одной оценки.
// Модели иногда присылают id числом, поэтому принимаем и число, и строку.
type ClaimID string

func (id *ClaimID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ClaimID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ClaimID(n.String())
	return nil
}

func (id ClaimID) String() string {
	return string(id)
}

// VulnerabilityClaim - одна заявленная уязвимость из отчёта.
// Поля Method/Endpoint/URL/Payload/Exploit/Parameter/Param опциональны: отчёты
// иногда содержат уже готовый запрос для эксплуатации.
type VulnerabilityClaim struct {
	ID                 ClaimID  `json:"id"`
	Title              string   `json:"title"`
	Type               string   `json:"type"`
	Severity           string   `json:"severity,omitempty"`
	CVSSScore          string   `json:"cvss_score,omitempty"`
	AffectedComponents []string `json:"affected_components"`
	Description        string   `json:"description"`
	ProofOfConcept     string   `json:"proof_of_concept"`
	Remediation        string   `json:"remediation,omitempty"`

	Method    string `json:"method,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	URL       string `json:"url,omitempty"`
	Payload   string `json:"payload,omitempty"`
	Exploit   string `json:"exploit,omitempty"`
	Parameter string `json:"parameter,omitempty"`
	Param     string `json:"param,omitempty"`
}

// UnmarshalJSON accepts a numeric cvss_score and a single string in
// affected_components, both of which show up in model output.
func (c *VulnerabilityClaim) UnmarshalJSON(data []byte) error {
	type plain VulnerabilityClaim
	aux := struct {
		*plain
		CVSSScore          json.RawMessage `json:"cvss_score,omitempty"`
		AffectedComponents json.RawMessage `json:"affected_components"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.CVSSScore = rawToString(aux.CVSSScore)

	c.AffectedComponents = nil
	raw := bytes.TrimSpace(aux.AffectedComponents)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		c.AffectedComponents = list
	default:
		if s := rawToString(raw); s != "" {
			c.AffectedComponents = []string{s}
		}
	}
	return nil
}

func rawToString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return ""
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(raw)
}
