package models

// Значения-заглушки: поле технических доказательств никогда не бывает пустым
const (
	NoCodeEvidence    = "No code evidence found"
	NoLocation        = "No location identified"
	NoHTTPRequest     = "No HTTP request captured"
	NoHTTPResponse    = "No HTTP response captured"
	NoPayload         = "No payload identified"
	NoProofOfConcept  = "No proof of concept available"
	StaticPoCPrefix   = "Static Analysis PoC: "
	DynamicPoCPrefix  = "Dynamic Analysis PoC: "
	EvidenceSeparator = "; "
)

type TechnicalEvidence struct {
	VulnerableCodeSnippet string `json:"vulnerable_code_snippet"`
	FileLocation          string `json:"file_location"`
	HTTPRequestExample    string `json:"http_request_example"`
	HTTPResponseExample   string `json:"http_response_example"`
	ExploitationPayload   string `json:"exploitation_payload"`
	ProofOfConcept        string `json:"proof_of_concept"`
}

// EmptyEvidence returns a record with every field set to its sentinel.
func EmptyEvidence() TechnicalEvidence {
	return TechnicalEvidence{
		VulnerableCodeSnippet: NoCodeEvidence,
		FileLocation:          NoLocation,
		HTTPRequestExample:    NoHTTPRequest,
		HTTPResponseExample:   NoHTTPResponse,
		ExploitationPayload:   NoPayload,
		ProofOfConcept:        NoProofOfConcept,
	}
}

// NormalizedRequest - запрос для эксплуатации, извлечённый из claim
type NormalizedRequest struct {
	Method    string `json:"method"`
	Endpoint  string `json:"endpoint"`
	Payload   string `json:"payload"`
	Parameter string `json:"parameter"`
}

// Empty reports whether nothing could be extracted, i.e. the claim is untestable.
func (r NormalizedRequest) Empty() bool {
	return r.Endpoint == "" && r.Payload == "" && r.Parameter == ""
}
