package model

// Provenance tags an extraction with where its value came from.
type Provenance string

const (
	ProvenanceModel    Provenance = "from_model"
	ProvenanceFallback Provenance = "from_fallback"
)

// Extraction is a schema-validated structured value produced by the
// extraction pipeline. Value always conforms to the requested schema,
// whether it came from the model or from the schema's fallback.
type Extraction struct {
	Value      map[string]any `json:"value"`
	Provenance Provenance     `json:"provenance"`
	Attempts   int            `json:"attempts"`
}

type GenerateRequest struct {
	AccountID string `json:"account_id"`
	Schema    string `json:"schema"`
	Prompt    string `json:"prompt"`
}

type GenerateResult struct {
	Extraction
	NewBalance int64 `json:"new_balance"`
}
