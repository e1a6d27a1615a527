package parser

import "encoding/json"

// Inconsistency is one cross-section contradiction reported by the
// consistency agent.
type Inconsistency struct {
	Section1    string `json:"secao_1"`
	Section2    string `json:"secao_2"`
	Description string `json:"descricao"`
	Severity    int    `json:"severidade"`
	Suggestion  string `json:"sugestao"`
}

// ConsistencyReport is the structured outcome of the consistency pass.
type ConsistencyReport struct {
	Inconsistencies []Inconsistency `json:"inconsistencias"`
	Consistent      bool            `json:"consistente"`
	Summary         string          `json:"resumo"`
}

// ParseConsistency extracts the consistency payload from a model response.
// Severity values are clamped like review findings.
func ParseConsistency(raw string) (*ConsistencyReport, error) {
	var report ConsistencyReport
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &report); err != nil {
		return nil, newParseError(raw, err)
	}
	for i := range report.Inconsistencies {
		report.Inconsistencies[i].Severity = clampSeverity(report.Inconsistencies[i].Severity)
	}
	return &report, nil
}
