package domain

// SummaryRecord is the structured output expected from the summarization
// service. It is usable downstream only when SummaryPossible is true;
// Determinable=false alone does not block audio generation.
type SummaryRecord struct {
	Determinable    bool   `json:"determinable"`
	SummaryPossible bool   `json:"summary_possible"`
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	SummaryText     string `json:"summary_text,omitempty"`

	// Reason is the explanation the model may give when it cannot summarize.
	Reason string `json:"reason,omitempty"`
}

// Usable reports whether the record can be spoken and uploaded.
func (r SummaryRecord) Usable() bool {
	return r.SummaryPossible && r.SummaryText != ""
}

// Result is the payload of a completed task and of a cache entry.
type Result struct {
	FileURL     string `json:"file_url"`
	SummaryText string `json:"summary_text"`
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
}
