package suggestion

// Suggestion is a ranked autocomplete candidate.
type Suggestion struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}
