package mode

import "strings"

// Mode is the retrieval strategy.
type Mode string

// Search mode constants.
const (
	// Hybrid fuses lexical and vector retrieval.
	Hybrid   Mode = "hybrid"
	Semantic Mode = "semantic"
	Keyword  Mode = "keyword"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Keyword
}

// Parse normalizes user input into a Mode. Empty input means Hybrid and
// "vector" is accepted as an alias of Semantic. Unknown values are returned
// as-is so callers can reject them with IsValid.
func Parse(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Hybrid
	case "vector":
		return Semantic
	default:
		return Mode(strings.ToLower(strings.TrimSpace(s)))
	}
}

// UsesLexical reports whether the mode queries the lexical backend.
func (m Mode) UsesLexical() bool { return m == Hybrid || m == Keyword }

// UsesVector reports whether the mode queries the vector backend.
func (m Mode) UsesVector() bool { return m == Hybrid || m == Semantic }
