package hybridsearch

// SearchMode controls which backends a search queries.
type SearchMode string

// Search mode constants.
const (
	ModeHybrid   SearchMode = "hybrid"
	ModeSemantic SearchMode = "semantic"
	ModeKeyword  SearchMode = "keyword"
)

// SearchRequest describes one search. Zero values mean defaults:
// hybrid mode, 10 results, no filters, no rewriting.
type SearchRequest struct {
	Query string
	Mode  SearchMode
	Limit int
	// Filters restrict results to documents whose tag field equals one of the values.
	Filters map[string][]string
	// Facets lists tag fields to count over the lexical matches.
	Facets  []string
	UserID  string
	Rewrite bool
}

// Hit is one fused result. A rank is -1 when that backend did not return the document.
type Hit struct {
	ID          string
	Score       float64
	Payload     map[string]string
	LexicalRank int
	VectorRank  int
}

// Suggestion is an autocomplete candidate.
type Suggestion struct {
	Text  string
	Score float64
}

// SearchResult is the answer to a SearchRequest.
type SearchResult struct {
	Hits        []Hit
	Facets      map[string]map[string]int64
	Suggestions []Suggestion
	// Query is the text that was executed; it differs from the request when rewritten.
	Query         string
	Rewritten     bool
	OriginalQuery string
	// Degraded is set when the vector side failed and results are keyword-only.
	Degraded bool
	Warnings []string
	Mode     SearchMode
}

// IndexSchema names the index and the document hash fields the engine reads.
type IndexSchema struct {
	Name         string
	KeyPrefix    string
	TitleField   string
	ContentField string
	VectorField  string
	// TagFields are created as TAG fields by EnsureIndex.
	TagFields []string
	// ReturnFields limits the payload; empty returns all stored fields.
	ReturnFields []string
}
