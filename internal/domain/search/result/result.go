package result

// NoRank marks a document absent from a backend's list.
const NoRank = -1

// Fused is one deduplicated document in the merged ranking.
type Fused struct {
	id          string
	score       float64
	payload     map[string]string
	lexicalRank int
	vectorRank  int
}

// New creates a fused result. Use NoRank for a backend that did not return the document.
func New(id string, score float64, payload map[string]string, lexicalRank, vectorRank int) Fused {
	return Fused{
		id: id, score: score, payload: payload,
		lexicalRank: lexicalRank, vectorRank: vectorRank,
	}
}

// ID returns the document identifier.
func (r *Fused) ID() string { return r.id }

// Score returns the fused score.
func (r *Fused) Score() float64 { return r.score }

// Payload returns the document fields.
func (r *Fused) Payload() map[string]string { return r.payload }

// LexicalRank returns the 0-based lexical rank or NoRank.
func (r *Fused) LexicalRank() int { return r.lexicalRank }

// VectorRank returns the 0-based vector rank or NoRank.
func (r *Fused) VectorRank() int { return r.vectorRank }
