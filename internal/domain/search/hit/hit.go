package hit

// Hit is a single backend-local retrieval result. Rank is 0-based within the
// producing backend's list; Score is on that backend's own scale.
type Hit struct {
	DocumentID string
	Rank       int
	Score      float64
	Payload    map[string]string
}

// FromOrdered assigns ranks by position.
func FromOrdered(hits []Hit) []Hit {
	for i := range hits {
		hits[i].Rank = i
	}
	return hits
}
