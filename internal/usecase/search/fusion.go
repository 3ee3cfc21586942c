package search

import (
	"maps"
	"math"
	"sort"

	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
)

type fused struct {
	id          string
	score       float64
	payload     map[string]string
	lexicalRank int
	vectorRank  int
}

// Fuse merges lexical and vector hits. A hit at position i of a list of
// length n contributes 1 - i/n; contributions of the same document are summed.
// The lexical payload wins when a document appears in both lists.
func Fuse(lexical, vector []hit.Hit, limit int) []result.Fused {
	if limit <= 0 {
		return []result.Fused{}
	}

	byID := make(map[string]*fused, len(lexical)+len(vector))
	order := make([]*fused, 0, len(lexical)+len(vector))

	get := func(h hit.Hit) *fused {
		if f, ok := byID[h.DocumentID]; ok {
			return f
		}
		f := &fused{
			id:          h.DocumentID,
			payload:     h.Payload,
			lexicalRank: result.NoRank,
			vectorRank:  result.NoRank,
		}
		byID[h.DocumentID] = f
		order = append(order, f)
		return f
	}

	n := float64(len(lexical))
	for i, h := range lexical {
		f := get(h)
		if f.lexicalRank != result.NoRank {
			continue
		}
		f.lexicalRank = i
		f.score += 1 - float64(i)/n
	}

	n = float64(len(vector))
	for i, h := range vector {
		f := get(h)
		if f.vectorRank != result.NoRank {
			continue
		}
		f.vectorRank = i
		f.score += 1 - float64(i)/n
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if ra, rb := rankKey(a.lexicalRank), rankKey(b.lexicalRank); ra != rb {
			return ra < rb
		}
		if ra, rb := rankKey(a.vectorRank), rankKey(b.vectorRank); ra != rb {
			return ra < rb
		}
		return a.id < b.id
	})

	if len(order) > limit {
		order = order[:limit]
	}

	out := make([]result.Fused, len(order))
	for i, f := range order {
		out[i] = result.New(f.id, f.score, maps.Clone(f.payload), f.lexicalRank, f.vectorRank)
	}
	return out
}

func rankKey(r int) int {
	if r == result.NoRank {
		return math.MaxInt
	}
	return r
}
