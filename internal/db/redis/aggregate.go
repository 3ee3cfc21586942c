package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/hybridsearch/internal/db"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
)

const (
	facetAlias = "__facet"
	countAlias = "count"
)

// Aggregate counts matching documents per value of a TAG field. Multi-valued
// tags are split so each value gets its own bucket.
func (s *Store) Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.FacetCount, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.GroupBy == "" {
		return nil, fmt.Errorf("group by field is required")
	}
	if !filter.ValidFieldName(q.GroupBy) {
		return nil, fmt.Errorf("invalid group by field %q", q.GroupBy)
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(
		q.IndexName, renderQuery(q.Expr, q.Fields, q.Filters),
		"LOAD", "1", "@"+q.GroupBy,
		"APPLY", fmt.Sprintf("split(@%s, \",\")", q.GroupBy), "AS", facetAlias,
		"GROUPBY", "1", "@"+facetAlias,
		"REDUCE", "COUNT", "0", "AS", countAlias,
		"SORTBY", "2", "@"+countAlias, "DESC",
		"MAX", strconv.Itoa(q.Limit),
		"DIALECT", "2",
	).Build()

	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	// [total, [k1, v1, k2, v2], ...]
	out := make([]db.FacetCount, 0, len(raw))
	for i := 1; i < len(raw); i++ {
		row, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(row)
		value := fields[facetAlias]
		if value == "" {
			continue
		}
		n, err := strconv.ParseInt(fields[countAlias], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, db.FacetCount{Value: value, Count: n})
	}
	return out, nil
}
