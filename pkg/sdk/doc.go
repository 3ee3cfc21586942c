// Package hybridsearch embeds the hybrid search engine in a Go program.
// It queries an existing Redis 8 search index with BM25 and vector KNN,
// fuses both rankings and returns autocomplete suggestions.
//
//	client, _ := hybridsearch.New(ctx,
//	    hybridsearch.WithRedis("localhost:6379", ""),
//	    hybridsearch.WithIndex(hybridsearch.IndexSchema{Name: "documents", KeyPrefix: "doc:"}),
//	    hybridsearch.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	res, _ := client.Search(ctx, hybridsearch.SearchRequest{
//	    Query:   "golang AND concurrency",
//	    Filters: map[string][]string{"lang": {"en"}},
//	})
//	for _, h := range res.Hits {
//	    fmt.Println(h.ID, h.Score, h.Payload["title"])
//	}
//
// Without an embedder, hybrid searches degrade to keyword-only results.
package hybridsearch
