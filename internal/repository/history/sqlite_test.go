package history

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
)

func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_AppendAndRecent(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, q := range []string{"first", "second", "third"} {
		err := s.Append(ctx, domain.HistoryRecord{
			UserID:       "u1",
			Query:        q,
			ResultCount:  i,
			Mode:         "hybrid",
			Filters:      map[string][]string{"tags": {"x"}},
			ResponseTime: 15 * time.Millisecond,
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append(%q): %v", q, err)
		}
	}
	if err := s.Append(ctx, domain.HistoryRecord{UserID: "u2", Query: "other", Timestamp: base}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.RecentQueries(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("RecentQueries: %v", err)
	}
	if len(got) != 2 || got[0] != "third" || got[1] != "second" {
		t.Errorf("RecentQueries = %v, want [third second]", got)
	}

	got, err = s.RecentQueries(ctx, "nobody", 10)
	if err != nil {
		t.Fatalf("RecentQueries: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no queries, got %v", got)
	}
}

func TestSQLiteStore_AppendRequiresUser(t *testing.T) {
	s := setupSQLite(t)
	if err := s.Append(context.Background(), domain.HistoryRecord{Query: "q"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSQLiteStore_HealthCheck(t *testing.T) {
	s := setupSQLite(t)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := t.TempDir() + "/history.db"
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Append(ctx, domain.HistoryRecord{UserID: "u", Query: "kept", Timestamp: time.Now()}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_ = s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.RecentQueries(ctx, "u", 5)
	if err != nil {
		t.Fatalf("RecentQueries: %v", err)
	}
	if len(got) != 1 || got[0] != "kept" {
		t.Errorf("RecentQueries = %v", got)
	}
}
