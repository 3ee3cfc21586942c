package suggest

import (
	"math"
	"testing"
	"time"
)

func TestPopularity_ObserveAndCap(t *testing.T) {
	p, err := NewPopularity(10, 3, 0)
	if err != nil {
		t.Fatalf("NewPopularity: %v", err)
	}

	p.Observe("Go ")
	p.Observe("go")
	if got := p.Count("GO"); got != 2 {
		t.Errorf("Count = %v, want 2", got)
	}

	for range 10 {
		p.Observe("go")
	}
	if got := p.Count("go"); got != 3 {
		t.Errorf("Count = %v, want capped 3", got)
	}
	if got := p.Count("rust"); got != 0 {
		t.Errorf("Count(unknown) = %v, want 0", got)
	}
}

func TestPopularity_Decay(t *testing.T) {
	p, err := NewPopularity(10, 100, time.Hour)
	if err != nil {
		t.Fatalf("NewPopularity: %v", err)
	}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	for range 4 {
		p.Observe("go")
	}
	now = now.Add(time.Hour)
	if got := p.Count("go"); math.Abs(got-2) > 1e-9 {
		t.Errorf("Count after one half-life = %v, want 2", got)
	}

	p.Observe("go")
	now = now.Add(2 * time.Hour)
	if got := p.Count("go"); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("Count = %v, want 0.75", got)
	}
}

func TestPopularity_Bounded(t *testing.T) {
	p, err := NewPopularity(2, 100, 0)
	if err != nil {
		t.Fatalf("NewPopularity: %v", err)
	}
	p.Observe("a")
	p.Observe("b")
	p.Observe("c")

	if got := p.Count("a"); got != 0 {
		t.Errorf("oldest term should be evicted, Count = %v", got)
	}
	if got := p.Count("c"); got != 1 {
		t.Errorf("Count(c) = %v, want 1", got)
	}
}

func TestPopularity_IgnoresBlank(t *testing.T) {
	p, err := NewPopularity(2, 100, 0)
	if err != nil {
		t.Fatalf("NewPopularity: %v", err)
	}
	p.Observe("   ")
	if p.counters.Len() != 0 {
		t.Error("blank term should not be tracked")
	}
}
