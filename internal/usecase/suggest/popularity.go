package suggest

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultPopularitySize bounds the number of tracked terms.
	DefaultPopularitySize = 10000
	// DefaultPopularityCap is the largest value a counter can reach.
	DefaultPopularityCap = 100
	// DefaultPopularityHalfLife halves a counter that is not observed again.
	DefaultPopularityHalfLife = 24 * time.Hour
)

type counter struct {
	value   float64
	updated time.Time
}

// Popularity tracks how often terms are searched. Counters are bounded in
// number (LRU), capped in value and decay exponentially over time.
type Popularity struct {
	mu       sync.Mutex
	counters *lru.Cache[string, counter]
	maxValue float64
	halfLife time.Duration
	now      func() time.Time
}

// NewPopularity creates a tracker for up to size terms.
func NewPopularity(size int, maxValue float64, halfLife time.Duration) (*Popularity, error) {
	if size <= 0 {
		size = DefaultPopularitySize
	}
	if maxValue <= 0 {
		maxValue = DefaultPopularityCap
	}
	c, err := lru.New[string, counter](size)
	if err != nil {
		return nil, fmt.Errorf("create popularity cache: %w", err)
	}
	return &Popularity{counters: c, maxValue: maxValue, halfLife: halfLife, now: time.Now}, nil
}

// Observe increments the counter for term.
func (p *Popularity) Observe(term string) {
	key := normalize(term)
	if key == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	value := 1.0
	if c, ok := p.counters.Get(key); ok {
		value = p.decayed(c, now) + 1
	}
	p.counters.Add(key, counter{value: math.Min(value, p.maxValue), updated: now})
}

// Count returns the current decayed counter for term.
func (p *Popularity) Count(term string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.counters.Peek(normalize(term))
	if !ok {
		return 0
	}
	return p.decayed(c, p.now())
}

func (p *Popularity) decayed(c counter, now time.Time) float64 {
	if p.halfLife <= 0 {
		return c.value
	}
	elapsed := now.Sub(c.updated)
	if elapsed <= 0 {
		return c.value
	}
	return c.value * math.Exp2(-elapsed.Seconds()/p.halfLife.Seconds())
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
