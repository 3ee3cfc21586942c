package filter

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
)

// Limits on filter and facet sizes.
const (
	MaxFields         = 32
	MaxValuesPerField = 64
	MaxFacets         = 16
)

// Set is a validated collection of field constraints. A field matches when
// its tag value equals any of the listed values; fields are ANDed together.
type Set struct {
	fields map[string][]string
}

// ValidFieldName reports whether name is a plain field identifier,
// [A-Za-z0-9_]+. Field names are interpolated into backend queries unescaped.
func ValidFieldName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !isAlpha && !isDigit && c != '_' {
			return false
		}
	}
	return true
}

// New validates and creates a Set from a field -> values mapping.
// A single value is a one-element slice. Errors wrap domain.ErrInvalidRequest.
func New(fields map[string][]string) (Set, error) {
	if len(fields) == 0 {
		return Set{}, nil
	}
	if len(fields) > MaxFields {
		return Set{}, invalid("too many filter fields (max %d)", MaxFields)
	}
	out := make(map[string][]string, len(fields))
	for key, values := range fields {
		if key == "" {
			return Set{}, invalid("filter key is required")
		}
		if !ValidFieldName(key) {
			return Set{}, invalid("invalid filter key %q: only letters, digits and '_' are allowed", key)
		}
		if len(values) == 0 {
			return Set{}, invalid("at least one value is required for key %q", key)
		}
		if len(values) > MaxValuesPerField {
			return Set{}, invalid("too many values for key %q (max %d)", key, MaxValuesPerField)
		}
		cp := make([]string, 0, len(values))
		for _, v := range values {
			if v == "" {
				return Set{}, invalid("empty value for key %q", key)
			}
			cp = append(cp, v)
		}
		out[key] = cp
	}
	return Set{fields: out}, nil
}

// IsEmpty reports whether the set has no constraints.
func (s Set) IsEmpty() bool { return len(s.fields) == 0 }

// Keys returns the constrained field names in sorted order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns the accepted values for a field.
func (s Set) Values(key string) []string { return s.fields[key] }

// Map returns a copy of the underlying mapping.
func (s Set) Map() map[string][]string {
	if len(s.fields) == 0 {
		return nil
	}
	out := make(map[string][]string, len(s.fields))
	for k, v := range s.fields {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// ValidateFacets checks facet field names and drops duplicates.
func ValidateFacets(facets []string) ([]string, error) {
	if len(facets) > MaxFacets {
		return nil, invalid("too many facets (max %d)", MaxFacets)
	}
	seen := make(map[string]struct{}, len(facets))
	out := make([]string, 0, len(facets))
	for _, f := range facets {
		if f == "" {
			return nil, invalid("facet name is required")
		}
		if !ValidFieldName(f) {
			return nil, invalid("invalid facet %q: only letters, digits and '_' are allowed", f)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, fmt.Sprintf(format, args...))
}
