package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_Documents(t *testing.T) {
	idx := NewIndex("docs").
		Prefix("doc:").
		TextWeighted("title", 2).
		Text("content").
		Tag("tags").
		VectorHNSW("embedding", 1024, DistanceCosine, 16, 200).
		MustBuild()

	if idx.Name != "docs" {
		t.Errorf("name = %q, want docs", idx.Name)
	}
	if len(idx.Fields) != 4 {
		t.Fatalf("fields count = %d, want 4", len(idx.Fields))
	}
	if idx.Fields[0].Type != IndexFieldText || idx.Fields[0].TextWeight != 2 {
		t.Errorf("field[0] = %+v, want weighted TEXT", idx.Fields[0])
	}
	if idx.Fields[2].Type != IndexFieldTag || idx.Fields[2].TagSeparator != "," {
		t.Errorf("field[2] = %+v, want TAG with ',' separator", idx.Fields[2])
	}
	f := idx.Fields[3]
	if f.VectorDim != 1024 || f.VectorM != 16 || f.VectorEFConstruct != 200 {
		t.Errorf("vector field = %+v", f)
	}
}

func TestIndexBuilder_String(t *testing.T) {
	idx := NewIndex("docs").
		Prefix("doc:").
		TextWeighted("title", 2).
		Tag("tags").
		VectorHNSW("embedding", 8, DistanceCosine, 0, 0).
		MustBuild()

	s := idx.String()
	for _, want := range []string{
		"FT.CREATE docs ON HASH",
		"PREFIX doc:",
		"title TEXT WEIGHT 2",
		"tags TAG",
		"embedding VECTOR HNSW DIM 8",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestIndexBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		builder *IndexBuilder
	}{
		{"empty name", NewIndex("").Text("content")},
		{"invalid name", NewIndex("bad name").Text("content")},
		{"no fields", NewIndex("docs")},
		{"duplicate field", NewIndex("docs").Text("title").Tag("title")},
		{"zero dim", NewIndex("docs").VectorHNSW("embedding", 0, DistanceCosine, 0, 0)},
		{"negative weight", NewIndex("docs").TextWeighted("title", -1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.builder.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMustBuild_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewIndex("").MustBuild()
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"docs", true},
		{"docs:v2", true},
		{"my_index-1", true},
		{"", false},
		{"with space", false},
		{"semi;colon", false},
	}
	for _, tt := range tests {
		if got := IsValidIdentifier(tt.s); got != tt.want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}
