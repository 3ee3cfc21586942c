package index

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

type mockStore struct {
	exists    bool
	existsErr error
	createErr error
	created   *db.IndexDefinition
	dropErr   error
	dropped   string
}

func (m *mockStore) DropIndex(_ context.Context, name string) error {
	m.dropped = name
	if m.dropErr == nil {
		m.exists = false
	}
	return m.dropErr
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.created = def
	return m.createErr
}

func testSpec() Spec {
	return Spec{
		Name:         "docs:idx",
		KeyPrefix:    "doc:",
		TitleField:   "title",
		TitleWeight:  2,
		ContentField: "content",
		TagFields:    []string{"tags", "type"},
		VectorField:  "embedding",
		Dimensions:   8,
		HNSW:         HNSWConfig{M: 16, EFConstruct: 200},
	}
}

func TestBuild(t *testing.T) {
	def, err := testSpec().Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(def.Fields) != 5 {
		t.Fatalf("fields = %d, want 5", len(def.Fields))
	}
	if def.Fields[0].TextWeight != 2 {
		t.Errorf("title weight = %v", def.Fields[0].TextWeight)
	}
	last := def.Fields[4]
	if last.Type != db.IndexFieldVector || last.VectorDim != 8 {
		t.Errorf("vector field = %+v", last)
	}
}

func TestBuild_NoVector(t *testing.T) {
	s := testSpec()
	s.Dimensions = 0
	def, err := s.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range def.Fields {
		if f.Type == db.IndexFieldVector {
			t.Error("unexpected vector field")
		}
	}
}

func TestEnsure_Creates(t *testing.T) {
	ms := &mockStore{}
	if err := Ensure(context.Background(), ms, testSpec(), zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.created == nil || ms.created.Name != "docs:idx" {
		t.Errorf("created = %+v", ms.created)
	}
}

func TestEnsure_AlreadyExists(t *testing.T) {
	ms := &mockStore{exists: true}
	if err := Ensure(context.Background(), ms, testSpec(), zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.created != nil {
		t.Error("index should not be recreated")
	}
}

func TestEnsure_CreateRace(t *testing.T) {
	ms := &mockStore{createErr: db.ErrIndexExists}
	if err := Ensure(context.Background(), ms, testSpec(), zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsure_Errors(t *testing.T) {
	boom := errors.New("boom")

	ms := &mockStore{existsErr: boom}
	if err := Ensure(context.Background(), ms, testSpec(), zap.NewNop()); !errors.Is(err, boom) {
		t.Errorf("expected exists error, got %v", err)
	}

	ms = &mockStore{createErr: boom}
	if err := Ensure(context.Background(), ms, testSpec(), zap.NewNop()); !errors.Is(err, boom) {
		t.Errorf("expected create error, got %v", err)
	}
}

func TestRecreate(t *testing.T) {
	ms := &mockStore{exists: true}
	if err := Recreate(context.Background(), ms, testSpec(), zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.dropped != "docs:idx" || ms.created == nil {
		t.Errorf("dropped = %q, created = %v", ms.dropped, ms.created)
	}
}

func TestRecreate_MissingIndex(t *testing.T) {
	ms := &mockStore{dropErr: db.ErrIndexNotFound}
	if err := Recreate(context.Background(), ms, testSpec(), zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.created == nil {
		t.Error("index should be created")
	}
}

func TestRecreate_DropError(t *testing.T) {
	boom := errors.New("boom")
	ms := &mockStore{exists: true, dropErr: boom}
	if err := Recreate(context.Background(), ms, testSpec(), zap.NewNop()); !errors.Is(err, boom) {
		t.Fatalf("expected drop error, got %v", err)
	}
	if ms.created != nil {
		t.Error("index must not be created after a failed drop")
	}
}
