// Package index bootstraps the document search index at startup.
package index

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

// store is the consumer interface for index bootstrap (ISP).
type store interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Spec describes the document hash layout the search engine reads.
type Spec struct {
	Name         string
	KeyPrefix    string
	TitleField   string
	TitleWeight  float64
	ContentField string
	TagFields    []string
	VectorField  string
	Dimensions   int
	HNSW         HNSWConfig
}

// Build converts the index Spec into an FT.CREATE definition.
// The vector field is omitted when Dimensions is zero.
func (s Spec) Build() (*db.IndexDefinition, error) {
	b := db.NewIndex(s.Name).Prefix(s.KeyPrefix)
	if s.TitleField != "" {
		b.TextWeighted(s.TitleField, s.TitleWeight)
	}
	if s.ContentField != "" {
		b.Text(s.ContentField)
	}
	for _, tag := range s.TagFields {
		b.Tag(tag)
	}
	if s.VectorField != "" && s.Dimensions > 0 {
		b.VectorHNSW(s.VectorField, s.Dimensions, db.DistanceCosine, s.HNSW.M, s.HNSW.EFConstruct)
	}
	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build index %s: %w", s.Name, err)
	}
	return def, nil
}

// Ensure creates the index when it does not exist yet. An index created
// concurrently by another instance counts as success.
func Ensure(ctx context.Context, s store, spec Spec, logger *zap.Logger) error {
	exists, err := s.IndexExists(ctx, spec.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", spec.Name, err)
	}
	if exists {
		logger.Debug("Search index exists", zap.String("index", spec.Name))
		return nil
	}

	def, err := spec.Build()
	if err != nil {
		return err
	}
	if err := s.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", spec.Name, err)
	}
	logger.Info("Search index created", zap.String("index", spec.Name), zap.String("definition", def.String()))
	return nil
}

// dropStore can also remove an index.
type dropStore interface {
	store
	DropIndex(ctx context.Context, name string) error
}

// Recreate drops the index and builds it again from spec. Documents stay in
// place and Redis re-indexes them in the background. A missing index is not an error.
func Recreate(ctx context.Context, s dropStore, spec Spec, logger *zap.Logger) error {
	if err := s.DropIndex(ctx, spec.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", spec.Name, err)
	}
	logger.Info("Search index dropped for rebuild", zap.String("index", spec.Name))
	return Ensure(ctx, s, spec, logger)
}
