// Package engine declares the geometry/feature-store contract the
// categorization pipeline runs against.
package engine

import (
	"context"

	"github.com/geostrata/categorize/internal/core/model"
	"github.com/geostrata/categorize/internal/query"
)

// SchemaMode controls how Append reconciles source and target schemas.
type SchemaMode int

const (
	// SchemaStrict requires identical field sets.
	SchemaStrict SchemaMode = iota
	// SchemaRelaxed tolerates extra or missing fields; values for fields
	// absent on the target are dropped, fields absent on the source read
	// as null.
	SchemaRelaxed
)

// Engine is the feature-store and geometry contract. Dataset arguments are
// artifact names inside one workspace; operations that produce features
// materialize them under an explicit output name.
type Engine interface {
	ListFields(ctx context.Context, dataset string) ([]model.FieldSpec, error)
	AddField(ctx context.Context, dataset string, spec model.FieldSpec) error
	ScanValues(ctx context.Context, dataset, field string) ([]model.Value, error)
	Count(ctx context.Context, dataset string) (int, error)

	Create(ctx context.Context, dataset string, fields []model.FieldSpec) error
	Copy(ctx context.Context, src, dst string) error
	Append(ctx context.Context, src, dst string, mode SchemaMode) error
	SetField(ctx context.Context, dataset, field string, v model.Value) error

	Select(ctx context.Context, dataset string, pred query.Predicate, out string) error
	// SelectByLocation materializes into out the features of dataset whose
	// geometry intersects any reference feature, copied unclipped.
	SelectByLocation(ctx context.Context, dataset, reference, out string) error
	// Clip truncates dataset geometry at the union of the boundary
	// dataset's polygons.
	Clip(ctx context.Context, dataset, boundary, out string) error
	// Erase removes from dataset geometry everything covered by the eraser
	// dataset (spatial set difference).
	Erase(ctx context.Context, dataset, eraser, out string) error
	// Dissolve merges features sharing the same tuple of groupFields values
	// into single multi-part features keyed by that tuple.
	Dissolve(ctx context.Context, dataset string, groupFields []string, out string) error

	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, pattern string) ([]string, error)

	// Transient and Location describe the underlying workspace; they drive
	// the output field-name length rule.
	Transient() bool
	Location() string
}
