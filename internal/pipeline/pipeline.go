// Package pipeline implements the categorization run: derive the output
// schema from the division dataset, partition target geometry per category,
// optionally recover uncategorized leftovers, and dissolve the accumulated
// result by attribute tuple.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/geostrata/categorize/internal/core/model"
	"github.com/geostrata/categorize/internal/engine"
	"github.com/geostrata/categorize/internal/logger"
	"github.com/geostrata/categorize/internal/observability"
)

// Params are the inputs of one categorization run. The workspace is carried
// by the engine, never by ambient process state.
type Params struct {
	Target        string
	Division      string
	DivisionField string
	Output        string
	OutputField   string

	// Overrun copies target features intersecting a category whole instead
	// of clipping them, allowing overlap across category outputs.
	Overrun bool
	// IncludeUncategorized appends target geometry outside every division
	// polygon with a null category value.
	IncludeUncategorized bool
}

func (p Params) validate() error {
	switch {
	case strings.TrimSpace(p.Target) == "":
		return errors.New("target features are required")
	case strings.TrimSpace(p.Division) == "":
		return errors.New("division features are required")
	case strings.TrimSpace(p.DivisionField) == "":
		return errors.New("division field is required")
	case strings.TrimSpace(p.Output) == "":
		return errors.New("output features are required")
	case strings.TrimSpace(p.OutputField) == "":
		return errors.New("output field is required")
	}
	return nil
}

// Result summarizes a completed run.
type Result struct {
	Output     string
	Field      model.FieldSpec
	Categories []model.Value
	Features   int
	Token      string
}

type Runner struct {
	eng engine.Engine
	log zerolog.Logger
}

func New(eng engine.Engine, log zerolog.Logger) *Runner {
	return &Runner{eng: eng, log: log}
}

// longNameCapable mirrors the destination-store naming rule: transient and
// geodatabase-class workspaces take 64-character field names unless the
// output is shapefile-class.
func longNameCapable(eng engine.Engine, output string) bool {
	if strings.Contains(output, ".shp") {
		return false
	}
	return eng.Transient() || strings.Contains(eng.Location(), ".gdb")
}

// Run executes the whole pipeline. All errors abort the run with the failing
// stage attached; no partial categorization is published. Scratch artifacts
// are removed best-effort on every path.
func (r *Runner) Run(ctx context.Context, p Params) (Result, error) {
	if err := p.validate(); err != nil {
		return Result{}, stageErr(StageSchema, err)
	}

	ctx = logger.WithRunID(ctx, logger.NewID())
	log := logger.FromContext(ctx, &r.log)

	// configuration errors surface before any artifact exists
	outSpec, err := r.deriveSchema(ctx, p)
	if err != nil {
		return Result{}, err
	}

	categories, err := r.enumerate(ctx, p)
	if err != nil {
		return Result{}, err
	}
	observability.AddCategories(len(categories))
	log.Info().
		Str("field", outSpec.Name).
		Int("categories", len(categories)).
		Msg("scanning categories done")

	ns := NewNamespace(time.Now())
	defer r.cleanup(context.WithoutCancel(ctx), ns)

	if err := r.partitionAll(ctx, ns, p, outSpec, categories); err != nil {
		return Result{}, err
	}

	if p.IncludeUncategorized {
		if err := r.recoverUncategorized(ctx, ns); err != nil {
			return Result{}, err
		}
	}

	if err := r.dedupAndPublish(ctx, ns, p); err != nil {
		return Result{}, err
	}

	count, err := r.eng.Count(ctx, p.Output)
	if err != nil {
		return Result{}, stageErr(StageOutput, err)
	}
	observability.AddFeatures(string(StageOutput), count)
	log.Info().Int("features", count).Str("output", p.Output).Msg("output features generated")

	return Result{
		Output:     p.Output,
		Field:      outSpec,
		Categories: categories,
		Features:   count,
		Token:      ns.Token(),
	}, nil
}

func (r *Runner) deriveSchema(ctx context.Context, p Params) (model.FieldSpec, error) {
	start := time.Now()
	fields, err := r.eng.ListFields(ctx, p.Division)
	if err == nil {
		var spec model.FieldSpec
		spec, err = DeriveOutputField(fields, p.DivisionField, p.OutputField, longNameCapable(r.eng, p.Output))
		if err == nil {
			observability.ObserveStage(string(StageSchema), nil, time.Since(start).Seconds())
			return spec, nil
		}
	}
	observability.ObserveStage(string(StageSchema), err, time.Since(start).Seconds())
	return model.FieldSpec{}, stageErr(StageSchema, err)
}

func (r *Runner) enumerate(ctx context.Context, p Params) ([]model.Value, error) {
	start := time.Now()
	categories, err := EnumerateCategories(ctx, r.eng, p.Division, p.DivisionField)
	observability.ObserveStage(string(StageCategories), err, time.Since(start).Seconds())
	if err != nil {
		return nil, stageErr(StageCategories, err)
	}
	return categories, nil
}

// cleanup deletes every artifact in the run namespace and nothing else. It
// runs on abort too; failures are logged, never returned.
func (r *Runner) cleanup(ctx context.Context, ns Namespace) {
	names, err := r.eng.List(ctx, ns.Pattern())
	if err != nil {
		r.log.Warn().Err(err).Str("pattern", ns.Pattern()).Msg("cleanup: list scratch artifacts")
		return
	}
	for _, name := range names {
		if err := r.eng.Delete(ctx, name); err != nil {
			r.log.Warn().Err(err).Str("artifact", name).Msg("cleanup: delete scratch artifact")
		}
	}
}

func engineErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
