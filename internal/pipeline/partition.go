package pipeline

import (
	"context"
	"time"

	"github.com/geostrata/categorize/internal/core/model"
	"github.com/geostrata/categorize/internal/engine"
	"github.com/geostrata/categorize/internal/logger"
	"github.com/geostrata/categorize/internal/observability"
)

// partitionAll replicates the target, adds the output field, and processes
// every partition plan in order. Plans run strictly sequentially: each one
// fully completes its selection, slice derivation, stamp and append before
// the next starts, so the accumulation order is deterministic.
func (r *Runner) partitionAll(ctx context.Context, ns Namespace, p Params, outSpec model.FieldSpec, categories []model.Value) error {
	start := time.Now()
	err := r.partitionAllInner(ctx, ns, p, outSpec, categories)
	observability.ObserveStage(string(StagePartition), err, time.Since(start).Seconds())
	return stageErr(StagePartition, err)
}

func (r *Runner) partitionAllInner(ctx context.Context, ns Namespace, p Params, outSpec model.FieldSpec, categories []model.Value) error {
	if err := r.eng.Copy(ctx, p.Target, ns.Replica()); err != nil {
		return engineErr("replicate target", err)
	}
	if err := r.eng.AddField(ctx, ns.Replica(), outSpec); err != nil {
		return engineErr("add category field", err)
	}

	plans := BuildPlans(ns, p.DivisionField, categories)
	log := logger.FromContext(ctx, &r.log)

	for i, plan := range plans {
		log.Info().
			Int("index", i+1).
			Int("total", len(plans)).
			Str("category", plan.Category.String()).
			Msg("processing category")
		if err := r.partitionOne(logger.WithCategory(ctx, plan.Category.String()), ns, p, plan, outSpec); err != nil {
			return err
		}
	}
	return nil
}

// partitionOne runs steps 1-4 for a single plan. A plan matching zero
// division or target features contributes nothing and is not an error.
func (r *Runner) partitionOne(ctx context.Context, ns Namespace, p Params, plan Plan, outSpec model.FieldSpec) error {
	if err := r.eng.Select(ctx, p.Division, plan.Predicate, plan.DivisionArtifact); err != nil {
		return engineErr("select division subset "+plan.Predicate.String(), err)
	}

	if p.Overrun {
		if err := r.eng.SelectByLocation(ctx, ns.Replica(), plan.DivisionArtifact, plan.SliceArtifact); err != nil {
			return engineErr("select intersecting target features", err)
		}
	} else {
		if err := r.eng.Clip(ctx, ns.Replica(), plan.DivisionArtifact, plan.SliceArtifact); err != nil {
			return engineErr("clip target features", err)
		}
	}

	// category value assigned as a literal, never evaluated
	if err := r.eng.SetField(ctx, plan.SliceArtifact, outSpec.Name, plan.Category); err != nil {
		return engineErr("stamp category value", err)
	}

	exists, err := r.eng.Exists(ctx, ns.Accumulation())
	if err != nil {
		return engineErr("check accumulation", err)
	}
	if !exists {
		if err := r.eng.Copy(ctx, plan.SliceArtifact, ns.Accumulation()); err != nil {
			return engineErr("create accumulation", err)
		}
		return nil
	}
	if err := r.eng.Append(ctx, plan.SliceArtifact, ns.Accumulation(), engine.SchemaStrict); err != nil {
		return engineErr("append to accumulation", err)
	}
	return nil
}
