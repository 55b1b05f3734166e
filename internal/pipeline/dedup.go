package pipeline

import (
	"context"
	"time"

	"github.com/geostrata/categorize/internal/core/model"
	"github.com/geostrata/categorize/internal/logger"
	"github.com/geostrata/categorize/internal/observability"
)

// DedupFields selects the dissolve grouping fields: every field except
// geometry and identity classes, in schema order.
func DedupFields(fields []model.FieldSpec) []string {
	var out []string
	for _, f := range fields {
		if f.Type.IsGeometry() || f.Type.IsIdentity() {
			continue
		}
		out = append(out, f.Name)
	}
	return out
}

// dedupAndPublish dissolves the accumulation by its non-identity attribute
// tuple and materializes the final output. Bounded clipping and the
// per-category loop can leave multiple fragments carrying identical
// attributes; the dissolve presents each tuple as one record. It runs in
// overrun mode too: distinct categories keep distinct tuples there, so the
// intended cross-category overlap survives while same-category fragments
// merge. With no categories and no recovered leftovers the output is empty
// but carries the replica's schema.
func (r *Runner) dedupAndPublish(ctx context.Context, ns Namespace, p Params) error {
	start := time.Now()
	err := r.dedupInner(ctx, ns, p)
	observability.ObserveStage(string(StageDedup), err, time.Since(start).Seconds())
	return stageErr(StageDedup, err)
}

func (r *Runner) dedupInner(ctx context.Context, ns Namespace, p Params) error {
	log := logger.FromContext(logger.WithStage(ctx, string(StageDedup)), &r.log)

	exists, err := r.eng.Exists(ctx, ns.Accumulation())
	if err != nil {
		return engineErr("check accumulation", err)
	}
	if !exists {
		fields, err := r.eng.ListFields(ctx, ns.Replica())
		if err != nil {
			return engineErr("list replica fields", err)
		}
		if err := r.eng.Create(ctx, p.Output, fields); err != nil {
			return engineErr("create empty output", err)
		}
		return nil
	}

	fields, err := r.eng.ListFields(ctx, ns.Accumulation())
	if err != nil {
		return engineErr("list accumulation fields", err)
	}
	groupFields := DedupFields(fields)
	log.Info().Int("group_fields", len(groupFields)).Msg("deduplicating data")

	if err := r.eng.Dissolve(ctx, ns.Accumulation(), groupFields, ns.Dissolved()); err != nil {
		return engineErr("dissolve accumulation", err)
	}
	if err := r.eng.Copy(ctx, ns.Dissolved(), p.Output); err != nil {
		return engineErr("materialize output", err)
	}
	return nil
}
