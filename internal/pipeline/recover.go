package pipeline

import (
	"context"
	"time"

	"github.com/geostrata/categorize/internal/engine"
	"github.com/geostrata/categorize/internal/logger"
	"github.com/geostrata/categorize/internal/observability"
)

// recoverUncategorized appends the leftover target geometry not covered by
// any category into the accumulation, with a null category value. Leftovers
// come from the unmodified replica, so the append uses relaxed schema
// matching. With zero categories the whole replica is the leftover.
func (r *Runner) recoverUncategorized(ctx context.Context, ns Namespace) error {
	start := time.Now()
	err := r.recoverInner(ctx, ns)
	observability.ObserveStage(string(StageRecover), err, time.Since(start).Seconds())
	return stageErr(StageRecover, err)
}

func (r *Runner) recoverInner(ctx context.Context, ns Namespace) error {
	log := logger.FromContext(logger.WithStage(ctx, string(StageRecover)), &r.log)
	log.Info().Msg("processing uncategorized features")

	exists, err := r.eng.Exists(ctx, ns.Accumulation())
	if err != nil {
		return engineErr("check accumulation", err)
	}
	if !exists {
		// nothing was categorized; everything is leftover
		if err := r.eng.Copy(ctx, ns.Replica(), ns.Accumulation()); err != nil {
			return engineErr("copy leftover target features", err)
		}
		return nil
	}

	if err := r.eng.Erase(ctx, ns.Replica(), ns.Accumulation(), ns.Uncategorized()); err != nil {
		return engineErr("erase categorized geometry", err)
	}
	if err := r.eng.Append(ctx, ns.Uncategorized(), ns.Accumulation(), engine.SchemaRelaxed); err != nil {
		return engineErr("append uncategorized features", err)
	}
	return nil
}
