package pipeline

import (
	"context"

	"github.com/geostrata/categorize/internal/core/model"
	"github.com/geostrata/categorize/internal/engine"
)

// EnumerateCategories scans the division dataset and returns the distinct
// category values in stable first-seen order. Order feeds scratch artifact
// naming, so it must be reproducible across runs over the same data. Null
// values are not categories. An empty result is valid.
func EnumerateCategories(ctx context.Context, eng engine.Engine, dataset, field string) ([]model.Value, error) {
	values, err := eng.ScanValues(ctx, dataset, field)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(values))
	var out []model.Value
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		k := v.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
