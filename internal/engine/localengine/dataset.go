package localengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/geostrata/categorize/internal/core/model"
)

// dataset is the stored form of an artifact: its schema plus its features.
type dataset struct {
	Fields   []model.FieldSpec `json:"fields"`
	Features []model.Feature   `json:"features"`
}

func (d *dataset) fieldIndex(name string) int {
	for i, f := range d.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (d *dataset) fieldNames() map[string]struct{} {
	out := make(map[string]struct{}, len(d.Fields))
	for _, f := range d.Fields {
		out[f.Name] = struct{}{}
	}
	return out
}

func (e *Engine) load(ctx context.Context, name string) (*dataset, error) {
	b, err := e.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}
	var ds dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		return nil, fmt.Errorf("dataset %q: decode: %w", name, err)
	}
	return &ds, nil
}

func (e *Engine) save(ctx context.Context, name string, ds *dataset) error {
	b, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("dataset %q: encode: %w", name, err)
	}
	if err := e.store.Put(ctx, name, b); err != nil {
		return fmt.Errorf("dataset %q: %w", name, err)
	}
	return nil
}
