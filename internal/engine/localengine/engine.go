// Package localengine implements the engine contract over a workspace
// store, with geometry operations on WKT via simplefeatures.
package localengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/peterstace/simplefeatures/geom"

	"github.com/geostrata/categorize/internal/core/model"
	ec "github.com/geostrata/categorize/internal/engine"
	"github.com/geostrata/categorize/internal/observability"
	"github.com/geostrata/categorize/internal/query"
	"github.com/geostrata/categorize/internal/store"
)

const defaultGeomCacheSize = 4096

type Engine struct {
	store store.Store
	geoms *lru.Cache[uint64, geom.Geometry]
}

var _ ec.Engine = (*Engine)(nil)

func New(st store.Store, geomCacheSize int) (*Engine, error) {
	if st == nil {
		return nil, errors.New("localengine: store is required")
	}
	if geomCacheSize <= 0 {
		geomCacheSize = defaultGeomCacheSize
	}
	cache, err := lru.New[uint64, geom.Geometry](geomCacheSize)
	if err != nil {
		return nil, fmt.Errorf("localengine: geometry cache: %w", err)
	}
	return &Engine{store: st, geoms: cache}, nil
}

func (e *Engine) ListFields(ctx context.Context, dataset string) ([]model.FieldSpec, error) {
	ds, err := e.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	out := make([]model.FieldSpec, len(ds.Fields))
	copy(out, ds.Fields)
	return out, nil
}

func (e *Engine) AddField(ctx context.Context, dataset string, spec model.FieldSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return errors.New("add field: name is required")
	}
	if spec.Type.IsGeometry() || spec.Type.IsIdentity() {
		return fmt.Errorf("add field %q: unsupported field type %s", spec.Name, spec.Type.Canon())
	}
	ds, err := e.load(ctx, dataset)
	if err != nil {
		return err
	}
	if ds.fieldIndex(spec.Name) >= 0 {
		return fmt.Errorf("add field %q: already exists on %q", spec.Name, dataset)
	}
	ds.Fields = append(ds.Fields, spec)
	return e.save(ctx, dataset, ds)
}

func (e *Engine) ScanValues(ctx context.Context, dataset, field string) ([]model.Value, error) {
	ds, err := e.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	if ds.fieldIndex(field) < 0 {
		return nil, fmt.Errorf("scan %q: no field %q", dataset, field)
	}
	out := make([]model.Value, 0, len(ds.Features))
	for _, f := range ds.Features {
		out = append(out, f.Attr(field))
	}
	return out, nil
}

func (e *Engine) Count(ctx context.Context, dataset string) (int, error) {
	ds, err := e.load(ctx, dataset)
	if err != nil {
		return 0, err
	}
	return len(ds.Features), nil
}

// Features returns a materialized copy of the dataset's features.
func (e *Engine) Features(ctx context.Context, dataset string) ([]model.Feature, error) {
	ds, err := e.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	out := make([]model.Feature, 0, len(ds.Features))
	for _, f := range ds.Features {
		out = append(out, f.Clone())
	}
	return out, nil
}

func (e *Engine) Create(ctx context.Context, name string, fields []model.FieldSpec) error {
	ds := &dataset{Fields: append([]model.FieldSpec(nil), fields...)}
	return e.save(ctx, name, ds)
}

// PutFeatures materializes a dataset from schema plus features; the loader
// entry point for data originating outside the workspace.
func (e *Engine) PutFeatures(ctx context.Context, name string, fields []model.FieldSpec, features []model.Feature) error {
	ds := &dataset{Fields: append([]model.FieldSpec(nil), fields...)}
	for _, f := range features {
		ds.Features = append(ds.Features, f.Clone())
	}
	return e.save(ctx, name, ds)
}

func (e *Engine) Copy(ctx context.Context, src, dst string) error {
	start := time.Now()
	err := e.copy(ctx, src, dst)
	observability.ObserveEngineOp("copy", err, time.Since(start).Seconds())
	return err
}

func (e *Engine) copy(ctx context.Context, src, dst string) error {
	ds, err := e.load(ctx, src)
	if err != nil {
		return err
	}
	return e.save(ctx, dst, ds)
}

func (e *Engine) Append(ctx context.Context, src, dst string, mode ec.SchemaMode) error {
	start := time.Now()
	err := e.append(ctx, src, dst, mode)
	observability.ObserveEngineOp("append", err, time.Since(start).Seconds())
	return err
}

func (e *Engine) append(ctx context.Context, src, dst string, mode ec.SchemaMode) error {
	from, err := e.load(ctx, src)
	if err != nil {
		return err
	}
	to, err := e.load(ctx, dst)
	if err != nil {
		return err
	}

	if mode == ec.SchemaStrict {
		if err := matchSchemas(from, to); err != nil {
			return fmt.Errorf("append %q to %q: %w", src, dst, err)
		}
	}

	names := to.fieldNames()
	for _, f := range from.Features {
		nf := model.Feature{Geometry: f.Geometry}
		if len(f.Attrs) > 0 {
			nf.Attrs = make(map[string]model.Value, len(f.Attrs))
			for k, v := range f.Attrs {
				if _, ok := names[k]; ok {
					nf.Attrs[k] = v
				}
			}
		}
		to.Features = append(to.Features, nf)
	}
	return e.save(ctx, dst, to)
}

func matchSchemas(from, to *dataset) error {
	if len(from.Fields) != len(to.Fields) {
		return fmt.Errorf("schema mismatch: %d fields vs %d", len(from.Fields), len(to.Fields))
	}
	names := to.fieldNames()
	for _, f := range from.Fields {
		if _, ok := names[f.Name]; !ok {
			return fmt.Errorf("schema mismatch: field %q missing on target", f.Name)
		}
	}
	return nil
}

func (e *Engine) SetField(ctx context.Context, dataset, field string, v model.Value) error {
	ds, err := e.load(ctx, dataset)
	if err != nil {
		return err
	}
	if ds.fieldIndex(field) < 0 {
		return fmt.Errorf("set field: no field %q on %q", field, dataset)
	}
	for i := range ds.Features {
		if ds.Features[i].Attrs == nil {
			ds.Features[i].Attrs = make(map[string]model.Value, 1)
		}
		ds.Features[i].Attrs[field] = v
	}
	return e.save(ctx, dataset, ds)
}

func (e *Engine) Select(ctx context.Context, dataset string, pred query.Predicate, out string) error {
	start := time.Now()
	err := e.selectInto(ctx, dataset, pred, out)
	observability.ObserveEngineOp("select", err, time.Since(start).Seconds())
	return err
}

func (e *Engine) selectInto(ctx context.Context, name string, pred query.Predicate, out string) error {
	ds, err := e.load(ctx, name)
	if err != nil {
		return err
	}
	if ds.fieldIndex(pred.Field) < 0 {
		return fmt.Errorf("select %q: no field %q", name, pred.Field)
	}
	res := &dataset{Fields: append([]model.FieldSpec(nil), ds.Fields...)}
	for _, f := range ds.Features {
		if pred.Match(f) {
			res.Features = append(res.Features, f.Clone())
		}
	}
	return e.save(ctx, out, res)
}

func (e *Engine) SelectByLocation(ctx context.Context, dataset, reference, out string) error {
	start := time.Now()
	err := e.selectByLocation(ctx, dataset, reference, out)
	observability.ObserveEngineOp("select_by_location", err, time.Since(start).Seconds())
	return err
}

func (e *Engine) selectByLocation(ctx context.Context, name, reference, out string) error {
	ds, err := e.load(ctx, name)
	if err != nil {
		return err
	}
	ref, err := e.load(ctx, reference)
	if err != nil {
		return err
	}
	res := &dataset{Fields: append([]model.FieldSpec(nil), ds.Fields...)}

	refGeom, err := e.unionAll(ref)
	if err != nil {
		return fmt.Errorf("select by location %q: %w", name, err)
	}
	if refGeom.IsEmpty() {
		return e.save(ctx, out, res)
	}

	for _, f := range ds.Features {
		if f.Geometry.IsEmpty() {
			continue
		}
		g, err := e.parseGeom(f.Geometry)
		if err != nil {
			return fmt.Errorf("select by location %q: %w", name, err)
		}
		if geom.Intersects(g, refGeom) {
			res.Features = append(res.Features, f.Clone())
		}
	}
	return e.save(ctx, out, res)
}

func (e *Engine) Clip(ctx context.Context, dataset, boundary, out string) error {
	start := time.Now()
	err := e.clip(ctx, dataset, boundary, out)
	observability.ObserveEngineOp("clip", err, time.Since(start).Seconds())
	return err
}

func (e *Engine) clip(ctx context.Context, name, boundary, out string) error {
	ds, err := e.load(ctx, name)
	if err != nil {
		return err
	}
	bound, err := e.load(ctx, boundary)
	if err != nil {
		return err
	}
	res := &dataset{Fields: append([]model.FieldSpec(nil), ds.Fields...)}

	clipGeom, err := e.unionAll(bound)
	if err != nil {
		return fmt.Errorf("clip %q: %w", name, err)
	}
	if clipGeom.IsEmpty() {
		return e.save(ctx, out, res)
	}

	for _, f := range ds.Features {
		if f.Geometry.IsEmpty() {
			continue
		}
		g, err := e.parseGeom(f.Geometry)
		if err != nil {
			return fmt.Errorf("clip %q: %w", name, err)
		}
		inter, err := geom.Intersection(g, clipGeom)
		if err != nil {
			return fmt.Errorf("clip %q: intersection: %w", name, err)
		}
		// boundary-only contact collapses dimension; that is not inclusion
		if inter.IsEmpty() || inter.Dimension() < g.Dimension() {
			continue
		}
		nf := f.Clone()
		nf.Geometry = encodeGeom(inter)
		res.Features = append(res.Features, nf)
	}
	return e.save(ctx, out, res)
}

func (e *Engine) Erase(ctx context.Context, dataset, eraser, out string) error {
	start := time.Now()
	err := e.erase(ctx, dataset, eraser, out)
	observability.ObserveEngineOp("erase", err, time.Since(start).Seconds())
	return err
}

func (e *Engine) erase(ctx context.Context, name, eraser, out string) error {
	ds, err := e.load(ctx, name)
	if err != nil {
		return err
	}
	er, err := e.load(ctx, eraser)
	if err != nil {
		return err
	}
	res := &dataset{Fields: append([]model.FieldSpec(nil), ds.Fields...)}

	eraseGeom, err := e.unionAll(er)
	if err != nil {
		return fmt.Errorf("erase %q: %w", name, err)
	}

	for _, f := range ds.Features {
		if f.Geometry.IsEmpty() {
			continue
		}
		g, err := e.parseGeom(f.Geometry)
		if err != nil {
			return fmt.Errorf("erase %q: %w", name, err)
		}
		remaining := g
		if !eraseGeom.IsEmpty() {
			diff, err := geom.Difference(g, eraseGeom)
			if err != nil {
				return fmt.Errorf("erase %q: difference: %w", name, err)
			}
			remaining = diff
		}
		if remaining.IsEmpty() || remaining.Dimension() < g.Dimension() {
			continue
		}
		nf := f.Clone()
		nf.Geometry = encodeGeom(remaining)
		res.Features = append(res.Features, nf)
	}
	return e.save(ctx, out, res)
}

func (e *Engine) Dissolve(ctx context.Context, dataset string, groupFields []string, out string) error {
	start := time.Now()
	err := e.dissolve(ctx, dataset, groupFields, out)
	observability.ObserveEngineOp("dissolve", err, time.Since(start).Seconds())
	return err
}

func (e *Engine) dissolve(ctx context.Context, name string, groupFields []string, out string) error {
	ds, err := e.load(ctx, name)
	if err != nil {
		return err
	}

	outFields := make([]model.FieldSpec, 0, len(groupFields))
	for _, gf := range groupFields {
		i := ds.fieldIndex(gf)
		if i < 0 {
			return fmt.Errorf("dissolve %q: no field %q", name, gf)
		}
		outFields = append(outFields, ds.Fields[i])
	}

	type group struct {
		attrs map[string]model.Value
		geo   geom.Geometry
		has   bool
	}
	groups := make(map[string]*group)
	var order []string

	for _, f := range ds.Features {
		var sb strings.Builder
		for _, gf := range groupFields {
			sb.WriteString(gf)
			sb.WriteByte('=')
			sb.WriteString(f.Attr(gf).Key())
			sb.WriteByte(0x1f)
		}
		key := sb.String()

		grp, ok := groups[key]
		if !ok {
			attrs := make(map[string]model.Value, len(groupFields))
			for _, gf := range groupFields {
				if v := f.Attr(gf); !v.IsNull() {
					attrs[gf] = v
				}
			}
			grp = &group{attrs: attrs}
			groups[key] = grp
			order = append(order, key)
		}

		if f.Geometry.IsEmpty() {
			continue
		}
		g, err := e.parseGeom(f.Geometry)
		if err != nil {
			return fmt.Errorf("dissolve %q: %w", name, err)
		}
		if g.IsEmpty() {
			continue
		}
		if !grp.has {
			grp.geo = g
			grp.has = true
			continue
		}
		merged, err := geom.Union(grp.geo, g)
		if err != nil {
			return fmt.Errorf("dissolve %q: union: %w", name, err)
		}
		grp.geo = merged
	}

	res := &dataset{Fields: outFields}
	for _, key := range order {
		grp := groups[key]
		nf := model.Feature{Attrs: grp.attrs}
		if grp.has {
			nf.Geometry = encodeGeom(grp.geo)
		}
		res.Features = append(res.Features, nf)
	}
	return e.save(ctx, out, res)
}

func (e *Engine) Exists(ctx context.Context, name string) (bool, error) {
	return e.store.Exists(ctx, name)
}

// Delete removes an artifact. Deleting a missing artifact is not an error so
// cleanup can run blind.
func (e *Engine) Delete(ctx context.Context, name string) error {
	return e.store.Delete(ctx, name)
}

func (e *Engine) List(ctx context.Context, pattern string) ([]string, error) {
	return e.store.List(ctx, pattern)
}

func (e *Engine) Transient() bool { return e.store.Transient() }

func (e *Engine) Location() string { return e.store.Location() }
