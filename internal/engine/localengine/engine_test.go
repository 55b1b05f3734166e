package localengine

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/geostrata/categorize/internal/core/model"
	ec "github.com/geostrata/categorize/internal/engine"
	"github.com/geostrata/categorize/internal/query"
	"github.com/geostrata/categorize/internal/store/memstore"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(memstore.New(), 128)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func rect(x1, y1, x2, y2 float64) model.Geometry {
	return model.Geometry(fmt.Sprintf("POLYGON((%g %g,%g %g,%g %g,%g %g,%g %g))",
		x1, y1, x2, y1, x2, y2, x1, y2, x1, y1))
}

func area(t *testing.T, g model.Geometry) float64 {
	t.Helper()
	if g.IsEmpty() {
		return 0
	}
	parsed, err := geom.UnmarshalWKT(string(g))
	if err != nil {
		t.Fatalf("parse wkt %q: %v", g, err)
	}
	return parsed.Area()
}

func nameFields() []model.FieldSpec {
	return []model.FieldSpec{{Name: "name", Type: model.TypeText, Length: 20}}
}

func namedRect(name string, x1, y1, x2, y2 float64) model.Feature {
	return model.Feature{
		Geometry: rect(x1, y1, x2, y2),
		Attrs:    map[string]model.Value{"name": model.TextValue(name)},
	}
}

func seed(t *testing.T, e *Engine, name string, fields []model.FieldSpec, feats ...model.Feature) {
	t.Helper()
	if err := e.PutFeatures(context.Background(), name, fields, feats); err != nil {
		t.Fatalf("seed %q: %v", name, err)
	}
}

func features(t *testing.T, e *Engine, name string) []model.Feature {
	t.Helper()
	out, err := e.Features(context.Background(), name)
	if err != nil {
		t.Fatalf("features %q: %v", name, err)
	}
	return out
}

func TestSelect_FiltersByPredicate(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	seed(t, e, "in", nameFields(),
		namedRect("a", 0, 0, 1, 1),
		namedRect("b", 2, 0, 3, 1),
		namedRect("a", 4, 0, 5, 1),
	)

	if err := e.Select(ctx, "in", query.Equals("name", model.TextValue("a")), "out"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	got := features(t, e, "out")
	if len(got) != 2 {
		t.Fatalf("selected %d features, want 2", len(got))
	}
	for _, f := range got {
		if f.Attr("name").Text != "a" {
			t.Fatalf("selected feature with name %q", f.Attr("name").Text)
		}
	}
}

func TestClip_TruncatesAtBoundary(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	seed(t, e, "target", nameFields(), namedRect("road", 5, 0, 15, 10))
	seed(t, e, "bound", nameFields(), namedRect("cell", 0, 0, 10, 10))

	if err := e.Clip(ctx, "target", "bound", "out"); err != nil {
		t.Fatalf("Clip: %v", err)
	}
	got := features(t, e, "out")
	if len(got) != 1 {
		t.Fatalf("clipped %d features, want 1", len(got))
	}
	if a := area(t, got[0].Geometry); math.Abs(a-50) > 1e-9 {
		t.Fatalf("clipped area = %v, want 50", a)
	}
}

func TestClip_BoundaryTouchIsNotInclusion(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	// touches the boundary at x=10 only
	seed(t, e, "target", nameFields(), namedRect("t", 10, 0, 20, 10))
	seed(t, e, "bound", nameFields(), namedRect("b", 0, 0, 10, 10))

	if err := e.Clip(ctx, "target", "bound", "out"); err != nil {
		t.Fatalf("Clip: %v", err)
	}
	if got := features(t, e, "out"); len(got) != 0 {
		t.Fatalf("boundary touch produced %d features, want 0", len(got))
	}
}

func TestSelectByLocation_CopiesUnclipped(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	seed(t, e, "target", nameFields(),
		namedRect("in", 5, 0, 15, 10),
		namedRect("out", 50, 50, 60, 60),
	)
	seed(t, e, "ref", nameFields(), namedRect("cell", 0, 0, 10, 10))

	if err := e.SelectByLocation(ctx, "target", "ref", "sel"); err != nil {
		t.Fatalf("SelectByLocation: %v", err)
	}
	got := features(t, e, "sel")
	if len(got) != 1 {
		t.Fatalf("selected %d features, want 1", len(got))
	}
	// full geometry survives, not the clipped part
	if a := area(t, got[0].Geometry); math.Abs(a-100) > 1e-9 {
		t.Fatalf("selected area = %v, want 100", a)
	}
}

func TestErase_RemovesCoveredGeometry(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	seed(t, e, "target", nameFields(), namedRect("t", 0, 0, 20, 10))
	seed(t, e, "eraser", nameFields(), namedRect("e", 0, 0, 10, 10))

	if err := e.Erase(ctx, "target", "eraser", "out"); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	got := features(t, e, "out")
	if len(got) != 1 {
		t.Fatalf("erase left %d features, want 1", len(got))
	}
	if a := area(t, got[0].Geometry); math.Abs(a-100) > 1e-9 {
		t.Fatalf("remaining area = %v, want 100", a)
	}
}

func TestErase_EmptyEraserKeepsEverything(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	seed(t, e, "target", nameFields(), namedRect("t", 0, 0, 20, 10))
	seed(t, e, "eraser", nameFields())

	if err := e.Erase(ctx, "target", "eraser", "out"); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if got := features(t, e, "out"); len(got) != 1 {
		t.Fatalf("erase against empty removed features: %d left, want 1", len(got))
	}
}

func TestDissolve_MergesEqualTuples(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	fields := []model.FieldSpec{
		{Name: "fid", Type: model.TypeOID},
		{Name: "cat", Type: model.TypeText, Length: 10},
	}
	seed(t, e, "in", fields,
		model.Feature{Geometry: rect(0, 0, 1, 1), Attrs: map[string]model.Value{
			"fid": model.IntValue(1), "cat": model.TextValue("x"),
		}},
		model.Feature{Geometry: rect(5, 0, 6, 1), Attrs: map[string]model.Value{
			"fid": model.IntValue(2), "cat": model.TextValue("x"),
		}},
		model.Feature{Geometry: rect(10, 0, 11, 1), Attrs: map[string]model.Value{
			"fid": model.IntValue(3), "cat": model.TextValue("y"),
		}},
	)

	if err := e.Dissolve(ctx, "in", []string{"cat"}, "out"); err != nil {
		t.Fatalf("Dissolve: %v", err)
	}
	got := features(t, e, "out")
	if len(got) != 2 {
		t.Fatalf("dissolve produced %d features, want 2", len(got))
	}
	// identity field is gone, grouping field survives
	fieldsOut, err := e.ListFields(ctx, "out")
	if err != nil {
		t.Fatalf("ListFields: %v", err)
	}
	if len(fieldsOut) != 1 || fieldsOut[0].Name != "cat" {
		t.Fatalf("output fields = %+v, want [cat]", fieldsOut)
	}
	// the merged x group keeps both parts
	if a := area(t, got[0].Geometry); math.Abs(a-2) > 1e-9 {
		t.Fatalf("merged area = %v, want 2", a)
	}
}

func TestDissolve_EmptyGroupFieldsCollapsesToOne(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	seed(t, e, "in", nameFields(),
		namedRect("a", 0, 0, 1, 1),
		namedRect("b", 5, 0, 6, 1),
	)
	if err := e.Dissolve(ctx, "in", nil, "out"); err != nil {
		t.Fatalf("Dissolve: %v", err)
	}
	if got := features(t, e, "out"); len(got) != 1 {
		t.Fatalf("dissolve produced %d features, want 1", len(got))
	}
}

func TestAppend_StrictRejectsSchemaMismatch(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	seed(t, e, "src", nameFields(), namedRect("a", 0, 0, 1, 1))
	seed(t, e, "dst", []model.FieldSpec{{Name: "other", Type: model.TypeText}})

	if err := e.Append(ctx, "src", "dst", ec.SchemaStrict); err == nil {
		t.Fatal("strict append across mismatched schemas must fail")
	}
}

func TestAppend_RelaxedDropsUnknownFields(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	seed(t, e, "src", nameFields(), namedRect("a", 0, 0, 1, 1))
	seed(t, e, "dst", []model.FieldSpec{
		{Name: "name", Type: model.TypeText, Length: 20},
		{Name: "cat", Type: model.TypeText, Length: 10},
	})

	if err := e.Append(ctx, "src", "dst", ec.SchemaRelaxed); err != nil {
		t.Fatalf("Append relaxed: %v", err)
	}
	got := features(t, e, "dst")
	if len(got) != 1 {
		t.Fatalf("appended %d features, want 1", len(got))
	}
	if !got[0].Attr("cat").IsNull() {
		t.Fatalf("missing source field must read null, got %v", got[0].Attr("cat"))
	}
	if got[0].Attr("name").Text != "a" {
		t.Fatalf("name = %q, want a", got[0].Attr("name").Text)
	}
}

func TestAddField_RejectsIdentityAndGeometry(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	seed(t, e, "ds", nameFields())

	if err := e.AddField(ctx, "ds", model.FieldSpec{Name: "oid", Type: model.TypeOID}); err == nil {
		t.Fatal("identity-class field creation must fail")
	}
	if err := e.AddField(ctx, "ds", model.FieldSpec{Name: "shp", Type: model.TypeGeometry}); err == nil {
		t.Fatal("geometry field creation must fail")
	}
}

func TestScanValues_MissingAttrReadsNull(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	seed(t, e, "ds", nameFields(),
		namedRect("a", 0, 0, 1, 1),
		model.Feature{Geometry: rect(2, 0, 3, 1)},
	)
	vals, err := e.ScanValues(ctx, "ds", "name")
	if err != nil {
		t.Fatalf("ScanValues: %v", err)
	}
	if len(vals) != 2 || !vals[1].IsNull() {
		t.Fatalf("vals = %+v, want [a null]", vals)
	}
}

func TestSetField_StampsEveryFeature(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	fields := append(nameFields(), model.FieldSpec{Name: "cat", Type: model.TypeText, Length: 10})
	seed(t, e, "ds", fields,
		namedRect("a", 0, 0, 1, 1),
		namedRect("b", 2, 0, 3, 1),
	)
	if err := e.SetField(ctx, "ds", "cat", model.TextValue("North")); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	for i, f := range features(t, e, "ds") {
		if f.Attr("cat").Text != "North" {
			t.Fatalf("feature %d cat = %v", i, f.Attr("cat"))
		}
	}
}
