package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/geostrata/categorize/internal/core/config"
	"github.com/geostrata/categorize/internal/core/model"
	"github.com/geostrata/categorize/internal/engine/localengine"
	"github.com/geostrata/categorize/internal/pipeline"
	"github.com/geostrata/categorize/internal/store/redisstore"
)

func rect(x1, y1, x2, y2 float64) model.Geometry {
	return model.Geometry(fmt.Sprintf("POLYGON((%g %g,%g %g,%g %g,%g %g,%g %g))",
		x1, y1, x2, y1, x2, y2, x1, y2, x1, y1))
}

// seed writes the target and division layers through a second store client
// pointed at the same redis the app will connect to.
func seed(t *testing.T, addr, workspace string) {
	t.Helper()
	st, err := redisstore.New(context.Background(), addr, workspace)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	defer st.Close()
	eng, err := localengine.New(st, 64)
	if err != nil {
		t.Fatalf("seed engine: %v", err)
	}

	err = eng.PutFeatures(context.Background(), "zones", []model.FieldSpec{
		{Name: "objectid", Type: model.TypeOID},
		{Name: "zone", Type: model.TypeText, Length: 50},
	}, []model.Feature{
		{Geometry: rect(0, 0, 10, 10), Attrs: map[string]model.Value{
			"objectid": model.IntValue(1), "zone": model.TextValue("A"),
		}},
		{Geometry: rect(10, 0, 20, 10), Attrs: map[string]model.Value{
			"objectid": model.IntValue(2), "zone": model.TextValue("B"),
		}},
	})
	if err != nil {
		t.Fatalf("seed zones: %v", err)
	}

	err = eng.PutFeatures(context.Background(), "sites", []model.FieldSpec{
		{Name: "fid", Type: model.TypeOID},
		{Name: "name", Type: model.TypeText, Length: 20},
	}, []model.Feature{
		{Geometry: rect(1, 1, 4, 4), Attrs: map[string]model.Value{
			"fid": model.IntValue(1), "name": model.TextValue("east"),
		}},
		{Geometry: rect(12, 1, 15, 4), Attrs: map[string]model.Value{
			"fid": model.IntValue(2), "name": model.TextValue("west"),
		}},
	})
	if err != nil {
		t.Fatalf("seed sites: %v", err)
	}
}

func TestCategorize_RedisDriver(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{
		Workspace:     "scratch.gdb",
		Driver:        config.DriverRedis,
		RedisAddr:     mr.Addr(),
		RedisTimeout:  time.Second,
		GeomCacheSize: 64,
	}
	seed(t, mr.Addr(), cfg.Workspace)

	c, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	res, err := c.Categorize(context.Background(), pipeline.Params{
		Target:        "sites",
		Division:      "zones",
		DivisionField: "zone",
		Output:        "categorized",
		OutputField:   "Category",
	})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}

	if res.Output != "categorized" {
		t.Fatalf("output = %q", res.Output)
	}
	if res.Field.Name != "Category" {
		t.Fatalf("field = %q", res.Field.Name)
	}
	if len(res.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(res.Categories))
	}
	if res.Features != 2 {
		t.Fatalf("features = %d, want 2", res.Features)
	}

	st, err := redisstore.New(context.Background(), mr.Addr(), cfg.Workspace)
	if err != nil {
		t.Fatalf("verify store: %v", err)
	}
	defer st.Close()
	ok, err := st.Exists(context.Background(), "categorized")
	if err != nil || !ok {
		t.Fatalf("output layer missing (ok=%v err=%v)", ok, err)
	}
	names, err := st.List(context.Background(), "tmp_*")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("scratch artifacts left behind: %v", names)
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := config.Config{
		Workspace:    "scratch.gdb",
		Driver:       config.DriverRedis,
		RedisAddr:    "127.0.0.1:1",
		RedisTimeout: 100 * time.Millisecond,
	}
	if _, err := New(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("want connection error")
	}
}

func TestNew_EventsRequireBrokers(t *testing.T) {
	cfg := config.Config{
		Workspace: "memory",
		Driver:    config.DriverMemory,
		Events:    config.EventsCfg{Enabled: true, Topic: "layer-categorized"},
	}
	if _, err := New(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("want broker config error")
	}
}
