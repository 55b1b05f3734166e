package localengine

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/peterstace/simplefeatures/geom"

	"github.com/geostrata/categorize/internal/core/model"
)

// parseGeom decodes a WKT geometry, going through the LRU so repeated
// artifacts of the same run parse each geometry once.
func (e *Engine) parseGeom(g model.Geometry) (geom.Geometry, error) {
	if g.IsEmpty() {
		return geom.Geometry{}, nil
	}
	key := xxhash.Sum64String(string(g))
	if cached, ok := e.geoms.Get(key); ok {
		return cached, nil
	}
	parsed, err := geom.UnmarshalWKT(string(g))
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("parse wkt: %w", err)
	}
	e.geoms.Add(key, parsed)
	return parsed, nil
}

// unionAll merges every feature geometry in the dataset into one geometry.
// Returns an empty geometry when no feature carries geometry.
func (e *Engine) unionAll(ds *dataset) (geom.Geometry, error) {
	var (
		acc geom.Geometry
		has bool
	)
	for _, f := range ds.Features {
		if f.Geometry.IsEmpty() {
			continue
		}
		g, err := e.parseGeom(f.Geometry)
		if err != nil {
			return geom.Geometry{}, err
		}
		if g.IsEmpty() {
			continue
		}
		if !has {
			acc = g
			has = true
			continue
		}
		merged, err := geom.Union(acc, g)
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("union: %w", err)
		}
		acc = merged
	}
	return acc, nil
}

func encodeGeom(g geom.Geometry) model.Geometry {
	if g.IsEmpty() {
		return ""
	}
	return model.Geometry(g.AsText())
}
