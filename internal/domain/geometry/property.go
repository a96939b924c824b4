package geometry

import (
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

// Property immutable boundary of the conservation area: one or more polygons,
// ring 0 is the outer ring and any further rings are holes
type Property struct {
	polygons   []orb.Polygon
	bound      orb.Bound
	collection *geojson.FeatureCollection
}

// LoadProperty reads a GeoJSON FeatureCollection from disk
func LoadProperty(path string) (*Property, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("boundary file read failed %s: %w", path, err)
	}
	return ParseProperty(data)
}

// ParseProperty parses Polygon and MultiPolygon features
func ParseProperty(data []byte) (*Property, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedBoundary, err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("%w: feature collection is empty", model.ErrMalformedBoundary)
	}

	var polygons []orb.Polygon
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return nil, fmt.Errorf("%w: feature %d has no geometry", model.ErrMalformedBoundary, i)
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, g)
		case orb.MultiPolygon:
			polygons = append(polygons, g...)
		default:
			return nil, fmt.Errorf("%w: feature %d has unsupported geometry %s", model.ErrMalformedBoundary, i, g.GeoJSONType())
		}
	}

	p, err := NewProperty(polygons)
	if err != nil {
		return nil, err
	}
	p.collection = fc
	return p, nil
}

// NewProperty builds a property from polygons after validating every ring
func NewProperty(polygons []orb.Polygon) (*Property, error) {
	if len(polygons) == 0 {
		return nil, fmt.Errorf("%w: no polygons", model.ErrMalformedBoundary)
	}
	for i, poly := range polygons {
		if len(poly) == 0 {
			return nil, fmt.Errorf("%w: polygon %d has no rings", model.ErrMalformedBoundary, i)
		}
		for j, ring := range poly {
			if len(ring) < 3 {
				return nil, fmt.Errorf("%w: polygon %d ring %d has %d points", model.ErrMalformedBoundary, i, j, len(ring))
			}
			for _, pt := range ring {
				if !finite(pt[0]) || !finite(pt[1]) {
					return nil, fmt.Errorf("%w: polygon %d ring %d has a non-finite coordinate", model.ErrMalformedBoundary, i, j)
				}
			}
		}
	}

	p := &Property{polygons: polygons}
	p.bound = orb.MultiPolygon(polygons).Bound()

	fc := geojson.NewFeatureCollection()
	for _, poly := range polygons {
		fc.Append(geojson.NewFeature(poly))
	}
	p.collection = fc
	return p, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IsInside reports whether the point is inside at least one polygon's outer ring
// and outside all of that polygon's holes (even-odd ray casting, rings closed implicitly)
func (p *Property) IsInside(at model.LatLng) bool {
	pt := at.ToPoint()
	if !p.bound.Contains(pt) {
		return false
	}
	for _, poly := range p.polygons {
		if planar.PolygonContains(poly, pt) {
			return true
		}
	}
	return false
}

// Polygons returns the property polygons; callers must not modify them
func (p *Property) Polygons() []orb.Polygon {
	return p.polygons
}

// Bounds axis-aligned envelope of every ring
func (p *Property) Bounds() Bounds {
	return ComputeBounds(p)
}

// Center of the bounding box, used as the initial map view
func (p *Property) Center() model.LatLng {
	return model.LatLngFromPoint(p.bound.Center())
}

// AreaSquareMeters geodesic area of the property, holes excluded
func (p *Property) AreaSquareMeters() float64 {
	total := 0.0
	for _, poly := range p.polygons {
		total += math.Abs(geo.Area(poly))
	}
	return total
}

// FeatureCollection GeoJSON view served to the rendering layer
func (p *Property) FeatureCollection() *geojson.FeatureCollection {
	return p.collection
}
