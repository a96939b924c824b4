package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

// CellScale quantization factor: 1/100000 of a degree, roughly one meter of latitude
const CellScale = 100000.0

// Bounds axis-aligned envelope in degrees
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

// ToCellKey quantizes a coordinate to "{floor(lat*1e5)}_{floor(lon*1e5)}"
func ToCellKey(at model.LatLng) model.CellKey {
	return model.CellKey(fmt.Sprintf("%d_%d", cellIndex(at.Lat), cellIndex(at.Lng)))
}

func cellIndex(deg float64) int64 {
	return int64(math.Floor(deg * CellScale))
}

// FromCellKey returns the south-west corner of the cell
func FromCellKey(key model.CellKey) (model.LatLng, error) {
	latIdx, lonIdx, err := parseCellKey(key)
	if err != nil {
		return model.LatLng{}, err
	}
	return model.LatLng{Lat: float64(latIdx) / CellScale, Lng: float64(lonIdx) / CellScale}, nil
}

// CellCenter returns the middle of the cell; ToCellKey(CellCenter(k)) == k
func CellCenter(key model.CellKey) (model.LatLng, error) {
	latIdx, lonIdx, err := parseCellKey(key)
	if err != nil {
		return model.LatLng{}, err
	}
	return model.LatLng{
		Lat: (float64(latIdx) + 0.5) / CellScale,
		Lng: (float64(lonIdx) + 0.5) / CellScale,
	}, nil
}

func parseCellKey(key model.CellKey) (int64, int64, error) {
	latPart, lonPart, ok := strings.Cut(string(key), "_")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", model.ErrInvalidCellKey, key)
	}
	latIdx, err := strconv.ParseInt(latPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", model.ErrInvalidCellKey, key)
	}
	lonIdx, err := strconv.ParseInt(lonPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", model.ErrInvalidCellKey, key)
	}
	return latIdx, lonIdx, nil
}

// ComputeBounds scans every ring of every polygon
func ComputeBounds(p *Property) Bounds {
	b := Bounds{
		MinLat: math.Inf(1),
		MaxLat: math.Inf(-1),
		MinLon: math.Inf(1),
		MaxLon: math.Inf(-1),
	}
	for _, poly := range p.polygons {
		for _, ring := range poly {
			for _, pt := range ring {
				b.MinLat = math.Min(b.MinLat, pt.Lat())
				b.MaxLat = math.Max(b.MaxLat, pt.Lat())
				b.MinLon = math.Min(b.MinLon, pt.Lon())
				b.MaxLon = math.Max(b.MaxLon, pt.Lon())
			}
		}
	}
	return b
}

// Contains reports whether the point lies inside the envelope (edges included)
func (b Bounds) Contains(at model.LatLng) bool {
	return at.Lat >= b.MinLat && at.Lat <= b.MaxLat && at.Lng >= b.MinLon && at.Lng <= b.MaxLon
}
