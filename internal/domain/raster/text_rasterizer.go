package raster

import (
	"fmt"
	"image"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/peterneubauer/savethesquare/internal/domain/geometry"
	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

const (
	// samplingDivisor stride = fontSize / (density * samplingDivisor)
	samplingDivisor = 10.0
	// inkThreshold alpha above which a pixel counts as ink (about 50%)
	inkThreshold = 127
)

// Options rasterization parameters
type Options struct {
	FontSize        float64
	SamplingDensity float64
}

// BoundaryTest reports whether a coordinate is on the property
type BoundaryTest func(at model.LatLng) bool

// TextRasterizer turns text into the set of cells its glyphs cover on the map.
// Glyphs are rendered with Go Bold; faces are cached per size.
type TextRasterizer struct {
	font  *opentype.Font
	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewTextRasterizer parses the embedded bold font
func NewTextRasterizer() (*TextRasterizer, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("font parse failed: %w", err)
	}
	return &TextRasterizer{font: f, faces: make(map[float64]font.Face)}, nil
}

func (r *TextRasterizer) face(size float64) (font.Face, error) {
	if face, ok := r.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %.1fpx failed: %w", size, err)
	}
	r.faces[size] = face
	return face, nil
}

// Rasterize renders text centered on an offscreen canvas, samples it on a
// stride grid and maps every ink pixel to a cell relative to the viewport center.
// Cells failing the boundary test are dropped. Empty or blank text yields an empty set.
func (r *TextRasterizer) Rasterize(text string, opts Options, vp model.Viewport, inside BoundaryTest) (model.CellSet, error) {
	cells := model.NewCellSet()
	if strings.TrimSpace(text) == "" {
		return cells, nil
	}
	if err := vp.Validate(); err != nil {
		return nil, err
	}

	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = model.DefaultFontSize
	}
	density := opts.SamplingDensity
	if density <= 0 {
		density = model.DefaultPixelDensity
	}

	r.mu.Lock()
	canvas, err := r.render(text, fontSize)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	stride := int(fontSize / (density * samplingDivisor))
	if stride < 1 {
		stride = 1
	}

	perLng, perLat := vp.PixelsPerDegree()
	bounds := canvas.Bounds()
	cx := float64(bounds.Dx()) / 2
	cy := float64(bounds.Dy()) / 2

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			if canvas.AlphaAt(x, y).A <= inkThreshold {
				continue
			}
			at := model.LatLng{
				Lat: vp.Center.Lat - (float64(y)-cy)/perLat,
				Lng: vp.Center.Lng + (float64(x)-cx)/perLng,
			}
			if inside != nil && !inside(at) {
				continue
			}
			cells.Add(geometry.ToCellKey(at))
		}
	}
	return cells, nil
}

// render draws the text centered on an alpha canvas sized generously around the glyphs
func (r *TextRasterizer) render(text string, fontSize float64) (*image.Alpha, error) {
	face, err := r.face(fontSize)
	if err != nil {
		return nil, err
	}

	advance := font.MeasureString(face, text).Ceil()
	pad := int(math.Ceil(fontSize))
	width := advance + 2*pad
	height := int(math.Ceil(fontSize * 3))

	canvas := image.NewAlpha(image.Rect(0, 0, width, height))
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	baseline := (height + ascent - descent) / 2

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P((width-advance)/2, baseline),
	}
	d.DrawString(text)
	return canvas, nil
}
