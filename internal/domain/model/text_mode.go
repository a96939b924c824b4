package model

import (
	"fmt"
	"strings"
)

// Text mode limits
const (
	MinFontSize         = 10.0
	MaxFontSize         = 200.0
	MinPixelDensity     = 0.1
	MaxPixelDensity     = 5.0
	MinPixelRadius      = 1.0
	MaxPixelRadius      = 20.0
	DefaultFontSize     = 48.0
	DefaultPixelDensity = 1.0
	DefaultPixelRadius  = 3.0
	DefaultTextColor    = "#ff6b35"
)

// TextModeSettings user adjustable text mode parameters, persisted per client
type TextModeSettings struct {
	FontSize     float64 `json:"fontSize"`
	PixelDensity float64 `json:"pixelDensity"`
	Color        string  `json:"color"`
	PixelRadius  float64 `json:"pixelRadius"`
}

// DefaultTextModeSettings initial settings for a new client
func DefaultTextModeSettings() TextModeSettings {
	return TextModeSettings{
		FontSize:     DefaultFontSize,
		PixelDensity: DefaultPixelDensity,
		Color:        DefaultTextColor,
		PixelRadius:  DefaultPixelRadius,
	}
}

// Normalize fills zero values with defaults and clamps to the allowed ranges
func (s TextModeSettings) Normalize() TextModeSettings {
	d := DefaultTextModeSettings()
	if s.FontSize == 0 {
		s.FontSize = d.FontSize
	}
	if s.PixelDensity == 0 {
		s.PixelDensity = d.PixelDensity
	}
	if s.PixelRadius == 0 {
		s.PixelRadius = d.PixelRadius
	}
	if strings.TrimSpace(s.Color) == "" {
		s.Color = d.Color
	}
	s.FontSize = clamp(s.FontSize, MinFontSize, MaxFontSize)
	s.PixelDensity = clamp(s.PixelDensity, MinPixelDensity, MaxPixelDensity)
	s.PixelRadius = clamp(s.PixelRadius, MinPixelRadius, MaxPixelRadius)
	return s
}

// Provenance captures the settings used for a text selection
func (s TextModeSettings) Provenance(text string, zoom float64) TextProvenance {
	return TextProvenance{
		Text:         text,
		Color:        s.Color,
		FontSize:     s.FontSize,
		PixelDensity: s.PixelDensity,
		PixelRadius:  s.PixelRadius,
		Zoom:         zoom,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Viewport visible map area in screen pixels and degrees
type Viewport struct {
	Center   LatLng  `json:"center"`
	WidthPx  int     `json:"widthPx"`
	HeightPx int     `json:"heightPx"`
	North    float64 `json:"north"`
	South    float64 `json:"south"`
	East     float64 `json:"east"`
	West     float64 `json:"west"`
	Zoom     float64 `json:"zoom"`
}

// Validate rejects viewports that cannot map pixels to degrees
func (v Viewport) Validate() error {
	if v.WidthPx <= 0 || v.HeightPx <= 0 {
		return fmt.Errorf("%w: pixel size %dx%d", ErrInvalidViewport, v.WidthPx, v.HeightPx)
	}
	if v.East <= v.West || v.North <= v.South {
		return fmt.Errorf("%w: empty degree span", ErrInvalidViewport)
	}
	return nil
}

// PixelsPerDegree returns the horizontal and vertical ratios, computed independently
func (v Viewport) PixelsPerDegree() (perLng, perLat float64) {
	return float64(v.WidthPx) / (v.East - v.West), float64(v.HeightPx) / (v.North - v.South)
}
