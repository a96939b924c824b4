package model

import "fmt"

// ProvenanceMode records how a cell came to be selected
type ProvenanceMode string

const (
	ProvenanceModeClick ProvenanceMode = "click"
	ProvenanceModeText  ProvenanceMode = "text"
)

// Provenance is a closed variant: ClickProvenance or TextProvenance
type Provenance interface {
	Mode() ProvenanceMode
	isProvenance()
}

// ClickProvenance cell chosen by a single map click
type ClickProvenance struct{}

func (ClickProvenance) Mode() ProvenanceMode { return ProvenanceModeClick }
func (ClickProvenance) isProvenance()        {}

// TextProvenance cell produced by rasterizing text, with the settings in effect
type TextProvenance struct {
	Text         string  `json:"text"`
	Color        string  `json:"color"`
	FontSize     float64 `json:"fontSize"`
	PixelDensity float64 `json:"pixelDensity"`
	PixelRadius  float64 `json:"pixelRadius"`
	Zoom         float64 `json:"zoom"`
}

func (TextProvenance) Mode() ProvenanceMode { return ProvenanceModeText }
func (TextProvenance) isProvenance()        {}

// DescribeProvenance produces the popup text for a donated cell
func DescribeProvenance(p Provenance) string {
	switch v := p.(type) {
	case ClickProvenance:
		return GetModeLabel(ProvenanceModeClick)
	case *ClickProvenance:
		return GetModeLabel(ProvenanceModeClick)
	case TextProvenance:
		return fmt.Sprintf("%s \"%s\"", GetModeLabel(ProvenanceModeText), v.Text)
	case *TextProvenance:
		return fmt.Sprintf("%s \"%s\"", GetModeLabel(ProvenanceModeText), v.Text)
	case nil:
		return GetModeLabel(ProvenanceModeClick)
	default:
		panic(fmt.Sprintf("unknown provenance %T", p))
	}
}

// ModeData is the persisted form of a provenance (the mode_data jsonb column)
type ModeData struct {
	Mode         ProvenanceMode `json:"mode" firestore:"mode"`
	Text         string         `json:"text,omitempty" firestore:"text,omitempty"`
	Color        string         `json:"color,omitempty" firestore:"color,omitempty"`
	FontSize     float64        `json:"fontSize,omitempty" firestore:"fontSize,omitempty"`
	PixelDensity float64        `json:"pixelDensity,omitempty" firestore:"pixelDensity,omitempty"`
	PixelRadius  float64        `json:"pixelRadius,omitempty" firestore:"pixelRadius,omitempty"`
	Zoom         float64        `json:"zoom,omitempty" firestore:"zoom,omitempty"`
}

// ModeDataFromProvenance converts a provenance to its persisted form
func ModeDataFromProvenance(p Provenance) ModeData {
	switch v := p.(type) {
	case TextProvenance:
		return textModeData(v)
	case *TextProvenance:
		if v != nil {
			return textModeData(*v)
		}
	}
	return ModeData{Mode: ProvenanceModeClick}
}

func textModeData(t TextProvenance) ModeData {
	return ModeData{
		Mode:         ProvenanceModeText,
		Text:         t.Text,
		Color:        t.Color,
		FontSize:     t.FontSize,
		PixelDensity: t.PixelDensity,
		PixelRadius:  t.PixelRadius,
		Zoom:         t.Zoom,
	}
}

// Provenance rebuilds the variant; anything but "text" is a click
func (m *ModeData) Provenance() Provenance {
	if m == nil || m.Mode != ProvenanceModeText {
		return ClickProvenance{}
	}
	return TextProvenance{
		Text:         m.Text,
		Color:        m.Color,
		FontSize:     m.FontSize,
		PixelDensity: m.PixelDensity,
		PixelRadius:  m.PixelRadius,
		Zoom:         m.Zoom,
	}
}

// groupKey identifies records that can share one donation row
func (m ModeData) groupKey() string {
	return fmt.Sprintf("%s|%s|%s|%g|%g|%g|%g", m.Mode, m.Text, m.Color, m.FontSize, m.PixelDensity, m.PixelRadius, m.Zoom)
}
