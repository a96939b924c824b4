package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	anna = DonorInfo{Name: "Anna", Email: "anna@example.se", Greeting: "Hej!"}
	hej  = TextProvenance{Text: "HEJ", Color: "#ff6b35", FontSize: 48, PixelDensity: 1, PixelRadius: 3, Zoom: 19}
)

func TestBuildDonatedCellsSplitsTextAndClicks(t *testing.T) {
	ts := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	md := ModeDataFromProvenance(hej)

	cells := BuildDonatedCells(anna, []CellKey{"1_1", "1_2", "1_3"}, []CellKey{"1_2", "1_3"}, &md, ts)
	require.Len(t, cells, 3)
	assert.Equal(t, ClickProvenance{}, cells[0].Provenance)
	assert.Equal(t, hej, cells[1].Provenance)
	assert.Equal(t, hej, cells[2].Provenance)
	for _, c := range cells {
		assert.Equal(t, "Anna", c.Donor)
		assert.Equal(t, "Hej!", c.Greeting)
		assert.Equal(t, ts, c.Timestamp)
	}
}

func TestBuildDonatedCellsModeDataAppliesToAllWithoutTextSquares(t *testing.T) {
	md := ModeDataFromProvenance(hej)
	cells := BuildDonatedCells(anna, []CellKey{"1_1", "1_2"}, nil, &md, time.Now())
	for _, c := range cells {
		assert.Equal(t, hej, c.Provenance)
	}

	cells = BuildDonatedCells(anna, []CellKey{"1_1"}, nil, nil, time.Now())
	assert.Equal(t, ClickProvenance{}, cells[0].Provenance)
}

func TestGroupCellsIntoDonationsOneRowPerProvenance(t *testing.T) {
	ts := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	other := hej
	other.Text = "VISNE"
	cells := []DonatedCell{
		{Key: "1_1", Provenance: ClickProvenance{}},
		{Key: "1_2", Provenance: hej},
		{Key: "1_3", Provenance: hej},
		{Key: "1_4", Provenance: other},
		{Key: "1_5", Provenance: ClickProvenance{}},
	}

	rows := GroupCellsIntoDonations(anna, cells, 20, ts)
	require.Len(t, rows, 3)

	assert.Equal(t, []CellKey{"1_1", "1_5"}, rows[0].Squares)
	assert.Equal(t, ProvenanceModeClick, rows[0].ModeData.Mode)
	assert.Equal(t, 40.0, rows[0].Amount)

	assert.Equal(t, []CellKey{"1_2", "1_3"}, rows[1].Squares)
	assert.Equal(t, "HEJ", rows[1].ModeData.Text)

	assert.Equal(t, []CellKey{"1_4"}, rows[2].Squares)
	assert.Equal(t, 20.0, rows[2].Amount)

	for _, row := range rows {
		assert.Equal(t, "anna@example.se", row.DonorEmail)
		assert.Equal(t, ts, row.Timestamp)
	}
}

func TestIndexDonatedCellsLaterDonationWins(t *testing.T) {
	early := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	donations := []Donation{
		{ID: "b", DonorName: "Bo", Squares: []CellKey{"1_1"}, Timestamp: late},
		{ID: "a", DonorName: "Anna", Squares: []CellKey{"1_1", "1_2"}, Timestamp: early, ModeData: &ModeData{Mode: ProvenanceModeText, Text: "HEJ"}},
	}

	index := IndexDonatedCells(donations)
	require.Len(t, index, 2)
	assert.Equal(t, "Bo", index["1_1"].Donor)
	assert.Equal(t, "b", index["1_1"].DonationID)
	assert.Equal(t, "Anna", index["1_2"].Donor)
	assert.Equal(t, ProvenanceModeText, index["1_2"].Provenance.Mode())
}

func TestDescribeProvenance(t *testing.T) {
	assert.Equal(t, "Vald på kartan", DescribeProvenance(ClickProvenance{}))
	assert.Equal(t, "Vald på kartan", DescribeProvenance(nil))
	assert.Equal(t, `Del av text "HEJ"`, DescribeProvenance(hej))
	assert.Equal(t, `Del av text "HEJ"`, DescribeProvenance(&hej))
}

func TestModeDataUnknownModeIsClick(t *testing.T) {
	md := &ModeData{Mode: "drawing"}
	assert.Equal(t, ClickProvenance{}, md.Provenance())
	assert.Equal(t, "drawing", GetModeLabel("drawing"))
}

func TestDonatedCellJSONKeepsProvenanceVariant(t *testing.T) {
	cell := DonatedCell{Key: "1_2", Donor: "Anna", Provenance: hej}
	raw, err := json.Marshal(cell)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"modeData":{"mode":"text"`)

	var back DonatedCell
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, hej, back.Provenance)
}

func TestNewSquareInfoHidesEmail(t *testing.T) {
	info := NewSquareInfo(DonatedCell{Key: "1_2", Donor: "Anna", Email: "anna@example.se", Provenance: hej})
	raw, err := json.Marshal(info)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "anna@example.se")
	assert.Equal(t, `Del av text "HEJ"`, info.Label)
}

func TestTextModeSettingsNormalize(t *testing.T) {
	assert.Equal(t, DefaultTextModeSettings(), TextModeSettings{}.Normalize())

	s := TextModeSettings{FontSize: 5, PixelDensity: 9, PixelRadius: 50, Color: "#000000"}.Normalize()
	assert.Equal(t, MinFontSize, s.FontSize)
	assert.Equal(t, MaxPixelDensity, s.PixelDensity)
	assert.Equal(t, MaxPixelRadius, s.PixelRadius)
	assert.Equal(t, "#000000", s.Color)
}

func TestCellSetKeysSorted(t *testing.T) {
	s := NewCellSet("2_1", "1_9", "1_10")
	s.Add("1_9")
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []CellKey{"1_10", "1_9", "2_1"}, s.Keys())

	c := s.Clone()
	c.Remove("2_1")
	assert.True(t, s.Has("2_1"))
}
