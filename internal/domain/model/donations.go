package model

import (
	"encoding/json"
	"sort"
	"time"
)

// DonorInfo contact details captured at checkout
type DonorInfo struct {
	Name     string `json:"donorName"`
	Email    string `json:"donorEmail"`
	Greeting string `json:"donorGreeting,omitempty"`
}

// DonatedCell record of one paid square; never mutated once created
type DonatedCell struct {
	Key        CellKey    `json:"key"`
	Donor      string     `json:"donor"`
	Email      string     `json:"email,omitempty"`
	Greeting   string     `json:"greeting,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	DonationID string     `json:"donationId,omitempty"`
	Provenance Provenance `json:"-"`
}

type donatedCellJSON struct {
	Key        CellKey   `json:"key"`
	Donor      string    `json:"donor"`
	Email      string    `json:"email,omitempty"`
	Greeting   string    `json:"greeting,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DonationID string    `json:"donationId,omitempty"`
	ModeData   ModeData  `json:"modeData"`
}

// MarshalJSON writes the provenance as modeData
func (c DonatedCell) MarshalJSON() ([]byte, error) {
	return json.Marshal(donatedCellJSON{
		Key:        c.Key,
		Donor:      c.Donor,
		Email:      c.Email,
		Greeting:   c.Greeting,
		Timestamp:  c.Timestamp,
		DonationID: c.DonationID,
		ModeData:   ModeDataFromProvenance(c.Provenance),
	})
}

// UnmarshalJSON restores the provenance variant from modeData
func (c *DonatedCell) UnmarshalJSON(data []byte) error {
	var raw donatedCellJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = DonatedCell{
		Key:        raw.Key,
		Donor:      raw.Donor,
		Email:      raw.Email,
		Greeting:   raw.Greeting,
		Timestamp:  raw.Timestamp,
		DonationID: raw.DonationID,
		Provenance: raw.ModeData.Provenance(),
	}
	return nil
}

// Donation one row of the donations table
type Donation struct {
	ID            string    `json:"id,omitempty" db:"id"`                         // uuid, generated by the backend
	DonorName     string    `json:"donor_name" db:"donor_name"`                   // donor display name
	DonorEmail    string    `json:"donor_email" db:"donor_email"`                 // confirmation address
	DonorGreeting string    `json:"donor_greeting,omitempty" db:"donor_greeting"` // optional greeting shown in popups
	Squares       []CellKey `json:"squares" db:"squares"`                         // jsonb array of cell keys
	Amount        float64   `json:"amount" db:"amount"`                           // SEK
	ModeData      *ModeData `json:"mode_data,omitempty" db:"mode_data"`           // jsonb provenance
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	SessionID     string    `json:"session_id,omitempty" db:"session_id"`         // checkout session or test id
	PaymentStatus string    `json:"payment_status,omitempty" db:"payment_status"` // paid / test_mode_simulated
}

// Cells expands the donation into per-square records
func (d *Donation) Cells() []DonatedCell {
	prov := d.ModeData.Provenance()
	cells := make([]DonatedCell, 0, len(d.Squares))
	for _, key := range d.Squares {
		cells = append(cells, DonatedCell{
			Key:        key,
			Donor:      d.DonorName,
			Email:      d.DonorEmail,
			Greeting:   d.DonorGreeting,
			Timestamp:  d.Timestamp,
			DonationID: d.ID,
			Provenance: prov,
		})
	}
	return cells
}

// Donor returns the donor part of the row
func (d *Donation) Donor() DonorInfo {
	return DonorInfo{Name: d.DonorName, Email: d.DonorEmail, Greeting: d.DonorGreeting}
}

// IndexDonatedCells builds the key -> record map; later donations win for a repeated key
func IndexDonatedCells(donations []Donation) map[CellKey]DonatedCell {
	ordered := make([]Donation, len(donations))
	copy(ordered, donations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	index := make(map[CellKey]DonatedCell)
	for i := range ordered {
		for _, cell := range ordered[i].Cells() {
			index[cell.Key] = cell
		}
	}
	return index
}

// GroupCellsIntoDonations turns a purchase batch into donation rows, one per provenance
func GroupCellsIntoDonations(donor DonorInfo, cells []DonatedCell, pricePerSquare int, timestamp time.Time) []*Donation {
	var order []string
	groups := make(map[string]*Donation)
	for _, cell := range cells {
		modeData := ModeDataFromProvenance(cell.Provenance)
		key := modeData.groupKey()
		d, ok := groups[key]
		if !ok {
			md := modeData
			d = &Donation{
				DonorName:     donor.Name,
				DonorEmail:    donor.Email,
				DonorGreeting: donor.Greeting,
				ModeData:      &md,
				Timestamp:     timestamp,
			}
			groups[key] = d
			order = append(order, key)
		}
		d.Squares = append(d.Squares, cell.Key)
	}

	donations := make([]*Donation, 0, len(order))
	for _, key := range order {
		d := groups[key]
		d.Amount = DonationAmount(len(d.Squares), pricePerSquare)
		donations = append(donations, d)
	}
	return donations
}

// SquareInfo public per-square view returned by the donations listing
type SquareInfo struct {
	Donor      string    `json:"donor"`
	Greeting   string    `json:"greeting,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DonationID string    `json:"donationId,omitempty"`
	ModeData   ModeData  `json:"modeData"`
	Label      string    `json:"label"`
}

// NewSquareInfo builds the public view of a donated cell; the email is never exposed
func NewSquareInfo(cell DonatedCell) SquareInfo {
	return SquareInfo{
		Donor:      cell.Donor,
		Greeting:   cell.Greeting,
		Timestamp:  cell.Timestamp,
		DonationID: cell.DonationID,
		ModeData:   ModeDataFromProvenance(cell.Provenance),
		Label:      DescribeProvenance(cell.Provenance),
	}
}

// BuildDonatedCells creates records for squares paid together. modeData applies
// to textSquares, or to every square when textSquares is empty; the rest are clicks.
func BuildDonatedCells(donor DonorInfo, squares []CellKey, textSquares []CellKey, modeData *ModeData, timestamp time.Time) []DonatedCell {
	textSet := NewCellSet(textSquares...)
	cells := make([]DonatedCell, 0, len(squares))
	for _, key := range squares {
		var prov Provenance = ClickProvenance{}
		if textSet.Len() == 0 || textSet.Has(key) {
			prov = modeData.Provenance()
		}
		cells = append(cells, DonatedCell{
			Key:        key,
			Donor:      donor.Name,
			Email:      donor.Email,
			Greeting:   donor.Greeting,
			Timestamp:  timestamp,
			Provenance: prov,
		})
	}
	return cells
}
