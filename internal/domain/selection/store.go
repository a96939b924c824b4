// Package selection holds the per-session selection state: which squares are
// selected, which of them came from text mode, which text cells collided with
// existing donations, and the donated-cell index.
//
// A Store is owned by one logical thread. Callers that share a store across
// goroutines serialize access themselves.
package selection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/peterneubauer/savethesquare/internal/domain/geometry"
	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

// MembershipTester decides whether a coordinate is on the property
type MembershipTester interface {
	IsInside(at model.LatLng) bool
}

// PurchaseBatch everything the persistence collaborator needs for one purchase
type PurchaseBatch struct {
	Donor model.DonorInfo
	Cells []model.DonatedCell
}

// DonationWriter persists a purchase batch atomically: either every record is
// stored or none is. It may return the stored records (e.g. with donation ids).
type DonationWriter interface {
	CreateDonations(ctx context.Context, batch *PurchaseBatch) ([]model.DonatedCell, error)
}

// ToggleResult outcome of a click
type ToggleResult struct {
	Key      model.CellKey
	Selected bool                         // true when the click added the key
	Warning  *model.AlreadyDonatedWarning // set when the key is already donated
}

// TextResult outcome of a text selection
type TextResult struct {
	Selected  int
	Conflicts []model.CellKey
}

type Store struct {
	boundary      MembershipTester
	donated       map[model.CellKey]model.DonatedCell
	selected      model.CellSet
	textGenerated model.CellSet
	conflicts     model.CellSet
	text          *model.TextProvenance

	listeners      []listenerEntry
	nextListenerID int
	now            func() time.Time
}

type listenerEntry struct {
	id int
	fn Listener
}

// NewStore creates an empty store bound to a property boundary
func NewStore(boundary MembershipTester) *Store {
	return &Store{
		boundary:      boundary,
		donated:       make(map[model.CellKey]model.DonatedCell),
		selected:      model.NewCellSet(),
		textGenerated: model.NewCellSet(),
		conflicts:     model.NewCellSet(),
		now:           time.Now,
	}
}

// ToggleClick flips the selection state of the cell under the coordinate.
// Clicking a donated square still selects it; the warning is advisory.
func (s *Store) ToggleClick(at model.LatLng) (ToggleResult, error) {
	if !s.boundary.IsInside(at) {
		return ToggleResult{}, model.ErrOutsideProperty
	}

	key := geometry.ToCellKey(at)
	result := ToggleResult{Key: key}
	if cell, ok := s.donated[key]; ok {
		result.Warning = &model.AlreadyDonatedWarning{Key: key, Donor: cell.Donor}
	}

	if s.selected.Has(key) {
		s.selected.Remove(key)
		s.textGenerated.Remove(key)
	} else {
		s.selected.Add(key)
		result.Selected = true
	}

	s.notify(ChangeToggle)
	return result, nil
}

// ApplyTextSelection replaces the previous text-generated cells with candidates.
// Donated cells never enter the selection; they are reported as conflicts.
// Cells already selected by click stay click-owned.
func (s *Store) ApplyTextSelection(candidates model.CellSet, prov *model.TextProvenance) TextResult {
	for key := range s.textGenerated {
		s.selected.Remove(key)
	}
	s.textGenerated = model.NewCellSet()
	s.conflicts = model.NewCellSet()

	for key := range candidates {
		if _, donated := s.donated[key]; donated {
			s.conflicts.Add(key)
			continue
		}
		if s.selected.Has(key) {
			continue
		}
		s.selected.Add(key)
		s.textGenerated.Add(key)
	}

	s.text = nil
	if prov != nil && (s.textGenerated.Len() > 0 || s.conflicts.Len() > 0) {
		p := *prov
		s.text = &p
	}

	s.notify(ChangeText)
	return TextResult{Selected: s.textGenerated.Len(), Conflicts: s.conflicts.Keys()}
}

// Clear empties the selection, text-generated and conflict sets
func (s *Store) Clear() {
	s.selected = model.NewCellSet()
	s.textGenerated = model.NewCellSet()
	s.conflicts = model.NewCellSet()
	s.text = nil
	s.notify(ChangeClear)
}

// ConfirmPurchase hands the current selection to the writer. Only on success
// are the records merged into donated and the selection cleared; on failure
// the store is left exactly as it was.
func (s *Store) ConfirmPurchase(ctx context.Context, writer DonationWriter, donor model.DonorInfo) ([]model.DonatedCell, error) {
	if s.selected.Len() == 0 {
		return nil, model.ErrEmptySelection
	}

	timestamp := s.now().UTC()
	records := make([]model.DonatedCell, 0, s.selected.Len())
	for _, key := range s.selected.Keys() {
		var prov model.Provenance = model.ClickProvenance{}
		if s.textGenerated.Has(key) && s.text != nil {
			prov = *s.text
		}
		records = append(records, model.DonatedCell{
			Key:        key,
			Donor:      donor.Name,
			Email:      donor.Email,
			Greeting:   donor.Greeting,
			Timestamp:  timestamp,
			Provenance: prov,
		})
	}

	stored, err := writer.CreateDonations(ctx, &PurchaseBatch{Donor: donor, Cells: records})
	if err != nil {
		if errors.Is(err, model.ErrPersistenceWrite) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistenceWrite, err)
	}
	if len(stored) == 0 {
		stored = records
	}

	for _, cell := range stored {
		s.donated[cell.Key] = cell
	}
	s.selected = model.NewCellSet()
	s.textGenerated = model.NewCellSet()
	s.conflicts = model.NewCellSet()
	s.text = nil

	s.notify(ChangePurchase)
	return stored, nil
}

// ReplaceDonated swaps in a fresh donated index from persistence
func (s *Store) ReplaceDonated(cells map[model.CellKey]model.DonatedCell) {
	s.donated = make(map[model.CellKey]model.DonatedCell, len(cells))
	for k, v := range cells {
		s.donated[k] = v
	}
	s.reconcileText()
	s.notify(ChangeRefresh)
}

// MergeDonated adds records created elsewhere (another session, a webhook)
func (s *Store) MergeDonated(cells []model.DonatedCell) {
	if len(cells) == 0 {
		return
	}
	for _, cell := range cells {
		s.donated[cell.Key] = cell
	}
	s.reconcileText()
	s.notify(ChangeRefresh)
}

// reconcileText moves text cells that became donated into conflicts
func (s *Store) reconcileText() {
	for key := range s.textGenerated {
		if _, donated := s.donated[key]; donated {
			s.textGenerated.Remove(key)
			s.selected.Remove(key)
			s.conflicts.Add(key)
		}
	}
}

// IsDonated reports whether a key has a donated record
func (s *Store) IsDonated(key model.CellKey) (model.DonatedCell, bool) {
	cell, ok := s.donated[key]
	return cell, ok
}

// Selected returns the selected keys in order
func (s *Store) Selected() []model.CellKey {
	return s.selected.Keys()
}

// TextProvenance settings of the current text selection, nil when there is none
func (s *Store) TextProvenance() *model.TextProvenance {
	if s.text == nil {
		return nil
	}
	p := *s.text
	return &p
}

// Snapshot read-only copy of the store state
func (s *Store) Snapshot() Snapshot {
	donated := make(map[model.CellKey]model.DonatedCell, len(s.donated))
	for k, v := range s.donated {
		donated[k] = v
	}
	return Snapshot{
		Selected:      s.selected.Keys(),
		TextGenerated: s.textGenerated.Keys(),
		Conflicts:     s.conflicts.Keys(),
		Donated:       donated,
		SelectedCount: s.selected.Len(),
		DonatedCount:  len(donated),
		Text:          s.TextProvenance(),
	}
}

// Subscribe registers a change listener and returns its unsubscribe func
func (s *Store) Subscribe(fn Listener) func() {
	s.nextListenerID++
	id := s.nextListenerID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(kind ChangeKind) {
	if len(s.listeners) == 0 {
		return
	}
	ev := Event{Kind: kind, Snapshot: s.Snapshot()}
	listeners := make([]listenerEntry, len(s.listeners))
	copy(listeners, s.listeners)
	sort.Slice(listeners, func(i, j int) bool { return listeners[i].id < listeners[j].id })
	for _, l := range listeners {
		l.fn(ev)
	}
}
