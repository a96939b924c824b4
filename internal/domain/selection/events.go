package selection

import "github.com/peterneubauer/savethesquare/internal/domain/model"

// ChangeKind names the operation that changed the store
type ChangeKind string

const (
	ChangeToggle   ChangeKind = "toggle"
	ChangeText     ChangeKind = "text"
	ChangeClear    ChangeKind = "clear"
	ChangePurchase ChangeKind = "purchase"
	ChangeRefresh  ChangeKind = "refresh"
)

// Event delivered to listeners after every state change
type Event struct {
	Kind     ChangeKind `json:"kind"`
	Snapshot Snapshot   `json:"snapshot"`
}

// Listener receives change events synchronously, on the mutating goroutine
type Listener func(Event)

// Snapshot immutable view of the store
type Snapshot struct {
	Selected      []model.CellKey                     `json:"selected"`
	TextGenerated []model.CellKey                     `json:"textGenerated"`
	Conflicts     []model.CellKey                     `json:"conflicts"`
	Donated       map[model.CellKey]model.DonatedCell `json:"donated,omitempty"`
	SelectedCount int                                 `json:"selectedCount"`
	DonatedCount  int                                 `json:"donatedCount"`
	Text          *model.TextProvenance               `json:"text,omitempty"`
}
