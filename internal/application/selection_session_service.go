package application

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/raster"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
	"github.com/peterneubauer/savethesquare/internal/domain/selection"
	"github.com/peterneubauer/savethesquare/internal/metrics"
	"github.com/peterneubauer/savethesquare/internal/usecase"
)

// SessionState selection snapshot with the session's settings and price
type SessionState struct {
	SessionID string `json:"sessionId"`
	selection.Snapshot
	Amount   float64                `json:"amount"`
	Degraded bool                   `json:"degraded"`
	Settings model.TextModeSettings `json:"settings"`
}

// StateListener receives the session state after every change
type StateListener func(kind selection.ChangeKind, state *SessionState)

// SessionConfig limits and pricing for selection sessions
type SessionConfig struct {
	TTL            time.Duration
	TextDebounce   time.Duration
	PricePerSquare int
	TestMode       bool
}

// SelectionSessionService owns one Selection Store per browser session and
// serializes every operation on it
type SelectionSessionService interface {
	CreateSession(ctx context.Context, clientID string) (*model.SessionResponse, error)
	GetSession(id string) (*SessionState, error)

	// Click toggles the square under the coordinate
	Click(id string, at model.LatLng) (*model.ClickResponse, error)

	// ApplyText rasterizes text over the viewport and replaces the text selection
	ApplyText(ctx context.Context, id string, req *model.TextSelectionRequest) (*model.TextSelectionResponse, error)

	// ScheduleText is the debounced ApplyText; the outcome reaches subscribers.
	// A nil text keeps the current text, so viewport moves re-place it.
	ScheduleText(ctx context.Context, id string, text *string, viewport *model.Viewport, settings *model.TextModeSettings) error

	Clear(id string) error

	// Refresh reloads the donated set from persistence
	Refresh(ctx context.Context, id string) (*SessionState, error)

	// Confirm records the selection as a simulated purchase (test mode)
	Confirm(ctx context.Context, id string, donor model.DonorInfo) (*model.ConfirmPurchaseResponse, error)

	// Checkout opens a payment session for the current selection
	Checkout(ctx context.Context, id string, donor model.DonorInfo, origin string) (*model.CheckoutResponse, error)

	GetSettings(id string) (model.TextModeSettings, error)
	UpdateSettings(ctx context.Context, id string, settings model.TextModeSettings) (model.TextModeSettings, error)

	// Subscribe registers a change listener; it runs with the session locked and must not call back in
	Subscribe(id string, listener StateListener) (func(), error)

	// MergeDonated adds donations created elsewhere to every session
	MergeDonated(cells []model.DonatedCell)

	// Sweep drops sessions idle longer than the TTL and returns how many were dropped
	Sweep() int

	Close()
}

type selectionSession struct {
	id       string
	clientID string

	mu        sync.Mutex
	store     *selection.Store
	settings  model.TextModeSettings
	text      string
	viewport  model.Viewport
	degraded  bool
	lastSeen  time.Time
	debouncer *raster.Debouncer
}

type selectionSessionServiceImpl struct {
	boundary     selection.MembershipTester
	rasterizer   *raster.TextRasterizer
	donations    usecase.DonationUseCase
	checkout     usecase.CheckoutUseCase
	emails       usecase.EmailUseCase
	settingsRepo repository.TextSettingsRepository
	cfg          SessionConfig
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*selectionSession
}

// NewSelectionSessionService creates the session service; settingsRepo may be nil
func NewSelectionSessionService(
	boundary selection.MembershipTester,
	rasterizer *raster.TextRasterizer,
	donations usecase.DonationUseCase,
	checkout usecase.CheckoutUseCase,
	emails usecase.EmailUseCase,
	settingsRepo repository.TextSettingsRepository,
	cfg SessionConfig,
) SelectionSessionService {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	if cfg.PricePerSquare <= 0 {
		cfg.PricePerSquare = model.DefaultSquarePriceSEK
	}
	return &selectionSessionServiceImpl{
		boundary:     boundary,
		rasterizer:   rasterizer,
		donations:    donations,
		checkout:     checkout,
		emails:       emails,
		settingsRepo: settingsRepo,
		cfg:          cfg,
		now:          time.Now,
		sessions:     make(map[string]*selectionSession),
	}
}

func (s *selectionSessionServiceImpl) CreateSession(ctx context.Context, clientID string) (*model.SessionResponse, error) {
	donated, degraded, err := s.donations.DonatedCells(ctx)
	if err != nil {
		// nothing cached either: start empty but flag it
		log.Printf("⚠️ Session started without donated squares: %v", err)
		donated, degraded = nil, true
	}

	settings := s.loadSettings(ctx, clientID)
	sess := &selectionSession{
		id:        uuid.New().String(),
		clientID:  clientID,
		store:     selection.NewStore(s.boundary),
		settings:  settings,
		degraded:  degraded,
		lastSeen:  s.now(),
		debouncer: raster.NewDebouncer(s.cfg.TextDebounce),
	}
	sess.store.ReplaceDonated(donated)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	count := len(s.sessions)
	s.mu.Unlock()
	metrics.ActiveSessions.Set(float64(count))

	log.Printf("🆕 Selection session %s created (%d donated squares, degraded=%t)", sess.id, len(donated), degraded)
	return &model.SessionResponse{SessionID: sess.id, Settings: settings, Degraded: degraded}, nil
}

func (s *selectionSessionServiceImpl) loadSettings(ctx context.Context, clientID string) model.TextModeSettings {
	if s.settingsRepo == nil || clientID == "" {
		return model.DefaultTextModeSettings()
	}
	stored, err := s.settingsRepo.Get(ctx, clientID)
	if err != nil {
		log.Printf("⚠️ Text settings for client %s unavailable: %v", clientID, err)
		return model.DefaultTextModeSettings()
	}
	if stored == nil {
		return model.DefaultTextModeSettings()
	}
	return stored.Normalize()
}

func (s *selectionSessionServiceImpl) lookup(id string) (*selectionSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrSessionNotFound, id)
	}
	return sess, nil
}

// withSession runs fn with the session locked
func (s *selectionSessionServiceImpl) withSession(id string, fn func(sess *selectionSession) error) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()
	return fn(sess)
}

func (s *selectionSessionServiceImpl) state(sess *selectionSession) *SessionState {
	return s.stateFrom(sess, sess.store.Snapshot())
}

func (s *selectionSessionServiceImpl) stateFrom(sess *selectionSession, snap selection.Snapshot) *SessionState {
	return &SessionState{
		SessionID: sess.id,
		Snapshot:  snap,
		Amount:    model.DonationAmount(snap.SelectedCount, s.cfg.PricePerSquare),
		Degraded:  sess.degraded,
		Settings:  sess.settings,
	}
}

func (s *selectionSessionServiceImpl) GetSession(id string) (*SessionState, error) {
	var state *SessionState
	err := s.withSession(id, func(sess *selectionSession) error {
		state = s.state(sess)
		return nil
	})
	return state, err
}

func (s *selectionSessionServiceImpl) Click(id string, at model.LatLng) (*model.ClickResponse, error) {
	var resp *model.ClickResponse
	err := s.withSession(id, func(sess *selectionSession) error {
		result, err := sess.store.ToggleClick(at)
		if err != nil {
			metrics.SelectionTogglesTotal.WithLabelValues("outside").Inc()
			return err
		}
		label := "deselected"
		if result.Selected {
			label = "selected"
		}
		if result.Warning != nil {
			label += "_donated"
		}
		metrics.SelectionTogglesTotal.WithLabelValues(label).Inc()
		resp = &model.ClickResponse{Key: result.Key, Selected: result.Selected, Warning: result.Warning}
		return nil
	})
	return resp, err
}

func (s *selectionSessionServiceImpl) ApplyText(ctx context.Context, id string, req *model.TextSelectionRequest) (*model.TextSelectionResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	// a pending debounced recompute would overwrite this result
	sess.debouncer.Stop()

	if req.Settings != nil {
		if _, err := s.UpdateSettings(ctx, id, *req.Settings); err != nil {
			return nil, err
		}
	}

	var resp *model.TextSelectionResponse
	err = s.withSession(id, func(sess *selectionSession) error {
		sess.text = req.Text
		sess.viewport = req.Viewport
		result, err := s.rasterizeLocked(sess)
		if err != nil {
			return err
		}
		resp = &model.TextSelectionResponse{Selected: result.Selected, Conflicts: result.Conflicts}
		return nil
	})
	return resp, err
}

// rasterizeLocked recomputes the text cells of a locked session
func (s *selectionSessionServiceImpl) rasterizeLocked(sess *selectionSession) (selection.TextResult, error) {
	if strings.TrimSpace(sess.text) == "" {
		return sess.store.ApplyTextSelection(model.NewCellSet(), nil), nil
	}

	start := time.Now()
	cells, err := s.rasterizer.Rasterize(sess.text, raster.Options{
		FontSize:        sess.settings.FontSize,
		SamplingDensity: sess.settings.PixelDensity,
	}, sess.viewport, s.boundary.IsInside)
	if err != nil {
		return selection.TextResult{}, err
	}
	metrics.RasterizeDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RasterizedCells.Observe(float64(cells.Len()))

	prov := sess.settings.Provenance(sess.text, sess.viewport.Zoom)
	return sess.store.ApplyTextSelection(cells, &prov), nil
}

func (s *selectionSessionServiceImpl) ScheduleText(ctx context.Context, id string, text *string, viewport *model.Viewport, settings *model.TextModeSettings) error {
	var clientID string
	var normalized model.TextModeSettings
	err := s.withSession(id, func(sess *selectionSession) error {
		if text != nil {
			sess.text = *text
		}
		if viewport != nil {
			sess.viewport = *viewport
		}
		if settings != nil {
			normalized = settings.Normalize()
			sess.settings = normalized
			clientID = sess.clientID
		}
		if text == nil && strings.TrimSpace(sess.text) == "" {
			return nil
		}
		sess.debouncer.Trigger(func() {
			sess.mu.Lock()
			defer sess.mu.Unlock()
			if _, err := s.rasterizeLocked(sess); err != nil {
				log.Printf("⚠️ Debounced text selection failed for session %s: %v", sess.id, err)
			}
		})
		return nil
	})
	if err != nil {
		return err
	}
	if settings != nil {
		s.saveSettings(ctx, clientID, normalized)
	}
	return nil
}

func (s *selectionSessionServiceImpl) Clear(id string) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.debouncer.Stop()
	return s.withSession(id, func(sess *selectionSession) error {
		sess.text = ""
		sess.store.Clear()
		return nil
	})
}

func (s *selectionSessionServiceImpl) Refresh(ctx context.Context, id string) (*SessionState, error) {
	if _, err := s.lookup(id); err != nil {
		return nil, err
	}
	donated, degraded, err := s.donations.DonatedCells(ctx)
	if err != nil {
		// keep the donated set already held by the session
		var state *SessionState
		lockErr := s.withSession(id, func(sess *selectionSession) error {
			sess.degraded = true
			state = s.state(sess)
			return nil
		})
		if lockErr != nil {
			return nil, lockErr
		}
		log.Printf("⚠️ Refresh failed for session %s, keeping previous donated set: %v", id, err)
		return state, nil
	}

	var state *SessionState
	err = s.withSession(id, func(sess *selectionSession) error {
		sess.store.ReplaceDonated(donated)
		sess.degraded = degraded
		state = s.state(sess)
		return nil
	})
	return state, err
}

func (s *selectionSessionServiceImpl) Confirm(ctx context.Context, id string, donor model.DonorInfo) (*model.ConfirmPurchaseResponse, error) {
	if !s.cfg.TestMode {
		return nil, model.ErrTestModeDisabled
	}
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.debouncer.Flush()

	var stored []model.DonatedCell
	err = s.withSession(id, func(sess *selectionSession) error {
		cells, err := sess.store.ConfirmPurchase(ctx, s.donations, donor)
		if err != nil {
			return err
		}
		stored = cells
		sess.text = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	keys := make([]model.CellKey, len(stored))
	for i, cell := range stored {
		keys[i] = cell.Key
	}
	amount := model.DonationAmount(len(stored), s.cfg.PricePerSquare)
	if s.emails != nil {
		s.emails.NotifyDonor(donor, keys, amount)
	}
	return &model.ConfirmPurchaseResponse{Success: true, Cells: stored, Amount: amount}, nil
}

func (s *selectionSessionServiceImpl) Checkout(ctx context.Context, id string, donor model.DonorInfo, origin string) (*model.CheckoutResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.debouncer.Flush()

	req := &model.CheckoutRequest{
		DonorName:     donor.Name,
		DonorEmail:    donor.Email,
		DonorGreeting: donor.Greeting,
	}
	err = s.withSession(id, func(sess *selectionSession) error {
		snap := sess.store.Snapshot()
		if snap.SelectedCount == 0 {
			return model.ErrEmptySelection
		}
		req.Squares = model.CellKeysToStrings(snap.Selected)
		if snap.Text != nil && len(snap.TextGenerated) > 0 {
			md := model.ModeDataFromProvenance(*snap.Text)
			req.ModeData = &md
			req.TextSquares = model.CellKeysToStrings(snap.TextGenerated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.checkout.CreateCheckout(ctx, req, origin)
}

func (s *selectionSessionServiceImpl) GetSettings(id string) (model.TextModeSettings, error) {
	var settings model.TextModeSettings
	err := s.withSession(id, func(sess *selectionSession) error {
		settings = sess.settings
		return nil
	})
	return settings, err
}

func (s *selectionSessionServiceImpl) UpdateSettings(ctx context.Context, id string, settings model.TextModeSettings) (model.TextModeSettings, error) {
	normalized := settings.Normalize()
	var clientID string
	err := s.withSession(id, func(sess *selectionSession) error {
		sess.settings = normalized
		clientID = sess.clientID
		return nil
	})
	if err != nil {
		return model.TextModeSettings{}, err
	}
	s.saveSettings(ctx, clientID, normalized)
	return normalized, nil
}

// saveSettings remembers the settings for the client; anonymous sessions keep them in memory only
func (s *selectionSessionServiceImpl) saveSettings(ctx context.Context, clientID string, settings model.TextModeSettings) {
	if s.settingsRepo == nil || clientID == "" {
		return
	}
	if err := s.settingsRepo.Save(ctx, clientID, settings); err != nil {
		log.Printf("⚠️ Text settings for client %s not saved: %v", clientID, err)
	}
}

func (s *selectionSessionServiceImpl) Subscribe(id string, listener StateListener) (func(), error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	unsubscribe := sess.store.Subscribe(func(ev selection.Event) {
		listener(ev.Kind, s.stateFrom(sess, ev.Snapshot))
	})
	sess.mu.Unlock()

	return func() {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		unsubscribe()
	}, nil
}

func (s *selectionSessionServiceImpl) MergeDonated(cells []model.DonatedCell) {
	if len(cells) == 0 {
		return
	}
	s.mu.RLock()
	sessions := make([]*selectionSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		sess.store.MergeDonated(cells)
		sess.mu.Unlock()
	}
}

func (s *selectionSessionServiceImpl) Sweep() int {
	cutoff := s.now().Add(-s.cfg.TTL)

	s.mu.Lock()
	var expired []*selectionSession
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range expired {
		sess.debouncer.Stop()
	}
	metrics.ActiveSessions.Set(float64(count))
	if len(expired) > 0 {
		log.Printf("🧹 Swept %d idle selection session(s), %d remaining", len(expired), count)
	}
	return len(expired)
}

func (s *selectionSessionServiceImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.debouncer.Stop()
		delete(s.sessions, id)
	}
	metrics.ActiveSessions.Set(0)
}
