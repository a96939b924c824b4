package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterneubauer/savethesquare/internal/domain/geometry"
	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/raster"
	"github.com/peterneubauer/savethesquare/internal/domain/selection"
	"github.com/peterneubauer/savethesquare/internal/usecase"
)

type fakeDonations struct {
	mu       sync.Mutex
	donated  map[model.CellKey]model.DonatedCell
	degraded bool
	readErr  error
	writeErr error
	batches  []*selection.PurchaseBatch
}

func (f *fakeDonations) ListDonations(ctx context.Context) (*model.DonationsResponse, error) {
	return &model.DonationsResponse{}, nil
}

func (f *fakeDonations) DonatedCells(ctx context.Context) (map[model.CellKey]model.DonatedCell, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, false, f.readErr
	}
	out := make(map[model.CellKey]model.DonatedCell, len(f.donated))
	for k, v := range f.donated {
		out[k] = v
	}
	return out, f.degraded, nil
}

func (f *fakeDonations) GetDonation(ctx context.Context, id string) (*model.DonationDetailResponse, error) {
	return nil, model.ErrDonationNotFound
}

func (f *fakeDonations) SaveTestDonation(ctx context.Context, req *model.SaveDonationRequest) (*model.SaveDonationResponse, error) {
	return nil, model.ErrTestModeDisabled
}

func (f *fakeDonations) CreateDonations(ctx context.Context, batch *selection.PurchaseBatch) ([]model.DonatedCell, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.batches = append(f.batches, batch)
	return batch.Cells, nil
}

func (f *fakeDonations) RecordDonations(ctx context.Context, donations []*model.Donation, source string) ([]model.Donation, error) {
	return nil, nil
}

func (f *fakeDonations) OnDonationsSaved(fn usecase.DonationsSavedFunc) {}

type fakeCheckout struct {
	req    *model.CheckoutRequest
	origin string
}

func (f *fakeCheckout) CreateCheckout(ctx context.Context, req *model.CheckoutRequest, origin string) (*model.CheckoutResponse, error) {
	f.req = req
	f.origin = origin
	return &model.CheckoutResponse{SessionID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
}

func (f *fakeCheckout) HandleWebhook(ctx context.Context, payload []byte, signature string) (*model.WebhookResult, error) {
	return &model.WebhookResult{Received: true}, nil
}

type fakeEmails struct {
	mu       sync.Mutex
	notified [][]model.CellKey
}

func (f *fakeEmails) SendConfirmation(ctx context.Context, req *model.ConfirmationEmailRequest) (*model.ConfirmationEmailResponse, error) {
	return &model.ConfirmationEmailResponse{Success: true}, nil
}

func (f *fakeEmails) NotifyDonor(donor model.DonorInfo, squares []model.CellKey, amount float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, squares)
}

type memorySettingsRepo struct {
	mu       sync.Mutex
	settings map[string]model.TextModeSettings
}

func (r *memorySettingsRepo) Get(ctx context.Context, clientID string) (*model.TextModeSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[clientID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *memorySettingsRepo) Save(ctx context.Context, clientID string, settings model.TextModeSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[clientID] = settings
	return nil
}

type fixture struct {
	donations *fakeDonations
	checkout  *fakeCheckout
	emails    *fakeEmails
	settings  *memorySettingsRepo
	service   *selectionSessionServiceImpl
}

func newFixture(t *testing.T, testMode bool) *fixture {
	t.Helper()
	property, err := geometry.NewProperty([]orb.Polygon{{orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}}}})
	require.NoError(t, err)
	rasterizer, err := raster.NewTextRasterizer()
	require.NoError(t, err)

	f := &fixture{
		donations: &fakeDonations{donated: map[model.CellKey]model.DonatedCell{}},
		checkout:  &fakeCheckout{},
		emails:    &fakeEmails{},
		settings:  &memorySettingsRepo{settings: map[string]model.TextModeSettings{}},
	}
	svc := NewSelectionSessionService(property, rasterizer, f.donations, f.checkout, f.emails, f.settings, SessionConfig{
		TTL:            time.Hour,
		TextDebounce:   20 * time.Millisecond,
		PricePerSquare: 20,
		TestMode:       testMode,
	})
	f.service = svc.(*selectionSessionServiceImpl)
	t.Cleanup(svc.Close)
	return f
}

func (f *fixture) create(t *testing.T, clientID string) string {
	t.Helper()
	resp, err := f.service.CreateSession(context.Background(), clientID)
	require.NoError(t, err)
	return resp.SessionID
}

func textViewport() model.Viewport {
	half := 1000.0 / geometry.CellScale / 2
	return model.Viewport{
		Center:   model.LatLng{Lat: 5, Lng: 5},
		WidthPx:  1000,
		HeightPx: 1000,
		West:     5 - half,
		East:     5 + half,
		South:    5 - half,
		North:    5 + half,
		Zoom:     19,
	}
}

func TestCreateAndGetSession(t *testing.T) {
	f := newFixture(t, true)
	f.donations.donated["500000_500000"] = model.DonatedCell{Key: "500000_500000", Donor: "Anna"}

	id := f.create(t, "")
	state, err := f.service.GetSession(id)
	require.NoError(t, err)
	assert.Equal(t, id, state.SessionID)
	assert.Equal(t, 1, state.DonatedCount)
	assert.Equal(t, model.DefaultTextModeSettings(), state.Settings)

	_, err = f.service.GetSession("nope")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestCreateSessionWithoutBackendIsDegraded(t *testing.T) {
	f := newFixture(t, true)
	f.donations.readErr = model.ErrPersistenceRead

	resp, err := f.service.CreateSession(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
}

func TestClick(t *testing.T) {
	f := newFixture(t, true)
	f.donations.donated["500000_500000"] = model.DonatedCell{Key: "500000_500000", Donor: "Anna"}
	id := f.create(t, "")

	resp, err := f.service.Click(id, model.LatLng{Lat: 5.000001, Lng: 5.000001})
	require.NoError(t, err)
	assert.True(t, resp.Selected)
	require.NotNil(t, resp.Warning)
	assert.Equal(t, "Anna", resp.Warning.Donor)

	_, err = f.service.Click(id, model.LatLng{Lat: 20, Lng: 20})
	assert.ErrorIs(t, err, model.ErrOutsideProperty)

	state, _ := f.service.GetSession(id)
	assert.Equal(t, 1, state.SelectedCount)
	assert.Equal(t, 20.0, state.Amount)
}

func TestApplyTextAndConflicts(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t, "")

	resp, err := f.service.ApplyText(context.Background(), id, &model.TextSelectionRequest{Text: "HEJ", Viewport: textViewport()})
	require.NoError(t, err)
	require.Greater(t, resp.Selected, 0)
	state, _ := f.service.GetSession(id)
	require.NotNil(t, state.Text)
	assert.Equal(t, "HEJ", state.Text.Text)
	assert.Equal(t, 19.0, state.Text.Zoom)

	taken := state.TextGenerated[0]
	f.donations.donated[taken] = model.DonatedCell{Key: taken, Donor: "Bo"}
	other := f.create(t, "")
	resp, err = f.service.ApplyText(context.Background(), other, &model.TextSelectionRequest{Text: "HEJ", Viewport: textViewport()})
	require.NoError(t, err)
	assert.Equal(t, []model.CellKey{taken}, resp.Conflicts)
	assert.Equal(t, len(state.TextGenerated)-1, resp.Selected)

	resp, err = f.service.ApplyText(context.Background(), other, &model.TextSelectionRequest{Text: " ", Viewport: textViewport()})
	require.NoError(t, err)
	assert.Zero(t, resp.Selected)
}

func TestApplyTextInvalidViewport(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t, "")
	_, err := f.service.ApplyText(context.Background(), id, &model.TextSelectionRequest{Text: "HEJ"})
	assert.ErrorIs(t, err, model.ErrInvalidViewport)
}

func TestScheduleTextIsDebouncedAndNotifies(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t, "")

	var mu sync.Mutex
	var textEvents int
	unsubscribe, err := f.service.Subscribe(id, func(kind selection.ChangeKind, state *SessionState) {
		if kind == selection.ChangeText {
			mu.Lock()
			textEvents++
			mu.Unlock()
		}
	})
	require.NoError(t, err)
	defer unsubscribe()

	vp := textViewport()
	for _, text := range []string{"H", "HE", "HEJ"} {
		text := text
		require.NoError(t, f.service.ScheduleText(context.Background(), id, &text, &vp, nil))
	}

	assert.Eventually(t, func() bool {
		state, _ := f.service.GetSession(id)
		return state.Text != nil && state.Text.Text == "HEJ"
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, textEvents)
	mu.Unlock()
}

func TestConfirm(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t, "")
	_, err := f.service.Click(id, model.LatLng{Lat: 5.000001, Lng: 5.000001})
	require.NoError(t, err)

	resp, err := f.service.Confirm(context.Background(), id, model.DonorInfo{Name: "Anna", Email: "anna@example.se"})
	require.NoError(t, err)
	assert.Len(t, resp.Cells, 1)
	assert.Equal(t, 20.0, resp.Amount)
	assert.Len(t, f.emails.notified, 1)

	state, _ := f.service.GetSession(id)
	assert.Zero(t, state.SelectedCount)
	assert.Equal(t, 1, state.DonatedCount)

	_, err = f.service.Confirm(context.Background(), id, model.DonorInfo{Name: "Anna"})
	assert.ErrorIs(t, err, model.ErrEmptySelection)
}

func TestConfirmFailureKeepsSelection(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t, "")
	_, err := f.service.Click(id, model.LatLng{Lat: 5.000001, Lng: 5.000001})
	require.NoError(t, err)
	f.donations.writeErr = errors.New("backend down")

	_, err = f.service.Confirm(context.Background(), id, model.DonorInfo{Name: "Anna"})
	assert.ErrorIs(t, err, model.ErrPersistenceWrite)
	state, _ := f.service.GetSession(id)
	assert.Equal(t, 1, state.SelectedCount)
	assert.Zero(t, state.DonatedCount)
}

func TestConfirmRequiresTestMode(t *testing.T) {
	f := newFixture(t, false)
	id := f.create(t, "")
	_, err := f.service.Confirm(context.Background(), id, model.DonorInfo{Name: "Anna"})
	assert.ErrorIs(t, err, model.ErrTestModeDisabled)
}

func TestCheckoutCarriesTextProvenance(t *testing.T) {
	f := newFixture(t, false)
	id := f.create(t, "")
	_, err := f.service.Click(id, model.LatLng{Lat: 1.000001, Lng: 1.000001})
	require.NoError(t, err)
	text, err := f.service.ApplyText(context.Background(), id, &model.TextSelectionRequest{Text: "A", Viewport: textViewport()})
	require.NoError(t, err)

	resp, err := f.service.Checkout(context.Background(), id, model.DonorInfo{Name: "Anna", Email: "anna@example.se"}, "https://savethesquare.se")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", resp.SessionID)
	assert.Equal(t, "https://savethesquare.se", f.checkout.origin)
	assert.Len(t, f.checkout.req.Squares, text.Selected+1)
	assert.Len(t, f.checkout.req.TextSquares, text.Selected)
	require.NotNil(t, f.checkout.req.ModeData)
	assert.Equal(t, "A", f.checkout.req.ModeData.Text)

	empty := f.create(t, "")
	_, err = f.service.Checkout(context.Background(), empty, model.DonorInfo{Name: "Anna"}, "")
	assert.ErrorIs(t, err, model.ErrEmptySelection)
}

func TestSettingsPersistPerClient(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t, "client-1")

	updated, err := f.service.UpdateSettings(context.Background(), id, model.TextModeSettings{FontSize: 500, PixelDensity: 2, Color: "#000000"})
	require.NoError(t, err)
	assert.Equal(t, model.MaxFontSize, updated.FontSize)
	assert.Equal(t, model.DefaultPixelRadius, updated.PixelRadius)

	again := f.create(t, "client-1")
	settings, err := f.service.GetSettings(again)
	require.NoError(t, err)
	assert.Equal(t, updated, settings)

	anonymous := f.create(t, "")
	settings, _ = f.service.GetSettings(anonymous)
	assert.Equal(t, model.DefaultTextModeSettings(), settings)
}

func TestScheduleTextPersistsSettings(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t, "client-2")

	text := "HEJ"
	vp := textViewport()
	require.NoError(t, f.service.ScheduleText(context.Background(), id, &text, &vp, &model.TextModeSettings{FontSize: 64, PixelDensity: 2, Color: "#112233"}))

	saved, err := f.settings.Get(context.Background(), "client-2")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 64.0, saved.FontSize)
	assert.Equal(t, "#112233", saved.Color)

	again := f.create(t, "client-2")
	settings, err := f.service.GetSettings(again)
	require.NoError(t, err)
	assert.Equal(t, *saved, settings)
}

func TestMergeDonatedMovesTextCellsToConflicts(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t, "")
	_, err := f.service.ApplyText(context.Background(), id, &model.TextSelectionRequest{Text: "HEJ", Viewport: textViewport()})
	require.NoError(t, err)
	state, _ := f.service.GetSession(id)
	taken := state.TextGenerated[0]

	f.service.MergeDonated([]model.DonatedCell{{Key: taken, Donor: "Bo"}})

	state, _ = f.service.GetSession(id)
	assert.Contains(t, state.Conflicts, taken)
	assert.NotContains(t, state.Selected, taken)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t, "")
	f.donations.donated["1_1"] = model.DonatedCell{Key: "1_1", Donor: "C"}

	state, err := f.service.Refresh(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, state.DonatedCount)
	assert.False(t, state.Degraded)

	f.donations.readErr = model.ErrPersistenceRead
	state, err = f.service.Refresh(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, state.Degraded)
	assert.Equal(t, 1, state.DonatedCount, "previous donated set is kept")
}

func TestSweepDropsIdleSessions(t *testing.T) {
	f := newFixture(t, true)
	now := time.Now()
	f.service.now = func() time.Time { return now }
	idle := f.create(t, "")
	now = now.Add(30 * time.Minute)
	active := f.create(t, "")

	assert.Equal(t, 0, f.service.Sweep())
	now = now.Add(31 * time.Minute)
	assert.Equal(t, 1, f.service.Sweep())

	_, err := f.service.GetSession(idle)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	_, err = f.service.GetSession(active)
	assert.NoError(t, err)
}
