package handler

import (
	"context"
	"sync"

	"github.com/peterneubauer/savethesquare/internal/application"
	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/selection"
	"github.com/peterneubauer/savethesquare/internal/usecase"
)

type fakeDonationUseCase struct {
	list     *model.DonationsResponse
	detail   *model.DonationDetailResponse
	saved    *model.SaveDonationRequest
	err      error
	listErr  error
	savedErr error
}

func (f *fakeDonationUseCase) ListDonations(ctx context.Context) (*model.DonationsResponse, error) {
	return f.list, f.listErr
}

func (f *fakeDonationUseCase) DonatedCells(ctx context.Context) (map[model.CellKey]model.DonatedCell, bool, error) {
	return map[model.CellKey]model.DonatedCell{}, false, nil
}

func (f *fakeDonationUseCase) GetDonation(ctx context.Context, id string) (*model.DonationDetailResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

func (f *fakeDonationUseCase) SaveTestDonation(ctx context.Context, req *model.SaveDonationRequest) (*model.SaveDonationResponse, error) {
	if f.savedErr != nil {
		return nil, f.savedErr
	}
	f.saved = req
	return &model.SaveDonationResponse{Success: true, Donation: &model.Donation{ID: "d-1", DonorName: req.DonorName}}, nil
}

func (f *fakeDonationUseCase) CreateDonations(ctx context.Context, batch *selection.PurchaseBatch) ([]model.DonatedCell, error) {
	return batch.Cells, nil
}

func (f *fakeDonationUseCase) RecordDonations(ctx context.Context, donations []*model.Donation, source string) ([]model.Donation, error) {
	return nil, nil
}

func (f *fakeDonationUseCase) OnDonationsSaved(fn usecase.DonationsSavedFunc) {}

type fakeCheckoutUseCase struct {
	req       *model.CheckoutRequest
	origin    string
	payload   []byte
	signature string
	err       error
}

func (f *fakeCheckoutUseCase) CreateCheckout(ctx context.Context, req *model.CheckoutRequest, origin string) (*model.CheckoutResponse, error) {
	f.req, f.origin = req, origin
	if f.err != nil {
		return nil, f.err
	}
	return &model.CheckoutResponse{SessionID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1", Amount: float64(20 * len(req.Squares))}, nil
}

func (f *fakeCheckoutUseCase) HandleWebhook(ctx context.Context, payload []byte, signature string) (*model.WebhookResult, error) {
	f.payload, f.signature = payload, signature
	if f.err != nil {
		return nil, f.err
	}
	return &model.WebhookResult{Received: true, Handled: true, DonationID: "d-1"}, nil
}

type fakeEmailUseCase struct {
	req *model.ConfirmationEmailRequest
	err error
}

func (f *fakeEmailUseCase) SendConfirmation(ctx context.Context, req *model.ConfirmationEmailRequest) (*model.ConfirmationEmailResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.ConfirmationEmailResponse{Success: true, TestMode: true, Message: "preview"}, nil
}

func (f *fakeEmailUseCase) NotifyDonor(donor model.DonorInfo, squares []model.CellKey, amount float64) {}

// fakeSessions knows one session id, "s-1"
type fakeSessions struct {
	mu       sync.Mutex
	listener application.StateListener

	clicks  []model.LatLng
	texts   []*model.TextSelectionRequest
	cleared int
	donor   model.DonorInfo
	origin  string
	err     error
}

func (f *fakeSessions) known(id string) error {
	if f.err != nil {
		return f.err
	}
	if id != "s-1" {
		return model.ErrSessionNotFound
	}
	return nil
}

func (f *fakeSessions) CreateSession(ctx context.Context, clientID string) (*model.SessionResponse, error) {
	return &model.SessionResponse{SessionID: "s-1", Settings: model.DefaultTextModeSettings()}, nil
}

func (f *fakeSessions) GetSession(id string) (*application.SessionState, error) {
	if err := f.known(id); err != nil {
		return nil, err
	}
	return &application.SessionState{SessionID: id}, nil
}

func (f *fakeSessions) Click(id string, at model.LatLng) (*model.ClickResponse, error) {
	if err := f.known(id); err != nil {
		return nil, err
	}
	f.clicks = append(f.clicks, at)
	return &model.ClickResponse{Key: "500000_500000", Selected: true}, nil
}

func (f *fakeSessions) ApplyText(ctx context.Context, id string, req *model.TextSelectionRequest) (*model.TextSelectionResponse, error) {
	if err := f.known(id); err != nil {
		return nil, err
	}
	f.texts = append(f.texts, req)
	return &model.TextSelectionResponse{Selected: 12, Conflicts: []model.CellKey{}}, nil
}

func (f *fakeSessions) ScheduleText(ctx context.Context, id string, text *string, viewport *model.Viewport, settings *model.TextModeSettings) error {
	return f.known(id)
}

func (f *fakeSessions) Clear(id string) error {
	if err := f.known(id); err != nil {
		return err
	}
	f.cleared++
	return nil
}

func (f *fakeSessions) Refresh(ctx context.Context, id string) (*application.SessionState, error) {
	return f.GetSession(id)
}

func (f *fakeSessions) Confirm(ctx context.Context, id string, donor model.DonorInfo) (*model.ConfirmPurchaseResponse, error) {
	if err := f.known(id); err != nil {
		return nil, err
	}
	f.donor = donor
	return &model.ConfirmPurchaseResponse{Success: true, Amount: 20}, nil
}

func (f *fakeSessions) Checkout(ctx context.Context, id string, donor model.DonorInfo, origin string) (*model.CheckoutResponse, error) {
	if err := f.known(id); err != nil {
		return nil, err
	}
	f.donor, f.origin = donor, origin
	return &model.CheckoutResponse{SessionID: "cs_test_2", URL: "https://checkout.stripe.com/c/pay/cs_test_2", Amount: 20}, nil
}

func (f *fakeSessions) GetSettings(id string) (model.TextModeSettings, error) {
	if err := f.known(id); err != nil {
		return model.TextModeSettings{}, err
	}
	return model.DefaultTextModeSettings(), nil
}

func (f *fakeSessions) UpdateSettings(ctx context.Context, id string, settings model.TextModeSettings) (model.TextModeSettings, error) {
	if err := f.known(id); err != nil {
		return model.TextModeSettings{}, err
	}
	return settings.Normalize(), nil
}

func (f *fakeSessions) Subscribe(id string, listener application.StateListener) (func(), error) {
	if err := f.known(id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.listener = listener
	f.mu.Unlock()
	return func() {}, nil
}

func (f *fakeSessions) subscribed() application.StateListener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener
}

func (f *fakeSessions) MergeDonated(cells []model.DonatedCell) {}

func (f *fakeSessions) Sweep() int { return 0 }

func (f *fakeSessions) Close() {}
