package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

type fakeDonationsRepo struct {
	mu        sync.Mutex
	donations []model.Donation
	getAllErr error
	createErr error
	findErr   error
	nextID    int
}

func (r *fakeDonationsRepo) GetAll(ctx context.Context) ([]model.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getAllErr != nil {
		return nil, r.getAllErr
	}
	out := make([]model.Donation, len(r.donations))
	copy(out, r.donations)
	return out, nil
}

func (r *fakeDonationsRepo) GetByID(ctx context.Context, id string) (*model.Donation, error) {
	return r.find(func(d model.Donation) bool { return d.ID == id })
}

func (r *fakeDonationsRepo) FindBySessionID(ctx context.Context, sessionID string) (*model.Donation, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.find(func(d model.Donation) bool { return d.SessionID == sessionID })
}

func (r *fakeDonationsRepo) find(match func(model.Donation) bool) (*model.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.donations {
		if match(r.donations[i]) {
			d := r.donations[i]
			return &d, nil
		}
	}
	return nil, model.ErrDonationNotFound
}

func (r *fakeDonationsRepo) CreateBatch(ctx context.Context, donations []*model.Donation) ([]model.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	var created []model.Donation
	for _, d := range donations {
		r.nextID++
		row := *d
		row.ID = fmt.Sprintf("don-%d", r.nextID)
		created = append(created, row)
	}
	r.donations = append(r.donations, created...)
	return created, nil
}

func (r *fakeDonationsRepo) HealthCheck(ctx context.Context) error { return nil }

func (r *fakeDonationsRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.donations)
}

type fakeSnapshotCache struct {
	mu      sync.Mutex
	cells   map[model.CellKey]model.DonatedCell
	saveErr error
}

func (c *fakeSnapshotCache) SaveSnapshot(ctx context.Context, cells map[model.CellKey]model.DonatedCell) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	c.cells = cells
	return nil
}

func (c *fakeSnapshotCache) LoadSnapshot(ctx context.Context) (map[model.CellKey]model.DonatedCell, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cells == nil {
		return nil, model.ErrSnapshotMissing
	}
	return c.cells, nil
}

type fakeSender struct {
	mu     sync.Mutex
	emails []*model.ConfirmationEmail
	err    error
}

func (s *fakeSender) Send(ctx context.Context, email *model.ConfirmationEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.emails = append(s.emails, email)
	return nil
}

func (s *fakeSender) sent() []*model.ConfirmationEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.ConfirmationEmail, len(s.emails))
	copy(out, s.emails)
	return out
}

type fakePaymentProvider struct {
	params   *model.CheckoutSessionParams
	session  *model.CheckoutSession
	event    *model.WebhookEvent
	err      error
	parseErr error
}

func (p *fakePaymentProvider) CreateCheckoutSession(ctx context.Context, params *model.CheckoutSessionParams) (*model.CheckoutSession, error) {
	p.params = params
	if p.err != nil {
		return nil, p.err
	}
	return p.session, nil
}

func (p *fakePaymentProvider) ParseWebhookEvent(payload []byte, signature string) (*model.WebhookEvent, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	return p.event, nil
}

type fakePendingRepo struct {
	mu      sync.Mutex
	records map[string]*model.PendingCheckout
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{records: make(map[string]*model.PendingCheckout)}
}

func (r *fakePendingRepo) Save(ctx context.Context, pending *model.PendingCheckout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[pending.SessionID] = pending
	return nil
}

func (r *fakePendingRepo) Get(ctx context.Context, sessionID string) (*model.PendingCheckout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.records[sessionID]
	if !ok {
		return nil, model.ErrPendingNotFound
	}
	return p, nil
}

func (r *fakePendingRepo) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, sessionID)
	return nil
}
