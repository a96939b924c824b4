package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
	"github.com/peterneubauer/savethesquare/internal/domain/selection"
	"github.com/peterneubauer/savethesquare/internal/metrics"
)

// Donation sources used for metrics and logs
const (
	SourceTest    = "test"
	SourceWebhook = "webhook"
	SourceSession = "session"
)

// DonationsSavedFunc observer of newly persisted donated cells
type DonationsSavedFunc func(cells []model.DonatedCell)

type DonationUseCase interface {
	// ListDonations returns the public square data, falling back to the cached snapshot
	ListDonations(ctx context.Context) (*model.DonationsResponse, error)

	// DonatedCells returns the donated-cell index and whether it came from the cache
	DonatedCells(ctx context.Context) (map[model.CellKey]model.DonatedCell, bool, error)

	GetDonation(ctx context.Context, id string) (*model.DonationDetailResponse, error)

	// SaveTestDonation stores a simulated payment; only allowed in test mode
	SaveTestDonation(ctx context.Context, req *model.SaveDonationRequest) (*model.SaveDonationResponse, error)

	// CreateDonations persists a selection purchase batch (selection.DonationWriter)
	CreateDonations(ctx context.Context, batch *selection.PurchaseBatch) ([]model.DonatedCell, error)

	// RecordDonations persists prepared rows in one batch and notifies observers
	RecordDonations(ctx context.Context, donations []*model.Donation, source string) ([]model.Donation, error)

	OnDonationsSaved(fn DonationsSavedFunc)
}

type donationUseCaseImpl struct {
	repo           repository.DonationsRepository
	cache          repository.DonationSnapshotCache
	pricePerSquare int
	testMode       bool
	now            func() time.Time

	mu        sync.RWMutex
	observers []DonationsSavedFunc
}

// NewDonationUseCase creates the donation use case; cache may be nil
func NewDonationUseCase(repo repository.DonationsRepository, cache repository.DonationSnapshotCache, pricePerSquare int, testMode bool) DonationUseCase {
	if pricePerSquare <= 0 {
		pricePerSquare = model.DefaultSquarePriceSEK
	}
	return &donationUseCaseImpl{
		repo:           repo,
		cache:          cache,
		pricePerSquare: pricePerSquare,
		testMode:       testMode,
		now:            time.Now,
	}
}

func (u *donationUseCaseImpl) ListDonations(ctx context.Context) (*model.DonationsResponse, error) {
	donations, err := u.repo.GetAll(ctx)
	if err == nil {
		index := model.IndexDonatedCells(donations)
		u.saveSnapshot(ctx, index)

		resp := newDonationsResponse(index)
		resp.TotalDonations = len(donations)
		for _, d := range donations {
			resp.TotalRaised += d.Amount
		}
		return resp, nil
	}

	index, cacheErr := u.loadSnapshot(ctx, err)
	if cacheErr != nil {
		return nil, cacheErr
	}
	resp := newDonationsResponse(index)
	resp.Degraded = true
	ids := make(map[string]struct{})
	for _, cell := range index {
		ids[cell.DonationID] = struct{}{}
	}
	resp.TotalDonations = len(ids)
	resp.TotalRaised = model.DonationAmount(len(index), u.pricePerSquare)
	return resp, nil
}

func newDonationsResponse(index map[model.CellKey]model.DonatedCell) *model.DonationsResponse {
	squareData := make(map[model.CellKey]model.SquareInfo, len(index))
	for key, cell := range index {
		squareData[key] = model.NewSquareInfo(cell)
	}
	return &model.DonationsResponse{
		SquareData:   squareData,
		TotalSquares: len(squareData),
	}
}

func (u *donationUseCaseImpl) DonatedCells(ctx context.Context) (map[model.CellKey]model.DonatedCell, bool, error) {
	donations, err := u.repo.GetAll(ctx)
	if err == nil {
		index := model.IndexDonatedCells(donations)
		u.saveSnapshot(ctx, index)
		return index, false, nil
	}

	index, cacheErr := u.loadSnapshot(ctx, err)
	if cacheErr != nil {
		return nil, false, cacheErr
	}
	return index, true, nil
}

func (u *donationUseCaseImpl) saveSnapshot(ctx context.Context, index map[model.CellKey]model.DonatedCell) {
	if u.cache == nil {
		return
	}
	if err := u.cache.SaveSnapshot(ctx, index); err != nil {
		log.Printf("⚠️ Donation snapshot cache write failed: %v", err)
	}
}

// loadSnapshot serves the last good index after a failed backend read
func (u *donationUseCaseImpl) loadSnapshot(ctx context.Context, readErr error) (map[model.CellKey]model.DonatedCell, error) {
	log.Printf("⚠️ Donation read failed, trying cached snapshot: %v", readErr)
	if u.cache == nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistenceRead, readErr)
	}
	index, err := u.cache.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w (cache: %v)", model.ErrPersistenceRead, readErr, err)
	}
	metrics.DonationReadFallbackTotal.Inc()
	log.Printf("🗂️ Serving %d donated squares from cached snapshot", len(index))
	return index, nil
}

func (u *donationUseCaseImpl) GetDonation(ctx context.Context, id string) (*model.DonationDetailResponse, error) {
	donation, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.DonationDetailResponse{
		Donation: donation,
		Squares:  donation.Squares,
	}, nil
}

func (u *donationUseCaseImpl) SaveTestDonation(ctx context.Context, req *model.SaveDonationRequest) (*model.SaveDonationResponse, error) {
	if !u.testMode {
		return nil, model.ErrTestModeDisabled
	}

	timestamp := u.now().UTC()
	donor := model.DonorInfo{Name: req.DonorName, Email: req.DonorEmail, Greeting: req.DonorGreeting}
	cells := model.BuildDonatedCells(donor, model.CellKeysFromStrings(req.Squares),
		model.CellKeysFromStrings(req.TextSquares), req.ModeData, timestamp)

	rows := model.GroupCellsIntoDonations(donor, cells, u.pricePerSquare, timestamp)
	sessionID := TestSessionID(timestamp)
	for _, row := range rows {
		row.SessionID = sessionID
		row.PaymentStatus = model.PaymentStatusTestSimulated
	}
	if len(rows) == 1 && req.Amount > 0 {
		rows[0].Amount = req.Amount
	}

	saved, err := u.RecordDonations(ctx, rows, SourceTest)
	if err != nil {
		return nil, err
	}
	return &model.SaveDonationResponse{Success: true, Donation: &saved[0]}, nil
}

// TestSessionID fake checkout session id for simulated payments: test_{ms}_{rand9}
func TestSessionID(t time.Time) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return "test_" + strconv.FormatInt(t.UnixMilli(), 10) + "_" + string(suffix)
}

func (u *donationUseCaseImpl) CreateDonations(ctx context.Context, batch *selection.PurchaseBatch) ([]model.DonatedCell, error) {
	if batch == nil || len(batch.Cells) == 0 {
		return nil, model.ErrEmptySelection
	}
	timestamp := batch.Cells[0].Timestamp
	rows := model.GroupCellsIntoDonations(batch.Donor, batch.Cells, u.pricePerSquare, timestamp)
	sessionID := TestSessionID(timestamp)
	for _, row := range rows {
		row.SessionID = sessionID
		row.PaymentStatus = model.PaymentStatusTestSimulated
	}

	saved, err := u.RecordDonations(ctx, rows, SourceSession)
	if err != nil {
		return nil, err
	}
	var cells []model.DonatedCell
	for i := range saved {
		cells = append(cells, saved[i].Cells()...)
	}
	return cells, nil
}

func (u *donationUseCaseImpl) RecordDonations(ctx context.Context, donations []*model.Donation, source string) ([]model.Donation, error) {
	if len(donations) == 0 {
		return nil, model.ErrEmptySelection
	}

	saved, err := u.repo.CreateBatch(ctx, donations)
	if err != nil {
		metrics.DonationWriteFailuresTotal.Inc()
		if errors.Is(err, model.ErrPersistenceWrite) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistenceWrite, err)
	}
	if len(saved) == 0 {
		for _, d := range donations {
			saved = append(saved, *d)
		}
	}

	var cells []model.DonatedCell
	for i := range saved {
		cells = append(cells, saved[i].Cells()...)
		metrics.DonationsTotal.WithLabelValues(source).Inc()
	}
	metrics.SquaresDonatedTotal.Add(float64(len(cells)))
	log.Printf("✅ %d donation row(s) saved (%s): %d squares by %s", len(saved), source, len(cells), saved[0].DonorName)

	u.notify(cells)
	return saved, nil
}

func (u *donationUseCaseImpl) OnDonationsSaved(fn DonationsSavedFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.observers = append(u.observers, fn)
}

// notify runs observers on their own goroutine so callers holding session locks never wait on them
func (u *donationUseCaseImpl) notify(cells []model.DonatedCell) {
	u.mu.RLock()
	observers := make([]DonationsSavedFunc, len(u.observers))
	copy(observers, u.observers)
	u.mu.RUnlock()
	if len(observers) == 0 {
		return
	}
	go func() {
		for _, fn := range observers {
			fn(cells)
		}
	}()
}
