package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
	"github.com/peterneubauer/savethesquare/internal/infrastructure/payment"
	"github.com/peterneubauer/savethesquare/internal/metrics"
)

type CheckoutUseCase interface {
	// CreateCheckout opens a hosted checkout session for the squares; origin is where the donor returns
	CreateCheckout(ctx context.Context, req *model.CheckoutRequest, origin string) (*model.CheckoutResponse, error)

	// HandleWebhook verifies a provider event and records the donation for completed checkouts
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*model.WebhookResult, error)
}

// CheckoutSettings pricing and redirect configuration
type CheckoutSettings struct {
	PricePerSquare int
	Currency       string
	SiteURL        string
	PendingTTL     time.Duration
}

type checkoutUseCaseImpl struct {
	provider      repository.PaymentProvider
	pending       repository.PendingCheckoutRepository
	donationsRepo repository.DonationsRepository
	donations     DonationUseCase
	emails        EmailUseCase
	settings      CheckoutSettings
	now           func() time.Time
}

// NewCheckoutUseCase creates the checkout use case; provider and pending may be nil
func NewCheckoutUseCase(
	provider repository.PaymentProvider,
	pending repository.PendingCheckoutRepository,
	donationsRepo repository.DonationsRepository,
	donations DonationUseCase,
	emails EmailUseCase,
	settings CheckoutSettings,
) CheckoutUseCase {
	if settings.PricePerSquare <= 0 {
		settings.PricePerSquare = model.DefaultSquarePriceSEK
	}
	if settings.Currency == "" {
		settings.Currency = model.DefaultCurrency
	}
	if settings.PendingTTL <= 0 {
		settings.PendingTTL = 24 * time.Hour
	}
	return &checkoutUseCaseImpl{
		provider:      provider,
		pending:       pending,
		donationsRepo: donationsRepo,
		donations:     donations,
		emails:        emails,
		settings:      settings,
		now:           time.Now,
	}
}

func (u *checkoutUseCaseImpl) CreateCheckout(ctx context.Context, req *model.CheckoutRequest, origin string) (*model.CheckoutResponse, error) {
	if u.provider == nil {
		return nil, fmt.Errorf("%w: payment provider is not configured", model.ErrPaymentProvider)
	}
	squares := model.CellKeysFromStrings(req.Squares)
	if len(squares) == 0 {
		return nil, model.ErrEmptySelection
	}
	if origin == "" {
		origin = u.settings.SiteURL
	}
	origin = strings.TrimRight(origin, "/")

	donor := model.DonorInfo{Name: req.DonorName, Email: req.DonorEmail, Greeting: req.DonorGreeting}
	session, err := u.provider.CreateCheckoutSession(ctx, &model.CheckoutSessionParams{
		Squares:       squares,
		Donor:         donor,
		UnitAmountOre: int64(u.settings.PricePerSquare) * model.OrePerKrona,
		Currency:      u.settings.Currency,
		ProductName:   model.ProductName,
		SuccessURL:    origin + "?success=true",
		CancelURL:     origin + "?canceled=true",
	})
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.CheckoutSessionsTotal.WithLabelValues("created").Inc()

	amount := model.DonationAmount(len(squares), u.settings.PricePerSquare)
	if u.pending != nil {
		now := u.now().UTC()
		pending := &model.PendingCheckout{
			SessionID:     session.ID,
			DonorName:     donor.Name,
			DonorEmail:    donor.Email,
			DonorGreeting: donor.Greeting,
			Squares:       model.CellKeysToStrings(squares),
			TextSquares:   req.TextSquares,
			Amount:        amount,
			ModeData:      req.ModeData,
			CreatedAt:     now,
			ExpireAt:      now.Add(u.settings.PendingTTL),
		}
		if err := u.pending.Save(ctx, pending); err != nil {
			log.Printf("⚠️ Pending checkout %s not stored: %v", session.ID, err)
		}
	}

	return &model.CheckoutResponse{SessionID: session.ID, URL: session.URL, Amount: amount}, nil
}

func (u *checkoutUseCaseImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (*model.WebhookResult, error) {
	if u.provider == nil {
		return nil, fmt.Errorf("%w: payment provider is not configured", model.ErrPaymentProvider)
	}
	event, err := u.provider.ParseWebhookEvent(payload, signature)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return nil, err
	}

	if event.Type != model.EventCheckoutSessionCompleted || event.Checkout == nil {
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		log.Printf("ℹ️ Unhandled webhook event type: %s", event.Type)
		return &model.WebhookResult{Received: true}, nil
	}
	checkout := event.Checkout

	existing, err := u.donationsRepo.FindBySessionID(ctx, checkout.SessionID)
	if err == nil {
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "duplicate").Inc()
		log.Printf("ℹ️ Checkout %s already recorded as donation %s", checkout.SessionID, existing.ID)
		return &model.WebhookResult{Received: true, Handled: true, DonationID: existing.ID}, nil
	}
	if !errors.Is(err, model.ErrDonationNotFound) {
		return nil, fmt.Errorf("%w: duplicate check failed: %w", model.ErrPersistenceRead, err)
	}

	pending := u.loadPending(ctx, checkout.SessionID)
	rows, donor, squares := u.donationRows(checkout, pending)
	if len(squares) == 0 {
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "rejected").Inc()
		return nil, fmt.Errorf("%w: checkout %s carries no squares", model.ErrInvalidWebhook, checkout.SessionID)
	}

	saved, err := u.donations.RecordDonations(ctx, rows, SourceWebhook)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "failed").Inc()
		return nil, err
	}
	metrics.WebhookEventsTotal.WithLabelValues(event.Type, "handled").Inc()

	if pending != nil {
		if err := u.pending.Delete(ctx, checkout.SessionID); err != nil {
			log.Printf("⚠️ Pending checkout %s not deleted: %v", checkout.SessionID, err)
		}
	}

	var total float64
	for _, d := range saved {
		total += d.Amount
	}
	u.emails.NotifyDonor(donor, squares, total)

	return &model.WebhookResult{Received: true, Handled: true, DonationID: saved[0].ID}, nil
}

func (u *checkoutUseCaseImpl) loadPending(ctx context.Context, sessionID string) *model.PendingCheckout {
	if u.pending == nil {
		return nil
	}
	pending, err := u.pending.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, model.ErrPendingNotFound) {
			log.Printf("⚠️ Pending checkout %s unreadable, using metadata: %v", sessionID, err)
		}
		return nil
	}
	return pending
}

// donationRows prefers the pending record and falls back to the session metadata
func (u *checkoutUseCaseImpl) donationRows(checkout *model.CompletedCheckout, pending *model.PendingCheckout) ([]*model.Donation, model.DonorInfo, []model.CellKey) {
	donor := model.DonorInfo{
		Name:     checkout.Metadata[payment.MetadataDonorName],
		Email:    checkout.CustomerEmail,
		Greeting: checkout.Metadata[payment.MetadataDonorGreeting],
	}
	squares := payment.SquaresFromMetadata(checkout.Metadata)
	var textSquares []model.CellKey
	var modeData *model.ModeData

	if pending != nil {
		donor = model.DonorInfo{Name: pending.DonorName, Email: pending.DonorEmail, Greeting: pending.DonorGreeting}
		if checkout.CustomerEmail != "" {
			donor.Email = checkout.CustomerEmail
		}
		squares = model.CellKeysFromStrings(pending.Squares)
		textSquares = model.CellKeysFromStrings(pending.TextSquares)
		modeData = pending.ModeData
	}
	if len(squares) == 0 {
		return nil, donor, nil
	}

	timestamp := u.now().UTC()
	cells := model.BuildDonatedCells(donor, squares, textSquares, modeData, timestamp)
	rows := model.GroupCellsIntoDonations(donor, cells, u.settings.PricePerSquare, timestamp)

	status := checkout.PaymentStatus
	if status == "" {
		status = model.PaymentStatusPaid
	}
	for _, row := range rows {
		row.SessionID = checkout.SessionID
		row.PaymentStatus = status
	}
	if len(rows) == 1 && checkout.AmountTotalOre > 0 {
		rows[0].Amount = float64(checkout.AmountTotalOre) / model.OrePerKrona
	}
	return rows, donor, squares
}
