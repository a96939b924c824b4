package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
)

// Stripe rejects metadata values longer than this
const maxMetadataValueLength = 500

// Metadata keys written on the checkout session and read back by the webhook
const (
	MetadataDonorName     = "donorName"
	MetadataDonorGreeting = "donorGreeting"
	MetadataSquareCount   = "squareCount"
	MetadataSquares       = "squares"
)

type stripeCheckoutProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeCheckoutProvider creates the Stripe implementation of PaymentProvider
func NewStripeCheckoutProvider(secretKey, webhookSecret string) repository.PaymentProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeCheckoutProvider{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

func (p *stripeCheckoutProvider) CreateCheckoutSession(ctx context.Context, params *model.CheckoutSessionParams) (*model.CheckoutSession, error) {
	sessionParams := BuildCheckoutSessionParams(params)
	sessionParams.Context = ctx

	s, err := p.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("%w: checkout session creation failed: %w", model.ErrPaymentProvider, err)
	}
	log.Printf("💳 Checkout session created: %s (%d squares)", s.ID, len(params.Squares))
	return &model.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// BuildCheckoutSessionParams maps a purchase onto one line item priced per square
func BuildCheckoutSessionParams(params *model.CheckoutSessionParams) *stripe.CheckoutSessionParams {
	count := int64(len(params.Squares))
	sessionParams := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(params.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(params.ProductName),
						Description: stripe.String(model.DonationDescription(len(params.Squares))),
					},
					UnitAmount: stripe.Int64(params.UnitAmountOre),
				},
				Quantity: stripe.Int64(count),
			},
		},
		SuccessURL:    stripe.String(params.SuccessURL),
		CancelURL:     stripe.String(params.CancelURL),
		CustomerEmail: stripe.String(params.Donor.Email),
	}

	for k, v := range CheckoutMetadata(params.Donor, params.Squares) {
		sessionParams.AddMetadata(k, v)
	}
	return sessionParams
}

// CheckoutMetadata donor and squares as session metadata. The squares list is
// left out when it exceeds the metadata size limit; the pending checkout record
// carries it instead.
func CheckoutMetadata(donor model.DonorInfo, squares []model.CellKey) map[string]string {
	metadata := map[string]string{
		MetadataDonorName:     donor.Name,
		MetadataDonorGreeting: donor.Greeting,
		MetadataSquareCount:   strconv.Itoa(len(squares)),
	}
	b, err := json.Marshal(model.CellKeysToStrings(squares))
	if err == nil && len(b) <= maxMetadataValueLength {
		metadata[MetadataSquares] = string(b)
	}
	return metadata
}

// SquaresFromMetadata reads the squares list back; nil when it was not stored
func SquaresFromMetadata(metadata map[string]string) []model.CellKey {
	raw, ok := metadata[MetadataSquares]
	if !ok || raw == "" {
		return nil
	}
	var squares []string
	if err := json.Unmarshal([]byte(raw), &squares); err != nil {
		log.Printf("⚠️ squares metadata unreadable: %v", err)
		return nil
	}
	return model.CellKeysFromStrings(squares)
}

func (p *stripeCheckoutProvider) ParseWebhookEvent(payload []byte, signature string) (*model.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidWebhook, err)
	}

	result := &model.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if result.Type != model.EventCheckoutSessionCompleted {
		return result, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("%w: checkout session decode failed: %w", model.ErrInvalidWebhook, err)
	}

	email := cs.CustomerEmail
	if email == "" && cs.CustomerDetails != nil {
		email = cs.CustomerDetails.Email
	}
	result.Checkout = &model.CompletedCheckout{
		SessionID:      cs.ID,
		CustomerEmail:  email,
		AmountTotalOre: cs.AmountTotal,
		PaymentStatus:  string(cs.PaymentStatus),
		Metadata:       cs.Metadata,
	}
	return result, nil
}
