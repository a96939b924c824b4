package repository

import (
	"context"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

// PendingCheckoutRepository checkout data waiting for the completion webhook
type PendingCheckoutRepository interface {
	Save(ctx context.Context, pending *model.PendingCheckout) error
	Get(ctx context.Context, sessionID string) (*model.PendingCheckout, error)
	Delete(ctx context.Context, sessionID string) error
}

// PaymentProvider hosted checkout and webhook verification
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, params *model.CheckoutSessionParams) (*model.CheckoutSession, error)
	// ParseWebhookEvent verifies the signature and decodes the event
	ParseWebhookEvent(payload []byte, signature string) (*model.WebhookEvent, error)
}

// ConfirmationSender delivers a composed confirmation email
type ConfirmationSender interface {
	Send(ctx context.Context, email *model.ConfirmationEmail) error
}
