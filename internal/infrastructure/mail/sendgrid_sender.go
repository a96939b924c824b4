package mail

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
)

const senderName = "Save The Square"

type sendGridSender struct {
	client *sendgrid.Client
}

// NewSendGridSender creates the SendGrid implementation of ConfirmationSender
func NewSendGridSender(apiKey string) repository.ConfirmationSender {
	return &sendGridSender{client: sendgrid.NewSendClient(apiKey)}
}

func (s *sendGridSender) Send(ctx context.Context, email *model.ConfirmationEmail) error {
	from := sgmail.NewEmail(senderName, email.From)
	to := sgmail.NewEmail("", email.To)
	message := sgmail.NewSingleEmail(from, email.Subject, to, email.Text, email.HTML)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrEmailNotDelivered, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sendgrid status %d: %s", model.ErrEmailNotDelivered, resp.StatusCode, resp.Body)
	}
	log.Printf("📧 Confirmation email sent to %s (status %d)", email.To, resp.StatusCode)
	return nil
}
