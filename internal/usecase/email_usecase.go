package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
	"github.com/peterneubauer/savethesquare/internal/infrastructure/mail"
	"github.com/peterneubauer/savethesquare/internal/metrics"
)

const (
	emailSendTimeout = 30 * time.Second
	previewMessage   = "Test mode - email preview generated (not sent)"
	sentMessage      = "Email sent successfully"
)

type EmailUseCase interface {
	// SendConfirmation composes the confirmation email and sends it, or returns a preview in test mode
	SendConfirmation(ctx context.Context, req *model.ConfirmationEmailRequest) (*model.ConfirmationEmailResponse, error)

	// NotifyDonor sends the confirmation in the background; the purchase never waits for it
	NotifyDonor(donor model.DonorInfo, squares []model.CellKey, amount float64)
}

type emailUseCaseImpl struct {
	sender   repository.ConfirmationSender
	siteURL  string
	from     string
	testMode bool
	now      func() time.Time
}

// NewEmailUseCase creates the email use case; a nil sender forces preview mode
func NewEmailUseCase(sender repository.ConfirmationSender, siteURL, from string, testMode bool) EmailUseCase {
	return &emailUseCaseImpl{
		sender:   sender,
		siteURL:  siteURL,
		from:     from,
		testMode: testMode || sender == nil,
		now:      time.Now,
	}
}

func (u *emailUseCaseImpl) SendConfirmation(ctx context.Context, req *model.ConfirmationEmailRequest) (*model.ConfirmationEmailResponse, error) {
	squares := model.CellKeysFromStrings(req.Squares)
	email, err := mail.Compose(mail.Details{
		Donor:   model.DonorInfo{Name: req.DonorName, Email: req.DonorEmail, Greeting: req.DonorGreeting},
		Squares: squares,
		Amount:  req.Amount,
		Date:    u.now(),
	}, u.siteURL, u.from)
	if err != nil {
		return nil, fmt.Errorf("email composition failed: %w", err)
	}

	if req.TestMode || u.testMode {
		metrics.EmailsTotal.WithLabelValues("preview").Inc()
		log.Printf("📧 Email preview generated for %s (%d squares)", email.To, len(squares))
		return &model.ConfirmationEmailResponse{
			Success:  true,
			TestMode: true,
			Message:  previewMessage,
			Preview:  email,
		}, nil
	}

	if err := u.sender.Send(ctx, email); err != nil {
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.EmailsTotal.WithLabelValues("sent").Inc()
	return &model.ConfirmationEmailResponse{Success: true, Message: sentMessage}, nil
}

func (u *emailUseCaseImpl) NotifyDonor(donor model.DonorInfo, squares []model.CellKey, amount float64) {
	if donor.Email == "" || len(squares) == 0 {
		return
	}
	req := &model.ConfirmationEmailRequest{
		DonorName:     donor.Name,
		DonorEmail:    donor.Email,
		DonorGreeting: donor.Greeting,
		Squares:       model.CellKeysToStrings(squares),
		Amount:        amount,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailSendTimeout)
		defer cancel()
		if _, err := u.SendConfirmation(ctx, req); err != nil {
			log.Printf("⚠️ Confirmation email to %s failed: %v", donor.Email, err)
		}
	}()
}
