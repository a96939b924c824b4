package repository

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
)

const pendingCheckoutsCollection = "pendingCheckouts"

// FirestorePendingCheckoutRepository keeps checkout data until the webhook arrives.
// Documents expire through a Firestore TTL policy on expireAt.
type FirestorePendingCheckoutRepository struct {
	client *firestore.Client
}

func NewFirestorePendingCheckoutRepository(client *firestore.Client) repository.PendingCheckoutRepository {
	return &FirestorePendingCheckoutRepository{
		client: client,
	}
}

func (r *FirestorePendingCheckoutRepository) Save(ctx context.Context, pending *model.PendingCheckout) error {
	_, err := r.client.Collection(pendingCheckoutsCollection).Doc(pending.SessionID).Set(ctx, pending)
	if err != nil {
		log.Printf("❌ Failed to save pending checkout %s: %v", pending.SessionID, err)
		return fmt.Errorf("pending checkout save failed: %w", err)
	}
	log.Printf("✅ Pending checkout saved: %s (expires %s)", pending.SessionID, pending.ExpireAt.Format("2006-01-02 15:04"))
	return nil
}

func (r *FirestorePendingCheckoutRepository) Get(ctx context.Context, sessionID string) (*model.PendingCheckout, error) {
	doc, err := r.client.Collection(pendingCheckoutsCollection).Doc(sessionID).Get(ctx)
	if err != nil {
		if status := err.Error(); strings.Contains(status, "NotFound") || strings.Contains(status, "not found") {
			return nil, fmt.Errorf("%w: %s", model.ErrPendingNotFound, sessionID)
		}
		return nil, fmt.Errorf("pending checkout fetch failed: %w", err)
	}

	var pending model.PendingCheckout
	if err := doc.DataTo(&pending); err != nil {
		return nil, fmt.Errorf("pending checkout decode failed: %w", err)
	}
	return &pending, nil
}

func (r *FirestorePendingCheckoutRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.client.Collection(pendingCheckoutsCollection).Doc(sessionID).Delete(ctx); err != nil {
		return fmt.Errorf("pending checkout delete failed: %w", err)
	}
	return nil
}
