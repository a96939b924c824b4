package repository

import (
	"context"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

// DonationsRepository persistence of the donations table
type DonationsRepository interface {
	// GetAll returns every donation, newest first
	GetAll(ctx context.Context) ([]model.Donation, error)
	GetByID(ctx context.Context, id string) (*model.Donation, error)
	// FindBySessionID looks up the donation created for a checkout session
	FindBySessionID(ctx context.Context, sessionID string) (*model.Donation, error)
	// CreateBatch stores all rows in one request; no partial success
	CreateBatch(ctx context.Context, donations []*model.Donation) ([]model.Donation, error)
	HealthCheck(ctx context.Context) error
}

// DonationSnapshotCache last successfully read donated-cell index
type DonationSnapshotCache interface {
	SaveSnapshot(ctx context.Context, cells map[model.CellKey]model.DonatedCell) error
	LoadSnapshot(ctx context.Context) (map[model.CellKey]model.DonatedCell, error)
}
