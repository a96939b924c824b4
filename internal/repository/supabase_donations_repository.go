package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/postgrest-go"

	"github.com/peterneubauer/savethesquare/internal/database"
	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
)

const donationsTable = "donations"

type SupabaseDonationsRepository struct {
	client *database.SupabaseClient
}

func NewSupabaseDonationsRepository(client *database.SupabaseClient) repository.DonationsRepository {
	return &SupabaseDonationsRepository{
		client: client,
	}
}

func (r *SupabaseDonationsRepository) GetAll(ctx context.Context) ([]model.Donation, error) {
	data, count, err := r.client.GetClient().From(donationsTable).
		Select("*", "exact", false).
		Order("timestamp", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("donations fetch failed: %w", err)
	}
	_ = count

	var donations []model.Donation
	if err := json.Unmarshal(data, &donations); err != nil {
		return nil, fmt.Errorf("donations JSON unmarshal failed: %w", err)
	}
	return donations, nil
}

func (r *SupabaseDonationsRepository) GetByID(ctx context.Context, id string) (*model.Donation, error) {
	return r.findOne("id", id)
}

func (r *SupabaseDonationsRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.Donation, error) {
	return r.findOne("session_id", sessionID)
}

func (r *SupabaseDonationsRepository) findOne(column, value string) (*model.Donation, error) {
	data, count, err := r.client.GetClient().From(donationsTable).
		Select("*", "exact", false).
		Eq(column, value).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("donation fetch failed (%s=%s): %w", column, value, err)
	}
	_ = count

	var donations []model.Donation
	if err := json.Unmarshal(data, &donations); err != nil {
		return nil, fmt.Errorf("donation JSON unmarshal failed: %w", err)
	}
	if len(donations) == 0 {
		return nil, fmt.Errorf("%w: %s=%s", model.ErrDonationNotFound, column, value)
	}
	return &donations[0], nil
}

// CreateBatch inserts all rows with a single PostgREST request, which runs as one statement
func (r *SupabaseDonationsRepository) CreateBatch(ctx context.Context, donations []*model.Donation) ([]model.Donation, error) {
	if len(donations) == 0 {
		return nil, nil
	}

	data, _, err := r.client.GetClient().From(donationsTable).
		Insert(donations, false, "", "representation", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("donation insert failed: %w", err)
	}

	var created []model.Donation
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("inserted donations JSON unmarshal failed: %w", err)
	}
	return created, nil
}

func (r *SupabaseDonationsRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}
