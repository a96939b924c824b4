package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
	"github.com/peterneubauer/savethesquare/internal/infrastructure/database"
)

const donationColumns = `id, donor_name, donor_email, COALESCE(donor_greeting, ''), squares, amount, mode_data, timestamp, COALESCE(session_id, ''), COALESCE(payment_status, '')`

type PostgresDonationsRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresDonationsRepository(client *database.PostgreSQLClient) repository.DonationsRepository {
	return &PostgresDonationsRepository{
		client: client,
	}
}

// donationRow scan target for the jsonb columns
type donationRow struct {
	ID            string
	DonorName     string
	DonorEmail    string
	DonorGreeting string
	Squares       []byte
	Amount        float64
	ModeData      []byte
	Timestamp     time.Time
	SessionID     string
	PaymentStatus string
}

// ToDonation decodes the jsonb columns
func (row *donationRow) ToDonation() (*model.Donation, error) {
	d := &model.Donation{
		ID:            row.ID,
		DonorName:     row.DonorName,
		DonorEmail:    row.DonorEmail,
		DonorGreeting: row.DonorGreeting,
		Amount:        row.Amount,
		Timestamp:     row.Timestamp,
		SessionID:     row.SessionID,
		PaymentStatus: row.PaymentStatus,
	}
	if err := json.Unmarshal(row.Squares, &d.Squares); err != nil {
		return nil, fmt.Errorf("squares JSONB parse error: %w", err)
	}
	if len(row.ModeData) > 0 {
		var md model.ModeData
		if err := json.Unmarshal(row.ModeData, &md); err != nil {
			return nil, fmt.Errorf("mode_data JSONB parse error: %w", err)
		}
		d.ModeData = &md
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDonation(s rowScanner) (*model.Donation, error) {
	var row donationRow
	if err := s.Scan(&row.ID, &row.DonorName, &row.DonorEmail, &row.DonorGreeting, &row.Squares,
		&row.Amount, &row.ModeData, &row.Timestamp, &row.SessionID, &row.PaymentStatus); err != nil {
		return nil, err
	}
	return row.ToDonation()
}

func (r *PostgresDonationsRepository) GetAll(ctx context.Context) ([]model.Donation, error) {
	rows, err := r.client.DB.QueryContext(ctx, `SELECT `+donationColumns+` FROM donations ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("donations query failed: %w", err)
	}
	defer rows.Close()

	var donations []model.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("donation row scan failed: %w", err)
		}
		donations = append(donations, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("donations iteration failed: %w", err)
	}
	return donations, nil
}

func (r *PostgresDonationsRepository) GetByID(ctx context.Context, id string) (*model.Donation, error) {
	return r.findOne(ctx, "id", id)
}

func (r *PostgresDonationsRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.Donation, error) {
	return r.findOne(ctx, "session_id", sessionID)
}

func (r *PostgresDonationsRepository) findOne(ctx context.Context, column, value string) (*model.Donation, error) {
	// column is always id or session_id
	query := `SELECT ` + donationColumns + ` FROM donations WHERE ` + column + `::text = $1 LIMIT 1`
	d, err := scanDonation(r.client.DB.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s=%s", model.ErrDonationNotFound, column, value)
	}
	if err != nil {
		return nil, fmt.Errorf("donation query failed: %w", err)
	}
	return d, nil
}

// CreateBatch inserts every row inside one transaction
func (r *PostgresDonationsRepository) CreateBatch(ctx context.Context, donations []*model.Donation) ([]model.Donation, error) {
	if len(donations) == 0 {
		return nil, nil
	}

	tx, err := r.client.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("transaction begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO donations
		(id, donor_name, donor_email, donor_greeting, squares, amount, mode_data, timestamp, session_id, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return nil, fmt.Errorf("insert prepare failed: %w", err)
	}
	defer stmt.Close()

	created := make([]model.Donation, 0, len(donations))
	for _, d := range donations {
		row := *d
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		squares, err := json.Marshal(row.Squares)
		if err != nil {
			return nil, fmt.Errorf("squares JSON marshal failed: %w", err)
		}
		var modeData []byte
		if row.ModeData != nil {
			if modeData, err = json.Marshal(row.ModeData); err != nil {
				return nil, fmt.Errorf("mode_data JSON marshal failed: %w", err)
			}
		}
		if _, err := stmt.ExecContext(ctx, row.ID, row.DonorName, row.DonorEmail, nullString(row.DonorGreeting),
			string(squares), row.Amount, nullString(string(modeData)), row.Timestamp, nullString(row.SessionID), nullString(row.PaymentStatus)); err != nil {
			return nil, fmt.Errorf("donation insert failed: %w", err)
		}
		created = append(created, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("transaction commit failed: %w", err)
	}
	return created, nil
}

func (r *PostgresDonationsRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
