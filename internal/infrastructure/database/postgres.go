package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/peterneubauer/savethesquare/internal/config"
)

// PostgreSQLClient direct connection to the Supabase Postgres database
type PostgreSQLClient struct {
	DB *sql.DB
}

// NewPostgreSQLClient connects through the Supabase pooler (port 6543)
func NewPostgreSQLClient(ctx context.Context, cfg config.SupabaseConfig) (*PostgreSQLClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is not set")
	}
	if cfg.DBPassword == "" {
		return nil, fmt.Errorf("SUPABASE_DB_PASSWORD is not set")
	}

	db, err := sql.Open("postgres", ConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("PostgreSQL connection initialization failed: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("PostgreSQL connection failed: %w", err)
	}

	return &PostgreSQLClient{
		DB: db,
	}, nil
}

// ConnectionString builds the DSN from the project URL (https://xxx.supabase.co -> db.xxx.supabase.co)
func ConnectionString(cfg config.SupabaseConfig) string {
	host := strings.TrimPrefix(strings.TrimPrefix(cfg.URL, "https://"), "http://")
	host = strings.TrimSuffix(host, "/")
	return fmt.Sprintf(
		"host=db.%s port=6543 user=postgres password=%s dbname=postgres sslmode=require",
		host, cfg.DBPassword,
	)
}

// Close closes the database connection
func (pc *PostgreSQLClient) Close() error {
	if pc.DB != nil {
		return pc.DB.Close()
	}
	return nil
}

// HealthCheck pings the database
func (pc *PostgreSQLClient) HealthCheck(ctx context.Context) error {
	if pc.DB == nil {
		return fmt.Errorf("PostgreSQL client is not initialized")
	}
	return pc.DB.PingContext(ctx)
}
