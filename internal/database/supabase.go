package database

import (
	"fmt"
	"log"

	"github.com/supabase-community/supabase-go"

	"github.com/peterneubauer/savethesquare/internal/config"
)

// SupabaseClient wrapper around the Supabase client
type SupabaseClient struct {
	Client *supabase.Client
	url    string
}

// NewSupabaseClient creates a client from the Supabase settings
func NewSupabaseClient(cfg config.SupabaseConfig) (*SupabaseClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is not set")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("SUPABASE_ANON_KEY is not set")
	}

	client, err := supabase.NewClient(cfg.URL, cfg.AnonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("Supabase client initialization failed: %w", err)
	}

	return &SupabaseClient{
		Client: client,
		url:    cfg.URL,
	}, nil
}

// GetClient returns the underlying Supabase client
func (sc *SupabaseClient) GetClient() *supabase.Client {
	return sc.Client
}

// HealthCheck lightweight check that only verifies the client exists
func (sc *SupabaseClient) HealthCheck() error {
	if sc.Client == nil {
		return fmt.Errorf("Supabase client is not initialized")
	}
	log.Printf("✅ Supabase client initialized with URL: %s", sc.url)
	return nil
}
