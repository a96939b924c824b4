package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterneubauer/savethesquare/internal/config"
)

func TestConnectionStringFromProjectURL(t *testing.T) {
	cases := []struct {
		url  string
		host string
	}{
		{"https://abcd.supabase.co", "db.abcd.supabase.co"},
		{"https://abcd.supabase.co/", "db.abcd.supabase.co"},
		{"http://abcd.supabase.co", "db.abcd.supabase.co"},
	}
	for _, tc := range cases {
		dsn := ConnectionString(config.SupabaseConfig{URL: tc.url, DBPassword: "secret"})
		assert.Contains(t, dsn, "host="+tc.host+" ")
		assert.Contains(t, dsn, "password=secret")
		assert.Contains(t, dsn, "port=6543")
		assert.Contains(t, dsn, "sslmode=require")
	}
}

func TestNewPostgreSQLClientRequiresSettings(t *testing.T) {
	_, err := NewPostgreSQLClient(context.Background(), config.SupabaseConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_URL")

	_, err = NewPostgreSQLClient(context.Background(), config.SupabaseConfig{URL: "https://abcd.supabase.co"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_DB_PASSWORD")
}

func TestHealthCheckWithoutConnection(t *testing.T) {
	var pc PostgreSQLClient
	assert.Error(t, pc.HealthCheck(context.Background()))
	assert.NoError(t, pc.Close())
}
