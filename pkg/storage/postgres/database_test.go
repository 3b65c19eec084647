package postgres_test

import (
	"os"
	"testing"

	"tradehelper/config"
	"tradehelper/pkg/storage/postgres"

	"github.com/stretchr/testify/require"
)

// go test -v --run TestCreateDatabase
func TestCreateDatabase(t *testing.T) {
	if os.Getenv("TRADEHELPER_TEST_POSTGRES_DSN") == "" {
		t.Skip("TRADEHELPER_TEST_POSTGRES_DSN not set")
	}
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: os.Getenv("PGPASSWORD"),
		DBName:   "tradehelper_test",
		SSLMode:  "disable",
	}

	require.NoError(t, postgres.CreateDatabase(cfg, "dev"))
	// second call finds the database
	require.NoError(t, postgres.CreateDatabase(cfg, "dev"))
}
