package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"resxwatch/config"
	"resxwatch/pkg/storage/postgres"
)

// testConfig points at a local database. Set RESXWATCH_TEST_POSTGRES=1 to
// run the tests that need one.
func testConfig(t *testing.T, dbName string) config.PostgresConfig {
	t.Helper()
	if os.Getenv("RESXWATCH_TEST_POSTGRES") == "" {
		t.Skip("RESXWATCH_TEST_POSTGRES not set")
	}
	return config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "yourpw",
		DBName:   dbName,
		SSLMode:  "disable",
		TimeZone: "UTC",

		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1 * time.Hour,
	}
}

// go test -v --run ^TestPostgresInvalidDSN$
func TestPostgresInvalidDSN(t *testing.T) {
	invalidDSN := "host=invalid port=5432 user=fail password=fail dbname=fail sslmode=disable connect_timeout=2"

	_, err := postgres.NewClient(invalidDSN)
	if err == nil {
		t.Fatal("expected error for invalid DSN, got nil")
	}
}

// go test -v --run ^TestPostgresClientWithConfig$
func TestPostgresClientWithConfig(t *testing.T) {
	cfg := testConfig(t, "resxwatch")

	client, err := postgres.InitializeAndMigrate(cfg, "dev", true)
	if err != nil {
		t.Fatalf("failed to create Postgres client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if !client.IsHealthy(ctx) {
		t.Fatal("expected healthy DB connection")
	}
}
