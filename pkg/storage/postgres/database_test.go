package postgres_test

import (
	"testing"

	"resxwatch/pkg/storage/postgres"
)

// go test -v --run TestCreateDatabase
func TestCreateDatabase(t *testing.T) {
	cfg := testConfig(t, "test_resxwatch_db")

	if err := postgres.CreateDatabase(cfg); err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	// second call finds it and does nothing
	if err := postgres.CreateDatabase(cfg); err != nil {
		t.Fatalf("create should be idempotent: %v", err)
	}
}
