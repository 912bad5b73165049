package testutil

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/sterlingtax/cryptotax-backend/internal/repository"
	"github.com/sterlingtax/cryptotax-backend/internal/service"
)

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	// The schema version check needs the migration dialect configured; the
	// test schema itself is created directly, not via migrations.
	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatalf("Failed to set migration dialect: %v", err)
	}

	return service.NewSystemService(db)
}

func NewTestImportService(t *testing.T, db *sql.DB) *service.ImportService {
	t.Helper()

	transactionRepo := repository.NewTransactionRepository(db)

	return service.NewImportService(transactionRepo)
}

// NewTestTaxService creates a TaxService backed by a stub price source.
// Tests that exercise valuation paths list the prices they need; everything
// else can pass nil for an empty stub.
func NewTestTaxService(t *testing.T, db *sql.DB, prices map[string]string) *service.TaxService {
	t.Helper()

	transactionRepo := repository.NewTransactionRepository(db)

	return service.NewTaxService(transactionRepo, NewStubPriceSource(prices))
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}
