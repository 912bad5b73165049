package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the production migrations.
func createTestSchema(db *sql.DB) error {
	schema := `
		-- Transaction record table
		CREATE TABLE tx_record (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			seq INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			type VARCHAR(20) NOT NULL,
			buy_asset VARCHAR(20),
			buy_quantity TEXT,
			buy_value TEXT,
			sell_asset VARCHAR(20),
			sell_quantity TEXT,
			sell_value TEXT,
			fee_asset VARCHAR(20),
			fee_quantity TEXT,
			fee_value TEXT,
			wallet VARCHAR(100) NOT NULL DEFAULT '',
			source VARCHAR(50) NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX idx_tx_record_timestamp ON tx_record (timestamp, seq);

		-- Cached historic price table
		CREATE TABLE asset_price (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			asset VARCHAR(20) NOT NULL,
			date DATE NOT NULL,
			price_gbp TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_asset_price UNIQUE (asset, date)
		);
	`

	_, err := db.Exec(schema)
	return err
}
