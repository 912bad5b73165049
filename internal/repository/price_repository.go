package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
)

// PriceRepository caches historic GBP prices per asset and calendar date so
// repeated runs never refetch the same valuation.
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Get returns the cached GBP price of one unit of asset on the given date.
// Returns apperrors.ErrPriceNotAvailable when the date has never been cached.
func (r *PriceRepository) Get(asset string, date time.Time) (decimal.Decimal, error) {
	var priceStr string
	err := r.db.QueryRow(
		`SELECT price_gbp FROM asset_price WHERE asset = ? AND date = ?`,
		asset, date.UTC().Format("2006-01-02"),
	).Scan(&priceStr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Decimal{}, fmt.Errorf("%w: %s on %s", apperrors.ErrPriceNotAvailable, asset, date.Format("2006-01-02"))
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to query asset_price table: %w", err)
	}
	return ParseDecimal(priceStr)
}

// Save stores a price point, replacing any previous value for the same asset
// and date.
func (r *PriceRepository) Save(asset string, date time.Time, price decimal.Decimal) error {
	_, err := r.db.Exec(`
		INSERT INTO asset_price (id, asset, date, price_gbp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (asset, date) DO UPDATE SET price_gbp = excluded.price_gbp
	`, uuid.New().String(), asset, date.UTC().Format("2006-01-02"), price.String())
	if err != nil {
		return fmt.Errorf("failed to save asset price: %w", err)
	}
	return nil
}

// Assets lists every asset with at least one cached price.
func (r *PriceRepository) Assets() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT asset FROM asset_price ORDER BY asset`)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset_price table: %w", err)
	}
	defer rows.Close()

	var assets []string
	for rows.Next() {
		var asset string
		if err := rows.Scan(&asset); err != nil {
			return nil, fmt.Errorf("failed to scan asset_price table results: %w", err)
		}
		assets = append(assets, asset)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset_price table: %w", err)
	}
	return assets, nil
}

// LatestDate returns the most recent cached date for an asset, or the zero
// time when nothing is cached.
func (r *PriceRepository) LatestDate(asset string) (time.Time, error) {
	var dateStr sql.NullString
	err := r.db.QueryRow(`SELECT MAX(date) FROM asset_price WHERE asset = ?`, asset).Scan(&dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest price date: %w", err)
	}
	if !dateStr.Valid {
		return time.Time{}, nil
	}
	return ParseTime(dateStr.String)
}
