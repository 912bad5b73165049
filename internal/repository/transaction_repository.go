package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// TransactionRepository provides data access methods for the tx_record table.
// Records are the raw imported transactions the tax engine runs over.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetAll retrieves every stored transaction ordered by timestamp then import
// sequence - the deterministic total order the engine's matching depends on.
func (r *TransactionRepository) GetAll() ([]model.Transaction, error) {
	query := `
		SELECT id, seq, timestamp, type,
		       buy_asset, buy_quantity, buy_value,
		       sell_asset, sell_quantity, sell_value,
		       fee_asset, fee_quantity, fee_value,
		       wallet, source, note, created_at
		FROM tx_record
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tx_record table: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tx_record table: %w", err)
	}

	return transactions, nil
}

// NextSequence returns the import sequence number for the next stored record.
func (r *TransactionRepository) NextSequence() (int64, error) {
	var max sql.NullInt64
	if err := r.db.QueryRow(`SELECT MAX(seq) FROM tx_record`).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to query max sequence: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64 + 1, nil
}

// InsertBatch stores a batch of transactions inside one database transaction
// so a failed import never leaves a partial batch behind.
func (r *TransactionRepository) InsertBatch(transactions []model.Transaction) error {
	dbTx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := dbTx.Prepare(`
		INSERT INTO tx_record (
			id, seq, timestamp, type,
			buy_asset, buy_quantity, buy_value,
			sell_asset, sell_quantity, sell_value,
			fee_asset, fee_quantity, fee_value,
			wallet, source, note
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range transactions {
		tx := &transactions[i]

		buyAsset, buyQty, buyVal := legColumns(tx.Buy)
		sellAsset, sellQty, sellVal := legColumns(tx.Sell)

		var feeAsset, feeQty, feeVal sql.NullString
		if tx.Fee != nil {
			feeAsset = sql.NullString{String: tx.Fee.Asset, Valid: true}
			feeQty = sql.NullString{String: tx.Fee.Quantity.String(), Valid: true}
			if tx.Fee.ValueGBP != nil {
				feeVal = sql.NullString{String: tx.Fee.ValueGBP.String(), Valid: true}
			}
		}

		_, err := stmt.Exec(
			tx.ID,
			tx.Sequence,
			tx.Timestamp.UTC().Format(time.RFC3339),
			string(tx.Type),
			buyAsset, buyQty, buyVal,
			sellAsset, sellQty, sellVal,
			feeAsset, feeQty, feeVal,
			tx.Wallet,
			tx.Source,
			tx.Note,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", tx.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import batch: %w", err)
	}
	return nil
}

// Assets returns the distinct cryptoassets appearing in any stored leg or
// fee, sorted. Fiat currencies are settlement legs, not holdings, and are
// excluded.
func (r *TransactionRepository) Assets() ([]string, error) {
	query := `
		SELECT DISTINCT asset FROM (
			SELECT buy_asset AS asset FROM tx_record WHERE buy_asset IS NOT NULL
			UNION
			SELECT sell_asset FROM tx_record WHERE sell_asset IS NOT NULL
			UNION
			SELECT fee_asset FROM tx_record WHERE fee_asset IS NOT NULL
		)
		WHERE asset NOT IN ('GBP', 'EUR', 'USD')
		ORDER BY asset ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tx_record assets: %w", err)
	}
	defer rows.Close()

	var assets []string
	for rows.Next() {
		var asset string
		if err := rows.Scan(&asset); err != nil {
			return nil, fmt.Errorf("failed to scan tx_record asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tx_record assets: %w", err)
	}

	return assets, nil
}

// DeleteAll clears the stored transaction set.
func (r *TransactionRepository) DeleteAll() error {
	if _, err := r.db.Exec(`DELETE FROM tx_record`); err != nil {
		return fmt.Errorf("failed to delete tx_record rows: %w", err)
	}
	return nil
}

// Count returns the number of stored transactions.
func (r *TransactionRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM tx_record`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tx_record rows: %w", err)
	}
	return count, nil
}

func legColumns(leg *model.RawLeg) (asset, qty, value sql.NullString) {
	if leg == nil {
		return
	}
	asset = sql.NullString{String: leg.Asset, Valid: true}
	qty = sql.NullString{String: leg.Quantity.String(), Valid: true}
	if leg.ValueGBP != nil {
		value = sql.NullString{String: leg.ValueGBP.String(), Valid: true}
	}
	return
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var (
		tx                          model.Transaction
		timestampStr, createdAtStr  string
		typeStr                     string
		buyAsset, buyQty, buyVal    sql.NullString
		sellAsset, sellQty, sellVal sql.NullString
		feeAsset, feeQty, feeVal    sql.NullString
	)

	err := rows.Scan(
		&tx.ID,
		&tx.Sequence,
		&timestampStr,
		&typeStr,
		&buyAsset, &buyQty, &buyVal,
		&sellAsset, &sellQty, &sellVal,
		&feeAsset, &feeQty, &feeVal,
		&tx.Wallet,
		&tx.Source,
		&tx.Note,
		&createdAtStr,
	)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to scan tx_record table results: %w", err)
	}

	tx.Type = model.TransactionType(typeStr)

	tx.Timestamp, err = ParseTime(timestampStr)
	if err != nil || tx.Timestamp.IsZero() {
		return model.Transaction{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	tx.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		tx.CreatedAt = time.Time{}
	}

	tx.Buy, err = scanLeg(buyAsset, buyQty, buyVal)
	if err != nil {
		return model.Transaction{}, err
	}
	tx.Sell, err = scanLeg(sellAsset, sellQty, sellVal)
	if err != nil {
		return model.Transaction{}, err
	}

	if feeAsset.Valid {
		qty, err := ParseDecimal(feeQty.String)
		if err != nil {
			return model.Transaction{}, err
		}
		fee := &model.Fee{Asset: feeAsset.String, Quantity: qty}
		if feeVal.Valid {
			v, err := ParseDecimal(feeVal.String)
			if err != nil {
				return model.Transaction{}, err
			}
			fee.ValueGBP = &v
		}
		tx.Fee = fee
	}

	return tx, nil
}

func scanLeg(asset, qty, value sql.NullString) (*model.RawLeg, error) {
	if !asset.Valid {
		return nil, nil
	}
	q, err := ParseDecimal(qty.String)
	if err != nil {
		return nil, err
	}
	leg := &model.RawLeg{Asset: asset.String, Quantity: q}
	if value.Valid {
		var v decimal.Decimal
		v, err = ParseDecimal(value.String)
		if err != nil {
			return nil, err
		}
		leg.ValueGBP = &v
	}
	return leg, nil
}
