package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/model"
	"github.com/sterlingtax/cryptotax-backend/internal/repository"
)

// TransactionBuilder provides a fluent interface for creating test
// transaction records.
//
// Example usage:
//
//	// Simple creation with defaults (a BTC buy trade)
//	tx := testutil.NewTransaction().Build(t, db)
//
//	// Customized record
//	tx := testutil.NewTransaction().
//	    WithType(model.TypeGiftSent).
//	    WithSell("ETH", "2", "200").
//	    WithTimestamp(testutil.Day(2024, 5, 1)).
//	    Build(t, db)
type TransactionBuilder struct {
	ID        string
	Sequence  int64
	Timestamp time.Time
	Type      model.TransactionType
	Buy       *model.RawLeg
	Sell      *model.RawLeg
	Fee       *model.Fee
	Wallet    string
	Source    string
	Note      string
}

// NewTransaction creates a TransactionBuilder with sensible defaults: a
// trade buying 1 BTC for 100 GBP.
func NewTransaction() *TransactionBuilder {
	return &TransactionBuilder{
		ID:        MakeID(),
		Sequence:  0,
		Timestamp: Day(2024, 1, 15),
		Type:      model.TypeTrade,
		Buy:       Leg("BTC", "1", "100"),
		Sell:      Leg("GBP", "100", "100"),
		Wallet:    "Test Wallet",
		Source:    "records",
	}
}

// WithID sets a custom ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.ID = id
	return b
}

// WithSequence sets the import sequence number.
func (b *TransactionBuilder) WithSequence(seq int64) *TransactionBuilder {
	b.Sequence = seq
	return b
}

// WithTimestamp sets the transaction timestamp.
func (b *TransactionBuilder) WithTimestamp(ts time.Time) *TransactionBuilder {
	b.Timestamp = ts
	return b
}

// WithType sets the transaction type.
func (b *TransactionBuilder) WithType(typ model.TransactionType) *TransactionBuilder {
	b.Type = typ
	return b
}

// WithBuy sets the acquisition leg. value may be empty for "unvalued".
func (b *TransactionBuilder) WithBuy(asset, quantity, value string) *TransactionBuilder {
	b.Buy = Leg(asset, quantity, value)
	return b
}

// WithSell sets the disposal leg. value may be empty for "unvalued".
func (b *TransactionBuilder) WithSell(asset, quantity, value string) *TransactionBuilder {
	b.Sell = Leg(asset, quantity, value)
	return b
}

// WithNoBuy clears the acquisition leg.
func (b *TransactionBuilder) WithNoBuy() *TransactionBuilder {
	b.Buy = nil
	return b
}

// WithNoSell clears the disposal leg.
func (b *TransactionBuilder) WithNoSell() *TransactionBuilder {
	b.Sell = nil
	return b
}

// WithFee sets the fee. value may be empty for "unvalued".
func (b *TransactionBuilder) WithFee(asset, quantity, value string) *TransactionBuilder {
	fee := &model.Fee{Asset: asset, Quantity: MustDecimal(quantity)}
	if value != "" {
		v := MustDecimal(value)
		fee.ValueGBP = &v
	}
	b.Fee = fee
	return b
}

// WithWallet sets the wallet name.
func (b *TransactionBuilder) WithWallet(wallet string) *TransactionBuilder {
	b.Wallet = wallet
	return b
}

// WithSource sets the import source.
func (b *TransactionBuilder) WithSource(source string) *TransactionBuilder {
	b.Source = source
	return b
}

// WithNote sets the note.
func (b *TransactionBuilder) WithNote(note string) *TransactionBuilder {
	b.Note = note
	return b
}

// Transaction returns the built record without storing it.
func (b *TransactionBuilder) Transaction() model.Transaction {
	return model.Transaction{
		ID:        b.ID,
		Sequence:  b.Sequence,
		Timestamp: b.Timestamp,
		Type:      b.Type,
		Buy:       b.Buy,
		Sell:      b.Sell,
		Fee:       b.Fee,
		Wallet:    b.Wallet,
		Source:    b.Source,
		Note:      b.Note,
	}
}

// Build stores the record in the database and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	tx := b.Transaction()
	repo := repository.NewTransactionRepository(db)
	if err := repo.InsertBatch([]model.Transaction{tx}); err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}
	return tx
}

// Convenience functions

// CreateTrade stores a trade buying quantity of asset against a GBP sell leg
// of the given value.
//
// Example usage:
//
//	tx := testutil.CreateTrade(t, db, "BTC", "2", "200", testutil.Day(2024, 3, 1))
func CreateTrade(t *testing.T, db *sql.DB, asset, quantity, valueGBP string, ts time.Time) model.Transaction {
	t.Helper()
	return NewTransaction().
		WithTimestamp(ts).
		WithBuy(asset, quantity, valueGBP).
		WithSell("GBP", valueGBP, valueGBP).
		Build(t, db)
}

// CreateDisposal stores a trade selling quantity of asset for a GBP buy leg
// of the given value.
func CreateDisposal(t *testing.T, db *sql.DB, asset, quantity, valueGBP string, ts time.Time) model.Transaction {
	t.Helper()
	return NewTransaction().
		WithTimestamp(ts).
		WithBuy("GBP", valueGBP, valueGBP).
		WithSell(asset, quantity, valueGBP).
		Build(t, db)
}

// SavePrice caches a historic GBP price for an asset and date.
func SavePrice(t *testing.T, db *sql.DB, asset string, date time.Time, priceGBP string) {
	t.Helper()
	repo := repository.NewPriceRepository(db)
	if err := repo.Save(asset, date, MustDecimal(priceGBP)); err != nil {
		t.Fatalf("Failed to save test price: %v", err)
	}
}

// Leg builds a transaction leg from string quantities. value may be empty
// for "unvalued".
func Leg(asset, quantity, value string) *model.RawLeg {
	leg := &model.RawLeg{Asset: asset, Quantity: MustDecimal(quantity)}
	if value != "" {
		v := MustDecimal(value)
		leg.ValueGBP = &v
	}
	return leg
}

// MustDecimal parses s as a decimal, panicking on malformed test data.
func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Day returns midnight UTC on the given calendar date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
