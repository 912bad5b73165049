package repository_test

import (
	"testing"
	"time"

	"github.com/sterlingtax/cryptotax-backend/internal/model"
	"github.com/sterlingtax/cryptotax-backend/internal/repository"
	"github.com/sterlingtax/cryptotax-backend/internal/testutil"
)

func TestInsertBatchAndGetAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)

	value := testutil.MustDecimal("123.456789012345678901")
	txs := []model.Transaction{
		{
			ID:        testutil.MakeID(),
			Sequence:  0,
			Timestamp: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
			Type:      model.TypeTrade,
			Buy:       &model.RawLeg{Asset: "BTC", Quantity: testutil.MustDecimal("0.12345678"), ValueGBP: &value},
			Sell:      &model.RawLeg{Asset: "GBP", Quantity: value, ValueGBP: &value},
			Fee:       &model.Fee{Asset: "BTC", Quantity: testutil.MustDecimal("0.0001")},
			Wallet:    "Exchange",
			Source:    "records",
			Note:      "first buy",
		},
		{
			ID:        testutil.MakeID(),
			Sequence:  1,
			Timestamp: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
			Type:      model.TypeMining,
			Buy:       &model.RawLeg{Asset: "BTC", Quantity: testutil.MustDecimal("0.5")},
			Wallet:    "Rig",
			Source:    "records",
		},
	}

	if err := repo.InsertBatch(txs); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	stored, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(stored))
	}

	got := stored[0]
	if got.ID != txs[0].ID || got.Type != model.TypeTrade {
		t.Errorf("Unexpected first transaction: %+v", got)
	}
	if !got.Timestamp.Equal(txs[0].Timestamp) {
		t.Errorf("Expected timestamp %s, got %s", txs[0].Timestamp, got.Timestamp)
	}
	// Decimals round-trip exactly through TEXT storage.
	if !got.Buy.Quantity.Equal(testutil.MustDecimal("0.12345678")) {
		t.Errorf("Buy quantity did not round-trip: %s", got.Buy.Quantity)
	}
	if got.Buy.ValueGBP == nil || !got.Buy.ValueGBP.Equal(value) {
		t.Errorf("Buy value did not round-trip: %+v", got.Buy.ValueGBP)
	}
	if got.Fee == nil || got.Fee.ValueGBP != nil {
		t.Errorf("Unexpected fee: %+v", got.Fee)
	}
	if got.Wallet != "Exchange" || got.Note != "first buy" {
		t.Errorf("Unexpected wallet/note: %q %q", got.Wallet, got.Note)
	}

	// Single-leg records keep their absent side nil.
	if stored[1].Sell != nil || stored[1].Fee != nil {
		t.Errorf("Expected buy-only record, got %+v", stored[1])
	}
}

func TestGetAllOrdersByTimestampThenSequence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)

	when := testutil.Day(2024, 5, 1)
	txs := []model.Transaction{
		{ID: "b", Sequence: 5, Timestamp: when, Type: model.TypeMining, Buy: testutil.Leg("BTC", "1", "")},
		{ID: "a", Sequence: 2, Timestamp: when, Type: model.TypeMining, Buy: testutil.Leg("BTC", "1", "")},
		{ID: "c", Sequence: 0, Timestamp: when.AddDate(0, 0, -1), Type: model.TypeMining, Buy: testutil.Leg("BTC", "1", "")},
	}
	if err := repo.InsertBatch(txs); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	stored, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	gotOrder := []string{stored[0].ID, stored[1].ID, stored[2].ID}
	wantOrder := []string{"c", "a", "b"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("Expected order %v, got %v", wantOrder, gotOrder)
		}
	}
}

func TestNextSequence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)

	seq, err := repo.NextSequence()
	if err != nil {
		t.Fatalf("NextSequence failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("Expected initial sequence 0, got %d", seq)
	}

	testutil.NewTransaction().WithSequence(7).Build(t, db)

	seq, err = repo.NextSequence()
	if err != nil {
		t.Fatalf("NextSequence failed: %v", err)
	}
	if seq != 8 {
		t.Errorf("Expected next sequence 8, got %d", seq)
	}
}

func TestAssets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)

	testutil.CreateTrade(t, db, "ETH", "2", "200", testutil.Day(2024, 5, 2))
	testutil.CreateTrade(t, db, "BTC", "1", "100", testutil.Day(2024, 5, 1))
	// Fee-only appearance still counts; the GBP settlement legs never do.
	testutil.NewTransaction().
		WithTimestamp(testutil.Day(2024, 5, 3)).
		WithFee("DOGE", "10", "").
		Build(t, db)

	assets, err := repo.Assets()
	if err != nil {
		t.Fatalf("Assets failed: %v", err)
	}
	want := []string{"BTC", "DOGE", "ETH"}
	if len(assets) != len(want) {
		t.Fatalf("Expected assets %v, got %v", want, assets)
	}
	for i := range want {
		if assets[i] != want[i] {
			t.Errorf("Expected assets %v, got %v", want, assets)
			break
		}
	}
}

func TestDeleteAllAndCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)

	testutil.CreateTrade(t, db, "BTC", "1", "100", testutil.Day(2024, 5, 1))
	testutil.CreateTrade(t, db, "ETH", "2", "200", testutil.Day(2024, 5, 2))

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 rows, got %d", count)
	}

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	count, _ = repo.Count()
	if count != 0 {
		t.Errorf("Expected empty table, got %d rows", count)
	}
}
