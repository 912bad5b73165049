package price_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/price"
	"github.com/sterlingtax/cryptotax-backend/internal/repository"
	"github.com/sterlingtax/cryptotax-backend/internal/testutil"
)

func newTestService(t *testing.T, stub *testutil.PriceAPIStub) (*price.Service, *repository.PriceRepository, *sql.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	repo := repository.NewPriceRepository(db)
	held := repository.NewTransactionRepository(db)
	client := price.NewClientWithBaseURL(stub.URL())
	return price.NewService(repo, held, client), repo, db
}

func TestHistoricValueGBPUsesCache(t *testing.T) {
	stub := testutil.NewPriceAPIStub(t)
	svc, repo, _ := newTestService(t, stub)

	date := testutil.Day(2024, 5, 1)
	if err := repo.Save("BTC", date, testutil.MustDecimal("25000")); err != nil {
		t.Fatalf("Failed to seed price cache: %v", err)
	}

	got, err := svc.HistoricValueGBP(context.Background(), "BTC", date.Add(14*time.Hour))
	if err != nil {
		t.Fatalf("HistoricValueGBP failed: %v", err)
	}
	if !got.Equal(testutil.MustDecimal("25000")) {
		t.Errorf("Expected cached price 25000, got %s", got)
	}
	if stub.Requests != 0 {
		t.Errorf("Expected no API calls on cache hit, got %d", stub.Requests)
	}
}

func TestHistoricValueGBPFetchesAndCaches(t *testing.T) {
	stub := testutil.NewPriceAPIStub(t)
	svc, repo, _ := newTestService(t, stub)

	date := testutil.Day(2024, 5, 1)
	stub.AddCandle("ETH", date, "1500")

	got, err := svc.HistoricValueGBP(context.Background(), "ETH", date)
	if err != nil {
		t.Fatalf("HistoricValueGBP failed: %v", err)
	}
	if !got.Equal(testutil.MustDecimal("1500")) {
		t.Errorf("Expected fetched price 1500, got %s", got)
	}
	if stub.Requests != 1 {
		t.Errorf("Expected 1 API call, got %d", stub.Requests)
	}

	// Second lookup must come from the cache.
	if _, err := svc.HistoricValueGBP(context.Background(), "ETH", date); err != nil {
		t.Fatalf("Second lookup failed: %v", err)
	}
	if stub.Requests != 1 {
		t.Errorf("Expected second lookup to hit cache, got %d API calls", stub.Requests)
	}

	cached, err := repo.Get("ETH", date)
	if err != nil {
		t.Fatalf("Expected fetched price to be cached: %v", err)
	}
	if !cached.Equal(testutil.MustDecimal("1500")) {
		t.Errorf("Expected cached price 1500, got %s", cached)
	}
}

func TestHistoricValueGBPMissingPrice(t *testing.T) {
	stub := testutil.NewPriceAPIStub(t)
	svc, _, _ := newTestService(t, stub)

	// The stub knows no candles for this asset.
	_, err := svc.HistoricValueGBP(context.Background(), "UNKNOWN", testutil.Day(2024, 5, 1))
	if !errors.Is(err, apperrors.ErrPriceNotAvailable) {
		t.Errorf("Expected ErrPriceNotAvailable, got %v", err)
	}
}

func TestHistoricValueGBPAPIError(t *testing.T) {
	stub := testutil.NewPriceAPIStub(t)
	stub.Fail = true
	svc, _, _ := newTestService(t, stub)

	_, err := svc.HistoricValueGBP(context.Background(), "BTC", testutil.Day(2024, 5, 1))
	if !errors.Is(err, apperrors.ErrPriceNotAvailable) {
		t.Errorf("Expected ErrPriceNotAvailable on API error, got %v", err)
	}
}

func TestBackfillStoresRange(t *testing.T) {
	stub := testutil.NewPriceAPIStub(t)
	svc, repo, _ := newTestService(t, stub)

	from := testutil.Day(2024, 5, 1)
	to := testutil.Day(2024, 5, 3)
	stub.AddCandle("BTC", from, "25000")
	stub.AddCandle("BTC", testutil.Day(2024, 5, 2), "25100")
	stub.AddCandle("BTC", to, "25200")
	stub.AddCandle("ETH", testutil.Day(2024, 5, 2), "1500")
	// Candle outside the requested range is ignored.
	stub.AddCandle("BTC", testutil.Day(2024, 4, 30), "24000")

	if err := svc.Backfill(context.Background(), []string{"BTC", "ETH"}, from, to); err != nil {
		t.Fatalf("Backfill failed: %v", err)
	}

	for _, tc := range []struct {
		asset string
		date  time.Time
		want  string
	}{
		{"BTC", from, "25000"},
		{"BTC", testutil.Day(2024, 5, 2), "25100"},
		{"BTC", to, "25200"},
		{"ETH", testutil.Day(2024, 5, 2), "1500"},
	} {
		got, err := repo.Get(tc.asset, tc.date)
		if err != nil {
			t.Fatalf("Expected %s price for %s cached: %v", tc.asset, tc.date.Format("2006-01-02"), err)
		}
		if !got.Equal(testutil.MustDecimal(tc.want)) {
			t.Errorf("Expected %s on %s = %s, got %s", tc.asset, tc.date.Format("2006-01-02"), tc.want, got)
		}
	}

	if _, err := repo.Get("BTC", testutil.Day(2024, 4, 30)); !errors.Is(err, apperrors.ErrPriceNotAvailable) {
		t.Errorf("Expected out-of-range candle to be skipped, got %v", err)
	}
}

func TestRefreshLatestCoversHeldAssets(t *testing.T) {
	stub := testutil.NewPriceAPIStub(t)
	svc, repo, db := newTestService(t, stub)

	// BTC is held but was never priced; ETH only exists in the cache.
	testutil.CreateTrade(t, db, "BTC", "2", "50000", testutil.Day(2024, 5, 1))
	if err := repo.Save("ETH", testutil.Day(2024, 5, 1), testutil.MustDecimal("1400")); err != nil {
		t.Fatalf("Failed to seed price cache: %v", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	stub.AddCandle("BTC", today, "26000")
	stub.AddCandle("ETH", today, "1500")

	svc.RefreshLatest(context.Background())

	got, err := repo.Get("BTC", today)
	if err != nil {
		t.Fatalf("Expected a refreshed price for the held asset: %v", err)
	}
	if !got.Equal(testutil.MustDecimal("26000")) {
		t.Errorf("Expected BTC refreshed to 26000, got %s", got)
	}

	eth, err := repo.Get("ETH", today)
	if err != nil {
		t.Fatalf("Expected the cached asset refreshed too: %v", err)
	}
	if !eth.Equal(testutil.MustDecimal("1500")) {
		t.Errorf("Expected ETH refreshed to 1500, got %s", eth)
	}
}

func TestPriceOnDateMatching(t *testing.T) {
	stub := testutil.NewPriceAPIStub(t)
	stub.AddCandle("BTC", testutil.Day(2024, 5, 1), "25000")
	stub.AddCandle("BTC", testutil.Day(2024, 5, 2), "25100")

	client := price.NewClientWithBaseURL(stub.URL())
	response, err := client.QueryDailyHistory(context.Background(), "BTC", testutil.Day(2024, 5, 2), 2)
	if err != nil {
		t.Fatalf("QueryDailyHistory failed: %v", err)
	}

	got, ok := response.PriceOn(testutil.Day(2024, 5, 2).Add(9 * time.Hour))
	if !ok {
		t.Fatal("Expected a price for 2024-05-02")
	}
	if !got.Equal(testutil.MustDecimal("25100")) {
		t.Errorf("Expected 25100, got %s", got)
	}

	if _, ok := response.PriceOn(testutil.Day(2024, 5, 3)); ok {
		t.Error("Expected no price for a date outside the response")
	}
}
