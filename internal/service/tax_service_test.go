package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/tax"
	"github.com/sterlingtax/cryptotax-backend/internal/testutil"
)

func TestReportOverStoredTransactions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTaxService(t, db, nil)

	testutil.CreateTrade(t, db, "BTC", "10", "100", testutil.Day(2023, 5, 1))
	testutil.CreateDisposal(t, db, "BTC", "4", "80", testutil.Day(2023, 8, 1))

	result, err := svc.Report(context.Background(), tax.DefaultOptions(), false)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	if len(result.Disposals) != 1 {
		t.Fatalf("Expected 1 disposal match, got %d", len(result.Disposals))
	}
	match := result.Disposals[0]
	if match.Rule != tax.RuleSection104 {
		t.Errorf("Expected SECTION_104 match, got %s", match.Rule)
	}
	// 4 of 10 units at 100 total cost = 40 cost against 80 proceeds.
	if !match.Gain.Equal(testutil.MustDecimal("40")) {
		t.Errorf("Expected gain 40, got %s", match.Gain)
	}

	holding := result.Holdings["BTC"]
	if holding == nil || !holding.Quantity.Equal(testutil.MustDecimal("6")) {
		t.Errorf("Expected 6 BTC remaining, got %+v", holding)
	}
	if !result.Audit.Passed {
		t.Errorf("Expected audit to pass, got %+v", result.Audit)
	}
}

func TestReportValuesHoldings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTaxService(t, db, map[string]string{"BTC": "25000"})

	testutil.CreateTrade(t, db, "BTC", "2", "100", testutil.Day(2023, 5, 1))

	result, err := svc.Report(context.Background(), tax.DefaultOptions(), true)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	holding := result.Holdings["BTC"]
	if holding.ValueGBP == nil || !holding.ValueGBP.Equal(testutil.MustDecimal("50000")) {
		t.Errorf("Expected holdings valued at 50000, got %+v", holding.ValueGBP)
	}

	// Summary mode skips valuation.
	summary, err := svc.Report(context.Background(), tax.DefaultOptions(), false)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if summary.Holdings["BTC"].ValueGBP != nil {
		t.Error("Expected unvalued holdings without valueHoldings")
	}
}

func TestYearReport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTaxService(t, db, nil)

	// Acquisition in 2022-23, disposal in 2023-24.
	testutil.CreateTrade(t, db, "BTC", "10", "100", testutil.Day(2023, 3, 1))
	testutil.CreateDisposal(t, db, "BTC", "4", "80", testutil.Day(2023, 8, 1))

	summary, err := svc.YearReport(context.Background(), 2024, tax.DefaultOptions())
	if err != nil {
		t.Fatalf("YearReport failed: %v", err)
	}
	if summary.Year != 2024 || len(summary.Disposals) != 1 {
		t.Errorf("Expected 1 disposal in 2024, got %+v", summary)
	}
	if !summary.NetGain.Equal(testutil.MustDecimal("40")) {
		t.Errorf("Expected net gain 40, got %s", summary.NetGain)
	}
}

func TestYearReportEmptyYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTaxService(t, db, nil)

	testutil.CreateTrade(t, db, "BTC", "10", "100", testutil.Day(2023, 5, 1))

	summary, err := svc.YearReport(context.Background(), 2022, tax.DefaultOptions())
	if err != nil {
		t.Fatalf("YearReport failed: %v", err)
	}
	if len(summary.Disposals) != 0 || !summary.Supported {
		t.Errorf("Expected empty supported summary, got %+v", summary)
	}
	if !summary.AnnualExemption.Equal(testutil.MustDecimal("12300")) {
		t.Errorf("Expected 2021-22 exemption 12300, got %s", summary.AnnualExemption)
	}
	if summary.Income == nil {
		t.Error("Expected an initialized income map so empty years serialize like active ones")
	}
}

func TestYearReportRejectsUnsupportedYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTaxService(t, db, nil)

	_, err := svc.YearReport(context.Background(), 2008, tax.DefaultOptions())
	if !errors.Is(err, apperrors.ErrInvalidTaxYear) {
		t.Errorf("Expected ErrInvalidTaxYear, got %v", err)
	}
}

func TestReportFailsWithoutPrice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTaxService(t, db, nil)

	// A crypto-to-crypto trade with no valuations forces a price lookup.
	testutil.NewTransaction().
		WithTimestamp(testutil.Day(2023, 5, 1)).
		WithBuy("ETH", "10", "").
		WithSell("BTC", "1", "").
		Build(t, db)

	_, err := svc.Report(context.Background(), tax.DefaultOptions(), false)
	if !errors.Is(err, apperrors.ErrFailedToCalculate) {
		t.Errorf("Expected ErrFailedToCalculate, got %v", err)
	}
}

func TestAudit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTaxService(t, db, nil)

	testutil.CreateTrade(t, db, "BTC", "2", "200", testutil.Day(2023, 5, 1))

	audit, err := svc.Audit(context.Background(), tax.DefaultOptions())
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if !audit.Passed || len(audit.Mismatches) != 0 {
		t.Errorf("Expected clean audit, got %+v", audit)
	}
	if !audit.Balances["BTC"].Equal(testutil.MustDecimal("2")) {
		t.Errorf("Expected audit balance 2 BTC, got %s", audit.Balances["BTC"])
	}
}
