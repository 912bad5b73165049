package tax

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// stubPrices resolves unit prices from a fixed asset map, failing for
// anything unknown.
type stubPrices struct {
	prices map[string]string
}

func (s stubPrices) HistoricValueGBP(_ context.Context, asset string, _ time.Time) (decimal.Decimal, error) {
	if p, ok := s.prices[asset]; ok {
		return decimal.RequireFromString(p), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrPriceNotAvailable, asset)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dptr(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func day(n int) time.Time {
	return time.Date(2023, time.June, n, 12, 0, 0, 0, time.UTC)
}

var nextSeq int64

// buyTx and sellTx build fixture transactions around one crypto leg. Types
// that carry both legs (TRADE) get a sterling counter-leg for the same
// consideration; fiat legs never become lots, so the matching numbers are
// driven entirely by the crypto side.

func buyTx(t model.TransactionType, ts time.Time, asset, qty, valueGBP string) model.Transaction {
	nextSeq++
	tx := model.Transaction{
		ID:        "tx-" + decimal.NewFromInt(nextSeq).String(),
		Sequence:  nextSeq,
		Timestamp: ts,
		Type:      t,
		Buy:       &model.RawLeg{Asset: asset, Quantity: d(qty), ValueGBP: dptr(valueGBP)},
	}
	if t.HasSell() {
		tx.Sell = &model.RawLeg{Asset: "GBP", Quantity: d(valueGBP)}
	}
	return tx
}

func sellTx(t model.TransactionType, ts time.Time, asset, qty, valueGBP string) model.Transaction {
	nextSeq++
	tx := model.Transaction{
		ID:        "tx-" + decimal.NewFromInt(nextSeq).String(),
		Sequence:  nextSeq,
		Timestamp: ts,
		Type:      t,
		Sell:      &model.RawLeg{Asset: asset, Quantity: d(qty), ValueGBP: dptr(valueGBP)},
	}
	if t.HasBuy() {
		tx.Buy = &model.RawLeg{Asset: "GBP", Quantity: d(valueGBP)}
	}
	return tx
}

func runCalc(t *testing.T, opts Options, txs []model.Transaction) *Result {
	t.Helper()
	calc, err := NewCalculator(opts, stubPrices{prices: map[string]string{"BTC": "100", "ETH": "10"}})
	if err != nil {
		t.Fatalf("NewCalculator failed: %v", err)
	}
	result, err := calc.Run(context.Background(), txs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return result
}

func wantDecimal(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s: got %s, want %s", name, got, want)
	}
}

func TestCalculatorWorkedScenario(t *testing.T) {
	// Pool seeded on day 1: buy 10 @ £8. On day 2: buy 5 @ £10 and sell 10,
	// so same-day matching absorbs 5 at cost £50 and leaves 5 unmatched.
	// On day 6 (within the window) buy 3 @ £12: B&B matches 3 of the
	// remainder at cost £36. The final 2 fall to Section 104 at the pool
	// average before day 6 (£8).
	txs := []model.Transaction{
		buyTx(model.TypeTrade, day(1), "BTC", "10", "80"),
		buyTx(model.TypeTrade, day(2), "BTC", "5", "50"),
		sellTx(model.TypeTrade, day(2), "BTC", "10", "200"),
		buyTx(model.TypeTrade, day(6), "BTC", "3", "36"),
	}

	result := runCalc(t, DefaultOptions(), txs)

	if len(result.Disposals) != 3 {
		t.Fatalf("expected 3 disposal matches, got %d: %+v", len(result.Disposals), result.Disposals)
	}

	byRule := make(map[MatchRule]DisposalMatch)
	total := decimal.Zero
	for _, m := range result.Disposals {
		byRule[m.Rule] = m
		total = total.Add(m.Quantity)
	}

	// Sum of matched quantities equals the disposed quantity.
	wantDecimal(t, "total matched quantity", total, d("10"))

	sameDay := byRule[RuleSameDay]
	wantDecimal(t, "same-day quantity", sameDay.Quantity, d("5"))
	wantDecimal(t, "same-day cost", sameDay.Cost, d("50"))
	wantDecimal(t, "same-day proceeds", sameDay.Proceeds, d("100"))

	bnb := byRule[RuleBedAndBreakfast]
	wantDecimal(t, "b&b quantity", bnb.Quantity, d("3"))
	wantDecimal(t, "b&b cost", bnb.Cost, d("36"))
	if bnb.AcquiredDate == nil || !bnb.AcquiredDate.Equal(time.Date(2023, time.June, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("b&b acquired date: got %v, want 2023-06-06", bnb.AcquiredDate)
	}

	s104 := byRule[RuleSection104]
	wantDecimal(t, "section 104 quantity", s104.Quantity, d("2"))
	wantDecimal(t, "section 104 cost", s104.Cost, d("16"))

	// Pool afterwards: 10 - 2 disposed + 0 of the day-6 buy (fully matched
	// by B&B) = 8 units at the £8 average.
	h := result.Holdings["BTC"]
	if h == nil {
		t.Fatal("expected a BTC holding")
	}
	wantDecimal(t, "pool quantity", h.Quantity, d("8"))
	wantDecimal(t, "pool cost", h.Cost, d("64"))

	if !result.Audit.Passed {
		t.Errorf("expected audit to pass, mismatches: %+v", result.Audit.Mismatches)
	}
	wantDecimal(t, "audit balance", result.Audit.Balances["BTC"], d("8"))
}

func TestSameDayTakesPriorityOverBedAndBreakfast(t *testing.T) {
	// An acquisition on the disposal day and another the day after: the
	// same-day buy must be consumed first, so no B&B match may claim
	// quantity that same-day matching could have absorbed.
	txs := []model.Transaction{
		buyTx(model.TypeTrade, day(2), "BTC", "4", "400"),
		sellTx(model.TypeTrade, day(2), "BTC", "4", "440"),
		buyTx(model.TypeTrade, day(3), "BTC", "4", "480"),
	}

	result := runCalc(t, DefaultOptions(), txs)

	if len(result.Disposals) != 1 {
		t.Fatalf("expected 1 match, got %d", len(result.Disposals))
	}
	m := result.Disposals[0]
	if m.Rule != RuleSameDay {
		t.Errorf("expected SAME_DAY, got %s", m.Rule)
	}
	wantDecimal(t, "cost", m.Cost, d("400"))

	// The day-3 buy goes untouched into the pool.
	wantDecimal(t, "pool quantity", result.Holdings["BTC"].Quantity, d("4"))
	wantDecimal(t, "pool cost", result.Holdings["BTC"].Cost, d("480"))
}

func TestBedAndBreakfastWindow(t *testing.T) {
	t.Run("acquisition on the last window day qualifies", func(t *testing.T) {
		txs := []model.Transaction{
			buyTx(model.TypeTrade, day(1), "BTC", "2", "100"),
			sellTx(model.TypeTrade, day(1).AddDate(0, 0, 1), "BTC", "2", "300"),
			buyTx(model.TypeTrade, day(2).AddDate(0, 0, 30), "BTC", "2", "250"),
		}
		result := runCalc(t, DefaultOptions(), txs)

		var bnb *DisposalMatch
		for i := range result.Disposals {
			if result.Disposals[i].Rule == RuleBedAndBreakfast {
				bnb = &result.Disposals[i]
			}
		}
		if bnb == nil {
			t.Fatal("expected a bed-and-breakfast match")
		}
		wantDecimal(t, "b&b cost", bnb.Cost, d("250"))
	})

	t.Run("acquisition one day past the window falls to section 104", func(t *testing.T) {
		txs := []model.Transaction{
			buyTx(model.TypeTrade, day(1), "BTC", "2", "100"),
			sellTx(model.TypeTrade, day(1).AddDate(0, 0, 1), "BTC", "2", "300"),
			buyTx(model.TypeTrade, day(2).AddDate(0, 0, 31), "BTC", "2", "250"),
		}
		result := runCalc(t, DefaultOptions(), txs)

		for _, m := range result.Disposals {
			if m.Rule == RuleBedAndBreakfast {
				t.Fatalf("acquisition outside the window must never be selected: %+v", m)
			}
		}
		// The disposal matches the day-1 pool at its average cost instead.
		var s104 *DisposalMatch
		for i := range result.Disposals {
			if result.Disposals[i].Rule == RuleSection104 {
				s104 = &result.Disposals[i]
			}
		}
		if s104 == nil {
			t.Fatal("expected a section 104 match")
		}
		wantDecimal(t, "section 104 cost", s104.Cost, d("100"))
	})

	t.Run("scan is forward only", func(t *testing.T) {
		// A buy before the disposal day is pool material, never B&B.
		txs := []model.Transaction{
			buyTx(model.TypeTrade, day(1), "BTC", "2", "100"),
			sellTx(model.TypeTrade, day(10), "BTC", "2", "300"),
		}
		result := runCalc(t, DefaultOptions(), txs)
		if len(result.Disposals) != 1 || result.Disposals[0].Rule != RuleSection104 {
			t.Fatalf("expected a single SECTION_104 match, got %+v", result.Disposals)
		}
	})
}

func TestRunIsIdempotent(t *testing.T) {
	txs := []model.Transaction{
		buyTx(model.TypeTrade, day(1), "BTC", "10", "80"),
		sellTx(model.TypeTrade, day(2), "BTC", "4", "100"),
		buyTx(model.TypeTrade, day(5), "BTC", "2", "30"),
		sellTx(model.TypeSpend, day(20), "BTC", "1", "40"),
		buyTx(model.TypeMining, day(21), "ETH", "3", "30"),
	}

	first := runCalc(t, DefaultOptions(), txs)
	second := runCalc(t, DefaultOptions(), txs)

	if len(first.Disposals) != len(second.Disposals) {
		t.Fatalf("disposal counts differ: %d vs %d", len(first.Disposals), len(second.Disposals))
	}
	for i := range first.Disposals {
		a, b := first.Disposals[i], second.Disposals[i]
		if a.Rule != b.Rule || !a.Quantity.Equal(b.Quantity) || !a.Cost.Equal(b.Cost) || !a.Gain.Equal(b.Gain) {
			t.Errorf("match %d differs: %+v vs %+v", i, a, b)
		}
	}
	for year, ya := range first.Years {
		yb := second.Years[year]
		if yb == nil {
			t.Fatalf("year %d missing on second run", year)
		}
		if !ya.NetGain.Equal(yb.NetGain) || !ya.Proceeds.Equal(yb.Proceeds) {
			t.Errorf("year %d totals differ", year)
		}
	}
}

func TestCryptoFeeQuantityLeavesPool(t *testing.T) {
	// A crypto-denominated fee reduces the fee asset's balance, so its
	// quantity must leave the pool too, or the audit reconciliation breaks
	// on perfectly valid data. The fee's GBP value is still an allowable
	// cost against the disposal.
	spend := sellTx(model.TypeSpend, day(10), "BTC", "1", "150")
	spend.Fee = &model.Fee{Asset: "BTC", Quantity: d("0.01"), ValueGBP: dptr("1.5")}

	txs := []model.Transaction{
		buyTx(model.TypeTrade, day(1), "BTC", "2", "200"),
		spend,
	}

	result := runCalc(t, DefaultOptions(), txs)

	h := result.Holdings["BTC"]
	if h == nil {
		t.Fatal("expected a BTC holding")
	}
	wantDecimal(t, "pool quantity", h.Quantity, d("0.99"))
	wantDecimal(t, "audit balance", result.Audit.Balances["BTC"], d("0.99"))
	if !result.Audit.Passed {
		t.Errorf("expected audit to pass, mismatches: %+v", result.Audit.Mismatches)
	}

	if len(result.Disposals) != 1 {
		t.Fatalf("expected 1 disposal, got %d", len(result.Disposals))
	}
	m := result.Disposals[0]
	wantDecimal(t, "disposal cost", m.Cost, d("100"))
	wantDecimal(t, "disposal fees", m.Fees, d("1.5"))
	wantDecimal(t, "disposal gain", m.Gain, d("48.5"))
}

func TestMatchedQuantitySumsToDisposal(t *testing.T) {
	txs := []model.Transaction{
		buyTx(model.TypeTrade, day(1), "BTC", "7", "70"),
		buyTx(model.TypeTrade, day(3), "BTC", "1", "11"),
		sellTx(model.TypeTrade, day(3), "BTC", "6", "90"),
		buyTx(model.TypeTrade, day(8), "BTC", "2", "26"),
	}

	result := runCalc(t, DefaultOptions(), txs)

	total := decimal.Zero
	for _, m := range result.Disposals {
		total = total.Add(m.Quantity)
	}
	wantDecimal(t, "sum of matched quantities", total, d("6"))
}

func TestPriceResolutionFailureAbortsRun(t *testing.T) {
	nextSeq++
	tx := model.Transaction{
		ID:        "tx-noprice",
		Sequence:  nextSeq,
		Timestamp: day(1),
		Type:      model.TypeMining,
		Buy:       &model.RawLeg{Asset: "OBSCURE", Quantity: d("5")},
	}

	calc, err := NewCalculator(DefaultOptions(), stubPrices{prices: map[string]string{}})
	if err != nil {
		t.Fatalf("NewCalculator failed: %v", err)
	}
	if _, err := calc.Run(context.Background(), []model.Transaction{tx}); err == nil {
		t.Fatal("expected a fatal error for unresolvable price data")
	}
}

func TestUnknownTransactionTypeIsFatal(t *testing.T) {
	tx := model.Transaction{ID: "tx-bad", Timestamp: day(1), Type: "AIRDROP"}

	calc, _ := NewCalculator(DefaultOptions(), stubPrices{})
	if _, err := calc.Run(context.Background(), []model.Transaction{tx}); err == nil {
		t.Fatal("expected unrecognized transaction type to propagate")
	}
}
