package tax

import (
	"context"
	"sort"
	"time"

	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// Calculator runs the disposal-matching pipeline over a fixed transaction
// set. The stages run in a strict sequence - same-day, bed-and-breakfast,
// Section 104, aggregation - because each stage depends on which quantity
// earlier stages already claimed. The calculator is a pure function of
// (transactions, options, price source): running it twice on the same sorted
// input yields identical matches and totals.
type Calculator struct {
	opts   Options
	prices PriceSource
}

// NewCalculator validates the options and builds a calculator.
func NewCalculator(opts Options, prices PriceSource) (*Calculator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{opts: opts, prices: prices}, nil
}

// Run executes the full pipeline. The input slice is sorted by timestamp
// (stable on the original import sequence) into a copy; the caller's slice
// is never mutated and the sorted order is never touched after matching
// starts.
//
// A price lookup failure or an unrecognized transaction type aborts the run.
// Integrity findings are accumulated into the result instead.
func (c *Calculator) Run(ctx context.Context, txs []model.Transaction) (*Result, error) {
	ordered := make([]model.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		}
		return ordered[i].Sequence < ordered[j].Sequence
	})

	n := &normalizer{prices: c.prices, opts: c.opts}
	buys, sells, err := n.normalize(ctx, ordered)
	if err != nil {
		return nil, err
	}

	disposals := matchSameDay(buys, sells)
	disposals = append(disposals, matchBedAndBreakfast(buys, sells, c.opts.BedAndBreakfastDays)...)

	s104 := newSection104(c.opts.Transfers == TransfersInclude)
	disposals = append(disposals, s104.process(buys, sells)...)

	years, yearWarnings := c.opts.aggregate(disposals, buys)

	holdings := s104.holdings()

	// The audit replays the raw transactions independently of the pools and
	// is only consulted once pooling has completed.
	balances := auditBalances(ordered, c.opts.Transfers)
	audit := comparePools(balances, holdings, ordered, s104.transferMismatch)

	warnings := append(s104.warnings, yearWarnings...)

	return &Result{
		Disposals: disposals,
		Years:     years,
		Holdings:  holdings,
		Audit:     audit,
		Warnings:  warnings,
	}, nil
}

// ValueHoldings prices the snapshot at the latest available valuation. Used
// only when all years are processed, not in summary mode. Assets the price
// source cannot value keep a nil value rather than failing the whole
// snapshot.
func (c *Calculator) ValueHoldings(ctx context.Context, snap HoldingsSnapshot, at time.Time) {
	for _, h := range snap {
		unit, err := c.prices.HistoricValueGBP(ctx, h.Asset, at)
		if err != nil {
			continue
		}
		v := unit.Mul(h.Quantity)
		h.ValueGBP = &v
	}
}
