// Package tax implements the UK capital gains disposal-matching and pooling
// engine: same-day matching, the 30-day bed-and-breakfast rule and Section 104
// average-cost pooling, applied in that statutory precedence order, plus the
// per-tax-year aggregation and the audit cross-check of pool balances.
package tax

import (
	"fmt"
	"time"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
)

// TransferPolicy controls how wallet-to-wallet transfers (deposits and
// withdrawals) participate in the tax computation.
type TransferPolicy string

const (
	// TransfersInclude treats deposits and withdrawals as ordinary
	// acquisitions and disposals.
	TransfersInclude TransferPolicy = "include"

	// TransfersExcludeTax excludes transfers from disposal computation but
	// still flows their quantity through the Section 104 pool, keeping
	// running balances intact. This is the default.
	TransfersExcludeTax TransferPolicy = "exclude-tax"

	// TransfersExcludeAll drops transfers entirely, from both the tax
	// computation and the audit balances.
	TransfersExcludeAll TransferPolicy = "exclude-all"
)

// Defaults for Options.
const (
	DefaultYearStartDay        = 6
	DefaultYearStartMonth      = 4
	DefaultBedAndBreakfastDays = 30
)

// daysInMonth ignores leap years: 29 February can never be a tax year start.
var daysInMonth = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// Options is the immutable engine configuration, threaded explicitly through
// every component instead of being read from ambient global state.
type Options struct {
	YearStartDay        int
	YearStartMonth      int
	BedAndBreakfastDays int
	Transfers           TransferPolicy
}

// DefaultOptions returns the statutory defaults for UK individuals: tax year
// starting 6 April, 30-day bed-and-breakfast window, transfers excluded from
// tax but kept in the pool.
func DefaultOptions() Options {
	return Options{
		YearStartDay:        DefaultYearStartDay,
		YearStartMonth:      DefaultYearStartMonth,
		BedAndBreakfastDays: DefaultBedAndBreakfastDays,
		Transfers:           TransfersExcludeTax,
	}
}

// Validate rejects malformed configuration before any processing starts.
func (o Options) Validate() error {
	if o.YearStartMonth < 1 || o.YearStartMonth > 12 {
		return fmt.Errorf("%w: month %d", apperrors.ErrInvalidTaxYearStart, o.YearStartMonth)
	}
	if o.YearStartDay < 1 || o.YearStartDay > daysInMonth[o.YearStartMonth] {
		return fmt.Errorf("%w: day %d of month %d", apperrors.ErrInvalidTaxYearStart, o.YearStartDay, o.YearStartMonth)
	}
	if o.BedAndBreakfastDays < 1 {
		return fmt.Errorf("%w: got %d", apperrors.ErrInvalidWindow, o.BedAndBreakfastDays)
	}
	switch o.Transfers {
	case TransfersInclude, TransfersExcludeTax, TransfersExcludeAll:
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidTransferPolicy, o.Transfers)
	}
	return nil
}

// TaxYearOf returns the ending year of the UK tax year containing date.
// With the default 6 April boundary, 5 April 2023 belongs to tax year 2023
// and 6 April 2023 belongs to tax year 2024.
func (o Options) TaxYearOf(date time.Time) int {
	boundary := time.Date(date.Year(), time.Month(o.YearStartMonth), o.YearStartDay, 0, 0, 0, 0, time.UTC)
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(boundary) {
		return date.Year()
	}
	return date.Year() + 1
}
