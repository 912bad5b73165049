package tax

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// PriceSource resolves the historic GBP value of one unit of an asset at a
// point in time. Implementations fail with apperrors.ErrPriceNotAvailable
// when no data exists; the engine treats that as fatal for the run.
type PriceSource interface {
	HistoricValueGBP(ctx context.Context, asset string, at time.Time) (decimal.Decimal, error)
}

// MatchRule identifies which share-identification rule produced a disposal match.
type MatchRule string

const (
	RuleSameDay         MatchRule = "SAME_DAY"
	RuleBedAndBreakfast MatchRule = "BED_AND_BREAKFAST"
	RuleSection104      MatchRule = "SECTION_104"
)

// DisposalMatch links a portion of one disposal to the acquisition cost that
// covers it. The sum of Quantity across all matches for a disposal equals the
// disposal's total sell quantity.
type DisposalMatch struct {
	TransactionID string                `json:"transactionId"`
	Rule          MatchRule             `json:"rule"`
	Type          model.TransactionType `json:"type"`
	Asset         string                `json:"asset"`
	Date          time.Time             `json:"date"`
	Quantity      decimal.Decimal       `json:"quantity"`
	Cost          decimal.Decimal       `json:"cost"`
	Proceeds      decimal.Decimal       `json:"proceeds"`
	Fees          decimal.Decimal       `json:"fees"`
	Gain          decimal.Decimal       `json:"gain"` // proceeds - cost - fees
	AcquiredDate  *time.Time            `json:"acquiredDate,omitempty"`
}

// Holding is the final Section 104 pool state for one asset.
type Holding struct {
	Asset    string           `json:"asset"`
	Quantity decimal.Decimal  `json:"quantity"`
	Cost     decimal.Decimal  `json:"cost"`
	ValueGBP *decimal.Decimal `json:"valueGbp,omitempty"` // latest valuation, when priced
}

// HoldingsSnapshot is the per-asset pool state after all processing.
type HoldingsSnapshot map[string]*Holding

// YearSummary holds the derived totals for one UK tax year (keyed by its
// ending year).
type YearSummary struct {
	Year            int                                        `json:"year"`
	Proceeds        decimal.Decimal                            `json:"proceeds"`
	AllowableCosts  decimal.Decimal                            `json:"allowableCosts"`
	Gains           decimal.Decimal                            `json:"gains"`
	Losses          decimal.Decimal                            `json:"losses"`
	NetGain         decimal.Decimal                            `json:"netGain"`
	AnnualExemption decimal.Decimal                            `json:"annualExemption"`
	TaxableGain     decimal.Decimal                            `json:"taxableGain"`
	Income          map[model.TransactionType]decimal.Decimal `json:"income"`
	IncomeTotal     decimal.Decimal                            `json:"incomeTotal"`
	Disposals       []DisposalMatch                            `json:"disposals"`
	Supported       bool                                       `json:"supported"` // false when the year is outside the exemption table
}

// WarningKind classifies non-fatal integrity findings.
type WarningKind string

const (
	// WarnInsufficientPool flags a disposal that the Section 104 pool could
	// not fully absorb; the remainder carries a zero cost basis.
	WarnInsufficientPool WarningKind = "INSUFFICIENT_POOL"

	// WarnNegativeBalance flags a pool quantity driven below zero by a
	// transfer, usually a missing fee or an unpaired withdrawal.
	WarnNegativeBalance WarningKind = "NEGATIVE_BALANCE"

	// WarnUnsupportedYear flags a tax year outside the annual exemption table.
	WarnUnsupportedYear WarningKind = "UNSUPPORTED_TAX_YEAR"

	// WarnDuplicateRemoved flags a deposit or withdrawal dropped as a
	// duplicate of a gift/income/spend record.
	WarnDuplicateRemoved WarningKind = "DUPLICATE_REMOVED"
)

// Warning is a non-fatal integrity finding accumulated during a run.
type Warning struct {
	Kind          WarningKind     `json:"kind"`
	Asset         string          `json:"asset,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Quantity      decimal.Decimal `json:"quantity,omitempty"`
	Detail        string          `json:"detail"`
}

// Result is everything a run produces. The engine is a pure function of
// (transactions, options, price source); nothing persists between runs.
type Result struct {
	Disposals []DisposalMatch      `json:"disposals"`
	Years     map[int]*YearSummary `json:"years"`
	Holdings  HoldingsSnapshot     `json:"holdings"`
	Audit     AuditResult          `json:"audit"`
	Warnings  []Warning            `json:"warnings"`
}
