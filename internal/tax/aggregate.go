package tax

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// aggregate buckets disposal matches and income legs into UK tax years and
// derives the per-year totals: proceeds, allowable costs (including
// apportioned fees), gains, losses, net gain, taxable gain after the annual
// exemption, and income by category.
func (o Options) aggregate(disposals []DisposalMatch, incomeLots []*lot) (map[int]*YearSummary, []Warning) {
	years := make(map[int]*YearSummary)
	var warnings []Warning

	summary := func(year int) *YearSummary {
		y, ok := years[year]
		if !ok {
			exemption, supported := exemptionFor(year)
			y = &YearSummary{
				Year:            year,
				AnnualExemption: exemption,
				Supported:       supported,
				Income:          make(map[model.TransactionType]decimal.Decimal),
			}
			years[year] = y
			if !supported {
				warnings = append(warnings, Warning{
					Kind:   WarnUnsupportedYear,
					Detail: "no annual exempt amount known for tax year " + strconv.Itoa(year),
				})
			}
		}
		return y
	}

	for _, d := range disposals {
		y := summary(o.TaxYearOf(d.Date))
		y.Proceeds = y.Proceeds.Add(d.Proceeds)
		y.AllowableCosts = y.AllowableCosts.Add(d.Cost).Add(d.Fees)
		if d.Gain.IsNegative() {
			y.Losses = y.Losses.Add(d.Gain.Abs())
		} else {
			y.Gains = y.Gains.Add(d.Gain)
		}
		y.Disposals = append(y.Disposals, d)
	}

	for _, l := range incomeLots {
		if !l.typ.IsIncome() {
			continue
		}
		y := summary(o.TaxYearOf(l.timestamp))
		y.Income[l.typ] = y.Income[l.typ].Add(l.value)
		y.IncomeTotal = y.IncomeTotal.Add(l.value)
	}

	for _, y := range years {
		y.NetGain = y.Gains.Sub(y.Losses)
		taxable := y.NetGain.Sub(y.AnnualExemption)
		if taxable.IsNegative() {
			taxable = decimal.Zero
		}
		y.TaxableGain = taxable
		sort.Slice(y.Disposals, func(i, j int) bool {
			if !y.Disposals[i].Date.Equal(y.Disposals[j].Date) {
				return y.Disposals[i].Date.Before(y.Disposals[j].Date)
			}
			return y.Disposals[i].Rule < y.Disposals[j].Rule
		})
	}

	return years, warnings
}

