package tax

import "github.com/shopspring/decimal"

// annualExemption is the CGT annual exempt amount for individuals, keyed by
// the ending year of the tax year. Source: HMRC annual exempt amount tables.
var annualExemption = map[int]int64{
	2009: 9600,
	2010: 10100,
	2011: 10100,
	2012: 10600,
	2013: 10600,
	2014: 10900,
	2015: 11000,
	2016: 11100,
	2017: 11100,
	2018: 11300,
	2019: 11700,
	2020: 12000,
	2021: 12300,
	2022: 12300,
	2023: 12300,
	2024: 6000,
	2025: 3000,
	2026: 3000,
}

// exemptionFor returns the annual exempt amount for a tax year, and whether
// the year is supported at all.
func exemptionFor(year int) (decimal.Decimal, bool) {
	amount, ok := annualExemption[year]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(amount), true
}

// AnnualExemption returns the annual exempt amount for a tax year, or zero
// when the year is outside the table.
func AnnualExemption(year int) decimal.Decimal {
	amount, _ := exemptionFor(year)
	return amount
}

// SupportedYears returns the inclusive range of tax years the exemption
// table covers.
func SupportedYears() (min, max int) {
	for year := range annualExemption {
		if min == 0 || year < min {
			min = year
		}
		if year > max {
			max = year
		}
	}
	return min, max
}
