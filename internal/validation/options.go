// Package validation checks raw user input shared by the CLI flags and the
// HTTP API query parameters before it reaches the engine.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/tax"
)

// ParseEngineOptions builds engine options from raw string knobs. Empty
// strings keep the statutory defaults. yearStart uses "DD-MM" form, window
// is a day count, transfers is one of the transfer policy names.
func ParseEngineOptions(yearStart, window, transfers string) (tax.Options, error) {
	opts := tax.DefaultOptions()
	errors := make(map[string]string)

	if yearStart != "" {
		day, month, err := parseDayMonth(yearStart)
		if err != nil {
			errors["yearStart"] = err.Error()
		} else {
			opts.YearStartDay = day
			opts.YearStartMonth = month
		}
	}

	if window != "" {
		days, err := strconv.Atoi(strings.TrimSpace(window))
		if err != nil {
			errors["window"] = "matching window not a valid number"
		} else {
			opts.BedAndBreakfastDays = days
		}
	}

	if transfers != "" {
		opts.Transfers = tax.TransferPolicy(strings.ToLower(strings.TrimSpace(transfers)))
	}

	if len(errors) > 0 {
		return tax.Options{}, &Error{Fields: errors}
	}

	// The engine's own validation covers range checks shared with callers
	// that build Options directly.
	if err := opts.Validate(); err != nil {
		return tax.Options{}, err
	}
	return opts, nil
}

// ParseTaxYear parses a tax year label and checks it against the supported
// range.
func ParseTaxYear(s string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidTaxYear, s)
	}
	min, max := tax.SupportedYears()
	if year < min || year > max {
		return 0, fmt.Errorf("%w: %d (supported %d-%d)", apperrors.ErrInvalidTaxYear, year, min, max)
	}
	return year, nil
}

func parseDayMonth(s string) (day, month int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("tax year start must be DD-MM, got %q", s)
	}
	day, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("tax year start day not a valid number: %q", parts[0])
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("tax year start month not a valid number: %q", parts[1])
	}
	return day, month, nil
}
