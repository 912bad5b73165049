package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// timeLayouts are the formats SQLite hands back for DATE and DATETIME columns.
var timeLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseTime parses a stored date or datetime string.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, str); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date: %q", str)
}

// ParseDecimal parses a stored decimal string, treating NULL (empty) as zero.
func ParseDecimal(str string) (decimal.Decimal, error) {
	if str == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse decimal %q: %w", str, err)
	}
	return d, nil
}
