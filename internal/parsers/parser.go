// Package parsers converts exchange and wallet export files into transaction
// records. Each supported source registers a Parser; callers look one up by
// source name.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// Parser converts one export file format into transaction records. Parsed
// records carry no ID or sequence number; the import service assigns both.
type Parser interface {
	// Name returns the source name the parser is registered under.
	Name() string
	// Parse reads a full export file and returns its transactions.
	Parse(file io.Reader) ([]model.Transaction, error)
}

var registry = map[string]Parser{
	"records":   &recordsParser{},
	"cryptocom": &cryptoComParser{},
	"electrum":  &electrumParser{asset: "BTC"},
}

// Get returns the parser registered for the given source name.
func Get(source string) (Parser, error) {
	p, ok := registry[strings.ToLower(source)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSource, source)
	}
	return p, nil
}

// Sources lists the registered source names in alphabetical order.
func Sources() []string {
	sources := make([]string, 0, len(registry))
	for name := range registry {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}

// readCSV reads all rows and verifies the header row matches one of the
// accepted header sets. Returns the data rows and the index of the matched
// header set.
func readCSV(file io.Reader, headers ...[]string) ([][]string, int, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("%w: file is empty", apperrors.ErrInvalidCSVHeaders)
	}

	for i, header := range headers {
		if headerMatches(rows[0], header) {
			return rows[1:], i, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidCSVHeaders, strings.Join(rows[0], ","))
}

func headerMatches(row, header []string) bool {
	if len(row) != len(header) {
		return false
	}
	for i := range header {
		if !strings.EqualFold(strings.TrimSpace(row[i]), header[i]) {
			return false
		}
	}
	return true
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// parseTimestamp tries the timestamp formats seen across export files.
// Formats without an explicit zone are taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %q", s)
}

// parseQuantity parses a decimal field, tolerating thousands separators.
func parseQuantity(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return d, nil
}

// parseOptionalValue parses a fiat value field that may be blank.
func parseOptionalValue(s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parseQuantity(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
