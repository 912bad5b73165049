package parsers

import (
	"fmt"
	"io"
	"strings"

	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// Electrum exports have grown columns over the years; all three layouts are
// still in circulation.
var electrumHeaders = [][]string{
	{"transaction_hash", "label", "value", "timestamp"},
	{"transaction_hash", "label", "confirmations", "value", "timestamp"},
	{"transaction_hash", "label", "confirmations", "value", "fiat_value", "fee", "fiat_fee", "timestamp"},
}

// electrumParser handles Electrum wallet history exports. The file never
// names its asset, so the parser carries it.
type electrumParser struct {
	asset string
}

func (p *electrumParser) Name() string { return "electrum" }

func (p *electrumParser) Parse(file io.Reader) ([]model.Transaction, error) {
	rows, variant, err := readCSV(file, electrumHeaders...)
	if err != nil {
		return nil, err
	}

	valueCol := 2
	if variant > 0 {
		valueCol = 3
	}

	var transactions []model.Transaction
	for i, row := range rows {
		tx, err := p.parseRow(row, valueCol)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func (p *electrumParser) parseRow(row []string, valueCol int) (model.Transaction, error) {
	ts, err := parseTimestamp(row[len(row)-1])
	if err != nil {
		return model.Transaction{}, err
	}

	value, err := parseQuantity(row[valueCol])
	if err != nil {
		return model.Transaction{}, err
	}

	tx := model.Transaction{
		Timestamp: ts,
		Wallet:    "Electrum",
		Source:    p.Name(),
		Note:      strings.TrimSpace(row[1]),
	}

	if value.IsPositive() {
		tx.Type = model.TypeDeposit
		tx.Buy = &model.RawLeg{Asset: p.asset, Quantity: value}
	} else {
		tx.Type = model.TypeWithdrawal
		tx.Sell = &model.RawLeg{Asset: p.asset, Quantity: value.Abs()}
	}
	return tx, nil
}
