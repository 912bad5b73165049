package parsers

import (
	"fmt"
	"io"
	"strings"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// recordsHeader is the native transaction record format: one row per
// transaction with explicit buy, sell and fee columns.
var recordsHeader = []string{
	"Type",
	"Buy Quantity", "Buy Asset", "Buy Value",
	"Sell Quantity", "Sell Asset", "Sell Value",
	"Fee Quantity", "Fee Asset", "Fee Value",
	"Wallet", "Timestamp",
}

// recordTypes maps the record file's type labels onto transaction types.
var recordTypes = map[string]model.TransactionType{
	"deposit":       model.TypeDeposit,
	"withdrawal":    model.TypeWithdrawal,
	"trade":         model.TypeTrade,
	"gift-received": model.TypeGiftReceived,
	"gift-sent":     model.TypeGiftSent,
	"gift-spouse":   model.TypeGiftSpouse,
	"charity-sent":  model.TypeCharitySent,
	"mining":        model.TypeMining,
	"interest":      model.TypeInterest,
	"income":        model.TypeIncome,
	"spend":         model.TypeSpend,
}

type recordsParser struct{}

func (p *recordsParser) Name() string { return "records" }

func (p *recordsParser) Parse(file io.Reader) ([]model.Transaction, error) {
	rows, _, err := readCSV(file, recordsHeader)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	for i, row := range rows {
		tx, err := p.parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func (p *recordsParser) parseRow(row []string) (model.Transaction, error) {
	if len(row) != len(recordsHeader) {
		return model.Transaction{}, fmt.Errorf("expected %d columns, got %d", len(recordsHeader), len(row))
	}

	typ, ok := recordTypes[strings.ToLower(strings.TrimSpace(row[0]))]
	if !ok {
		return model.Transaction{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownTransactionType, row[0])
	}

	ts, err := parseTimestamp(row[11])
	if err != nil {
		return model.Transaction{}, err
	}

	tx := model.Transaction{
		Timestamp: ts,
		Type:      typ,
		Wallet:    strings.TrimSpace(row[10]),
		Source:    p.Name(),
	}

	if typ.HasBuy() {
		tx.Buy, err = parseLeg(row[1], row[2], row[3])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("buy leg: %w", err)
		}
	}
	if typ.HasSell() {
		tx.Sell, err = parseLeg(row[4], row[5], row[6])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("sell leg: %w", err)
		}
	}

	if strings.TrimSpace(row[8]) != "" {
		qty, err := parseQuantity(row[7])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("fee: %w", err)
		}
		value, err := parseOptionalValue(row[9])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("fee: %w", err)
		}
		tx.Fee = &model.Fee{Asset: strings.TrimSpace(row[8]), Quantity: qty, ValueGBP: value}
	}

	return tx, nil
}

func parseLeg(quantity, asset, value string) (*model.RawLeg, error) {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return nil, apperrors.ErrMissingLeg
	}
	qty, err := parseQuantity(quantity)
	if err != nil {
		return nil, err
	}
	val, err := parseOptionalValue(value)
	if err != nil {
		return nil, err
	}
	return &model.RawLeg{Asset: asset, Quantity: qty, ValueGBP: val}, nil
}
