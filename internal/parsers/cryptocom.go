package parsers

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// cryptoComHeader is the Crypto.com app transaction export.
var cryptoComHeader = []string{
	"Timestamp (UTC)", "Transaction Description", "Currency", "Amount",
	"To Currency", "To Amount", "Native Currency", "Native Amount",
	"Native Amount (in USD)", "Transaction Kind",
}

// Transaction kinds that carry no tax consequence: internal moves between
// app features over the same holding.
var cryptoComIgnored = map[string]bool{
	"crypto_earn_program_created":   true,
	"crypto_earn_program_withdrawn": true,
	"lockup_lock":                   true,
	"lockup_upgrade":                true,
	"supercharger_deposit":          true,
	"supercharger_withdrawal":       true,
}

type cryptoComParser struct{}

func (p *cryptoComParser) Name() string { return "cryptocom" }

func (p *cryptoComParser) Parse(file io.Reader) ([]model.Transaction, error) {
	rows, _, err := readCSV(file, cryptoComHeader)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	for i, row := range rows {
		tx, ok, err := p.parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if ok {
			transactions = append(transactions, tx)
		}
	}
	return transactions, nil
}

//nolint:funlen // one case per transaction kind
func (p *cryptoComParser) parseRow(row []string) (model.Transaction, bool, error) {
	ts, err := parseTimestamp(row[0])
	if err != nil {
		return model.Transaction{}, false, err
	}

	amount, err := parseQuantity(row[3])
	if err != nil {
		return model.Transaction{}, false, err
	}

	kind := strings.TrimSpace(row[9])
	if cryptoComIgnored[kind] {
		return model.Transaction{}, false, nil
	}

	tx := model.Transaction{
		Timestamp: ts,
		Wallet:    "Crypto.com",
		Source:    p.Name(),
		Note:      strings.TrimSpace(row[1]),
	}

	// Native value only counts when the export's native currency is GBP.
	value, err := p.nativeValue(row)
	if err != nil {
		return model.Transaction{}, false, err
	}

	switch kind {
	case "crypto_transfer":
		if amount.IsPositive() {
			tx.Type = model.TypeGiftReceived
			tx.Buy = &model.RawLeg{Asset: row[2], Quantity: amount, ValueGBP: value}
		} else {
			tx.Type = model.TypeGiftSent
			tx.Sell = &model.RawLeg{Asset: row[2], Quantity: amount.Abs(), ValueGBP: value}
		}

	case "crypto_earn_interest_paid", "crypto_earn_extra_interest_paid", "mco_stake_reward":
		tx.Type = model.TypeInterest
		tx.Buy = &model.RawLeg{Asset: row[2], Quantity: amount, ValueGBP: value}

	case "viban_purchase", "van_purchase", "crypto_viban_exchange", "crypto_exchange",
		"dust_conversion", "crypto_wallet_swap":
		toAmount, err := parseQuantity(row[5])
		if err != nil {
			return model.Transaction{}, false, err
		}
		tx.Type = model.TypeTrade
		tx.Buy = &model.RawLeg{Asset: row[4], Quantity: toAmount}
		tx.Sell = &model.RawLeg{Asset: row[2], Quantity: amount.Abs(), ValueGBP: value}

	case "crypto_purchase":
		nativeAmount, err := parseQuantity(row[7])
		if err != nil {
			return model.Transaction{}, false, err
		}
		tx.Type = model.TypeTrade
		if amount.IsPositive() {
			tx.Buy = &model.RawLeg{Asset: row[2], Quantity: amount}
			tx.Sell = &model.RawLeg{Asset: row[6], Quantity: nativeAmount.Abs()}
		} else {
			tx.Buy = &model.RawLeg{Asset: row[6], Quantity: nativeAmount.Abs()}
			tx.Sell = &model.RawLeg{Asset: row[2], Quantity: amount.Abs()}
		}

	case "referral_bonus", "referral_card_cashback", "reimbursement", "gift_card_reward",
		"transfer_cashback", "admin_wallet_credited", "referral_gift", "campaign_reward",
		"mobile_airtime_reward":
		tx.Type = model.TypeGiftReceived
		tx.Buy = &model.RawLeg{Asset: row[2], Quantity: amount, ValueGBP: value}

	case "card_cashback_reverted", "reimbursement_reverted":
		tx.Type = model.TypeGiftSent
		tx.Sell = &model.RawLeg{Asset: row[2], Quantity: amount.Abs(), ValueGBP: value}

	case "crypto_payment", "card_top_up":
		tx.Type = model.TypeSpend
		tx.Sell = &model.RawLeg{Asset: row[2], Quantity: amount.Abs(), ValueGBP: value}

	case "crypto_withdrawal", "crypto_to_exchange_transfer":
		tx.Type = model.TypeWithdrawal
		tx.Sell = &model.RawLeg{Asset: row[2], Quantity: amount.Abs(), ValueGBP: value}

	case "crypto_deposit", "exchange_to_crypto_transfer":
		tx.Type = model.TypeDeposit
		tx.Buy = &model.RawLeg{Asset: row[2], Quantity: amount, ValueGBP: value}

	case "":
		// Fiat rows carry no kind; the description tells them apart.
		switch {
		case strings.Contains(row[1], "Deposit"):
			tx.Type = model.TypeDeposit
			tx.Buy = &model.RawLeg{Asset: row[2], Quantity: amount}
		case strings.Contains(row[1], "Withdrawal"):
			tx.Type = model.TypeWithdrawal
			tx.Sell = &model.RawLeg{Asset: row[2], Quantity: amount.Abs()}
		default:
			return model.Transaction{}, false, fmt.Errorf("%w: %q", apperrors.ErrUnknownTransactionType, row[1])
		}

	default:
		return model.Transaction{}, false, fmt.Errorf("%w: %q", apperrors.ErrUnknownTransactionType, kind)
	}

	return tx, true, nil
}

func (p *cryptoComParser) nativeValue(row []string) (*decimal.Decimal, error) {
	if strings.TrimSpace(row[6]) != "GBP" {
		return nil, nil
	}
	value, err := parseQuantity(row[7])
	if err != nil {
		return nil, err
	}
	abs := value.Abs()
	return &abs, nil
}
