package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the kind of transaction record as imported.
type TransactionType string

const (
	TypeDeposit      TransactionType = "DEPOSIT"
	TypeWithdrawal   TransactionType = "WITHDRAWAL"
	TypeTrade        TransactionType = "TRADE"
	TypeGiftReceived TransactionType = "GIFT_RECEIVED"
	TypeGiftSent     TransactionType = "GIFT_SENT"
	TypeGiftSpouse   TransactionType = "GIFT_SPOUSE"
	TypeCharitySent  TransactionType = "CHARITY_SENT"
	TypeMining       TransactionType = "MINING"
	TypeInterest     TransactionType = "INTEREST"
	TypeIncome       TransactionType = "INCOME"
	TypeSpend        TransactionType = "SPEND"
)

// transactionTypes is the set of recognized transaction types.
var transactionTypes = map[TransactionType]bool{
	TypeDeposit:      true,
	TypeWithdrawal:   true,
	TypeTrade:        true,
	TypeGiftReceived: true,
	TypeGiftSent:     true,
	TypeGiftSpouse:   true,
	TypeCharitySent:  true,
	TypeMining:       true,
	TypeInterest:     true,
	TypeIncome:       true,
	TypeSpend:        true,
}

// Valid reports whether t is a recognized transaction type.
func (t TransactionType) Valid() bool {
	return transactionTypes[t]
}

// HasBuy reports whether this type carries an acquisition leg.
func (t TransactionType) HasBuy() bool {
	switch t {
	case TypeDeposit, TypeTrade, TypeGiftReceived, TypeMining, TypeInterest, TypeIncome:
		return true
	}
	return false
}

// HasSell reports whether this type carries a disposal leg.
func (t TransactionType) HasSell() bool {
	switch t {
	case TypeWithdrawal, TypeTrade, TypeGiftSent, TypeGiftSpouse, TypeCharitySent, TypeSpend:
		return true
	}
	return false
}

// IsIncome reports whether this type is taxed as income rather than
// (or in addition to) capital gains.
func (t TransactionType) IsIncome() bool {
	switch t {
	case TypeMining, TypeInterest, TypeIncome:
		return true
	}
	return false
}

// IsTransfer reports whether this type moves assets between the user's own
// wallets without changing beneficial ownership.
func (t TransactionType) IsTransfer() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

// RawLeg is one side of a transaction as imported. ValueGBP is nil when the
// source file carried no fiat valuation; the engine resolves it via the
// price source during normalization.
type RawLeg struct {
	Asset    string           `json:"asset"`
	Quantity decimal.Decimal  `json:"quantity"`
	ValueGBP *decimal.Decimal `json:"valueGbp,omitempty"`
}

// Fee is an optional transaction fee, denominated in its own asset.
type Fee struct {
	Asset    string           `json:"asset"`
	Quantity decimal.Decimal  `json:"quantity"`
	ValueGBP *decimal.Decimal `json:"valueGbp,omitempty"`
}

// Transaction is an immutable imported transaction record.
//
// Invariant: a TRADE has both legs; DEPOSIT, GIFT_RECEIVED, MINING, INTEREST
// and INCOME have only a buy leg; WITHDRAWAL, SPEND, GIFT_SENT, GIFT_SPOUSE
// and CHARITY_SENT have only a sell leg.
type Transaction struct {
	ID        string          `json:"id"`
	Sequence  int64           `json:"sequence"` // original import order, tie-break for equal timestamps
	Timestamp time.Time       `json:"timestamp"`
	Type      TransactionType `json:"type"`
	Buy       *RawLeg         `json:"buy,omitempty"`
	Sell      *RawLeg         `json:"sell,omitempty"`
	Fee       *Fee            `json:"fee,omitempty"`
	Wallet    string          `json:"wallet"`
	Source    string          `json:"source,omitempty"` // parser that produced the record
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}
