package tax

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// AuditMismatch records one asset whose independently computed balance does
// not agree with the Section 104 pool, together with the transactions that
// touched the asset.
type AuditMismatch struct {
	Asset        string          `json:"asset"`
	Audit        decimal.Decimal `json:"audit"`
	Pool         decimal.Decimal `json:"pool"`
	Transactions []string        `json:"transactions"` // IDs of every transaction touching the asset
}

// AuditResult is the outcome of the cross-check between raw transaction
// balances and the final Section 104 pools.
type AuditResult struct {
	Balances         map[string]decimal.Decimal `json:"balances"`
	Passed           bool                       `json:"passed"`
	Mismatches       []AuditMismatch            `json:"mismatches,omitempty"`
	TransferMismatch bool                       `json:"transferMismatch"`
	TransferWarnings []Warning                  `json:"transferWarnings,omitempty"`
}

// auditBalances replays every raw transaction per asset, maintaining a simple
// running balance (+buy legs, -sell legs, -fee quantity) with no cost basis
// at all. This is deliberately independent of the matching engine so the two
// can be reconciled afterwards.
func auditBalances(txs []model.Transaction, transfers TransferPolicy) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	touched := func(asset string) {
		if _, ok := balances[asset]; !ok {
			balances[asset] = decimal.Zero
		}
	}
	for i := range txs {
		tx := &txs[i]
		if tx.Type.IsTransfer() && transfers == TransfersExcludeAll {
			continue
		}
		if tx.Buy != nil && !isFiat(tx.Buy.Asset) {
			touched(tx.Buy.Asset)
			balances[tx.Buy.Asset] = balances[tx.Buy.Asset].Add(tx.Buy.Quantity)
		}
		if tx.Sell != nil && !isFiat(tx.Sell.Asset) {
			touched(tx.Sell.Asset)
			balances[tx.Sell.Asset] = balances[tx.Sell.Asset].Sub(tx.Sell.Quantity)
		}
		if tx.Fee != nil && !isFiat(tx.Fee.Asset) && !(tx.Type.IsTransfer() && transfers != TransfersInclude) {
			touched(tx.Fee.Asset)
			balances[tx.Fee.Asset] = balances[tx.Fee.Asset].Sub(tx.Fee.Quantity)
		}
	}
	return balances
}

// comparePools reconciles the audit balances against the pool snapshot. A
// mismatch signals a missing fee in a withdrawal/deposit pair, a transfer
// handled inconsistently, or a data-entry error.
func comparePools(balances map[string]decimal.Decimal, snap HoldingsSnapshot, txs []model.Transaction, transferWarnings []Warning) AuditResult {
	result := AuditResult{
		Balances:         balances,
		Passed:           true,
		TransferMismatch: len(transferWarnings) > 0,
		TransferWarnings: transferWarnings,
	}

	assets := make(map[string]bool, len(balances))
	for asset := range balances {
		assets[asset] = true
	}
	for asset := range snap {
		assets[asset] = true
	}

	ordered := make([]string, 0, len(assets))
	for asset := range assets {
		ordered = append(ordered, asset)
	}
	sort.Strings(ordered)

	for _, asset := range ordered {
		audit := balances[asset]
		var poolQty decimal.Decimal
		if h, ok := snap[asset]; ok {
			poolQty = h.Quantity
		}
		if audit.Equal(poolQty) {
			continue
		}
		result.Passed = false
		result.Mismatches = append(result.Mismatches, AuditMismatch{
			Asset:        asset,
			Audit:        audit,
			Pool:         poolQty,
			Transactions: transactionsTouching(txs, asset),
		})
	}

	if result.TransferMismatch {
		result.Passed = false
	}
	return result
}

func transactionsTouching(txs []model.Transaction, asset string) []string {
	var ids []string
	for i := range txs {
		tx := &txs[i]
		if tx.Buy != nil && tx.Buy.Asset == asset ||
			tx.Sell != nil && tx.Sell.Asset == asset ||
			tx.Fee != nil && tx.Fee.Asset == asset {
			ids = append(ids, tx.ID)
		}
	}
	return ids
}
