package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// dupeTolerance absorbs exchange rounding when comparing quantities of a
// gift/income record against its deposit/withdrawal double.
var dupeTolerance = decimal.RequireFromString("0.00000001")

// RemoveGiftDuplicates returns a filtered copy of txs with deposits and
// withdrawals dropped when they duplicate a same-timestamp, same-asset,
// same-quantity gift, income or spend record. Exchanges often report a gift
// both as the gift itself and as a plain deposit/withdrawal; keeping both
// would double-count the quantity. The gift/income record always survives;
// only the transfer double is removed.
//
// This is a pure pre-engine pass: the input slice is never mutated.
func RemoveGiftDuplicates(txs []model.Transaction) ([]model.Transaction, []Warning) {
	drop := make(map[int]bool)
	for i := 0; i < len(txs)-1; i++ {
		for j := i + 1; j < len(txs); j++ {
			if !txs[j].Timestamp.Equal(txs[i].Timestamp) {
				break // sorted input, nothing later can match
			}
			if di, ok := giftDupe(&txs[i], &txs[j]); ok {
				if di {
					drop[i] = true
				} else {
					drop[j] = true
				}
			}
		}
	}

	if len(drop) == 0 {
		return txs, nil
	}

	kept := make([]model.Transaction, 0, len(txs)-len(drop))
	var warnings []Warning
	for i := range txs {
		if drop[i] {
			warnings = append(warnings, Warning{
				Kind:          WarnDuplicateRemoved,
				TransactionID: txs[i].ID,
				Detail:        fmt.Sprintf("%s duplicate of a gift/income record removed", txs[i].Type),
			})
			continue
		}
		kept = append(kept, txs[i])
	}
	return kept, warnings
}

// giftDupe reports whether a and b are a gift/income record and its transfer
// double. The second return selects which index to drop (true = first).
func giftDupe(a, b *model.Transaction) (dropFirst bool, ok bool) {
	if matched := dupePair(a, b); matched {
		return a.Type.IsTransfer(), true
	}
	return false, false
}

func dupePair(a, b *model.Transaction) bool {
	// Received: gift/mining/interest/income doubled by a deposit.
	if legsEqual(a.Buy, b.Buy) {
		return a.Type == model.TypeDeposit && receivedType(b.Type) ||
			b.Type == model.TypeDeposit && receivedType(a.Type)
	}
	// Sent: spend/gift/charity doubled by a withdrawal.
	if legsEqual(a.Sell, b.Sell) {
		return a.Type == model.TypeWithdrawal && sentType(b.Type) ||
			b.Type == model.TypeWithdrawal && sentType(a.Type)
	}
	return false
}

func receivedType(t model.TransactionType) bool {
	switch t {
	case model.TypeGiftReceived, model.TypeMining, model.TypeInterest, model.TypeIncome:
		return true
	}
	return false
}

func sentType(t model.TransactionType) bool {
	switch t {
	case model.TypeSpend, model.TypeGiftSpouse, model.TypeGiftSent, model.TypeCharitySent:
		return true
	}
	return false
}

func legsEqual(a, b *model.RawLeg) bool {
	return a != nil && b != nil &&
		a.Asset == b.Asset &&
		a.Quantity.Sub(b.Quantity).Abs().LessThanOrEqual(dupeTolerance)
}
