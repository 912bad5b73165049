package tax

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

// fiat currencies are never pooled or matched; disposing of sterling (or
// another fiat currency) is not a cryptoasset disposal.
var fiatAssets = map[string]bool{
	"GBP": true,
	"EUR": true,
	"USD": true,
}

func isFiat(asset string) bool {
	return fiatAssets[asset]
}

// lot is one normalized buy or sell leg with a resolved GBP value. Matching
// consumes quantity from lots; value and fees are always apportioned against
// the original quantity so partial matches keep exact proportions.
type lot struct {
	seq       int64
	txID      string
	typ       model.TransactionType
	timestamp time.Time
	asset     string
	quantity  decimal.Decimal // original leg quantity
	remaining decimal.Decimal
	value     decimal.Decimal // GBP value of the original quantity
	fee       decimal.Decimal // allowable GBP fee carried by this leg
	transfer  bool            // quantity flows through the pool, no disposal computed
}

// day returns the lot's calendar date in UTC.
func (l *lot) day() time.Time {
	t := l.timestamp.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// valueOf apportions the lot's GBP value over quantity q.
func (l *lot) valueOf(q decimal.Decimal) decimal.Decimal {
	if l.quantity.IsZero() {
		return decimal.Zero
	}
	return l.value.Mul(q).Div(l.quantity)
}

// feeOf apportions the lot's fee over quantity q.
func (l *lot) feeOf(q decimal.Decimal) decimal.Decimal {
	if l.quantity.IsZero() {
		return decimal.Zero
	}
	return l.fee.Mul(q).Div(l.quantity)
}

// normalizer converts raw transactions into typed buy/sell lots, resolving
// any missing GBP valuations through the price source. A valuation that
// cannot be resolved aborts the whole run: no gain can be computed without a
// cost or proceeds basis.
type normalizer struct {
	prices PriceSource
	opts   Options
}

// normalize produces sorted buy and sell lots from the transaction set.
// Sorting is by timestamp with the original input sequence as a stable
// tie-break, the deterministic total order every matching stage relies on.
func (n *normalizer) normalize(ctx context.Context, txs []model.Transaction) (buys, sells []*lot, err error) {
	for i := range txs {
		tx := &txs[i]
		if !tx.Type.Valid() {
			return nil, nil, fmt.Errorf("%w: %q (transaction %s)", apperrors.ErrUnknownTransactionType, tx.Type, tx.ID)
		}
		if tx.Type.IsTransfer() && n.opts.Transfers == TransfersExcludeAll {
			continue
		}
		b, s, f, err := n.legs(ctx, tx)
		if err != nil {
			return nil, nil, err
		}
		if b != nil {
			buys = append(buys, b)
		}
		if s != nil {
			sells = append(sells, s)
		}
		if f != nil {
			sells = append(sells, f)
		}
	}

	sortLots(buys)
	sortLots(sells)
	return buys, sells, nil
}

func sortLots(lots []*lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].timestamp.Equal(lots[j].timestamp) {
			return lots[i].timestamp.Before(lots[j].timestamp)
		}
		return lots[i].seq < lots[j].seq
	})
}

// legs builds the buy and/or sell lot for one transaction, plus a
// quantity-only lot for a crypto-denominated fee: the fee's GBP value is
// folded into the disposal cost or acquisition cost below, but its quantity
// still has to leave the fee asset's pool, exactly as the audit balance
// subtracts it.
func (n *normalizer) legs(ctx context.Context, tx *model.Transaction) (buy, sell, fee *lot, err error) {
	if tx.Type.HasBuy() && tx.Buy == nil || tx.Type.HasSell() && tx.Sell == nil {
		return nil, nil, nil, fmt.Errorf("%w: %s (transaction %s)", apperrors.ErrMissingLeg, tx.Type, tx.ID)
	}

	transfer := tx.Type.IsTransfer() && n.opts.Transfers != TransfersInclude

	feeValue := decimal.Zero
	if tx.Fee != nil && !transfer {
		feeValue, err = n.legValue(ctx, tx.Fee.Asset, tx.Fee.Quantity, tx.Fee.ValueGBP, tx.Timestamp)
		if err != nil {
			return nil, nil, nil, err
		}
		if !isFiat(tx.Fee.Asset) {
			fee = &lot{
				seq:       tx.Sequence,
				txID:      tx.ID,
				typ:       tx.Type,
				timestamp: tx.Timestamp,
				asset:     tx.Fee.Asset,
				quantity:  tx.Fee.Quantity,
				remaining: tx.Fee.Quantity,
				transfer:  true,
			}
		}
	}

	if tx.Type.HasBuy() && !isFiat(tx.Buy.Asset) {
		value := decimal.Zero
		if !transfer {
			value, err = n.resolveValue(ctx, tx, tx.Buy, tx.Sell)
			if err != nil {
				return nil, nil, nil, err
			}
		}
		buy = &lot{
			seq:       tx.Sequence,
			txID:      tx.ID,
			typ:       tx.Type,
			timestamp: tx.Timestamp,
			asset:     tx.Buy.Asset,
			quantity:  tx.Buy.Quantity,
			remaining: tx.Buy.Quantity,
			value:     value,
			transfer:  transfer,
		}
	}

	if tx.Type.HasSell() && !isFiat(tx.Sell.Asset) {
		value := decimal.Zero
		if !transfer {
			value, err = n.resolveValue(ctx, tx, tx.Sell, tx.Buy)
			if err != nil {
				return nil, nil, nil, err
			}
		}
		sell = &lot{
			seq:       tx.Sequence,
			txID:      tx.ID,
			typ:       tx.Type,
			timestamp: tx.Timestamp,
			asset:     tx.Sell.Asset,
			quantity:  tx.Sell.Quantity,
			remaining: tx.Sell.Quantity,
			value:     value,
			transfer:  transfer,
		}
	}

	// A fee is an allowable disposal cost when the transaction disposes of
	// anything; otherwise it forms part of the acquisition cost.
	switch {
	case transfer || feeValue.IsZero():
	case sell != nil:
		sell.fee = feeValue
	case buy != nil:
		buy.value = buy.value.Add(feeValue)
	}

	return buy, sell, fee, nil
}

// resolveValue determines the GBP value of a leg: an explicit valuation wins,
// then the fiat face value, then the counter-leg of a trade (both sides of a
// trade share one consideration), and finally the historic price lookup.
func (n *normalizer) resolveValue(ctx context.Context, tx *model.Transaction, leg, counter *model.RawLeg) (decimal.Decimal, error) {
	if leg.ValueGBP != nil {
		return *leg.ValueGBP, nil
	}
	if leg.Asset == "GBP" {
		return leg.Quantity, nil
	}
	if tx.Type == model.TypeTrade && counter != nil {
		if counter.ValueGBP != nil {
			return *counter.ValueGBP, nil
		}
		if counter.Asset == "GBP" {
			return counter.Quantity, nil
		}
	}
	return n.legValue(ctx, leg.Asset, leg.Quantity, nil, tx.Timestamp)
}

// legValue prices quantity units of asset at the given time.
func (n *normalizer) legValue(ctx context.Context, asset string, quantity decimal.Decimal, explicit *decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if asset == "GBP" {
		return quantity, nil
	}
	unit, err := n.prices.HistoricValueGBP(ctx, asset, at)
	if err != nil {
		return decimal.Zero, fmt.Errorf("valuing %s %s at %s: %w", quantity, asset, at.Format("2006-01-02"), err)
	}
	return unit.Mul(quantity), nil
}
