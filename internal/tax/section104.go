package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// pool is a Section 104 holding for one asset: total quantity held and its
// aggregate GBP cost basis. Disposals deduct cost at the pool's current
// average unit cost, not FIFO or LIFO.
type pool struct {
	asset    string
	quantity decimal.Decimal
	cost     decimal.Decimal
}

// section104 walks all remaining acquisition and disposal quantity per asset
// in strict chronological order, maintaining the average-cost pools. Average
// cost is order dependent, so the event order must never be mutated between
// runs; on identical sorted input the result is identical.
//
// Integrity findings (insufficient pool, negative balances driven by
// transfers) are accumulated as warnings, never raised per occurrence, so a
// bad transaction for one asset cannot corrupt the state of others.
type section104 struct {
	pools             map[string]*pool
	warnings          []Warning
	transferMismatch  []Warning
	transfersIncluded bool
}

func newSection104(transfersIncluded bool) *section104 {
	return &section104{
		pools:             make(map[string]*pool),
		transfersIncluded: transfersIncluded,
	}
}

func (s *section104) pool(asset string) *pool {
	p, ok := s.pools[asset]
	if !ok {
		p = &pool{asset: asset}
		s.pools[asset] = p
	}
	return p
}

// process absorbs whatever same-day and bed-and-breakfast matching left
// unmatched. Lots must already be in (timestamp, sequence) order; buys and
// sells are merged by that same order so each asset sees one chronological
// event stream.
func (s *section104) process(buys, sells []*lot) []DisposalMatch {
	var matches []DisposalMatch
	bi, si := 0, 0
	for bi < len(buys) || si < len(sells) {
		if si >= len(sells) || (bi < len(buys) && before(buys[bi], sells[si])) {
			s.acquire(buys[bi])
			bi++
			continue
		}
		if m, ok := s.dispose(sells[si]); ok {
			matches = append(matches, m)
		}
		si++
	}
	return matches
}

func before(a, b *lot) bool {
	if !a.timestamp.Equal(b.timestamp) {
		return a.timestamp.Before(b.timestamp)
	}
	return a.seq <= b.seq
}

// acquire adds a buy lot's unmatched remainder to the pool. Transfers move
// quantity only; their cost basis travels with the original acquisition.
func (s *section104) acquire(b *lot) {
	if !b.remaining.IsPositive() {
		return
	}
	p := s.pool(b.asset)
	p.quantity = p.quantity.Add(b.remaining)
	if !b.transfer {
		p.cost = p.cost.Add(b.valueOf(b.remaining))
	}
	b.remaining = decimal.Zero
}

// dispose reduces the pool by a sell lot's unmatched remainder, deducting
// cost proportionally at the current average unit cost. A disposal the pool
// cannot cover still produces a match for the full quantity (the remainder
// carries a zero cost basis) so that matched quantity always sums to the
// disposed quantity; the shortfall is flagged as an integrity warning.
func (s *section104) dispose(l *lot) (DisposalMatch, bool) {
	if !l.remaining.IsPositive() {
		return DisposalMatch{}, false
	}
	p := s.pool(l.asset)
	q := l.remaining
	l.remaining = decimal.Zero

	// Quantity-only flows: transfers under the default policy, and the
	// crypto-denominated fee deductions the normalizer emits.
	if l.transfer {
		p.quantity = p.quantity.Sub(q)
		if p.quantity.IsNegative() {
			s.warnings = append(s.warnings, Warning{
				Kind:          WarnNegativeBalance,
				Asset:         l.asset,
				TransactionID: l.txID,
				Quantity:      p.quantity,
				Detail:        fmt.Sprintf("%s %s leaving the pool drives it to %s; check withdrawals and deposits for missing fees", q, l.asset, p.quantity),
			})
		}
		return DisposalMatch{}, false
	}

	covered := q
	if p.quantity.LessThan(q) {
		covered = p.quantity
		if covered.IsNegative() {
			covered = decimal.Zero
		}
		w := Warning{
			Kind:          WarnInsufficientPool,
			Asset:         l.asset,
			TransactionID: l.txID,
			Quantity:      q.Sub(covered),
			Detail:        fmt.Sprintf("disposal of %s %s exceeds the pool holding of %s; the remainder has no cost basis", q, l.asset, p.quantity),
		}
		if s.transfersIncluded && l.typ.IsTransfer() {
			// A disposal detected during what should have been a
			// same-quantity transfer is a harder failure than a plain
			// pool mismatch.
			s.transferMismatch = append(s.transferMismatch, w)
		} else {
			s.warnings = append(s.warnings, w)
		}
	}

	var cost decimal.Decimal
	if covered.IsPositive() && p.quantity.IsPositive() {
		unitCost := p.cost.Div(p.quantity)
		cost = unitCost.Mul(covered)
	}
	p.cost = p.cost.Sub(cost)
	p.quantity = p.quantity.Sub(covered)

	proceeds := l.valueOf(q)
	fees := l.feeOf(q)
	return DisposalMatch{
		TransactionID: l.txID,
		Rule:          RuleSection104,
		Type:          l.typ,
		Asset:         l.asset,
		Date:          l.day(),
		Quantity:      q,
		Cost:          cost,
		Proceeds:      proceeds,
		Fees:          fees,
		Gain:          proceeds.Sub(cost).Sub(fees),
	}, true
}

// holdings returns the final per-asset snapshot. Assets whose pool ended
// empty are dropped.
func (s *section104) holdings() HoldingsSnapshot {
	snap := make(HoldingsSnapshot)
	for asset, p := range s.pools {
		if p.quantity.IsZero() && p.cost.IsZero() {
			continue
		}
		snap[asset] = &Holding{Asset: asset, Quantity: p.quantity, Cost: p.cost}
	}
	return snap
}
