package tax

import "time"

// matchSameDay applies the same-day rule: for each asset and calendar date,
// disposals are matched against acquisitions of the identical date before any
// cross-day rule runs. Each disposal consumes available same-day acquisitions
// in order until either side is exhausted; any remainder on either side is
// left for later rules.
//
// Must run to completion for all assets before bed-and-breakfast matching
// begins: B&B eligibility depends on what same-day matching already consumed.
func matchSameDay(buys, sells []*lot) []DisposalMatch {
	type key struct {
		asset string
		day   time.Time
	}

	buysByDay := make(map[key][]*lot)
	for _, b := range buys {
		if b.transfer {
			continue
		}
		k := key{b.asset, b.day()}
		buysByDay[k] = append(buysByDay[k], b)
	}

	var matches []DisposalMatch
	for _, s := range sells {
		if s.transfer || !s.remaining.IsPositive() {
			continue
		}
		for _, b := range buysByDay[key{s.asset, s.day()}] {
			if !s.remaining.IsPositive() {
				break
			}
			if !b.remaining.IsPositive() {
				continue
			}
			matches = append(matches, consume(s, b, RuleSameDay, nil))
		}
	}
	return matches
}

// consume matches quantity between a disposal and an acquisition, reducing
// both remainders, and records the resulting gain/loss. Cost, proceeds and
// fees are apportioned against each lot's original quantity.
func consume(s, b *lot, rule MatchRule, acquired *time.Time) DisposalMatch {
	q := s.remaining
	if b.remaining.LessThan(q) {
		q = b.remaining
	}

	cost := b.valueOf(q)
	proceeds := s.valueOf(q)
	fees := s.feeOf(q)

	s.remaining = s.remaining.Sub(q)
	b.remaining = b.remaining.Sub(q)

	return DisposalMatch{
		TransactionID: s.txID,
		Rule:          rule,
		Type:          s.typ,
		Asset:         s.asset,
		Date:          s.day(),
		Quantity:      q,
		Cost:          cost,
		Proceeds:      proceeds,
		Fees:          fees,
		Gain:          proceeds.Sub(cost).Sub(fees),
		AcquiredDate:  acquired,
	}
}
