package tax

// matchBedAndBreakfast applies the bed-and-breakfast rule: each disposal left
// unmatched after the same-day rule is matched against acquisitions of the
// same asset strictly after the disposal date and within the configured
// window (inclusive), earliest eligible acquisition first. HMRC requires
// disposals to be matched preferentially against near-term repurchases to
// prevent wash-sale-style loss harvesting.
//
// Any unmatched remainder falls through to the Section 104 pool. The scan is
// forward only: acquisitions before the disposal never qualify.
func matchBedAndBreakfast(buys, sells []*lot, windowDays int) []DisposalMatch {
	buysByAsset := make(map[string][]*lot)
	for _, b := range buys {
		if b.transfer {
			continue
		}
		buysByAsset[b.asset] = append(buysByAsset[b.asset], b)
	}

	var matches []DisposalMatch
	for _, s := range sells {
		if s.transfer || !s.remaining.IsPositive() {
			continue
		}
		sellDay := s.day()
		windowEnd := sellDay.AddDate(0, 0, windowDays)
		for _, b := range buysByAsset[s.asset] {
			if !s.remaining.IsPositive() {
				break
			}
			buyDay := b.day()
			if !buyDay.After(sellDay) {
				continue
			}
			if buyDay.After(windowEnd) {
				break // buys are chronological, nothing later qualifies
			}
			if !b.remaining.IsPositive() {
				continue
			}
			acquired := buyDay
			matches = append(matches, consume(s, b, RuleBedAndBreakfast, &acquired))
		}
	}
	return matches
}
