package booking

// amountTolerance is the allowed drift (in minor currency units) between
// client-reported amounts and the server-computed quote before the
// mismatch is flagged for audit.
const amountTolerance = 1

// ClientAmounts carries the caller's self-reported price. It is never
// trusted for the persisted amounts; it exists only for audit comparison.
type ClientAmounts struct {
	Total   *int64
	Deposit *int64
}

// Quote is the server-authoritative price for a reservation.
type Quote struct {
	AmountTotal   *int64
	AmountDeposit *int64
}

// ResolvePrice recomputes the authoritative amounts from the slot's stored
// base price. A positive base price means a full-deposit guaranteed
// booking; zero or negative means no deposit is required and both amounts
// stay nil.
func ResolvePrice(basePrice int64, partySize int32) Quote {
	if basePrice <= 0 {
		return Quote{}
	}
	if partySize < 1 {
		partySize = 1
	}
	total := basePrice * int64(partySize)
	deposit := total
	return Quote{AmountTotal: &total, AmountDeposit: &deposit}
}

// RequiresDeposit reports whether the quote makes the booking a
// guaranteed (deposit-backed) one.
func (q Quote) RequiresDeposit() bool {
	return q.AmountDeposit != nil && *q.AmountDeposit > 0
}

// MatchesClient compares the quote with the caller's self-reported
// amounts within tolerance. A false result is audit-only: the computed
// value always wins.
func (q Quote) MatchesClient(c ClientAmounts) bool {
	return amountMatches(q.AmountTotal, c.Total) && amountMatches(q.AmountDeposit, c.Deposit)
}

func amountMatches(computed, reported *int64) bool {
	if reported == nil {
		return true
	}
	if computed == nil {
		return *reported == 0
	}
	diff := *computed - *reported
	if diff < 0 {
		diff = -diff
	}
	return diff <= amountTolerance
}
