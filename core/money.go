package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 2 // yuan with fen precision

// DefaultAntiSnipeWindow is both the late-bid window and the extension length.
const DefaultAntiSnipeWindow = 5 * time.Minute

// IsMoney reports whether d is a non-negative amount with at most fen precision.
// Amounts with more decimal places are rejected rather than rounded so that two
// prices never compare equal only after rounding.
func IsMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(monetaryPrecision))
}

// IsPositiveMoney is IsMoney for strictly positive amounts.
func IsPositiveMoney(d decimal.Decimal) bool {
	return d.IsPositive() && IsMoney(d)
}

// MinimumNextBid returns the lowest price the auction accepts next.
func MinimumNextBid(a *Auction) decimal.Decimal {
	return a.CurrentPrice.Add(a.Increment)
}

// BidMeetsIncrement returns true if price clears the current price by at least one increment.
// A bid equal to the current leading price never passes.
func BidMeetsIncrement(a *Auction, price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(MinimumNextBid(a))
}

// ExtendedCloseTime applies the anti-sniping rule to a bid accepted at acceptedAt.
// A bid landing within window of closeTime pushes the close to acceptedAt+window.
// It returns the (possibly unchanged) close time and whether it moved.
func ExtendedCloseTime(closeTime, acceptedAt time.Time, window time.Duration) (time.Time, bool) {
	if closeTime.Sub(acceptedAt) > window {
		return closeTime, false
	}

	extended := acceptedAt.Add(window)
	if !extended.After(closeTime) {
		return closeTime, false
	}
	return extended, true
}
