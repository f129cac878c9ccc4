package core

import "time"

// allowedTransitions is the auction state machine. Terminal states have no entry.
var allowedTransitions = map[AuctionStatus][]AuctionStatus{
	AuctionScheduled: {AuctionOpen, AuctionCancelled},
	AuctionOpen:      {AuctionClosed, AuctionCancelled},
	AuctionClosed:    {AuctionSettled},
}

// CanTransition reports whether the state machine has an edge from -> to.
func CanTransition(from, to AuctionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DueTransition returns the time-driven transition the auction is due for at now, if any.
//
//   - scheduled -> open once now reaches OpenTime
//   - open -> closed once now reaches CloseTime and no bid was accepted in the last window
//   - closed -> settled immediately
//
// Callers apply it repeatedly until it reports false, so a long-idle auction can move
// scheduled -> open -> closed -> settled in one step.
func DueTransition(a *Auction, now time.Time, window time.Duration) (AuctionStatus, bool) {
	switch a.Status {
	case AuctionScheduled:
		if !now.Before(a.OpenTime) {
			return AuctionOpen, true
		}
	case AuctionOpen:
		if now.Before(a.CloseTime) {
			return "", false
		}
		if a.HasLeader() && now.Sub(a.LastBidAt) < window {
			return "", false
		}
		return AuctionClosed, true
	case AuctionClosed:
		return AuctionSettled, true
	}
	return "", false
}

// CancelReason returns why an auction cannot be cancelled, or "" if it can.
// Cancellation is only an escape from scheduled or open, and never once a bid is recorded.
func CancelReason(a *Auction) Reason {
	if !CanTransition(a.Status, AuctionCancelled) {
		return ReasonInvalidTransition
	}
	if a.BidCount > 0 {
		return ReasonAuctionHasBids
	}
	return ""
}

// ScheduleReason validates auction terms at creation or update time.
// Returns "" when the terms are acceptable.
func ScheduleReason(a *Auction, now time.Time) Reason {
	if !IsPositiveMoney(a.StartingPrice) || !IsPositiveMoney(a.Increment) || !IsPositiveMoney(a.DepositAmount) {
		return ReasonInvalidAmount
	}
	if a.DepositAmount.GreaterThan(a.StartingPrice) {
		return ReasonInvalidAmount
	}
	if !a.OpenTime.Before(a.CloseTime) || a.OpenTime.Before(now) {
		return ReasonInvalidSchedule
	}
	return ""
}
