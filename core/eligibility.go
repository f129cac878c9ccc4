package core

import "time"

// EligibilityResult is the outcome of the bidding gate for one (bidder, auction) pair.
// Reasons lists every failing check in evaluation order.
type EligibilityResult struct {
	Eligible             bool     `json:"eligible"`
	Reasons              []Reason `json:"reasons,omitempty"`
	HasRegistration      bool     `json:"has_registration"`
	RegistrationApproved bool     `json:"registration_approved"`
	HasDeposit           bool     `json:"has_deposit"`
	AuctionOpen          bool     `json:"auction_open"`
	InWindow             bool     `json:"in_window"`
}

// FirstReason returns the reason of the earliest failing check, or "" when eligible.
func (r *EligibilityResult) FirstReason() Reason {
	if len(r.Reasons) == 0 {
		return ""
	}
	return r.Reasons[0]
}

// EvaluateEligibility runs the gate checks in order:
// approved registration, confirmed deposit, auction open, now within [OpenTime, CloseTime).
//
// The result is only valid at now; callers must re-evaluate right before committing a bid.
func EvaluateEligibility(reg *BidderRegistration, hasConfirmedDeposit bool, a *Auction, now time.Time) EligibilityResult {
	result := EligibilityResult{
		HasRegistration: reg != nil,
		HasDeposit:      hasConfirmedDeposit,
		AuctionOpen:     a.Status == AuctionOpen,
		InWindow:        !now.Before(a.OpenTime) && now.Before(a.CloseTime),
	}
	result.RegistrationApproved = result.HasRegistration && reg.Status == RegistrationApproved

	if !result.RegistrationApproved {
		result.Reasons = append(result.Reasons, ReasonRegistrationNotApproved)
	}
	if !result.HasDeposit {
		result.Reasons = append(result.Reasons, ReasonDepositNotConfirmed)
	}
	if !result.AuctionOpen {
		result.Reasons = append(result.Reasons, statusReason(a.Status))
	}
	if !result.InWindow {
		result.Reasons = append(result.Reasons, ReasonOutsideWindow)
	}

	result.Eligible = len(result.Reasons) == 0
	return result
}

// statusReason maps a non-open auction status to the rejection a bidder sees.
func statusReason(status AuctionStatus) Reason {
	switch status {
	case AuctionScheduled:
		return ReasonAuctionNotStarted
	case AuctionCancelled:
		return ReasonAuctionCancelled
	default:
		return ReasonAuctionClosed
	}
}
