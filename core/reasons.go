package core

// ErrorKind groups rejection reasons by how a caller should react to them.
type ErrorKind string

const (
	// KindInput is a caller bug: unknown ids or malformed commands. Not retried.
	KindInput ErrorKind = "input"
	// KindStateConflict means the request does not fit the current state.
	KindStateConflict ErrorKind = "state_conflict"
	// KindEligibility means the bidder lacks an approved registration or escrow.
	KindEligibility ErrorKind = "insufficient_funds"
	// KindTiming means the request landed outside the auction's open window.
	KindTiming ErrorKind = "timing_violation"
)

// Reason names the specific check that rejected a request.
type Reason string

const (
	ReasonInvalidCommand       Reason = "invalid command"
	ReasonInvalidAmount        Reason = "invalid amount"
	ReasonInvalidSchedule      Reason = "invalid schedule"
	ReasonUnknownAuction       Reason = "unknown auction"
	ReasonUnknownBidder        Reason = "unknown bidder"
	ReasonUnknownRegistration  Reason = "unknown registration"
	ReasonUnknownDeposit       Reason = "unknown deposit"
	ReasonUnknownBid           Reason = "unknown bid"
	ReasonUnknownPayment       Reason = "unknown payment"
	ReasonDepositAmountInvalid Reason = "deposit amount does not match auction"

	ReasonRegistrationNotApproved Reason = "registration not approved"
	ReasonDepositNotConfirmed     Reason = "deposit not confirmed"

	ReasonAuctionNotStarted Reason = "auction not yet open"
	ReasonAuctionClosed     Reason = "auction closed"
	ReasonAuctionCancelled  Reason = "auction cancelled"
	ReasonOutsideWindow     Reason = "outside open window"

	ReasonIncrementTooSmall     Reason = "increment too small"
	ReasonInvalidTransition     Reason = "invalid transition"
	ReasonAuctionHasBids        Reason = "auction has bids"
	ReasonAuctionImmutable      Reason = "auction already started"
	ReasonAuctionNotSettled     Reason = "auction not settled"
	ReasonReceiptUnavailable    Reason = "settlement receipt unavailable"
	ReasonDuplicateRegistration Reason = "bidder already registered"
	ReasonRegistrationReviewed  Reason = "registration already reviewed"
	ReasonDuplicateDeposit      Reason = "deposit already posted"
	ReasonDepositNotPending     Reason = "deposit not pending"
	ReasonDepositReleased       Reason = "deposit already released"
	ReasonWinnerDepositRetained Reason = "winner deposit is applied to payment"
	ReasonForfeitNotAllowed     Reason = "deposit cannot be forfeited"
	ReasonPaymentSettled        Reason = "payment already settled"
	ReasonOverpayment           Reason = "payment exceeds amount owed"
)

var reasonKinds = map[Reason]ErrorKind{
	ReasonInvalidCommand:       KindInput,
	ReasonInvalidAmount:        KindInput,
	ReasonInvalidSchedule:      KindInput,
	ReasonUnknownAuction:       KindInput,
	ReasonUnknownBidder:        KindInput,
	ReasonUnknownRegistration:  KindInput,
	ReasonUnknownDeposit:       KindInput,
	ReasonUnknownBid:           KindInput,
	ReasonUnknownPayment:       KindInput,
	ReasonDepositAmountInvalid: KindEligibility,

	ReasonRegistrationNotApproved: KindEligibility,
	ReasonDepositNotConfirmed:     KindEligibility,

	ReasonOutsideWindow: KindTiming,
}

// Kind returns the error kind a reason belongs to. Anything not listed is a state conflict.
func (r Reason) Kind() ErrorKind {
	if kind, ok := reasonKinds[r]; ok {
		return kind
	}
	return KindStateConflict
}
