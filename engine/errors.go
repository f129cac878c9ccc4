package engine

import (
	"errors"
	"fmt"

	"github.com/openland/landauction/core"
)

// Error is a rejection returned by an engine operation.
// Kind tells the caller how to react, Reason names the check that failed.
type Error struct {
	Kind    core.ErrorKind
	Reason  core.Reason
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Is matches kind sentinels (Reason empty) by Kind and reason sentinels by Reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason != "" {
		return t.Reason == e.Reason
	}
	return t.Kind == e.Kind
}

// Kind sentinels, for use with errors.Is.
var (
	ErrInput         = &Error{Kind: core.KindInput}
	ErrStateConflict = &Error{Kind: core.KindStateConflict}
	ErrEligibility   = &Error{Kind: core.KindEligibility}
	ErrTiming        = &Error{Kind: core.KindTiming}
)

// Reason sentinels callers commonly branch on.
var (
	ErrUnknownAuction          = sentinel(core.ReasonUnknownAuction)
	ErrUnknownBidder           = sentinel(core.ReasonUnknownBidder)
	ErrUnknownDeposit          = sentinel(core.ReasonUnknownDeposit)
	ErrUnknownPayment          = sentinel(core.ReasonUnknownPayment)
	ErrIncrementTooSmall       = sentinel(core.ReasonIncrementTooSmall)
	ErrDepositNotConfirmed     = sentinel(core.ReasonDepositNotConfirmed)
	ErrRegistrationNotApproved = sentinel(core.ReasonRegistrationNotApproved)
	ErrAuctionClosed           = sentinel(core.ReasonAuctionClosed)
	ErrInvalidTransition       = sentinel(core.ReasonInvalidTransition)
)

func sentinel(reason core.Reason) *Error {
	return &Error{Kind: reason.Kind(), Reason: reason}
}

func reject(reason core.Reason, format string, args ...any) *Error {
	return &Error{
		Kind:    reason.Kind(),
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// ReasonOf returns the rejection reason carried by err, or "" for other errors.
func ReasonOf(err error) core.Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// KindOf returns the error kind carried by err, or "" for other errors.
func KindOf(err error) core.ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
