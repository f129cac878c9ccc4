package engine

import (
	"context"
	"log"
	"sort"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engineapi"
)

// checkOverdue emits payment.overdue once, the first turn after a full overdue day
// has accrued with money still owed, so the event always carries a penalty. The
// penalty itself is collected by the fee collaborator.
func (e *Engine) checkOverdue(o *op) {
	st := o.st
	if st.payment == nil || st.overdueNotified {
		return
	}

	p := core.EvaluatePayment(*st.payment, o.now, e.cfg.PenaltyDailyRate)
	if p.Status != core.PaymentOverdue || core.OverdueDays(p.DueDate, o.now) < 1 {
		return
	}

	st.overdueNotified = true
	o.emit(engineapi.EventPaymentOverdue, engineapi.PaymentOverdueEvent{
		PaymentID:  p.ID,
		AuctionID:  p.AuctionID,
		WinnerID:   p.WinnerID,
		Penalty:    p.Penalty.String(),
		AmountOwed: p.AmountOwed.String(),
		DueDate:    p.DueDate,
	})
	log.Printf("WARNING: Payment %s for auction %s is overdue: owed=%s penalty=%s",
		p.ID, p.AuctionID, p.AmountOwed, p.Penalty)
}

// RecordPayment applies a captured amount to the winner's balance. Payments cannot
// exceed what remains of the balance; penalties are settled separately.
func (e *Engine) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*core.WinningPayment, error) {
	if err := e.validate.check(cmd); err != nil {
		return nil, err
	}
	if err := checkMoney("amount", cmd.Amount); err != nil {
		return nil, err
	}

	st, err := e.lookupIndexed(e.paymentAuction, cmd.PaymentID, core.ReasonUnknownPayment)
	if err != nil {
		return nil, err
	}

	var out core.WinningPayment
	err = e.withState(ctx, st, func(o *op) error {
		p := o.st.payment
		if p.PaidAmount.GreaterThanOrEqual(p.TotalAmount) {
			return reject(core.ReasonPaymentSettled, "payment %s is already paid", p.ID)
		}
		if remainder := p.Remainder(); cmd.Amount.GreaterThan(remainder) {
			return reject(core.ReasonOverpayment, "payment %s has %s remaining, got %s", p.ID, remainder, cmd.Amount)
		}

		p.PaidAmount = p.PaidAmount.Add(cmd.Amount)
		p.Status = core.BaseStatus(p.TotalAmount, p.PaidAmount)
		p.UpdatedAt = o.now

		out = core.EvaluatePayment(*p, o.now, e.cfg.PenaltyDailyRate)
		log.Printf("INFO: Payment %s received %s (paid %s of %s, status %s)",
			p.ID, cmd.Amount, p.PaidAmount, p.TotalAmount, out.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPayment returns a payment with its status, penalty and amount owed derived now.
func (e *Engine) GetPayment(ctx context.Context, paymentID string) (*core.WinningPayment, error) {
	st, err := e.lookupIndexed(e.paymentAuction, paymentID, core.ReasonUnknownPayment)
	if err != nil {
		return nil, err
	}

	var out core.WinningPayment
	err = e.withState(ctx, st, func(o *op) error {
		out = core.EvaluatePayment(*o.st.payment, o.now, e.cfg.PenaltyDailyRate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PaymentForAuction returns the winning payment of a settled auction.
func (e *Engine) PaymentForAuction(ctx context.Context, auctionID string) (*core.WinningPayment, error) {
	var out core.WinningPayment
	err := e.withAuction(ctx, auctionID, func(o *op) error {
		if o.st.payment == nil {
			return reject(core.ReasonUnknownPayment, "auction %s has no winning payment", auctionID)
		}
		out = core.EvaluatePayment(*o.st.payment, o.now, e.cfg.PenaltyDailyRate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPayments returns payments matching filter, oldest due date first.
func (e *Engine) ListPayments(ctx context.Context, filter PaymentFilter) ([]core.WinningPayment, error) {
	if err := e.validate.check(filter); err != nil {
		return nil, err
	}

	var out []core.WinningPayment
	err := e.eachAuction(ctx, func(o *op) {
		if o.st.payment == nil {
			return
		}
		p := core.EvaluatePayment(*o.st.payment, o.now, e.cfg.PenaltyDailyRate)
		if filter.AuctionID != "" && p.AuctionID != filter.AuctionID {
			return
		}
		if filter.WinnerID != "" && p.WinnerID != filter.WinnerID {
			return
		}
		if filter.Status != "" && p.Status != filter.Status {
			return
		}
		out = append(out, p)
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
