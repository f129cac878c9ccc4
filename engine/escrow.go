package engine

import (
	"context"
	"log"
	"sort"

	"github.com/openland/landauction/core"
)

// PostDeposit records a bidder's deposit against an auction as pending. The amount
// must equal the auction's deposit amount, and a bidder holds one active deposit per
// auction.
func (e *Engine) PostDeposit(ctx context.Context, cmd PostDepositCommand) (*core.Deposit, error) {
	if err := e.validate.check(cmd); err != nil {
		return nil, err
	}
	if err := checkMoney("amount", cmd.Amount); err != nil {
		return nil, err
	}

	var out core.Deposit
	err := e.withAuction(ctx, cmd.AuctionID, func(o *op) error {
		if e.registry.forBidder(cmd.BidderID) == nil {
			return reject(core.ReasonUnknownBidder, "bidder %s is not registered", cmd.BidderID)
		}

		a := &o.st.auction
		switch a.Status {
		case core.AuctionClosed, core.AuctionSettled:
			return reject(core.ReasonAuctionClosed, "auction %s is %s", a.ID, a.Status)
		case core.AuctionCancelled:
			return reject(core.ReasonAuctionCancelled, "auction %s is cancelled", a.ID)
		}
		if !cmd.Amount.Equal(a.DepositAmount) {
			return reject(core.ReasonDepositAmountInvalid, "auction %s requires a deposit of %s, got %s",
				a.ID, a.DepositAmount, cmd.Amount)
		}
		if existing := o.st.activeDeposit(cmd.BidderID); existing != nil {
			return reject(core.ReasonDuplicateDeposit, "bidder %s already holds deposit %s", cmd.BidderID, existing.ID)
		}

		d := &core.Deposit{
			ID:        newID(),
			AuctionID: a.ID,
			BidderID:  cmd.BidderID,
			Amount:    cmd.Amount,
			Kind:      core.DepositKindPosted,
			Status:    core.DepositPending,
			CreatedAt: o.now,
			UpdatedAt: o.now,
		}
		o.st.deposits = append(o.st.deposits, d)

		e.mu.Lock()
		e.depositAuction[d.ID] = a.ID
		e.mu.Unlock()

		log.Printf("INFO: Deposit %s of %s posted by bidder %s for auction %s", d.ID, d.Amount, d.BidderID, a.ID)
		out = *d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmDeposit marks a pending deposit as captured, which makes the bidder eligible.
func (e *Engine) ConfirmDeposit(ctx context.Context, depositID string) (*core.Deposit, error) {
	var out core.Deposit
	err := e.withDeposit(ctx, depositID, func(o *op, d *core.Deposit) error {
		if d.Status != core.DepositPending {
			return reject(core.ReasonDepositNotPending, "deposit %s is %s", d.ID, d.Status)
		}

		d.Status = core.DepositConfirmed
		d.UpdatedAt = o.now
		log.Printf("INFO: Deposit %s confirmed for bidder %s", d.ID, d.BidderID)
		out = *d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReleaseDeposit refunds or forfeits a deposit once its auction is settled or
// cancelled. The winner's deposit is applied to the balance and cannot be refunded;
// it is forfeited only when the winner is overdue.
func (e *Engine) ReleaseDeposit(ctx context.Context, cmd ReleaseDepositCommand) (*core.Deposit, error) {
	if err := e.validate.check(cmd); err != nil {
		return nil, err
	}

	var out core.Deposit
	err := e.withDeposit(ctx, cmd.DepositID, func(o *op, d *core.Deposit) error {
		a := &o.st.auction
		if a.Status != core.AuctionSettled && a.Status != core.AuctionCancelled {
			return reject(core.ReasonAuctionNotSettled, "auction %s is %s", a.ID, a.Status)
		}
		if !d.IsActive() {
			return reject(core.ReasonDepositReleased, "deposit %s is %s", d.ID, d.Status)
		}

		isWinner := a.Winner != "" && a.Winner == d.BidderID
		switch cmd.Outcome {
		case core.DepositRefunded:
			if isWinner {
				return reject(core.ReasonWinnerDepositRetained, "deposit %s belongs to the winner of auction %s", d.ID, a.ID)
			}
			d.Kind = core.DepositKindRefunded
		case core.DepositForfeited:
			if !isWinner || !e.paymentOverdue(o) {
				return reject(core.ReasonForfeitNotAllowed, "deposit %s can only be forfeited by an overdue winner", d.ID)
			}
			d.Kind = core.DepositKindForfeited
		}

		d.Status = cmd.Outcome
		d.Remark = cmd.Remark
		d.UpdatedAt = o.now
		log.Printf("INFO: Deposit %s of bidder %s %s: %s", d.ID, d.BidderID, d.Status, cmd.Remark)
		out = *d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) paymentOverdue(o *op) bool {
	if o.st.payment == nil {
		return false
	}
	return core.EvaluatePayment(*o.st.payment, o.now, e.cfg.PenaltyDailyRate).Status == core.PaymentOverdue
}

// GetDeposit returns a deposit by id.
func (e *Engine) GetDeposit(ctx context.Context, depositID string) (*core.Deposit, error) {
	var out core.Deposit
	err := e.withDeposit(ctx, depositID, func(_ *op, d *core.Deposit) error {
		out = *d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDeposits returns deposits matching filter, oldest first.
func (e *Engine) ListDeposits(ctx context.Context, filter DepositFilter) ([]core.Deposit, error) {
	if err := e.validate.check(filter); err != nil {
		return nil, err
	}

	collect := func(o *op, out *[]core.Deposit) {
		for _, d := range o.st.deposits {
			if filter.BidderID != "" && d.BidderID != filter.BidderID {
				continue
			}
			if filter.Status != "" && d.Status != filter.Status {
				continue
			}
			*out = append(*out, *d)
		}
	}

	var out []core.Deposit
	var err error
	if filter.AuctionID != "" {
		err = e.withAuction(ctx, filter.AuctionID, func(o *op) error {
			collect(o, &out)
			return nil
		})
	} else {
		err = e.eachAuction(ctx, func(o *op) { collect(o, &out) })
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// withDeposit runs fn during the turn of the deposit's auction.
func (e *Engine) withDeposit(ctx context.Context, depositID string, fn func(o *op, d *core.Deposit) error) error {
	st, err := e.lookupIndexed(e.depositAuction, depositID, core.ReasonUnknownDeposit)
	if err != nil {
		return err
	}
	return e.withState(ctx, st, func(o *op) error {
		d := o.st.findDeposit(depositID)
		if d == nil {
			return reject(core.ReasonUnknownDeposit, "deposit %s not found", depositID)
		}
		return fn(o, d)
	})
}
