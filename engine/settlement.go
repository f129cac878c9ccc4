package engine

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/receipt"
)

// Settlement is the outcome of a settled auction.
type Settlement struct {
	Auction core.Auction          `json:"auction"`
	Payment *core.WinningPayment  `json:"payment,omitempty"`
	Receipt engineapi.ReceiptCOSE `json:"receipt,omitempty"`
	// ReceiptError is set when the receipt could not be signed.
	ReceiptError string `json:"receipt_error,omitempty"`
	Winning *core.Bid             `json:"winning_bid,omitempty"`
	Refunds []core.Deposit        `json:"refunds,omitempty"`
}

// settle performs closed -> settled. It runs exactly once per auction, inside the
// turn that observed the close.
func (e *Engine) settle(o *op) {
	st := o.st
	a := &st.auction

	settledAt := o.now
	a.Status = core.AuctionSettled
	a.SettledAt = &settledAt
	a.UpdatedAt = o.now

	bids := make([]core.Bid, len(st.bids))
	for i, b := range st.bids {
		bids[i] = *b
	}
	winner := core.RankBids(bids).Winner()

	r := receipt.SettlementReceipt{
		AuctionID:  a.ID,
		ParcelID:   a.ParcelID,
		BidCount:   len(st.bids),
		BidLogHash: st.headHash,
		SettledAt:  settledAt,
	}
	ev := engineapi.AuctionSettledEvent{
		AuctionID: a.ID,
		ParcelID:  a.ParcelID,
	}

	if winner == nil {
		// No bids: every deposit still held goes back
		refunded := 0
		for _, d := range st.deposits {
			if d.IsActive() {
				d.Status = core.DepositRefunded
				d.Kind = core.DepositKindRefunded
				d.Remark = "auction settled without bids"
				d.UpdatedAt = o.now
				refunded++
			}
		}
		log.Printf("INFO: Auction %s settled without winner, refunded %d deposits", a.ID, refunded)
	} else {
		winning := st.findBid(winner.ID)
		winning.Validity = core.BidWinning
		a.Winner = winning.BidderID
		a.FinalPrice = decimal.NewNullDecimal(winning.Price)

		deposit := decimal.Zero
		if d := st.activeDeposit(winning.BidderID); d != nil {
			deposit = d.Amount
		}

		dueDate := settledAt.Add(e.cfg.PaymentGrace)
		payment := &core.WinningPayment{
			ID:          newID(),
			AuctionID:   a.ID,
			WinnerID:    winning.BidderID,
			TotalAmount: core.AmountDue(winning.Price, deposit),
			PaidAmount:  decimal.Zero,
			DueDate:     dueDate,
			Status:      core.PaymentPending,
			CreatedAt:   o.now,
			UpdatedAt:   o.now,
		}
		st.payment = payment

		e.mu.Lock()
		e.paymentAuction[payment.ID] = a.ID
		e.mu.Unlock()

		r.Winner = winning.BidderID
		r.WinningBidID = winning.ID
		r.FinalPrice = winning.Price.StringFixed(2)
		r.WinnerDeposit = deposit.StringFixed(2)
		r.AmountDue = payment.TotalAmount.StringFixed(2)
		r.PaymentID = payment.ID
		r.DueDate = &dueDate

		ev.Winner = winning.BidderID
		ev.FinalPrice = winning.Price.String()
		ev.PaymentID = payment.ID
		ev.AmountDue = payment.TotalAmount.String()
		ev.DueDate = &dueDate

		log.Printf("INFO: Auction %s settled: winner=%s price=%s deposit=%s due=%s by %s",
			a.ID, a.Winner, winning.Price, deposit, payment.TotalAmount, dueDate.Format(timeLayout))
	}

	if e.cfg.Signer != nil {
		signed, err := e.cfg.Signer.Sign(r)
		if err != nil {
			log.Printf("ERROR: Failed to sign settlement receipt for auction %s: %v", a.ID, err)
			st.receiptErr = err.Error()
			ev.ReceiptError = st.receiptErr
		} else {
			st.receipt = signed
			ev.Receipt = signed
		}
	}

	o.emit(engineapi.EventAuctionSettled, ev)
}

// SettleAuction returns the settlement of an auction, settling it first if its close
// is due. Calling it again returns the same outcome without creating a second payment.
func (e *Engine) SettleAuction(ctx context.Context, auctionID string) (*Settlement, error) {
	var out *Settlement
	err := e.withAuction(ctx, auctionID, func(o *op) error {
		a := &o.st.auction
		if a.Status != core.AuctionSettled {
			return reject(core.ReasonInvalidTransition, "auction %s is %s, not ready to settle", a.ID, a.Status)
		}
		out = e.settlementOf(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) settlementOf(o *op) *Settlement {
	st := o.st
	s := &Settlement{
		Auction: st.auction,
		Receipt:      append(engineapi.ReceiptCOSE(nil), st.receipt...),
		ReceiptError: st.receiptErr,
	}
	if st.payment != nil {
		p := core.EvaluatePayment(*st.payment, o.now, e.cfg.PenaltyDailyRate)
		s.Payment = &p
	}
	for _, b := range st.bids {
		if b.Validity == core.BidWinning {
			winning := *b
			s.Winning = &winning
		}
	}
	for _, d := range st.deposits {
		if d.Status == core.DepositRefunded {
			s.Refunds = append(s.Refunds, *d)
		}
	}
	return s
}

// Receipt returns the signed settlement receipt of an auction.
func (e *Engine) Receipt(ctx context.Context, auctionID string) (engineapi.ReceiptCOSE, error) {
	var out engineapi.ReceiptCOSE
	err := e.withAuction(ctx, auctionID, func(o *op) error {
		if o.st.auction.Status != core.AuctionSettled {
			return reject(core.ReasonAuctionNotSettled, "auction %s is %s", o.st.auction.ID, o.st.auction.Status)
		}
		if o.st.receiptErr != "" {
			return reject(core.ReasonReceiptUnavailable, "auction %s receipt signing failed: %s", o.st.auction.ID, o.st.receiptErr)
		}
		if len(o.st.receipt) == 0 {
			return reject(core.ReasonReceiptUnavailable, "auction %s was settled without a receipt signer", o.st.auction.ID)
		}
		out = append(engineapi.ReceiptCOSE(nil), o.st.receipt...)
		return nil
	})
	return out, err
}
