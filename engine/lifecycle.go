package engine

import (
	"context"
	"log"
	"time"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engineapi"
)

const timeLayout = time.RFC3339

// advance applies every time-driven transition the auction is due for. It runs at the
// start of every turn, so no caller ever observes a transition that should already
// have happened.
func (e *Engine) advance(o *op) {
	a := &o.st.auction
	for {
		next, due := core.DueTransition(a, o.now, e.cfg.AntiSnipeWindow)
		if !due {
			break
		}

		switch next {
		case core.AuctionOpen:
			e.setStatus(o, core.AuctionOpen)
			o.emit(engineapi.EventAuctionOpened, statusEvent(a))
			log.Printf("INFO: Auction %s opened (closes %s)", a.ID, a.CloseTime.Format(timeLayout))
		case core.AuctionClosed:
			e.setStatus(o, core.AuctionClosed)
			o.emit(engineapi.EventAuctionClosed, statusEvent(a))
			log.Printf("INFO: Auction %s closed with %d bids after %d extensions", a.ID, a.BidCount, a.Extensions)
		case core.AuctionSettled:
			e.settle(o)
		}
	}
	e.checkOverdue(o)
}

func (e *Engine) setStatus(o *op, next core.AuctionStatus) {
	o.st.auction.Status = next
	o.st.auction.UpdatedAt = o.now
}

// isIdle reports whether the scheduler has nothing left to do for the auction.
func (e *Engine) isIdle(st *auctionState) bool {
	if st.deleted || st.auction.Status == core.AuctionCancelled {
		return true
	}
	if st.auction.Status != core.AuctionSettled {
		return false
	}
	if st.payment == nil || st.overdueNotified {
		return true
	}
	return st.payment.PaidAmount.GreaterThanOrEqual(st.payment.TotalAmount)
}

func statusEvent(a *core.Auction) engineapi.AuctionStatusEvent {
	return engineapi.AuctionStatusEvent{
		AuctionID: a.ID,
		ParcelID:  a.ParcelID,
		Status:    string(a.Status),
		CloseTime: a.CloseTime,
	}
}

// CreateAuction schedules an auction. The open time must be in the future.
func (e *Engine) CreateAuction(cmd CreateAuctionCommand) (*core.Auction, error) {
	if err := e.validate.check(cmd); err != nil {
		return nil, err
	}

	now := e.cfg.Clock.Now()
	a := core.Auction{
		ID:            newID(),
		ParcelID:      cmd.ParcelID,
		Title:         cmd.Title,
		Description:   cmd.Description,
		StartingPrice: cmd.StartingPrice,
		Increment:     cmd.Increment,
		DepositAmount: cmd.DepositAmount,
		OpenTime:      cmd.OpenTime,
		CloseTime:     cmd.CloseTime,
		Status:        core.AuctionScheduled,
		CurrentPrice:  cmd.StartingPrice,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if reason := core.ScheduleReason(&a, now); reason != "" {
		return nil, reject(reason, "auction terms rejected")
	}

	e.mu.Lock()
	e.auctions[a.ID] = newAuctionState(a)
	e.mu.Unlock()

	log.Printf("INFO: Created auction %s for parcel %s: start=%s inc=%s deposit=%s open=%s close=%s",
		a.ID, a.ParcelID, a.StartingPrice, a.Increment, a.DepositAmount,
		a.OpenTime.Format(timeLayout), a.CloseTime.Format(timeLayout))
	return &a, nil
}

// UpdateAuction replaces the terms of an auction that is still scheduled. The deposit
// amount cannot change once a deposit has been posted against it.
func (e *Engine) UpdateAuction(ctx context.Context, cmd UpdateAuctionCommand) (*core.Auction, error) {
	if err := e.validate.check(cmd); err != nil {
		return nil, err
	}

	var out core.Auction
	err := e.withAuction(ctx, cmd.AuctionID, func(o *op) error {
		a := &o.st.auction
		if a.Status != core.AuctionScheduled {
			return reject(core.ReasonAuctionImmutable, "auction %s is %s", a.ID, a.Status)
		}
		if !cmd.DepositAmount.Equal(a.DepositAmount) && len(o.st.deposits) > 0 {
			return reject(core.ReasonAuctionImmutable, "auction %s already has deposits", a.ID)
		}

		updated := *a
		updated.Title = cmd.Title
		updated.Description = cmd.Description
		updated.StartingPrice = cmd.StartingPrice
		updated.Increment = cmd.Increment
		updated.DepositAmount = cmd.DepositAmount
		updated.OpenTime = cmd.OpenTime
		updated.CloseTime = cmd.CloseTime
		updated.CurrentPrice = cmd.StartingPrice
		updated.UpdatedAt = o.now
		if reason := core.ScheduleReason(&updated, o.now); reason != "" {
			return reject(reason, "auction terms rejected")
		}

		*a = updated
		out = updated
		log.Printf("INFO: Updated terms of auction %s", a.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAuction removes an auction that has not opened and holds no deposits.
func (e *Engine) DeleteAuction(ctx context.Context, auctionID string) error {
	return e.withAuction(ctx, auctionID, func(o *op) error {
		a := &o.st.auction
		if a.Status != core.AuctionScheduled {
			return reject(core.ReasonAuctionImmutable, "auction %s is %s", a.ID, a.Status)
		}
		if len(o.st.deposits) > 0 {
			return reject(core.ReasonAuctionImmutable, "auction %s already has deposits", a.ID)
		}

		o.st.deleted = true
		e.mu.Lock()
		delete(e.auctions, a.ID)
		e.mu.Unlock()

		log.Printf("INFO: Deleted scheduled auction %s", a.ID)
		return nil
	})
}

// CancelAuction moves a scheduled or open auction without bids to cancelled.
// Deposits are not released automatically; use ReleaseDeposit.
func (e *Engine) CancelAuction(ctx context.Context, auctionID, remark string) (*core.Auction, error) {
	var out core.Auction
	err := e.withAuction(ctx, auctionID, func(o *op) error {
		a := &o.st.auction
		if reason := core.CancelReason(a); reason != "" {
			return reject(reason, "cannot cancel auction %s in status %s with %d bids", a.ID, a.Status, a.BidCount)
		}

		e.setStatus(o, core.AuctionCancelled)
		o.emit(engineapi.EventAuctionCancelled, statusEvent(a))
		log.Printf("INFO: Cancelled auction %s: %s", a.ID, remark)
		out = *a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
