package engine

import (
	"context"
	"log"
	"sort"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engineapi"
)

// CheckEligibility reports whether a bidder may bid on an auction right now, listing
// every failing check. The answer can change before a bid arrives; SubmitBid always
// re-evaluates it.
func (e *Engine) CheckEligibility(ctx context.Context, auctionID, bidderID string) (*core.EligibilityResult, error) {
	var out core.EligibilityResult
	err := e.withAuction(ctx, auctionID, func(o *op) error {
		reg := e.registry.forBidder(bidderID)
		if reg == nil {
			return reject(core.ReasonUnknownBidder, "bidder %s is not registered", bidderID)
		}
		out = core.EvaluateEligibility(reg, o.st.hasConfirmedDeposit(bidderID), &o.st.auction, o.now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitBid records a bid if the bidder is eligible and the price clears the current
// price by at least one increment. A bid accepted within the anti-sniping window of
// the close pushes the close out.
func (e *Engine) SubmitBid(ctx context.Context, cmd SubmitBidCommand) (*core.Bid, error) {
	if err := e.validate.check(cmd); err != nil {
		return nil, err
	}
	if err := checkMoney("price", cmd.Price); err != nil {
		return nil, err
	}

	var out core.Bid
	err := e.withAuction(ctx, cmd.AuctionID, func(o *op) error {
		st := o.st
		a := &st.auction

		reg := e.registry.forBidder(cmd.BidderID)
		if reg == nil {
			return reject(core.ReasonUnknownBidder, "bidder %s is not registered", cmd.BidderID)
		}
		eligibility := core.EvaluateEligibility(reg, st.hasConfirmedDeposit(cmd.BidderID), a, o.now)
		if !eligibility.Eligible {
			return reject(eligibility.FirstReason(), "bidder %s cannot bid on auction %s", cmd.BidderID, a.ID)
		}
		if !core.BidMeetsIncrement(a, cmd.Price) {
			return reject(core.ReasonIncrementTooSmall, "minimum next bid is %s, got %s",
				core.MinimumNextBid(a).StringFixed(2), cmd.Price.StringFixed(2))
		}

		bid := &core.Bid{
			ID:        newID(),
			AuctionID: a.ID,
			BidderID:  cmd.BidderID,
			Price:     cmd.Price,
			PlacedAt:  o.now,
			Sequence:  int64(len(st.bids) + 1),
			Validity:  core.BidValid,
		}
		bid.Hash = core.ComputeBidHash(st.headHash, bid.ID, bid.BidderID, bid.Price, bid.PlacedAt)

		if prev := st.findBid(a.LeadingBidID); prev != nil {
			prev.Validity = core.BidSuperseded
		}
		st.bids = append(st.bids, bid)
		st.headHash = bid.Hash

		a.CurrentPrice = bid.Price
		a.Leader = bid.BidderID
		a.LeadingBidID = bid.ID
		a.LastBidAt = bid.PlacedAt
		a.BidCount++
		a.UpdatedAt = o.now

		closeTime, extended := core.ExtendedCloseTime(a.CloseTime, bid.PlacedAt, e.cfg.AntiSnipeWindow)
		if extended {
			a.CloseTime = closeTime
			a.Extensions++
		}

		e.mu.Lock()
		e.bidAuction[bid.ID] = a.ID
		e.mu.Unlock()

		o.emit(engineapi.EventBidAccepted, engineapi.BidAcceptedEvent{
			AuctionID: a.ID,
			BidID:     bid.ID,
			BidderID:  bid.BidderID,
			Price:     bid.Price.String(),
			PlacedAt:  bid.PlacedAt,
			CloseTime: a.CloseTime,
			Extended:  extended,
		})

		if extended {
			log.Printf("INFO: Bid %s on auction %s: %s by %s, close extended to %s",
				bid.ID, a.ID, bid.Price, bid.BidderID, a.CloseTime.Format(timeLayout))
		} else {
			log.Printf("INFO: Bid %s on auction %s: %s by %s", bid.ID, a.ID, bid.Price, bid.BidderID)
		}
		out = *bid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBid returns a recorded bid by id.
func (e *Engine) GetBid(ctx context.Context, bidID string) (*core.Bid, error) {
	st, err := e.lookupIndexed(e.bidAuction, bidID, core.ReasonUnknownBid)
	if err != nil {
		return nil, err
	}

	var out core.Bid
	err = e.withState(ctx, st, func(o *op) error {
		b := o.st.findBid(bidID)
		if b == nil {
			return reject(core.ReasonUnknownBid, "bid %s not found", bidID)
		}
		out = *b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBids returns the bids of one auction, newest first.
func (e *Engine) ListBids(ctx context.Context, filter BidFilter) ([]core.Bid, error) {
	if err := e.validate.check(filter); err != nil {
		return nil, err
	}

	var out []core.Bid
	err := e.withAuction(ctx, filter.AuctionID, func(o *op) error {
		for _, b := range o.st.bids {
			if filter.BidderID != "" && b.BidderID != filter.BidderID {
				continue
			}
			out = append(out, *b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Sequence > out[j].Sequence
	})
	return out, nil
}

// BidLog returns the bids of one auction in sequence order, as chained by their hashes.
func (e *Engine) BidLog(ctx context.Context, auctionID string) ([]core.Bid, error) {
	var out []core.Bid
	err := e.withAuction(ctx, auctionID, func(o *op) error {
		out = make([]core.Bid, len(o.st.bids))
		for i, b := range o.st.bids {
			out[i] = *b
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
