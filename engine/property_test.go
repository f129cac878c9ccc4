package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/openland/landauction/core"
)

// propertyAuction builds an open auction where bidders [0, escrowed) hold confirmed
// deposits and the rest are approved without one.
func propertyAuction(t *rapid.T, bidders, escrowed int) (*Engine, *fakeClock, *core.Auction) {
	clock := newFakeClock(t0)
	e := New(Config{Clock: clock})
	ctx := context.Background()

	a, err := e.CreateAuction(auctionCommand("1000", "10", "100"))
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	for i := 0; i < bidders; i++ {
		bidder := fmt.Sprintf("bidder_%d", i)
		reg, err := e.RegisterBidder(registerCommand(bidder))
		if err != nil {
			t.Fatalf("register %s: %v", bidder, err)
		}
		if _, err := e.ReviewRegistration(ReviewRegistrationCommand{RegistrationID: reg.ID, Decision: core.RegistrationApproved}); err != nil {
			t.Fatalf("approve %s: %v", bidder, err)
		}
		if i >= escrowed {
			continue
		}
		d, err := e.PostDeposit(ctx, PostDepositCommand{AuctionID: a.ID, BidderID: bidder, Amount: a.DepositAmount})
		if err != nil {
			t.Fatalf("deposit %s: %v", bidder, err)
		}
		if _, err := e.ConfirmDeposit(ctx, d.ID); err != nil {
			t.Fatalf("confirm %s: %v", bidder, err)
		}
	}
	clock.Set(a.OpenTime)
	return e, clock, a
}

func TestProperty_PriceOnlyRisesAndOneBidLeads(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e, clock, a := propertyAuction(t, 4, 4)
		ctx := context.Background()

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			bidder := fmt.Sprintf("bidder_%d", rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("bidder_%d", i)))
			offset := rapid.Int64Range(-3, 5).Draw(t, fmt.Sprintf("offset_%d", i))
			clock.Advance(time.Duration(rapid.IntRange(0, 60).Draw(t, fmt.Sprintf("wait_%d", i))) * time.Second)

			before, err := e.GetAuction(ctx, a.ID)
			if err != nil {
				t.Fatalf("get auction: %v", err)
			}
			price := before.CurrentPrice.Add(decimal.NewFromInt(offset * 10))
			_, err = e.SubmitBid(ctx, SubmitBidCommand{AuctionID: a.ID, BidderID: bidder, Price: price})

			after, gerr := e.GetAuction(ctx, a.ID)
			if gerr != nil {
				t.Fatalf("get auction: %v", gerr)
			}
			if after.CurrentPrice.LessThan(before.CurrentPrice) {
				t.Fatalf("price fell from %s to %s", before.CurrentPrice, after.CurrentPrice)
			}
			if err == nil && offset < 1 {
				t.Fatalf("bid at %s accepted over current %s", price, before.CurrentPrice)
			}
			if err != nil && offset >= 1 {
				t.Fatalf("bid at %s rejected over current %s: %v", price, before.CurrentPrice, err)
			}
		}

		bids, err := e.BidLog(ctx, a.ID)
		if err != nil {
			t.Fatalf("bid log: %v", err)
		}
		valid := 0
		for _, b := range bids {
			if b.Validity == core.BidValid {
				valid++
			}
		}
		if len(bids) > 0 && valid != 1 {
			t.Fatalf("%d bids lead, want 1", valid)
		}
		if i := core.VerifyBidLog(bids); i != -1 {
			t.Fatalf("bid log broken at %d", i)
		}
	})
}

func TestProperty_NoBidWithoutConfirmedDeposit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		escrowed := rapid.IntRange(0, 4).Draw(t, "escrowed")
		e, _, a := propertyAuction(t, 4, escrowed)
		ctx := context.Background()

		price := a.CurrentPrice
		attempts := rapid.IntRange(1, 20).Draw(t, "attempts")
		for i := 0; i < attempts; i++ {
			n := rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("bidder_%d", i))
			price = price.Add(decimal.NewFromInt(10))
			bid, err := e.SubmitBid(ctx, SubmitBidCommand{AuctionID: a.ID, BidderID: fmt.Sprintf("bidder_%d", n), Price: price})
			if n >= escrowed {
				if err == nil {
					t.Fatalf("bidder_%d without deposit placed bid %s", n, bid.ID)
				}
				if ReasonOf(err) != core.ReasonDepositNotConfirmed {
					t.Fatalf("bidder_%d rejected with %q", n, ReasonOf(err))
				}
				price = price.Sub(decimal.NewFromInt(10))
				continue
			}
			if err != nil {
				t.Fatalf("bidder_%d with deposit rejected: %v", n, err)
			}
		}
	})
}

func TestProperty_SettlementPicksSingleHighestBid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e, clock, a := propertyAuction(t, 3, 3)
		ctx := context.Background()

		steps := rapid.IntRange(0, 15).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			bidder := fmt.Sprintf("bidder_%d", rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("bidder_%d", i)))
			raise := rapid.Int64Range(1, 50).Draw(t, fmt.Sprintf("raise_%d", i))
			current, err := e.GetAuction(ctx, a.ID)
			if err != nil {
				t.Fatalf("get auction: %v", err)
			}
			price := current.CurrentPrice.Add(decimal.NewFromInt(raise * 10))
			if _, err := e.SubmitBid(ctx, SubmitBidCommand{AuctionID: a.ID, BidderID: bidder, Price: price}); err != nil {
				t.Fatalf("bid %s: %v", price, err)
			}
		}

		clock.Set(a.CloseTime.Add(time.Hour))
		settlement, err := e.SettleAuction(ctx, a.ID)
		if err != nil {
			t.Fatalf("settle: %v", err)
		}
		bids, err := e.BidLog(ctx, a.ID)
		if err != nil {
			t.Fatalf("bid log: %v", err)
		}

		winning := 0
		for _, b := range bids {
			if b.Validity == core.BidWinning {
				winning++
			}
		}
		if steps == 0 {
			if winning != 0 || settlement.Payment != nil || settlement.Auction.Winner != "" {
				t.Fatalf("auction without bids settled with a winner")
			}
			return
		}

		if winning != 1 {
			t.Fatalf("%d winning bids, want 1", winning)
		}
		top := bids[len(bids)-1]
		if settlement.Winning.ID != top.ID || settlement.Auction.Winner != top.BidderID {
			t.Fatalf("winner %s is not the last and highest bid %s", settlement.Winning.ID, top.ID)
		}
		want := core.AmountDue(top.Price, a.DepositAmount)
		if !settlement.Payment.TotalAmount.Equal(want) {
			t.Fatalf("payment %s, want %s", settlement.Payment.TotalAmount, want)
		}
	})
}
