package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engineapi"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingPublisher keeps every delivered event; failWith makes Publish fail.
type recordingPublisher struct {
	mu       sync.Mutex
	events   []engineapi.Event
	failWith error
}

func (p *recordingPublisher) Publish(_ context.Context, ev engineapi.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) setFailure(err error) {
	p.mu.Lock()
	p.failWith = err
	p.mu.Unlock()
}

func (p *recordingPublisher) ofType(eventType engineapi.EventType) []engineapi.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []engineapi.Event
	for _, ev := range p.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (p *recordingPublisher) types() []engineapi.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]engineapi.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	engine *Engine
	clock  *fakeClock
	pub    *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithConfig(t, Config{})
}

func newHarnessWithConfig(t *testing.T, cfg Config) *harness {
	clock := newFakeClock(t0)
	pub := &recordingPublisher{}
	cfg.Clock = clock
	cfg.Publisher = pub
	return &harness{
		t:      t,
		ctx:    context.Background(),
		engine: New(cfg),
		clock:  clock,
		pub:    pub,
	}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func auctionCommand(start, increment, deposit string) CreateAuctionCommand {
	return CreateAuctionCommand{
		ParcelID:      "parcel-0731",
		Title:         "Xinhe village plot 7",
		StartingPrice: money(start),
		Increment:     money(increment),
		DepositAmount: money(deposit),
		OpenTime:      t0.Add(time.Hour),
		CloseTime:     t0.Add(2 * time.Hour),
	}
}

// createAuction schedules an auction opening in one hour and closing an hour later.
func (h *harness) createAuction(start, increment, deposit string) *core.Auction {
	h.t.Helper()
	a, err := h.engine.CreateAuction(auctionCommand(start, increment, deposit))
	assert.NoError(h.t, err)
	return a
}

func registerCommand(bidderID string) RegisterBidderCommand {
	return RegisterBidderCommand{
		BidderID:   bidderID,
		UserType:   core.UserTypeContractor,
		RealName:   "Zhang Wei",
		NationalID: "110101199003074578",
		Phone:      "13800138000",
		Address:    "Group 3, Xinhe Village",
	}
}

// approve registers the bidder if needed and approves the registration.
func (h *harness) approve(bidderID string) *core.BidderRegistration {
	h.t.Helper()
	if reg, err := h.engine.GetRegistrationByBidder(bidderID); err == nil {
		return reg
	}
	reg, err := h.engine.RegisterBidder(registerCommand(bidderID))
	assert.NoError(h.t, err)
	reg, err = h.engine.ReviewRegistration(ReviewRegistrationCommand{
		RegistrationID: reg.ID,
		Decision:       core.RegistrationApproved,
	})
	assert.NoError(h.t, err)
	return reg
}

// escrow posts and confirms the auction's deposit for bidderID.
func (h *harness) escrow(a *core.Auction, bidderID string) *core.Deposit {
	h.t.Helper()
	d, err := h.engine.PostDeposit(h.ctx, PostDepositCommand{
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    a.DepositAmount,
	})
	assert.NoError(h.t, err)
	d, err = h.engine.ConfirmDeposit(h.ctx, d.ID)
	assert.NoError(h.t, err)
	return d
}

// ready makes every bidder eligible for a once the auction opens.
func (h *harness) ready(a *core.Auction, bidders ...string) map[string]*core.Deposit {
	h.t.Helper()
	deposits := make(map[string]*core.Deposit, len(bidders))
	for _, bidder := range bidders {
		h.approve(bidder)
		deposits[bidder] = h.escrow(a, bidder)
	}
	return deposits
}

func (h *harness) open(a *core.Auction) {
	h.clock.Set(a.OpenTime)
}

func (h *harness) bid(a *core.Auction, bidderID, price string) (*core.Bid, error) {
	return h.engine.SubmitBid(h.ctx, SubmitBidCommand{
		AuctionID: a.ID,
		BidderID:  bidderID,
		Price:     money(price),
	})
}

func (h *harness) mustBid(a *core.Auction, bidderID, price string) *core.Bid {
	h.t.Helper()
	b, err := h.bid(a, bidderID, price)
	assert.NoError(h.t, err)
	return b
}

func (h *harness) auction(id string) *core.Auction {
	h.t.Helper()
	a, err := h.engine.GetAuction(h.ctx, id)
	assert.NoError(h.t, err)
	return a
}
