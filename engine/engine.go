package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/receipt"
)

// ReceiptSigner signs settlement receipts. *receipt.KeyManager implements it.
type ReceiptSigner interface {
	Sign(r receipt.SettlementReceipt) ([]byte, error)
}

// Config holds the engine's tunables and collaborators.
type Config struct {
	AntiSnipeWindow  time.Duration
	PaymentGrace     time.Duration
	PenaltyDailyRate decimal.Decimal
	Clock            Clock
	Publisher        Publisher     // nil drops events
	Signer           ReceiptSigner // nil settles without receipts
}

// DefaultConfig returns the production defaults: 5 minute anti-sniping window,
// 30 day payment grace period and 0.05% daily penalty.
func DefaultConfig() Config {
	return Config{
		AntiSnipeWindow:  core.DefaultAntiSnipeWindow,
		PaymentGrace:     core.DefaultPaymentGracePeriod,
		PenaltyDailyRate: core.DefaultPenaltyDailyRate,
		Clock:            SystemClock(),
	}
}

// Engine is the land auction engine.
//
// Every auction is its own unit of mutual exclusion: operations on one auction are
// applied one at a time in arrival order, while different auctions proceed in parallel.
type Engine struct {
	cfg      Config
	validate *commandValidator
	registry *registry
	outbox   *outbox

	mu             sync.RWMutex
	auctions       map[string]*auctionState
	depositAuction map[string]string // deposit id -> auction id
	paymentAuction map[string]string // payment id -> auction id
	bidAuction     map[string]string // bid id -> auction id
}

// New creates an Engine. Zero fields of cfg fall back to DefaultConfig.
func New(cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.AntiSnipeWindow <= 0 {
		cfg.AntiSnipeWindow = defaults.AntiSnipeWindow
	}
	if cfg.PaymentGrace <= 0 {
		cfg.PaymentGrace = defaults.PaymentGrace
	}
	if cfg.PenaltyDailyRate.IsZero() {
		cfg.PenaltyDailyRate = defaults.PenaltyDailyRate
	}
	if cfg.Clock == nil {
		cfg.Clock = defaults.Clock
	}

	return &Engine{
		cfg:            cfg,
		validate:       newCommandValidator(),
		registry:       newRegistry(),
		outbox:         &outbox{},
		auctions:       make(map[string]*auctionState),
		depositAuction: make(map[string]string),
		paymentAuction: make(map[string]string),
		bidAuction:     make(map[string]string),
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// auctionState is everything owned by one auction. All fields except slot and idle
// are only touched while holding slot.
type auctionState struct {
	slot chan struct{}
	idle atomic.Bool // nothing left for the scheduler to do

	deleted         bool
	auction         core.Auction
	bids            []*core.Bid // sequence order
	deposits        []*core.Deposit
	payment         *core.WinningPayment
	overdueNotified bool
	receipt         []byte
	receiptErr      string
	headHash        string
}

func newAuctionState(a core.Auction) *auctionState {
	return &auctionState{
		slot:     make(chan struct{}, 1),
		auction:  a,
		headHash: core.GenesisBidHash,
	}
}

// acquire waits for the auction's turn. Blocked callers are served in arrival order;
// a caller whose ctx ends first leaves without touching state.
func (st *auctionState) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case st.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (st *auctionState) release() {
	<-st.slot
}

func (st *auctionState) activeDeposit(bidderID string) *core.Deposit {
	for _, d := range st.deposits {
		if d.BidderID == bidderID && d.IsActive() {
			return d
		}
	}
	return nil
}

func (st *auctionState) hasConfirmedDeposit(bidderID string) bool {
	d := st.activeDeposit(bidderID)
	return d != nil && d.Status == core.DepositConfirmed
}

func (st *auctionState) findDeposit(id string) *core.Deposit {
	for _, d := range st.deposits {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (st *auctionState) findBid(id string) *core.Bid {
	for _, b := range st.bids {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// op is one serialized turn on an auction. Events emitted through it are queued only
// if the turn succeeds.
type op struct {
	st     *auctionState
	now    time.Time
	events []engineapi.Event
}

func (o *op) emit(eventType engineapi.EventType, payload any) {
	o.events = append(o.events, engineapi.Event{
		ID:         newID(),
		Type:       eventType,
		AuctionID:  o.st.auction.ID,
		OccurredAt: o.now,
		Payload:    payload,
	})
}

func (e *Engine) lookupAuction(auctionID string) (*auctionState, error) {
	e.mu.RLock()
	st, ok := e.auctions[auctionID]
	e.mu.RUnlock()
	if !ok {
		return nil, reject(core.ReasonUnknownAuction, "auction %s not found", auctionID)
	}
	return st, nil
}

func (e *Engine) lookupIndexed(index map[string]string, id string, reason core.Reason) (*auctionState, error) {
	e.mu.RLock()
	auctionID, ok := index[id]
	e.mu.RUnlock()
	if !ok {
		return nil, reject(reason, "%s not found", id)
	}
	st, err := e.lookupAuction(auctionID)
	if err != nil {
		return nil, reject(reason, "%s not found", id)
	}
	return st, nil
}

// withAuction runs fn during the auction's turn, then publishes queued events.
func (e *Engine) withAuction(ctx context.Context, auctionID string, fn func(o *op) error) error {
	st, err := e.lookupAuction(auctionID)
	if err != nil {
		return err
	}
	return e.withState(ctx, st, fn)
}

func (e *Engine) withState(ctx context.Context, st *auctionState, fn func(o *op) error) error {
	err := e.inSlot(ctx, st, fn)
	_ = e.FlushEvents(ctx)
	return err
}

func (e *Engine) inSlot(ctx context.Context, st *auctionState, fn func(o *op) error) error {
	if err := st.acquire(ctx); err != nil {
		return fmt.Errorf("waiting for auction turn: %w", err)
	}
	defer st.release()

	if st.deleted {
		return reject(core.ReasonUnknownAuction, "auction %s not found", st.auction.ID)
	}

	now := e.cfg.Clock.Now()
	defer func() { st.idle.Store(e.isIdle(st)) }()

	lifecycle := &op{st: st, now: now}
	e.advance(lifecycle)
	e.outbox.add(lifecycle.events...)

	if fn != nil {
		o := &op{st: st, now: now}
		if err := fn(o); err != nil {
			return err
		}
		e.outbox.add(o.events...)
	}
	return nil
}

// eachAuction visits every auction during its turn.
func (e *Engine) eachAuction(ctx context.Context, fn func(o *op)) error {
	for _, st := range e.snapshot() {
		err := e.inSlot(ctx, st, func(o *op) error {
			fn(o)
			return nil
		})
		if err != nil {
			if ReasonOf(err) == core.ReasonUnknownAuction {
				continue // deleted while waiting
			}
			return err
		}
	}
	_ = e.FlushEvents(ctx)
	return nil
}

func (e *Engine) snapshot() []*auctionState {
	e.mu.RLock()
	states := make([]*auctionState, 0, len(e.auctions))
	for _, st := range e.auctions {
		states = append(states, st)
	}
	e.mu.RUnlock()

	// ID never changes, so it is safe to read outside the slot
	sort.Slice(states, func(i, j int) bool {
		return states[i].auction.ID < states[j].auction.ID
	})
	return states
}
