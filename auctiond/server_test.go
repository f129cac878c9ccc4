package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engine"
	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/receipt"
	"github.com/openland/landauction/validation"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type wireResponse struct {
	Type      string          `json:"type"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	ErrorKind string          `json:"error_kind"`
	Reason    string          `json:"reason"`
	Data      json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*Server, *testClock) {
	t.Helper()
	clock := &testClock{now: t0}
	keys, err := receipt.NewKeyManager()
	assert.NoError(t, err)
	e := engine.New(engine.Config{Clock: clock, Signer: keys})
	return NewServer(e, keys, 4), clock
}

// call sends one request over an in-memory connection and decodes the reply
func call(t *testing.T, s *Server, requestType string, payload any) wireResponse {
	t.Helper()
	raw, err := json.Marshal(payload)
	assert.NoError(t, err)

	client, server := net.Pipe()
	defer client.Close()
	go s.handleConnection(context.Background(), server)

	// Written concurrently so a partially read request never blocks the reply
	go func() {
		_ = json.NewEncoder(client).Encode(engineapi.Request{Type: requestType, RequestID: "req-" + requestType, Payload: raw})
	}()

	var resp wireResponse
	assert.NoError(t, json.NewDecoder(client).Decode(&resp))
	return resp
}

func callOK[T any](t *testing.T, s *Server, requestType string, payload any) T {
	t.Helper()
	resp := call(t, s, requestType, payload)
	assert.True(t, resp.Success)
	var out T
	assert.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestServer_Ping(t *testing.T) {
	s, _ := newTestServer(t)
	resp := call(t, s, engineapi.RequestPing, nil)
	check.Equal(t, engineapi.ResponseTypePong, resp.Type)
	check.True(t, resp.Success)
}

func TestServer_UnknownRequestAndBadPayload(t *testing.T) {
	s, _ := newTestServer(t)

	resp := call(t, s, "launch_rocket", nil)
	check.False(t, resp.Success)
	check.Equal(t, string(core.KindInput), resp.ErrorKind)
	check.Equal(t, string(core.ReasonInvalidCommand), resp.Reason)
	check.True(t, strings.Contains(resp.Message, "unknown request type: launch_rocket"))

	resp = call(t, s, engineapi.RequestSubmitBid, map[string]any{"price": []int{1}})
	check.False(t, resp.Success)
	check.True(t, strings.Contains(resp.Message, "decode payload"))

	resp = call(t, s, engineapi.RequestGetAuction, map[string]string{"auction_id": "missing"})
	check.False(t, resp.Success)
	check.Equal(t, string(core.ReasonUnknownAuction), resp.Reason)
}

func TestServer_MalformedRequest(t *testing.T) {
	s, _ := newTestServer(t)

	client, server := net.Pipe()
	defer client.Close()
	go s.handleConnection(context.Background(), server)

	_, err := client.Write([]byte("{not json}\n"))
	assert.NoError(t, err)

	var resp wireResponse
	assert.NoError(t, json.NewDecoder(client).Decode(&resp))
	check.False(t, resp.Success)
	check.Equal(t, "malformed request", resp.Message)
}

func TestServer_AuctionOverTheWire(t *testing.T) {
	s, clock := newTestServer(t)

	auction := callOK[core.Auction](t, s, engineapi.RequestCreateAuction, map[string]any{
		"parcel_id":      "parcel-0731",
		"title":          "Xinhe village plot 7",
		"starting_price": "7750",
		"increment":      "500",
		"deposit_amount": "1550",
		"open_time":      t0.Add(time.Hour),
		"close_time":     t0.Add(2 * time.Hour),
	})
	check.Equal(t, core.AuctionScheduled, auction.Status)

	for _, bidder := range []string{"bidder_x", "bidder_y"} {
		reg := callOK[core.BidderRegistration](t, s, engineapi.RequestRegisterBidder, map[string]any{
			"bidder_id":   bidder,
			"user_type":   "contractor",
			"real_name":   "Zhang Wei",
			"national_id": "110101199003074578",
			"phone":       "13800138000",
			"address":     "Group 3, Xinhe Village",
		})
		callOK[core.BidderRegistration](t, s, engineapi.RequestReviewRegistration, map[string]any{
			"registration_id": reg.ID,
			"decision":        "approved",
		})
		deposit := callOK[core.Deposit](t, s, engineapi.RequestPostDeposit, map[string]any{
			"auction_id": auction.ID,
			"bidder_id":  bidder,
			"amount":     "1550",
		})
		confirmed := callOK[core.Deposit](t, s, engineapi.RequestConfirmDeposit, map[string]string{"deposit_id": deposit.ID})
		check.Equal(t, core.DepositConfirmed, confirmed.Status)
	}

	clock.Set(t0.Add(time.Hour + time.Minute))
	eligibility := callOK[core.EligibilityResult](t, s, engineapi.RequestCheckEligibility, map[string]string{
		"auction_id": auction.ID,
		"bidder_id":  "bidder_x",
	})
	check.True(t, eligibility.Eligible)

	callOK[core.Bid](t, s, engineapi.RequestSubmitBid, map[string]string{"auction_id": auction.ID, "bidder_id": "bidder_x", "price": "8250"})

	resp := call(t, s, engineapi.RequestSubmitBid, map[string]string{"auction_id": auction.ID, "bidder_id": "bidder_y", "price": "8500"})
	check.False(t, resp.Success)
	check.Equal(t, string(core.KindStateConflict), resp.ErrorKind)
	check.Equal(t, string(core.ReasonIncrementTooSmall), resp.Reason)

	callOK[core.Bid](t, s, engineapi.RequestSubmitBid, map[string]string{"auction_id": auction.ID, "bidder_id": "bidder_y", "price": "8750"})

	bidLog := callOK[[]core.Bid](t, s, engineapi.RequestGetBidLog, map[string]string{"auction_id": auction.ID})
	assert.Equal(t, 2, len(bidLog))

	clock.Set(t0.Add(3 * time.Hour))
	settlement := callOK[engine.Settlement](t, s, engineapi.RequestSettleAuction, map[string]string{"auction_id": auction.ID})
	check.Equal(t, "bidder_y", settlement.Auction.Winner)
	assert.NotNil(t, settlement.Payment)
	check.Equal(t, "7200", settlement.Payment.TotalAmount.String())

	payment := callOK[core.WinningPayment](t, s, engineapi.RequestGetPayment, map[string]string{"auction_id": auction.ID})
	check.Equal(t, settlement.Payment.ID, payment.ID)

	// The published receipt verifies against the published key and bid log
	receiptData := callOK[engineapi.ReceiptData](t, s, engineapi.RequestGetReceipt, map[string]string{"auction_id": auction.ID})
	key := callOK[engineapi.PublicKeyData](t, s, engineapi.RequestGetReceiptPublicKey, nil)
	check.Equal(t, key.KeyID, receiptData.KeyID)

	bidLog = callOK[[]core.Bid](t, s, engineapi.RequestGetBidLog, map[string]string{"auction_id": auction.ID})
	finalPrice := settlement.Winning.Price
	result, err := validation.ValidateSettlementReceipt(&validation.ReceiptValidationInput{
		ReceiptCOSEGzip: receiptData.ReceiptCOSEGzip,
		PublicKeyPEM:    key.PublicKey,
		BidLog:          bidLog,
		BidderID:        "bidder_y",
		FinalPrice:      &finalPrice,
		IsWinner:        true,
	})
	assert.NoError(t, err)
	check.True(t, result.IsValid())
}

func TestServer_ServeRejectsWhenPoolFull(t *testing.T) {
	s, _ := newTestServer(t)
	s.maxWorkers = 1

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	// Holds the only worker until it sends a request
	busy, err := net.Dial("tcp", listener.Addr().String())
	assert.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	rejected, err := net.Dial("tcp", listener.Addr().String())
	assert.NoError(t, err)
	_ = rejected.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = rejected.Read(buf)
	check.Error(t, err)
	rejected.Close()

	assert.NoError(t, json.NewEncoder(busy).Encode(engineapi.Request{Type: engineapi.RequestPing}))
	var resp wireResponse
	assert.NoError(t, json.NewDecoder(busy).Decode(&resp))
	check.Equal(t, engineapi.ResponseTypePong, resp.Type)
	busy.Close()

	cancel()
	select {
	case err := <-done:
		check.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

func TestListen_Addresses(t *testing.T) {
	l, err := listen("tcp:127.0.0.1:0")
	assert.NoError(t, err)
	l.Close()

	_, err = listen("127.0.0.1:7450")
	check.Error(t, err)
	_, err = listen("udp:127.0.0.1:7450")
	check.Error(t, err)
	_, err = listen("vsock:port")
	check.Error(t, err)
}
