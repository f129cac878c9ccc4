package validation

import (
	"fmt"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/receipt"
)

var settledAt = time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC)

// bidLog builds a chained log of ascending bids alternating between bidders
func bidLog(auctionID string, prices []string, bidders ...string) []core.Bid {
	bids := make([]core.Bid, 0, len(prices))
	head := core.GenesisBidHash
	for i, p := range prices {
		bid := core.Bid{
			ID:        fmt.Sprintf("bid-%d", i+1),
			AuctionID: auctionID,
			BidderID:  bidders[i%len(bidders)],
			Price:     decimal.RequireFromString(p),
			PlacedAt:  settledAt.Add(-time.Hour + time.Duration(i)*time.Minute),
			Sequence:  int64(i + 1),
			Validity:  core.BidSuperseded,
		}
		head = core.ComputeBidHash(head, bid.ID, bid.BidderID, bid.Price, bid.PlacedAt)
		bid.Hash = head
		bids = append(bids, bid)
	}
	if len(bids) > 0 {
		bids[len(bids)-1].Validity = core.BidWinning
	}
	return bids
}

// settlementReceipt describes the outcome of bids with a 1550 deposit
func settlementReceipt(bids []core.Bid) receipt.SettlementReceipt {
	r := receipt.SettlementReceipt{
		AuctionID:  "auction-1",
		ParcelID:   "parcel-0731",
		BidCount:   len(bids),
		BidLogHash: core.ComputeBidLogHash(bids),
		SettledAt:  settledAt,
	}
	if len(bids) > 0 {
		last := bids[len(bids)-1]
		deposit := decimal.RequireFromString("1550")
		due := settledAt.Add(core.DefaultPaymentGracePeriod)
		r.Winner = last.BidderID
		r.WinningBidID = last.ID
		r.FinalPrice = last.Price.StringFixed(2)
		r.WinnerDeposit = deposit.StringFixed(2)
		r.AmountDue = core.AmountDue(last.Price, deposit).StringFixed(2)
		r.PaymentID = "payment-1"
		r.DueDate = &due
	}
	return r
}

// signReceipt signs r with a fresh key and returns the base64 receipt and its public key
func signReceipt(t *testing.T, r receipt.SettlementReceipt) (engineapi.ReceiptCOSEBase64, string) {
	t.Helper()
	km, err := receipt.NewKeyManager()
	assert.NoError(t, err)
	return signWith(t, km, r), publicKeyOf(t, km)
}

func signWith(t *testing.T, km *receipt.KeyManager, r receipt.SettlementReceipt) engineapi.ReceiptCOSEBase64 {
	t.Helper()
	signed, err := km.Sign(r)
	assert.NoError(t, err)
	return engineapi.ReceiptCOSE(signed).EncodeBase64()
}

func publicKeyOf(t *testing.T, km *receipt.KeyManager) string {
	t.Helper()
	pemStr, err := km.PublicKeyPEM()
	assert.NoError(t, err)
	return pemStr
}
