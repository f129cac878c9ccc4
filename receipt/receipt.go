package receipt

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// SettlementReceipt is the signed record of an auction's outcome.
// Money fields are decimal strings with fen precision; empty Winner means no bids.
type SettlementReceipt struct {
	AuctionID     string     `cbor:"auction_id" json:"auction_id"`
	ParcelID      string     `cbor:"parcel_id" json:"parcel_id"`
	Winner        string     `cbor:"winner,omitempty" json:"winner,omitempty"`
	WinningBidID  string     `cbor:"winning_bid_id,omitempty" json:"winning_bid_id,omitempty"`
	FinalPrice    string     `cbor:"final_price,omitempty" json:"final_price,omitempty"`
	WinnerDeposit string     `cbor:"winner_deposit,omitempty" json:"winner_deposit,omitempty"`
	AmountDue     string     `cbor:"amount_due,omitempty" json:"amount_due,omitempty"`
	PaymentID     string     `cbor:"payment_id,omitempty" json:"payment_id,omitempty"`
	DueDate       *time.Time `cbor:"due_date,omitempty" json:"due_date,omitempty"`
	BidCount      int        `cbor:"bid_count" json:"bid_count"`
	BidLogHash    string     `cbor:"bid_log_hash" json:"bid_log_hash"`
	SettledAt     time.Time  `cbor:"settled_at" json:"settled_at"`
}

// HasWinner reports whether the auction settled with a winning bid.
func (r *SettlementReceipt) HasWinner() bool {
	return r.Winner != ""
}

var receiptEncMode, receiptDecMode = mustReceiptModes()

func mustReceiptModes() (cbor.EncMode, cbor.DecMode) {
	// Core deterministic encoding so that equal receipts produce equal signed bytes
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	enc, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor dec mode: %v", err))
	}
	return enc, dec
}

// Marshal encodes the receipt as deterministic CBOR.
func (r *SettlementReceipt) Marshal() ([]byte, error) {
	data, err := receiptEncMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a CBOR receipt payload.
func Unmarshal(data []byte) (*SettlementReceipt, error) {
	var r SettlementReceipt
	if err := receiptDecMode.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}
	return &r, nil
}
