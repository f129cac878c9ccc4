package core

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GenesisBidHash seeds the hash chain of an auction's bid log.
const GenesisBidHash = ""

// ComputeBidHash computes the chained hash of one accepted bid.
// This is used by the engine (to record hashes) and by receipt verification.
//
// Formula: SHA256(prev_hash + "|" + bid_id + "|" + bidder + "|" + price + "|" + unix_nanos)
//
// The price is formatted with exactly 2 decimal places so that "8250" and "8250.00"
// hash identically.
func ComputeBidHash(prevHash, bidID, bidder string, price decimal.Decimal, at time.Time) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d", prevHash, bidID, bidder, price.StringFixed(monetaryPrecision), at.UnixNano())
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeBidLogHash recomputes the chain over bids in sequence order and returns the head.
// An empty log hashes to GenesisBidHash.
func ComputeBidLogHash(bids []Bid) string {
	head := GenesisBidHash
	for _, bid := range bids {
		head = ComputeBidHash(head, bid.ID, bid.BidderID, bid.Price, bid.PlacedAt)
	}
	return head
}

// VerifyBidLog checks that every recorded Hash matches the recomputed chain.
// Returns the index of the first mismatching bid, or -1 when the log is intact.
func VerifyBidLog(bids []Bid) int {
	head := GenesisBidHash
	for i, bid := range bids {
		head = ComputeBidHash(head, bid.ID, bid.BidderID, bid.Price, bid.PlacedAt)
		if bid.Hash != head {
			return i
		}
	}
	return -1
}
