package core

import (
	"sort"
)

// RankingResult contains the ranked bidders and their highest bids.
type RankingResult struct {
	Ranks         map[string]int  `json:"ranks"`
	HighestBids   map[string]*Bid `json:"highest_bids"`
	SortedBidders []string        `json:"sorted_bidders"`
}

// Winner returns the top-ranked bid, or nil when nothing was ranked.
func (r *RankingResult) Winner() *Bid {
	if len(r.SortedBidders) == 0 {
		return nil
	}
	return r.HighestBids[r.SortedBidders[0]]
}

// RankBids ranks bidders by their highest recorded bid.
//
// Ties are broken by arrival order: the bid with the lower Sequence ranks first.
// The increment rule already prevents two accepted bids at the same price, so the
// tie-break only matters for bid logs assembled outside the engine.
func RankBids(bids []Bid) *RankingResult {
	if len(bids) == 0 {
		return &RankingResult{
			Ranks:         make(map[string]int),
			HighestBids:   make(map[string]*Bid),
			SortedBidders: make([]string, 0),
		}
	}

	// Keep the highest bid per bidder; earliest wins among equal prices
	bidderMap := make(map[string]*Bid)
	bidderOrder := make([]string, 0, len(bids))

	for i := range bids {
		bid := &bids[i]

		existing, exists := bidderMap[bid.BidderID]
		if !exists {
			bidderOrder = append(bidderOrder, bid.BidderID)
			bidderMap[bid.BidderID] = bid
			continue
		}
		if bid.Price.GreaterThan(existing.Price) ||
			(bid.Price.Equal(existing.Price) && bid.Sequence < existing.Sequence) {
			bidderMap[bid.BidderID] = bid
		}
	}

	entries := make([]*Bid, 0, len(bidderOrder))
	for _, bidder := range bidderOrder {
		entries = append(entries, bidderMap[bidder])
	}

	// Sort by price descending, then arrival ascending
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Price.Equal(entries[j].Price) {
			return entries[i].Price.GreaterThan(entries[j].Price)
		}
		return entries[i].Sequence < entries[j].Sequence
	})

	result := &RankingResult{
		Ranks:         make(map[string]int, len(entries)),
		HighestBids:   make(map[string]*Bid, len(entries)),
		SortedBidders: make([]string, len(entries)),
	}

	for rank, bid := range entries {
		result.Ranks[bid.BidderID] = rank + 1
		result.HighestBids[bid.BidderID] = bid
		result.SortedBidders[rank] = bid.BidderID
	}

	return result
}
