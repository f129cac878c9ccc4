package engine

import (
	"context"
	"sort"

	"github.com/openland/landauction/core"
)

// GetAuction returns an auction as of now, after any due transitions.
func (e *Engine) GetAuction(ctx context.Context, auctionID string) (*core.Auction, error) {
	var out core.Auction
	err := e.withAuction(ctx, auctionID, func(o *op) error {
		out = o.st.auction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAuctions returns auctions matching filter ordered by open time.
func (e *Engine) ListAuctions(ctx context.Context, filter AuctionFilter) ([]core.Auction, error) {
	if err := e.validate.check(filter); err != nil {
		return nil, err
	}

	var out []core.Auction
	err := e.eachAuction(ctx, func(o *op) {
		a := o.st.auction
		if filter.ParcelID != "" && a.ParcelID != filter.ParcelID {
			return
		}
		if filter.Status != "" && a.Status != filter.Status {
			return
		}
		if filter.OpenFrom != nil && a.OpenTime.Before(*filter.OpenFrom) {
			return
		}
		if filter.CloseTo != nil && a.CloseTime.After(*filter.CloseTo) {
			return
		}
		out = append(out, a)
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenTime.Equal(out[j].OpenTime) {
			return out[i].OpenTime.Before(out[j].OpenTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
