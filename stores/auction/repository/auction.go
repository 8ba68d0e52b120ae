package repository

import (
	"sync"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/auction"
)

// impl is the auction arena plus the append-only bid log.
type impl struct {
	mu       sync.RWMutex
	nextId   domain.AuctionId
	auctions map[domain.AuctionId]auction.Auction
	bids     map[domain.AuctionId][]auction.Bid
	// running auction per asset, at most one
	activeByAsset map[domain.AssetId]domain.AuctionId
}

func New() auction.Repo {
	return &impl{
		nextId:        1,
		auctions:      map[domain.AuctionId]auction.Auction{},
		bids:          map[domain.AuctionId][]auction.Bid{},
		activeByAsset: map[domain.AssetId]domain.AuctionId{},
	}
}

func (im *impl) Create(c ctx.Ctx, value *auction.Auction) (domain.AuctionId, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if _, ok := im.activeByAsset[value.AssetId]; ok {
		return 0, domain.ErrNFTOnAuction
	}

	value.AuctionId = im.nextId
	im.nextId++
	value.Seller = value.Seller.ToLower()
	value.Active = true
	value.Ended = false

	im.auctions[value.AuctionId] = *value
	im.activeByAsset[value.AssetId] = value.AuctionId
	return value.AuctionId, nil
}

func (im *impl) FindOne(c ctx.Ctx, id domain.AuctionId) (*auction.Auction, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	value, ok := im.auctions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &value, nil
}

func (im *impl) FindActiveByAsset(c ctx.Ctx, assetId domain.AssetId) (*auction.Auction, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	id, ok := im.activeByAsset[assetId]
	if !ok {
		return nil, domain.ErrNotFound
	}
	value := im.auctions[id]
	return &value, nil
}

func (im *impl) Update(c ctx.Ctx, id domain.AuctionId, patch auction.Patchable) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	value, ok := im.auctions[id]
	if !ok {
		return domain.ErrNotFound
	}

	if patch.ReservePrice != nil {
		value.ReservePrice = *patch.ReservePrice
	}
	if patch.EndTime != nil {
		value.EndTime = *patch.EndTime
	}
	if patch.HighestBidder != nil {
		value.HighestBidder = patch.HighestBidder.ToLower()
	}
	if patch.HighestBid != nil {
		value.HighestBid = *patch.HighestBid
	}
	if patch.BidCount != nil {
		value.BidCount = *patch.BidCount
	}
	if patch.Ended != nil {
		value.Ended = *patch.Ended
	}
	if patch.Active != nil && value.Active != *patch.Active {
		value.Active = *patch.Active
		if !value.Active {
			delete(im.activeByAsset, value.AssetId)
		} else {
			im.activeByAsset[value.AssetId] = id
		}
	}

	im.auctions[id] = value
	return nil
}

func (im *impl) AppendBid(c ctx.Ctx, bid auction.Bid) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if _, ok := im.auctions[bid.AuctionId]; !ok {
		return domain.ErrNotFound
	}
	bid.Bidder = bid.Bidder.ToLower()
	im.bids[bid.AuctionId] = append(im.bids[bid.AuctionId], bid)
	return nil
}

func (im *impl) FindBids(c ctx.Ctx, id domain.AuctionId) ([]auction.Bid, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	if _, ok := im.auctions[id]; !ok {
		return nil, domain.ErrNotFound
	}
	res := make([]auction.Bid, len(im.bids[id]))
	copy(res, im.bids[id])
	return res, nil
}
