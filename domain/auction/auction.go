package auction

import (
	"time"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/settlement"
	"github.com/shopspring/decimal"
)

// Auction is the bidding state machine for one listed asset.
// Created -> Active -> {Ended | Cancelled}; Ended and Cancelled are terminal.
// While active, exactly the current highest bid is escrowed; every
// superseded bid has been refunded at the moment it was outbid.
type Auction struct {
	AuctionId    domain.AuctionId    `json:"auctionId" bson:"auctionId"`
	Seller       domain.Address      `json:"seller" bson:"seller"`
	AssetId      domain.AssetId      `json:"assetId" bson:"assetId"`
	CollectionId domain.CollectionId `json:"collectionId" bson:"collectionId"`

	StartingPrice decimal.Decimal `json:"startingPrice" bson:"startingPrice"`
	ReservePrice  decimal.Decimal `json:"reservePrice" bson:"reservePrice"`
	StartTime     time.Time       `json:"startTime" bson:"startTime"`
	EndTime       time.Time       `json:"endTime" bson:"endTime"`

	HighestBidder domain.Address  `json:"highestBidder" bson:"highestBidder"`
	HighestBid    decimal.Decimal `json:"highestBid" bson:"highestBid"`
	BidCount      int             `json:"bidCount" bson:"bidCount"`

	Active bool `json:"active" bson:"active"`
	Ended  bool `json:"ended" bson:"ended"`
}

func (a *Auction) HasBids() bool {
	return a.BidCount > 0
}

// Bid is one entry of the append-only bid log, kept for auditability.
// Escrowed funds are tracked on the auction itself, not here.
type Bid struct {
	AuctionId domain.AuctionId `json:"auctionId" bson:"auctionId"`
	Bidder    domain.Address   `json:"bidder" bson:"bidder"`
	Amount    decimal.Decimal  `json:"amount" bson:"amount"`
	BidTime   time.Time        `json:"bidTime" bson:"bidTime"`
}

type CreateParams struct {
	Seller        domain.Address
	AssetId       domain.AssetId
	CollectionId  domain.CollectionId
	StartingPrice decimal.Decimal
	ReservePrice  decimal.Decimal
	Duration      time.Duration
}

type Patchable struct {
	ReservePrice  *decimal.Decimal
	EndTime       *time.Time
	HighestBidder *domain.Address
	HighestBid    *decimal.Decimal
	BidCount      *int
	Active        *bool
	Ended         *bool
}

// EndResult reports how an auction resolved. Reserve-not-met is an expected
// outcome, not an error: Sold is false and the highest bidder was refunded.
type EndResult struct {
	Sold       bool               `json:"sold"`
	Winner     domain.Address     `json:"winner,omitempty"`
	Settlement *settlement.Result `json:"settlement,omitempty"`
}

type Repo interface {
	Create(c ctx.Ctx, value *Auction) (domain.AuctionId, error)
	FindOne(c ctx.Ctx, id domain.AuctionId) (*Auction, error)
	// FindActiveByAsset returns domain.ErrNotFound when the asset has no
	// running auction.
	FindActiveByAsset(c ctx.Ctx, assetId domain.AssetId) (*Auction, error)
	Update(c ctx.Ctx, id domain.AuctionId, patch Patchable) error
	AppendBid(c ctx.Ctx, bid Bid) error
	FindBids(c ctx.Ctx, id domain.AuctionId) ([]Bid, error)
}

type Usecase interface {
	CreateAuction(c ctx.Ctx, params CreateParams) (*Auction, error)
	PlaceBid(c ctx.Ctx, id domain.AuctionId, amount decimal.Decimal, bidder domain.Address) error
	EndAuction(c ctx.Ctx, id domain.AuctionId) (*EndResult, error)
	CancelAuction(c ctx.Ctx, id domain.AuctionId, caller domain.Address) error
	ExtendAuction(c ctx.Ctx, id domain.AuctionId, extraDuration time.Duration, caller domain.Address) error
	UpdateReservePrice(c ctx.Ctx, id domain.AuctionId, newReserve decimal.Decimal, caller domain.Address) error
	WithdrawBid(c ctx.Ctx, id domain.AuctionId, bidder domain.Address) error
	GetAuction(c ctx.Ctx, id domain.AuctionId) (*Auction, error)
	GetBids(c ctx.Ctx, id domain.AuctionId) ([]Bid, error)
	CanEndAuction(c ctx.Ctx, id domain.AuctionId) (bool, error)
}
