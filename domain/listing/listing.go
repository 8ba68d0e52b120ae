package listing

import (
	"time"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/auction"
	"github.com/mintleaf/goapi/domain/settlement"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeSale    Type = "sale"
	TypeAuction Type = "auction"
	TypeBoth    Type = "both"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeSale, TypeAuction, TypeBoth:
		return true
	}
	return false
}

func (t Type) HasSale() bool {
	return t == TypeSale || t == TypeBoth
}

func (t Type) HasAuction() bool {
	return t == TypeAuction || t == TypeBoth
}

type Listing struct {
	ListingId    domain.ListingId    `json:"listingId" bson:"listingId"`
	Seller       domain.Address      `json:"seller" bson:"seller"`
	AssetId      domain.AssetId      `json:"assetId" bson:"assetId"`
	CollectionId domain.CollectionId `json:"collectionId" bson:"collectionId"`
	Price        decimal.Decimal     `json:"price" bson:"price"`
	Type         Type                `json:"type" bson:"type"`
	// set iff Type includes auction
	AuctionId domain.AuctionId `json:"auctionId,omitempty" bson:"auctionId"`
	IsActive  bool             `json:"isActive" bson:"isActive"`
	CreatedAt time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt" bson:"updatedAt"`
}

type Patchable struct {
	Price     *decimal.Decimal
	Type      *Type
	IsActive  *bool
	UpdatedAt *time.Time
}

type CreatePayload struct {
	Seller       domain.Address      `json:"-"`
	AssetId      domain.AssetId      `json:"assetId" validate:"required"`
	CollectionId domain.CollectionId `json:"collectionId" validate:"required"`
	Price        decimal.Decimal     `json:"price"`
	Type         Type                `json:"type" validate:"required"`
	// required when Type includes auction
	StartingPrice decimal.Decimal `json:"startingPrice"`
	ReservePrice  decimal.Decimal `json:"reservePrice"`
	Duration      time.Duration   `json:"duration"`
}

// Listings are kept for history once deactivated; the repo never deletes.
type Repo interface {
	Create(c ctx.Ctx, value *Listing) (domain.ListingId, error)
	FindOne(c ctx.Ctx, id domain.ListingId) (*Listing, error)
	// FindActiveByAsset returns domain.ErrNotFound when the asset has no
	// active listing.
	FindActiveByAsset(c ctx.Ctx, assetId domain.AssetId) (*Listing, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptions) ([]*Listing, error)
	Count(c ctx.Ctx, opts ...FindAllOptions) (int, error)
	Update(c ctx.Ctx, id domain.ListingId, patch Patchable) error
}

type Usecase interface {
	CreateListing(c ctx.Ctx, value CreatePayload) (*Listing, error)
	CancelListing(c ctx.Ctx, id domain.ListingId, caller domain.Address) error
	UpdateListingPrice(c ctx.Ctx, id domain.ListingId, newPrice decimal.Decimal, caller domain.Address) error
	BuyNow(c ctx.Ctx, id domain.ListingId, payment decimal.Decimal, buyer domain.Address) (*settlement.Result, error)
	GetListingDetails(c ctx.Ctx, id domain.ListingId) (*Detail, error)
	GetActiveListings(c ctx.Ctx, offset, limit int32) (*SearchResult, error)
	GetCollectionListings(c ctx.Ctx, collectionId domain.CollectionId) ([]*Listing, error)
	GetCreatorListings(c ctx.Ctx, seller domain.Address) ([]*Listing, error)
	IsNFTListed(c ctx.Ctx, assetId domain.AssetId) (bool, error)
	GetFilteredListings(c ctx.Ctx, params FilterParams) (*SearchResult, error)
}

type Detail struct {
	Listing `bson:"inline"`
	// present when the listing has an associated auction
	Auction *auction.Auction `json:"auction,omitempty"`
}

type SearchResult struct {
	Items []*Listing `json:"items"`
	Count int        `json:"count"`
}
