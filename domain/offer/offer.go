package offer

import (
	"time"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/settlement"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusWithdrawn Status = "withdrawn"
	StatusExpired   Status = "expired"
	StatusAccepted  Status = "accepted"
)

// CollectionOffer is a standing bid to buy NftCount assets from any seller
// within a collection for Amount in total. Amount is escrowed for the life
// of the offer. Expiry is evaluated lazily by the next touching operation.
type CollectionOffer struct {
	OfferId      domain.OfferId      `json:"offerId" bson:"offerId"`
	CollectionId domain.CollectionId `json:"collectionId" bson:"collectionId"`
	Offerer      domain.Address      `json:"offerer" bson:"offerer"`
	Amount       decimal.Decimal     `json:"amount" bson:"amount"`
	NftCount     int32               `json:"nftCount" bson:"nftCount"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
	ExpiresAt    time.Time           `json:"expiresAt" bson:"expiresAt"`
	Status       Status              `json:"status" bson:"status"`
}

func (o *CollectionOffer) IsActive() bool {
	return o.Status == StatusActive
}

// PerAssetPrice is the implied unit price. The remainder of the integer
// division is allocated to the last asset at acceptance so the settled sum
// matches Amount exactly.
func (o *CollectionOffer) PerAssetPrice() decimal.Decimal {
	return o.Amount.Div(decimal.NewFromInt32(o.NftCount)).Truncate(18)
}

type PlacePayload struct {
	Offerer      domain.Address      `json:"-"`
	CollectionId domain.CollectionId `json:"collectionId" validate:"required"`
	NftCount     int32               `json:"nftCount" validate:"required"`
	Amount       decimal.Decimal     `json:"amount"`
	Duration     time.Duration       `json:"duration"`
}

type AcceptPayload struct {
	Seller       domain.Address      `json:"-"`
	CollectionId domain.CollectionId `json:"collectionId" validate:"required"`
	Offerer      domain.Address      `json:"offerer" validate:"required"`
	AssetIds     []domain.AssetId    `json:"assetIds" validate:"required"`
}

type AcceptResult struct {
	Offer       *CollectionOffer     `json:"offer"`
	Settlements []*settlement.Result `json:"settlements"`
}

type Patchable struct {
	Status *Status
}

type Repo interface {
	Create(c ctx.Ctx, value *CollectionOffer) (domain.OfferId, error)
	FindOne(c ctx.Ctx, id domain.OfferId) (*CollectionOffer, error)
	// FindActive returns domain.ErrNotFound when the (offerer, collection)
	// pair has no offer with StatusActive.
	FindActive(c ctx.Ctx, collectionId domain.CollectionId, offerer domain.Address) (*CollectionOffer, error)
	FindByOfferer(c ctx.Ctx, offerer domain.Address) ([]*CollectionOffer, error)
	Update(c ctx.Ctx, id domain.OfferId, patch Patchable) error
}

type Usecase interface {
	// PlaceCollectionOffer escrows the amount. An existing active offer for
	// the same (offerer, collection) pair is refunded and superseded.
	PlaceCollectionOffer(c ctx.Ctx, value PlacePayload) (*CollectionOffer, error)
	WithdrawCollectionOffer(c ctx.Ctx, collectionId domain.CollectionId, offerer domain.Address) error
	// AcceptCollectionOfferAndDelist settles every asset, transfers them to
	// the offerer and deactivates their listings as one atomic batch.
	AcceptCollectionOfferAndDelist(c ctx.Ctx, value AcceptPayload) (*AcceptResult, error)
	GetUserCollectionOffers(c ctx.Ctx, offerer domain.Address) ([]*CollectionOffer, error)
	GetOfferById(c ctx.Ctx, id domain.OfferId) (*CollectionOffer, error)
}
