package collection

import (
	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/shopspring/decimal"
)

// MaxRoyaltyBps caps the royalty a collection can claim, so that
// platform fee + royalty never consume a full sale amount.
const MaxRoyaltyBps = 4000

type Collection struct {
	CollectionId domain.CollectionId `json:"collectionId" bson:"collectionId"`
	Name         string              `json:"name" bson:"name"`
	Creator      domain.Address      `json:"creator" bson:"creator"`
	RoyaltyBps   int64               `json:"royaltyBps" bson:"royaltyBps"`
	FloorPrice   decimal.Decimal     `json:"floorPrice" bson:"floorPrice"`
	MintedSupply int64               `json:"mintedSupply" bson:"mintedSupply"`
}

// Repo is the collection metadata store consumed by the engine. Floor price
// and supply are maintained by an indexer outside this engine; the offer
// book only reads them.
type Repo interface {
	FindOne(c ctx.Ctx, id domain.CollectionId) (*Collection, error)
	// Register fails with domain.ErrBadParamInput when royaltyBps is
	// negative or above MaxRoyaltyBps.
	Register(c ctx.Ctx, value Collection) error
	UpdateFloorPrice(c ctx.Ctx, id domain.CollectionId, price decimal.Decimal) error
}
