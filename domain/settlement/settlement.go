package settlement

import (
	"time"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/shopspring/decimal"
)

type SaleKind string

const (
	SaleKindDirect  SaleKind = "sale"
	SaleKindAuction SaleKind = "auction"
	SaleKindOffer   SaleKind = "offer"
)

// Result is the fund split of one sale. PlatformFee + RoyaltyFee +
// SellerProceeds always equals the gross amount, and GrossAmount +
// ExcessRefund equals the payment.
type Result struct {
	PlatformFee    decimal.Decimal `json:"platformFee"`
	RoyaltyFee     decimal.Decimal `json:"royaltyFee"`
	SellerProceeds decimal.Decimal `json:"sellerProceeds"`
	ExcessRefund   decimal.Decimal `json:"excessRefund"`
}

type SettleParams struct {
	AssetId      domain.AssetId
	CollectionId domain.CollectionId
	Seller       domain.Address
	Buyer        domain.Address
	// GrossAmount is the agreed price; Payment is what the buyer put up.
	// Payment >= GrossAmount, the difference is refunded.
	GrossAmount decimal.Decimal
	Payment     decimal.Decimal
	// PayFrom is the account the funds are drawn from: the buyer for a
	// direct sale, an escrow account for auction and offer settlements.
	PayFrom domain.Address
	Kind    SaleKind
}

// Usecase computes and disburses the platform fee, royalty and seller
// proceeds atomically with the asset transfer. Any failing leg rolls the
// whole settlement back.
type Usecase interface {
	Settle(c ctx.Ctx, params SettleParams) (*Result, error)
	// SettleBatch settles several assets as one atomic unit: either every
	// fund movement and asset transfer applies, or none do.
	SettleBatch(c ctx.Ctx, params []SettleParams) ([]*Result, error)
	ItemsSold(c ctx.Ctx, seller domain.Address) (int64, error)
}

type SaleRecord struct {
	Id           string              `json:"id" bson:"id"`
	AssetId      domain.AssetId      `json:"assetId" bson:"assetId"`
	CollectionId domain.CollectionId `json:"collectionId" bson:"collectionId"`
	Seller       domain.Address      `json:"seller" bson:"seller"`
	Buyer        domain.Address      `json:"buyer" bson:"buyer"`
	Price        decimal.Decimal     `json:"price" bson:"price"`
	PlatformFee  decimal.Decimal     `json:"platformFee" bson:"platformFee"`
	RoyaltyFee   decimal.Decimal     `json:"royaltyFee" bson:"royaltyFee"`
	Kind         SaleKind            `json:"kind" bson:"kind"`
	SoldAt       time.Time           `json:"soldAt" bson:"soldAt"`
}

// SaleRecordRepo is the indexing sink for sale history. It is written
// outside the transaction boundary; engine correctness never depends on it.
type SaleRecordRepo interface {
	Insert(c ctx.Ctx, record SaleRecord) error
	// FindById returns domain.ErrNotFound when no record carries the id
	FindById(c ctx.Ctx, id string) (*SaleRecord, error)
	FindByCollection(c ctx.Ctx, id domain.CollectionId, offset, limit int32) ([]*SaleRecord, error)
	CountByCollection(c ctx.Ctx, id domain.CollectionId) (int64, error)
}

type SaleSearchResult struct {
	Items []*SaleRecord `json:"items"`
	Count int64         `json:"count"`
}
