package usecase

import (
	"time"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/base/ptr"
	"github.com/mintleaf/goapi/base/txn"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/asset"
	"github.com/mintleaf/goapi/domain/auction"
	"github.com/mintleaf/goapi/domain/collection"
	"github.com/mintleaf/goapi/domain/ledger"
	"github.com/mintleaf/goapi/domain/listing"
	"github.com/mintleaf/goapi/domain/offer"
	"github.com/mintleaf/goapi/domain/settlement"
	"github.com/shopspring/decimal"
)

const escrowKind = "offer"

type OfferUseCaseCfg struct {
	OfferRepo      offer.Repo
	CollectionRepo collection.Repo
	ListingRepo    listing.Repo
	AuctionUC      auction.Usecase
	AssetRegistry  asset.Registry
	Ledger         ledger.Ledger
	SettlementUC   settlement.Usecase
	Clock          domain.Clock
	Gate           *txn.Gate
	MinDuration    time.Duration
	MaxDuration    time.Duration
}

type impl struct {
	offerRepo      offer.Repo
	collectionRepo collection.Repo
	listingRepo    listing.Repo
	auctionUC      auction.Usecase
	assetRegistry  asset.Registry
	ledger         ledger.Ledger
	settlementUC   settlement.Usecase
	clock          domain.Clock
	gate           *txn.Gate
	minDuration    time.Duration
	maxDuration    time.Duration
}

func New(cfg *OfferUseCaseCfg) offer.Usecase {
	return &impl{
		offerRepo:      cfg.OfferRepo,
		collectionRepo: cfg.CollectionRepo,
		listingRepo:    cfg.ListingRepo,
		auctionUC:      cfg.AuctionUC,
		assetRegistry:  cfg.AssetRegistry,
		ledger:         cfg.Ledger,
		settlementUC:   cfg.SettlementUC,
		clock:          cfg.Clock,
		gate:           cfg.Gate,
		minDuration:    cfg.MinDuration,
		maxDuration:    cfg.MaxDuration,
	}
}

// PlaceCollectionOffer escrows the full amount. The floor price check
// happens once, here; it is not re-validated over the offer's life. An
// existing active offer for the same pair is refunded and superseded.
func (im *impl) PlaceCollectionOffer(c ctx.Ctx, value offer.PlacePayload) (*offer.CollectionOffer, error) {
	var res *offer.CollectionOffer
	err := im.gate.Do(c, func(c ctx.Ctx) error {
		coll, err := im.collectionRepo.FindOne(c, value.CollectionId)
		if err != nil {
			c.WithField("err", err).Error("collectionRepo.FindOne failed")
			return err
		}

		if value.NftCount < 1 || int64(value.NftCount) > coll.MintedSupply {
			return domain.ErrInvalidNFTCount
		}
		if value.Duration < im.minDuration || value.Duration > im.maxDuration {
			return domain.ErrInvalidOfferDuration
		}
		if !value.Amount.IsPositive() {
			return domain.ErrInvalidPrice
		}
		minAmount := coll.FloorPrice.Mul(decimal.NewFromInt32(value.NftCount))
		if value.Amount.LessThan(minAmount) {
			return domain.ErrOfferBelowFloorPrice
		}

		// replace policy: a live offer for the pair is refunded and
		// superseded. Its escrow counts toward the balance check, and it is
		// only released once the replacement is sure to go through.
		var existing *offer.CollectionOffer
		if o, err := im.offerRepo.FindActive(c, value.CollectionId, value.Offerer); err == nil {
			switch _, err := im.resolveOffer(c, o); err {
			case nil:
				existing = o
			case domain.ErrNoActiveOffer:
			default:
				return err
			}
		} else if err != domain.ErrNotFound {
			return err
		}

		balance, err := im.ledger.BalanceOf(c, value.Offerer)
		if err != nil {
			return err
		}
		if existing != nil {
			balance = balance.Add(existing.Amount)
		}
		if balance.LessThan(value.Amount) {
			return domain.ErrInsufficientFunds
		}

		if existing != nil {
			if err := im.releaseEscrow(c, existing, offer.StatusWithdrawn); err != nil {
				return err
			}
		}

		now := im.clock.Now()
		o := &offer.CollectionOffer{
			CollectionId: value.CollectionId,
			Offerer:      value.Offerer,
			Amount:       value.Amount,
			NftCount:     value.NftCount,
			CreatedAt:    now,
			ExpiresAt:    now.Add(value.Duration),
		}
		if _, err := im.offerRepo.Create(c, o); err != nil {
			c.WithField("err", err).Error("offerRepo.Create failed")
			return err
		}

		esc := domain.EscrowAccount(escrowKind, int64(o.OfferId))
		if err := im.ledger.Transfer(c, value.Offerer, esc, value.Amount); err != nil {
			c.WithField("err", err).Error("offer escrow failed")
			return err
		}

		res = o
		return nil
	})
	return res, err
}

func (im *impl) WithdrawCollectionOffer(c ctx.Ctx, collectionId domain.CollectionId, offerer domain.Address) error {
	return im.gate.Do(c, func(c ctx.Ctx) error {
		o, err := im.offerRepo.FindActive(c, collectionId, offerer)
		if err == domain.ErrNotFound {
			return domain.ErrNoActiveOffer
		} else if err != nil {
			return err
		}

		if _, err := im.resolveOffer(c, o); err != nil {
			return err
		}

		return im.releaseEscrow(c, o, offer.StatusWithdrawn)
	})
}

// AcceptCollectionOfferAndDelist settles every asset against the escrowed
// amount as one atomic batch. Any failing per-asset precondition rejects
// the whole batch before a single transfer happens, and the offer stays
// active.
func (im *impl) AcceptCollectionOfferAndDelist(c ctx.Ctx, value offer.AcceptPayload) (*offer.AcceptResult, error) {
	var res *offer.AcceptResult
	err := im.gate.Do(c, func(c ctx.Ctx) error {
		o, err := im.offerRepo.FindActive(c, value.CollectionId, value.Offerer)
		if err == domain.ErrNotFound {
			return domain.ErrNoActiveOffer
		} else if err != nil {
			return err
		}

		if _, err := im.resolveOffer(c, o); err != nil {
			return err
		}

		if int32(len(value.AssetIds)) != o.NftCount {
			return domain.ErrInvalidNFTCount
		}
		seen := map[domain.AssetId]bool{}
		for _, assetId := range value.AssetIds {
			if seen[assetId] {
				return domain.ErrBadParamInput
			}
			seen[assetId] = true
		}

		// every precondition is checked before any mutation
		for _, assetId := range value.AssetIds {
			owner, err := im.assetRegistry.OwnerOf(c, assetId)
			if err != nil {
				c.WithField("err", err).Error("assetRegistry.OwnerOf failed")
				return err
			}
			if !owner.Equals(value.Seller) {
				return domain.ErrNotTokenOwner
			}
		}
		auctions, err := im.sweepableAuctions(c, value.AssetIds)
		if err != nil {
			return err
		}

		params := im.settleParams(o, value)
		settlements, err := im.settlementUC.SettleBatch(c, params)
		if err != nil {
			return err
		}

		// the sweep de-lists every asset it takes
		for _, a := range auctions {
			if err := im.auctionUC.CancelAuction(c, a.AuctionId, a.Seller); err != nil {
				c.WithField("err", err).Error("auctionUC.CancelAuction failed")
				return err
			}
		}
		for _, assetId := range value.AssetIds {
			if err := im.deactivateListing(c, assetId); err != nil {
				return err
			}
		}

		accepted := offer.StatusAccepted
		if err := im.offerRepo.Update(c, o.OfferId, offer.Patchable{Status: &accepted}); err != nil {
			c.WithField("err", err).Error("offerRepo.Update failed")
			return err
		}

		o.Status = offer.StatusAccepted
		res = &offer.AcceptResult{Offer: o, Settlements: settlements}
		return nil
	})
	return res, err
}

func (im *impl) GetUserCollectionOffers(c ctx.Ctx, offerer domain.Address) ([]*offer.CollectionOffer, error) {
	var res []*offer.CollectionOffer
	err := im.gate.Do(c, func(c ctx.Ctx) error {
		offers, err := im.offerRepo.FindByOfferer(c, offerer)
		if err != nil {
			return err
		}
		for _, o := range offers {
			if _, err := im.resolveOffer(c, o); err != nil && err != domain.ErrNoActiveOffer {
				return err
			}
		}
		res = offers
		return nil
	})
	return res, err
}

func (im *impl) GetOfferById(c ctx.Ctx, id domain.OfferId) (*offer.CollectionOffer, error) {
	var res *offer.CollectionOffer
	err := im.gate.Do(c, func(c ctx.Ctx) error {
		o, err := im.offerRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if _, err := im.resolveOffer(c, o); err != nil && err != domain.ErrNoActiveOffer {
			return err
		}
		res = o
		return nil
	})
	return res, err
}

// resolveOffer is the single lazy-expiry point. An active offer past its
// expiration is marked expired and its escrow refunded as a side effect of
// the triggering call; the caller then sees ErrNoActiveOffer.
func (im *impl) resolveOffer(c ctx.Ctx, o *offer.CollectionOffer) (*offer.CollectionOffer, error) {
	if !o.IsActive() {
		return o, domain.ErrNoActiveOffer
	}
	if im.clock.Now().After(o.ExpiresAt) {
		if err := im.releaseEscrow(c, o, offer.StatusExpired); err != nil {
			return nil, err
		}
		return o, domain.ErrNoActiveOffer
	}
	return o, nil
}

func (im *impl) releaseEscrow(c ctx.Ctx, o *offer.CollectionOffer, status offer.Status) error {
	esc := domain.EscrowAccount(escrowKind, int64(o.OfferId))
	if err := im.ledger.Transfer(c, esc, o.Offerer, o.Amount); err != nil {
		c.WithField("err", err).Error("offer escrow refund failed")
		return err
	}
	if err := im.offerRepo.Update(c, o.OfferId, offer.Patchable{Status: &status}); err != nil {
		c.WithField("err", err).Error("offerRepo.Update failed")
		return err
	}
	o.Status = status
	return nil
}

// sweepableAuctions collects the bidless running auctions on the swept
// assets. An asset whose auction holds bids cannot be swept; committed
// bidders may only be resolved through EndAuction. The auctions themselves
// are returned so the sweep cancels each with its recorded seller — a stale
// auction opened by a previous owner must not abort the sweep after the
// settlement has committed.
func (im *impl) sweepableAuctions(c ctx.Ctx, assetIds []domain.AssetId) ([]*auction.Auction, error) {
	res := []*auction.Auction{}
	for _, assetId := range assetIds {
		l, err := im.listingRepo.FindActiveByAsset(c, assetId)
		if err == domain.ErrNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		if l.AuctionId == 0 {
			continue
		}
		a, err := im.auctionUC.GetAuction(c, l.AuctionId)
		if err != nil {
			return nil, err
		}
		if a.Ended {
			continue
		}
		if a.HasBids() {
			return nil, domain.ErrNFTOnAuction
		}
		res = append(res, a)
	}
	return res, nil
}

// settleParams splits the offer amount into per-asset prices, allocating
// the division remainder to the last asset so the settled sum matches the
// escrowed amount exactly.
func (im *impl) settleParams(o *offer.CollectionOffer, value offer.AcceptPayload) []settlement.SettleParams {
	esc := domain.EscrowAccount(escrowKind, int64(o.OfferId))
	unit := o.PerAssetPrice()
	params := make([]settlement.SettleParams, 0, len(value.AssetIds))
	for i, assetId := range value.AssetIds {
		price := unit
		if i == len(value.AssetIds)-1 {
			price = o.Amount.Sub(unit.Mul(decimal.NewFromInt(int64(len(value.AssetIds) - 1))))
		}
		params = append(params, settlement.SettleParams{
			AssetId:      assetId,
			CollectionId: o.CollectionId,
			Seller:       value.Seller,
			Buyer:        o.Offerer,
			GrossAmount:  price,
			Payment:      price,
			PayFrom:      esc,
			Kind:         settlement.SaleKindOffer,
		})
	}
	return params
}

func (im *impl) deactivateListing(c ctx.Ctx, assetId domain.AssetId) error {
	l, err := im.listingRepo.FindActiveByAsset(c, assetId)
	if err == domain.ErrNotFound {
		return nil
	} else if err != nil {
		return err
	}

	now := im.clock.Now()
	return im.listingRepo.Update(c, l.ListingId, listing.Patchable{
		IsActive:  ptr.Bool(false),
		UpdatedAt: &now,
	})
}
