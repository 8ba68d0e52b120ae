package usecase

import (
	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/base/ptr"
	"github.com/mintleaf/goapi/base/txn"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/asset"
	"github.com/mintleaf/goapi/domain/auction"
	"github.com/mintleaf/goapi/domain/listing"
	"github.com/mintleaf/goapi/domain/settlement"
	"github.com/shopspring/decimal"
)

type ListingUseCaseCfg struct {
	ListingRepo   listing.Repo
	AuctionUC     auction.Usecase
	AssetRegistry asset.Registry
	SettlementUC  settlement.Usecase
	Clock         domain.Clock
	Gate          *txn.Gate
	MaxPageSize   int32
}

type impl struct {
	listingRepo   listing.Repo
	auctionUC     auction.Usecase
	assetRegistry asset.Registry
	settlementUC  settlement.Usecase
	clock         domain.Clock
	gate          *txn.Gate
	maxPageSize   int32
}

func New(cfg *ListingUseCaseCfg) listing.Usecase {
	return &impl{
		listingRepo:   cfg.ListingRepo,
		auctionUC:     cfg.AuctionUC,
		assetRegistry: cfg.AssetRegistry,
		settlementUC:  cfg.SettlementUC,
		clock:         cfg.Clock,
		gate:          cfg.Gate,
		maxPageSize:   cfg.MaxPageSize,
	}
}

func (im *impl) CreateListing(c ctx.Ctx, value listing.CreatePayload) (*listing.Listing, error) {
	var res *listing.Listing
	err := im.gate.Do(c, func(c ctx.Ctx) error {
		if !value.Type.IsValid() {
			return domain.ErrInvalidListingType
		}
		if !value.Price.IsPositive() {
			return domain.ErrInvalidPrice
		}

		owner, err := im.assetRegistry.OwnerOf(c, value.AssetId)
		if err != nil {
			c.WithField("err", err).Error("assetRegistry.OwnerOf failed")
			return err
		}
		if !owner.Equals(value.Seller) {
			return domain.ErrNotOwner
		}

		if _, err := im.listingRepo.FindActiveByAsset(c, value.AssetId); err == nil {
			return domain.ErrAlreadyListed
		} else if err != domain.ErrNotFound {
			return err
		}

		now := im.clock.Now()
		l := &listing.Listing{
			Seller:       value.Seller,
			AssetId:      value.AssetId,
			CollectionId: value.CollectionId,
			Price:        value.Price,
			Type:         value.Type,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if value.Type.HasAuction() {
			a, err := im.auctionUC.CreateAuction(c, auction.CreateParams{
				Seller:        value.Seller,
				AssetId:       value.AssetId,
				CollectionId:  value.CollectionId,
				StartingPrice: value.StartingPrice,
				ReservePrice:  value.ReservePrice,
				Duration:      value.Duration,
			})
			if err != nil {
				return err
			}
			l.AuctionId = a.AuctionId
		}

		if _, err := im.listingRepo.Create(c, l); err != nil {
			c.WithField("err", err).Error("listingRepo.Create failed")
			return err
		}
		res = l
		return nil
	})
	return res, err
}

// CancelListing refuses to cancel while an associated auction holds bids;
// bidders are made whole through EndAuction, never by silent cancellation.
func (im *impl) CancelListing(c ctx.Ctx, id domain.ListingId, caller domain.Address) error {
	return im.gate.Do(c, func(c ctx.Ctx) error {
		l, err := im.listingRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !l.Seller.Equals(caller) {
			return domain.ErrNotSeller
		}
		if !l.IsActive {
			return domain.ErrListingNotActive
		}

		if l.AuctionId != 0 {
			a, err := im.auctionUC.GetAuction(c, l.AuctionId)
			if err != nil {
				return err
			}
			if a.HasBids() && !a.Ended {
				return domain.ErrOnAuctionWithBids
			}
			if !a.Ended {
				if err := im.auctionUC.CancelAuction(c, l.AuctionId, caller); err != nil {
					return err
				}
			}
		}

		now := im.clock.Now()
		return im.listingRepo.Update(c, id, listing.Patchable{
			IsActive:  ptr.Bool(false),
			UpdatedAt: &now,
		})
	})
}

func (im *impl) UpdateListingPrice(c ctx.Ctx, id domain.ListingId, newPrice decimal.Decimal, caller domain.Address) error {
	return im.gate.Do(c, func(c ctx.Ctx) error {
		l, err := im.listingRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !l.Seller.Equals(caller) {
			return domain.ErrNotSeller
		}
		if !l.IsActive {
			return domain.ErrListingNotActive
		}
		if !newPrice.IsPositive() {
			return domain.ErrInvalidPrice
		}

		now := im.clock.Now()
		return im.listingRepo.Update(c, id, listing.Patchable{
			Price:     &newPrice,
			UpdatedAt: &now,
		})
	})
}

// BuyNow performs a direct sale. A running auction on the same asset is
// cancelled as a side effect when bidless; once bids exist the direct sale
// is refused, since committed bidders may only be resolved through
// EndAuction.
func (im *impl) BuyNow(c ctx.Ctx, id domain.ListingId, payment decimal.Decimal, buyer domain.Address) (*settlement.Result, error) {
	var res *settlement.Result
	err := im.gate.Do(c, func(c ctx.Ctx) error {
		l, err := im.listingRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !l.IsActive {
			return domain.ErrListingNotActive
		}
		if !l.Type.HasSale() {
			return domain.ErrNFTOnAuction
		}
		if payment.LessThan(l.Price) {
			return domain.ErrInsufficientPayment
		}

		var running *auction.Auction
		if l.AuctionId != 0 {
			a, err := im.auctionUC.GetAuction(c, l.AuctionId)
			if err != nil {
				return err
			}
			if !a.Ended {
				if a.HasBids() {
					return domain.ErrNFTOnAuction
				}
				running = a
			}
		}

		settleRes, err := im.settlementUC.Settle(c, settlement.SettleParams{
			AssetId:      l.AssetId,
			CollectionId: l.CollectionId,
			Seller:       l.Seller,
			Buyer:        buyer,
			GrossAmount:  l.Price,
			Payment:      payment,
			PayFrom:      buyer,
			Kind:         settlement.SaleKindDirect,
		})
		if err != nil {
			return err
		}

		// the bidless auction falls only once the sale is committed, so a
		// failed settlement leaves listing and auction untouched
		if running != nil {
			if err := im.auctionUC.CancelAuction(c, running.AuctionId, running.Seller); err != nil {
				c.WithField("err", err).Error("auctionUC.CancelAuction failed")
				return err
			}
		}

		now := im.clock.Now()
		if err := im.listingRepo.Update(c, id, listing.Patchable{
			IsActive:  ptr.Bool(false),
			UpdatedAt: &now,
		}); err != nil {
			c.WithField("err", err).Error("listingRepo.Update failed")
			return err
		}
		res = settleRes
		return nil
	})
	return res, err
}

func (im *impl) GetListingDetails(c ctx.Ctx, id domain.ListingId) (*listing.Detail, error) {
	l, err := im.listingRepo.FindOne(c, id)
	if err != nil {
		return nil, err
	}

	detail := &listing.Detail{Listing: *l}
	if l.AuctionId != 0 {
		a, err := im.auctionUC.GetAuction(c, l.AuctionId)
		if err != nil {
			c.WithField("err", err).Error("auctionUC.GetAuction failed")
			return nil, err
		}
		detail.Auction = a
	}
	return detail, nil
}

func (im *impl) GetActiveListings(c ctx.Ctx, offset, limit int32) (*listing.SearchResult, error) {
	if limit > im.maxPageSize {
		return nil, domain.ErrInvalidPageSize
	}
	if limit <= 0 {
		limit = im.maxPageSize
	}

	opts := []listing.FindAllOptions{
		listing.WithIsActive(true),
		listing.WithPagination(offset, limit),
	}
	items, err := im.listingRepo.FindAll(c, opts...)
	if err != nil {
		return nil, err
	}
	count, err := im.listingRepo.Count(c, listing.WithIsActive(true))
	if err != nil {
		return nil, err
	}
	return &listing.SearchResult{Items: items, Count: count}, nil
}

func (im *impl) GetCollectionListings(c ctx.Ctx, collectionId domain.CollectionId) ([]*listing.Listing, error) {
	return im.listingRepo.FindAll(c,
		listing.WithIsActive(true),
		listing.WithCollection(collectionId),
	)
}

func (im *impl) GetCreatorListings(c ctx.Ctx, seller domain.Address) ([]*listing.Listing, error) {
	return im.listingRepo.FindAll(c,
		listing.WithIsActive(true),
		listing.WithSeller(seller),
	)
}

func (im *impl) IsNFTListed(c ctx.Ctx, assetId domain.AssetId) (bool, error) {
	if _, err := im.listingRepo.FindActiveByAsset(c, assetId); err == domain.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (im *impl) GetFilteredListings(c ctx.Ctx, params listing.FilterParams) (*listing.SearchResult, error) {
	if params.Limit > im.maxPageSize {
		return nil, domain.ErrInvalidPageSize
	}
	if params.Limit <= 0 {
		params.Limit = im.maxPageSize
	}

	sortBy, sortDir, err := listing.ParseSortOrder(params.SortOrder)
	if err != nil {
		return nil, err
	}

	opts := []listing.FindAllOptions{
		listing.WithIsActive(true),
		listing.WithSort(sortBy, sortDir),
	}
	countOpts := []listing.FindAllOptions{listing.WithIsActive(true)}

	if params.Type != nil {
		if !params.Type.IsValid() {
			return nil, domain.ErrInvalidListingType
		}
		opts = append(opts, listing.WithType(*params.Type))
		countOpts = append(countOpts, listing.WithType(*params.Type))
	}
	if params.CollectionId != nil {
		opts = append(opts, listing.WithCollection(*params.CollectionId))
		countOpts = append(countOpts, listing.WithCollection(*params.CollectionId))
	}
	if params.PriceGTE != nil {
		opts = append(opts, listing.WithPriceGTE(*params.PriceGTE))
		countOpts = append(countOpts, listing.WithPriceGTE(*params.PriceGTE))
	}
	if params.PriceLTE != nil {
		opts = append(opts, listing.WithPriceLTE(*params.PriceLTE))
		countOpts = append(countOpts, listing.WithPriceLTE(*params.PriceLTE))
	}
	opts = append(opts, listing.WithPagination(params.Offset, params.Limit))

	items, err := im.listingRepo.FindAll(c, opts...)
	if err != nil {
		return nil, err
	}
	count, err := im.listingRepo.Count(c, countOpts...)
	if err != nil {
		return nil, err
	}
	return &listing.SearchResult{Items: items, Count: count}, nil
}
