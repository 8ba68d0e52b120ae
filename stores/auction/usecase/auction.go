package usecase

import (
	"time"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/base/ptr"
	"github.com/mintleaf/goapi/base/txn"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/asset"
	"github.com/mintleaf/goapi/domain/auction"
	"github.com/mintleaf/goapi/domain/ledger"
	"github.com/mintleaf/goapi/domain/listing"
	"github.com/mintleaf/goapi/domain/settlement"
	"github.com/shopspring/decimal"
)

const escrowKind = "auction"

type AuctionUseCaseCfg struct {
	AuctionRepo   auction.Repo
	ListingRepo   listing.Repo
	AssetRegistry asset.Registry
	Ledger        ledger.Ledger
	SettlementUC  settlement.Usecase
	Clock         domain.Clock
	Gate          *txn.Gate
	MinDuration   time.Duration
	MaxDuration   time.Duration
}

type impl struct {
	auctionRepo   auction.Repo
	listingRepo   listing.Repo
	assetRegistry asset.Registry
	ledger        ledger.Ledger
	settlementUC  settlement.Usecase
	clock         domain.Clock
	gate          *txn.Gate
	minDuration   time.Duration
	maxDuration   time.Duration
}

func New(cfg *AuctionUseCaseCfg) auction.Usecase {
	return &impl{
		auctionRepo:   cfg.AuctionRepo,
		listingRepo:   cfg.ListingRepo,
		assetRegistry: cfg.AssetRegistry,
		ledger:        cfg.Ledger,
		settlementUC:  cfg.SettlementUC,
		clock:         cfg.Clock,
		gate:          cfg.Gate,
		minDuration:   cfg.MinDuration,
		maxDuration:   cfg.MaxDuration,
	}
}

func (im *impl) CreateAuction(c ctx.Ctx, params auction.CreateParams) (*auction.Auction, error) {
	var res *auction.Auction
	err := im.gate.Do(c, func(c ctx.Ctx) error {
		if !params.StartingPrice.IsPositive() {
			return domain.ErrInvalidAuctionParameters
		}
		if params.ReservePrice.LessThan(params.StartingPrice) {
			return domain.ErrInvalidAuctionParameters
		}
		if params.Duration < im.minDuration || params.Duration > im.maxDuration {
			return domain.ErrInvalidAuctionParameters
		}

		owner, err := im.assetRegistry.OwnerOf(c, params.AssetId)
		if err != nil {
			c.WithField("err", err).Error("assetRegistry.OwnerOf failed")
			return err
		}
		if !owner.Equals(params.Seller) {
			return domain.ErrNotOwner
		}

		now := im.clock.Now()
		value := &auction.Auction{
			Seller:        params.Seller,
			AssetId:       params.AssetId,
			CollectionId:  params.CollectionId,
			StartingPrice: params.StartingPrice,
			ReservePrice:  params.ReservePrice,
			StartTime:     now,
			EndTime:       now.Add(params.Duration),
			HighestBid:    decimal.Zero,
		}
		if _, err := im.auctionRepo.Create(c, value); err != nil {
			c.WithField("err", err).Error("auctionRepo.Create failed")
			return err
		}
		res = value
		return nil
	})
	return res, err
}

// PlaceBid escrows the new bid and refunds the superseded one in a single
// ledger batch, so at no instant are two bids escrowed for one auction.
func (im *impl) PlaceBid(c ctx.Ctx, id domain.AuctionId, amount decimal.Decimal, bidder domain.Address) error {
	return im.gate.Do(c, func(c ctx.Ctx) error {
		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return err
		}

		// no grace window, a bid at or after end time is rejected
		if !a.Active || a.Ended || !im.clock.Now().Before(a.EndTime) {
			return domain.ErrAuctionNotActive
		}
		if amount.LessThan(a.StartingPrice) || amount.LessThanOrEqual(a.HighestBid) {
			return domain.ErrBidTooLow
		}

		esc := domain.EscrowAccount(escrowKind, int64(id))
		entries := []ledger.Entry{}
		if a.HasBids() {
			entries = append(entries, ledger.Entry{From: esc, To: a.HighestBidder, Amount: a.HighestBid})
		}
		entries = append(entries, ledger.Entry{From: bidder, To: esc, Amount: amount})
		if err := im.ledger.ApplyBatch(c, entries); err != nil {
			return err
		}

		if err := im.auctionRepo.AppendBid(c, auction.Bid{
			AuctionId: id,
			Bidder:    bidder,
			Amount:    amount,
			BidTime:   im.clock.Now(),
		}); err != nil {
			c.WithField("err", err).Error("auctionRepo.AppendBid failed")
			return err
		}

		return im.auctionRepo.Update(c, id, auction.Patchable{
			HighestBidder: bidder.ToLowerPtr(),
			HighestBid:    &amount,
			BidCount:      ptr.Int(a.BidCount + 1),
		})
	})
}

// EndAuction resolves an expired auction. Reserve not met, the no-bid case
// and a seller who no longer owns the asset all refund the highest bidder
// and leave the asset where it is; these paths are expected outcomes, not
// errors.
func (im *impl) EndAuction(c ctx.Ctx, id domain.AuctionId) (*auction.EndResult, error) {
	var res *auction.EndResult
	err := im.gate.Do(c, func(c ctx.Ctx) error {
		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if a.Ended || !a.Active {
			return domain.ErrAuctionNotActive
		}
		if im.clock.Now().Before(a.EndTime) {
			return domain.ErrAuctionStillRunning
		}

		esc := domain.EscrowAccount(escrowKind, int64(id))

		owner, err := im.assetRegistry.OwnerOf(c, a.AssetId)
		if err != nil {
			c.WithField("err", err).Error("assetRegistry.OwnerOf failed")
			return err
		}

		// a seller who transferred the asset away cannot deliver it; resolve
		// like reserve-not-met so the escrowed bid is never stranded
		if a.HasBids() && a.HighestBid.GreaterThanOrEqual(a.ReservePrice) && owner.Equals(a.Seller) {
			settleRes, err := im.settlementUC.Settle(c, settlement.SettleParams{
				AssetId:      a.AssetId,
				CollectionId: a.CollectionId,
				Seller:       a.Seller,
				Buyer:        a.HighestBidder,
				GrossAmount:  a.HighestBid,
				Payment:      a.HighestBid,
				PayFrom:      esc,
				Kind:         settlement.SaleKindAuction,
			})
			if err != nil {
				c.WithField("err", err).Error("settlementUC.Settle failed")
				return err
			}
			res = &auction.EndResult{Sold: true, Winner: a.HighestBidder, Settlement: settleRes}
		} else {
			if a.HasBids() {
				if err := im.ledger.Transfer(c, esc, a.HighestBidder, a.HighestBid); err != nil {
					c.WithField("err", err).Error("escrow refund failed")
					return err
				}
			}
			res = &auction.EndResult{Sold: false}
		}

		if err := im.auctionRepo.Update(c, id, auction.Patchable{
			Active: ptr.Bool(false),
			Ended:  ptr.Bool(true),
		}); err != nil {
			c.WithField("err", err).Error("auctionRepo.Update failed")
			return err
		}

		return im.deactivateListing(c, a.AssetId)
	})
	return res, err
}

// CancelAuction is only permitted while the bid log is empty. Once capital
// is committed, only time-based resolution through EndAuction can close the
// auction.
func (im *impl) CancelAuction(c ctx.Ctx, id domain.AuctionId, caller domain.Address) error {
	return im.gate.Do(c, func(c ctx.Ctx) error {
		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !a.Seller.Equals(caller) {
			return domain.ErrNotSeller
		}
		if a.Ended || !a.Active {
			return domain.ErrAuctionNotActive
		}
		if a.HasBids() {
			return domain.ErrHasBids
		}

		return im.auctionRepo.Update(c, id, auction.Patchable{
			Active: ptr.Bool(false),
			Ended:  ptr.Bool(true),
		})
	})
}

func (im *impl) ExtendAuction(c ctx.Ctx, id domain.AuctionId, extraDuration time.Duration, caller domain.Address) error {
	return im.gate.Do(c, func(c ctx.Ctx) error {
		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !a.Seller.Equals(caller) {
			return domain.ErrNotSeller
		}
		if a.Ended {
			return domain.ErrAuctionNotActive
		}
		if extraDuration <= 0 {
			return domain.ErrInvalidAuctionParameters
		}

		newEnd := a.EndTime.Add(extraDuration)
		if newEnd.Sub(a.StartTime) > im.maxDuration {
			return domain.ErrExceedsMaxDuration
		}

		return im.auctionRepo.Update(c, id, auction.Patchable{EndTime: &newEnd})
	})
}

// UpdateReservePrice is permitted any time before the auction ends, even
// with active bids, since it only affects settlement evaluation.
func (im *impl) UpdateReservePrice(c ctx.Ctx, id domain.AuctionId, newReserve decimal.Decimal, caller domain.Address) error {
	return im.gate.Do(c, func(c ctx.Ctx) error {
		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !a.Seller.Equals(caller) {
			return domain.ErrNotSeller
		}
		if a.Ended {
			return domain.ErrAuctionNotActive
		}
		if newReserve.LessThan(a.StartingPrice) {
			return domain.ErrBelowStartingPrice
		}

		return im.auctionRepo.Update(c, id, auction.Patchable{ReservePrice: &newReserve})
	})
}

// WithdrawBid reports success for superseded bidders, whose escrow was
// already refunded at the moment they were outbid.
func (im *impl) WithdrawBid(c ctx.Ctx, id domain.AuctionId, bidder domain.Address) error {
	return im.gate.Do(c, func(c ctx.Ctx) error {
		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !a.Ended && a.HighestBidder.Equals(bidder) {
			return domain.ErrHighestBidderCannotWithdraw
		}

		bids, err := im.auctionRepo.FindBids(c, id)
		if err != nil {
			return err
		}
		for _, b := range bids {
			if b.Bidder.Equals(bidder) {
				return nil
			}
		}
		return domain.ErrNotFound
	})
}

func (im *impl) GetAuction(c ctx.Ctx, id domain.AuctionId) (*auction.Auction, error) {
	return im.auctionRepo.FindOne(c, id)
}

func (im *impl) GetBids(c ctx.Ctx, id domain.AuctionId) ([]auction.Bid, error) {
	return im.auctionRepo.FindBids(c, id)
}

func (im *impl) CanEndAuction(c ctx.Ctx, id domain.AuctionId) (bool, error) {
	a, err := im.auctionRepo.FindOne(c, id)
	if err != nil {
		return false, err
	}
	return a.Active && !a.Ended && !im.clock.Now().Before(a.EndTime), nil
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
