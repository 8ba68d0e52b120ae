package usecase_test

import (
	"testing"
	"time"

	bCtx "github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/base/txn"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/auction"
	"github.com/mintleaf/goapi/domain/collection"
	"github.com/mintleaf/goapi/domain/ledger"
	"github.com/mintleaf/goapi/domain/listing"
	"github.com/mintleaf/goapi/domain/offer"
	asset_repository "github.com/mintleaf/goapi/stores/asset/repository"
	auction_repository "github.com/mintleaf/goapi/stores/auction/repository"
	auction_usecase "github.com/mintleaf/goapi/stores/auction/usecase"
	collection_repository "github.com/mintleaf/goapi/stores/collection/repository"
	ledger_repository "github.com/mintleaf/goapi/stores/ledger/repository"
	listing_repository "github.com/mintleaf/goapi/stores/listing/repository"
	listing_usecase "github.com/mintleaf/goapi/stores/listing/usecase"
	offer_repository "github.com/mintleaf/goapi/stores/offer/repository"
	"github.com/mintleaf/goapi/stores/offer/usecase"
	settlement_usecase "github.com/mintleaf/goapi/stores/settlement/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	seller       = domain.Address("0xaa01")
	offerer      = domain.Address("0xbb02")
	bidder       = domain.Address("0xb1da")
	creator      = domain.Address("0xcc03")
	feeRecipient = domain.Address("0xfe04")
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

type offerSuite struct {
	suite.Suite

	ctx      bCtx.Ctx
	clock    *fakeClock
	registry *asset_repository.Registry
	ledger   ledger.Ledger
	colls    collection.Repo
	listing  listing.Usecase
	auction  auction.Usecase
	im       offer.Usecase
}

func (s *offerSuite) SetupTest() {
	s.ctx = bCtx.Background()
	s.clock = &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	s.registry = asset_repository.New()
	s.ledger = ledger_repository.New()
	s.colls = collection_repository.New()

	s.Require().NoError(s.colls.Register(s.ctx, collection.Collection{
		CollectionId: 1,
		Creator:      creator,
		RoyaltyBps:   500,
		FloorPrice:   decimal.NewFromInt(10),
		MintedSupply: 100,
	}))
	s.registry.Mint(s.ctx, 1, seller)
	s.registry.Mint(s.ctx, 2, seller)
	s.registry.Mint(s.ctx, 3, seller)

	gate := txn.NewGate()
	listingRepo := listing_repository.New()
	settlement := settlement_usecase.New(&settlement_usecase.SettlementUseCaseCfg{
		AssetRegistry:  s.registry,
		Ledger:         s.ledger,
		CollectionRepo: s.colls,
		Clock:          s.clock,
		PlatformFeeBps: 250,
		FeeRecipient:   feeRecipient,
	})
	s.auction = auction_usecase.New(&auction_usecase.AuctionUseCaseCfg{
		AuctionRepo:   auction_repository.New(),
		ListingRepo:   listingRepo,
		AssetRegistry: s.registry,
		Ledger:        s.ledger,
		SettlementUC:  settlement,
		Clock:         s.clock,
		Gate:          gate,
		MinDuration:   time.Hour,
		MaxDuration:   30 * 24 * time.Hour,
	})
	s.listing = listing_usecase.New(&listing_usecase.ListingUseCaseCfg{
		ListingRepo:   listingRepo,
		AuctionUC:     s.auction,
		AssetRegistry: s.registry,
		SettlementUC:  settlement,
		Clock:         s.clock,
		Gate:          gate,
		MaxPageSize:   50,
	})
	s.im = usecase.New(&usecase.OfferUseCaseCfg{
		OfferRepo:      offer_repository.New(),
		CollectionRepo: s.colls,
		ListingRepo:    listingRepo,
		AuctionUC:      s.auction,
		AssetRegistry:  s.registry,
		Ledger:         s.ledger,
		SettlementUC:   settlement,
		Clock:          s.clock,
		Gate:           gate,
		MinDuration:    time.Hour,
		MaxDuration:    30 * 24 * time.Hour,
	})
}

func TestOfferSuite(t *testing.T) {
	suite.Run(t, new(offerSuite))
}

func (s *offerSuite) deposit(acc domain.Address, amount string) {
	s.Require().NoError(s.ledger.Deposit(s.ctx, acc, decimal.RequireFromString(amount)))
}

func (s *offerSuite) balance(acc domain.Address) decimal.Decimal {
	b, err := s.ledger.BalanceOf(s.ctx, acc)
	s.Require().NoError(err)
	return b
}

func (s *offerSuite) placeOffer(count int32, amount string) *offer.CollectionOffer {
	o, err := s.im.PlaceCollectionOffer(s.ctx, offer.PlacePayload{
		Offerer:      offerer,
		CollectionId: 1,
		NftCount:     count,
		Amount:       decimal.RequireFromString(amount),
		Duration:     24 * time.Hour,
	})
	s.Require().NoError(err)
	return o
}

func (s *offerSuite) TestPlaceOfferValidation() {
	s.deposit(offerer, "1000")

	cases := []struct {
		payload offer.PlacePayload
		err     error
	}{
		{offer.PlacePayload{Offerer: offerer, CollectionId: 1, NftCount: 0, Amount: decimal.NewFromInt(100), Duration: 24 * time.Hour}, domain.ErrInvalidNFTCount},
		{offer.PlacePayload{Offerer: offerer, CollectionId: 1, NftCount: 101, Amount: decimal.NewFromInt(5000), Duration: 24 * time.Hour}, domain.ErrInvalidNFTCount},
		{offer.PlacePayload{Offerer: offerer, CollectionId: 1, NftCount: 2, Amount: decimal.NewFromInt(100), Duration: time.Minute}, domain.ErrInvalidOfferDuration},
		{offer.PlacePayload{Offerer: offerer, CollectionId: 1, NftCount: 2, Amount: decimal.NewFromInt(19), Duration: 24 * time.Hour}, domain.ErrOfferBelowFloorPrice},
	}
	for _, c := range cases {
		_, err := s.im.PlaceCollectionOffer(s.ctx, c.payload)
		s.Equal(c.err, err)
	}
}

func (s *offerSuite) TestPlaceOfferEscrowsAmount() {
	s.deposit(offerer, "100")
	o := s.placeOffer(2, "50")

	esc := domain.EscrowAccount("offer", int64(o.OfferId))
	s.True(s.balance(esc).Equal(decimal.NewFromInt(50)))
	s.True(s.balance(offerer).Equal(decimal.NewFromInt(50)))
}

func (s *offerSuite) TestPlaceOfferWithoutFunds() {
	s.deposit(offerer, "10")
	_, err := s.im.PlaceCollectionOffer(s.ctx, offer.PlacePayload{
		Offerer:      offerer,
		CollectionId: 1,
		NftCount:     2,
		Amount:       decimal.NewFromInt(50),
		Duration:     24 * time.Hour,
	})
	s.Equal(domain.ErrInsufficientFunds, err)
}

func (s *offerSuite) TestReplaceActiveOffer() {
	s.deposit(offerer, "100")
	old := s.placeOffer(2, "50")

	// the new offer supersedes; the old escrow is refunded first
	updated := s.placeOffer(3, "60")
	s.NotEqual(old.OfferId, updated.OfferId)

	oldEsc := domain.EscrowAccount("offer", int64(old.OfferId))
	newEsc := domain.EscrowAccount("offer", int64(updated.OfferId))
	s.True(s.balance(oldEsc).IsZero())
	s.True(s.balance(newEsc).Equal(decimal.NewFromInt(60)))
	s.True(s.balance(offerer).Equal(decimal.NewFromInt(40)))

	got, err := s.im.GetOfferById(s.ctx, old.OfferId)
	s.Require().NoError(err)
	s.Equal(offer.StatusWithdrawn, got.Status)
}

func (s *offerSuite) TestFailedReplacementKeepsOldOffer() {
	s.deposit(offerer, "50")
	old := s.placeOffer(2, "50")

	// 50 escrowed + 0 free cannot fund 60; the live offer must survive
	_, err := s.im.PlaceCollectionOffer(s.ctx, offer.PlacePayload{
		Offerer:      offerer,
		CollectionId: 1,
		NftCount:     3,
		Amount:       decimal.NewFromInt(60),
		Duration:     24 * time.Hour,
	})
	s.Equal(domain.ErrInsufficientFunds, err)

	got, err := s.im.GetOfferById(s.ctx, old.OfferId)
	s.Require().NoError(err)
	s.Equal(offer.StatusActive, got.Status)
	s.True(s.balance(domain.EscrowAccount("offer", int64(old.OfferId))).Equal(decimal.NewFromInt(50)))
}

func (s *offerSuite) TestWithdrawOffer() {
	s.deposit(offerer, "100")
	o := s.placeOffer(2, "50")

	s.Require().NoError(s.im.WithdrawCollectionOffer(s.ctx, 1, offerer))
	s.True(s.balance(offerer).Equal(decimal.NewFromInt(100)))

	got, err := s.im.GetOfferById(s.ctx, o.OfferId)
	s.Require().NoError(err)
	s.Equal(offer.StatusWithdrawn, got.Status)

	s.Equal(domain.ErrNoActiveOffer, s.im.WithdrawCollectionOffer(s.ctx, 1, offerer))
}

func (s *offerSuite) TestLazyExpiryRefundsOnce() {
	s.deposit(offerer, "100")
	o := s.placeOffer(2, "50")

	s.clock.advance(25 * time.Hour)

	// first touch resolves the expiry and refunds the escrow
	offers, err := s.im.GetUserCollectionOffers(s.ctx, offerer)
	s.Require().NoError(err)
	s.Require().Len(offers, 1)
	s.Equal(offer.StatusExpired, offers[0].Status)
	s.True(s.balance(offerer).Equal(decimal.NewFromInt(100)))

	// subsequent touches see the terminal state, no double refund
	got, err := s.im.GetOfferById(s.ctx, o.OfferId)
	s.Require().NoError(err)
	s.Equal(offer.StatusExpired, got.Status)
	s.True(s.balance(offerer).Equal(decimal.NewFromInt(100)))

	s.Equal(domain.ErrNoActiveOffer, s.im.WithdrawCollectionOffer(s.ctx, 1, offerer))
}

func (s *offerSuite) TestAcceptOfferSweep() {
	s.deposit(offerer, "90")
	o := s.placeOffer(3, "90")

	// one of the assets is listed; the sweep de-lists it
	_, err := s.listing.CreateListing(s.ctx, listing.CreatePayload{
		Seller: seller, AssetId: 1, CollectionId: 1,
		Price: decimal.NewFromInt(100), Type: listing.TypeSale,
	})
	s.Require().NoError(err)

	res, err := s.im.AcceptCollectionOfferAndDelist(s.ctx, offer.AcceptPayload{
		Seller:       seller,
		CollectionId: 1,
		Offerer:      offerer,
		AssetIds:     []domain.AssetId{1, 2, 3},
	})
	s.Require().NoError(err)
	s.Equal(offer.StatusAccepted, res.Offer.Status)
	s.Require().Len(res.Settlements, 3)

	for _, id := range []domain.AssetId{1, 2, 3} {
		owner, err := s.registry.OwnerOf(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(offerer.ToLower(), owner)
	}

	// escrow fully disbursed: 30 per asset, split 0.75 fee / 1.5 royalty / 27.75 seller
	esc := domain.EscrowAccount("offer", int64(o.OfferId))
	s.True(s.balance(esc).IsZero())
	s.True(s.balance(seller).Equal(decimal.RequireFromString("83.25")))
	s.True(s.balance(feeRecipient).Equal(decimal.RequireFromString("2.25")))
	s.True(s.balance(creator).Equal(decimal.RequireFromString("4.5")))

	listed, err := s.listing.IsNFTListed(s.ctx, 1)
	s.Require().NoError(err)
	s.False(listed)
}

func (s *offerSuite) TestAcceptAllocatesRemainderToLastAsset() {
	s.deposit(offerer, "100")
	s.placeOffer(3, "100")

	res, err := s.im.AcceptCollectionOfferAndDelist(s.ctx, offer.AcceptPayload{
		Seller:       seller,
		CollectionId: 1,
		Offerer:      offerer,
		AssetIds:     []domain.AssetId{1, 2, 3},
	})
	s.Require().NoError(err)

	// per-asset splits sum exactly to the escrowed amount
	total := decimal.Zero
	for _, r := range res.Settlements {
		total = total.Add(r.PlatformFee).Add(r.RoyaltyFee).Add(r.SellerProceeds).Add(r.ExcessRefund)
	}
	s.True(total.Equal(decimal.NewFromInt(100)))
	s.True(s.balance(offerer).IsZero())
}

func (s *offerSuite) TestAcceptValidation() {
	s.deposit(offerer, "90")
	s.placeOffer(3, "90")

	// wrong asset count
	_, err := s.im.AcceptCollectionOfferAndDelist(s.ctx, offer.AcceptPayload{
		Seller: seller, CollectionId: 1, Offerer: offerer,
		AssetIds: []domain.AssetId{1, 2},
	})
	s.Equal(domain.ErrInvalidNFTCount, err)

	// duplicate assets
	_, err = s.im.AcceptCollectionOfferAndDelist(s.ctx, offer.AcceptPayload{
		Seller: seller, CollectionId: 1, Offerer: offerer,
		AssetIds: []domain.AssetId{1, 2, 2},
	})
	s.Equal(domain.ErrBadParamInput, err)

	// an asset the seller does not own rejects the whole sweep
	s.registry.Mint(s.ctx, 3, "0xother")
	_, err = s.im.AcceptCollectionOfferAndDelist(s.ctx, offer.AcceptPayload{
		Seller: seller, CollectionId: 1, Offerer: offerer,
		AssetIds: []domain.AssetId{1, 2, 3},
	})
	s.Equal(domain.ErrNotTokenOwner, err)

	// nothing moved and the offer is still active
	owner, _ := s.registry.OwnerOf(s.ctx, 1)
	s.Equal(seller.ToLower(), owner)
	offers, err := s.im.GetUserCollectionOffers(s.ctx, offerer)
	s.Require().NoError(err)
	s.Require().Len(offers, 1)
	s.Equal(offer.StatusActive, offers[0].Status)
}

func (s *offerSuite) TestAcceptBlockedByAuctionWithBids() {
	s.deposit(offerer, "90")
	s.deposit(bidder, "100")
	s.placeOffer(3, "90")

	l, err := s.listing.CreateListing(s.ctx, listing.CreatePayload{
		Seller: seller, AssetId: 1, CollectionId: 1,
		Price: decimal.NewFromInt(100), Type: listing.TypeBoth,
		StartingPrice: decimal.NewFromInt(10), ReservePrice: decimal.NewFromInt(20),
		Duration: 24 * time.Hour,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.auction.PlaceBid(s.ctx, l.AuctionId, decimal.NewFromInt(10), bidder))

	_, err = s.im.AcceptCollectionOfferAndDelist(s.ctx, offer.AcceptPayload{
		Seller: seller, CollectionId: 1, Offerer: offerer,
		AssetIds: []domain.AssetId{1, 2, 3},
	})
	s.Equal(domain.ErrNFTOnAuction, err)
}

func (s *offerSuite) TestAcceptCancelsBidlessAuction() {
	s.deposit(offerer, "90")
	s.placeOffer(3, "90")

	l, err := s.listing.CreateListing(s.ctx, listing.CreatePayload{
		Seller: seller, AssetId: 1, CollectionId: 1,
		Price: decimal.NewFromInt(100), Type: listing.TypeBoth,
		StartingPrice: decimal.NewFromInt(10), ReservePrice: decimal.NewFromInt(20),
		Duration: 24 * time.Hour,
	})
	s.Require().NoError(err)

	_, err = s.im.AcceptCollectionOfferAndDelist(s.ctx, offer.AcceptPayload{
		Seller: seller, CollectionId: 1, Offerer: offerer,
		AssetIds: []domain.AssetId{1, 2, 3},
	})
	s.Require().NoError(err)

	a, err := s.auction.GetAuction(s.ctx, l.AuctionId)
	s.Require().NoError(err)
	s.True(a.Ended)
}

func (s *offerSuite) TestAcceptExpiredOffer() {
	s.deposit(offerer, "90")
	s.placeOffer(3, "90")

	s.clock.advance(25 * time.Hour)
	_, err := s.im.AcceptCollectionOfferAndDelist(s.ctx, offer.AcceptPayload{
		Seller: seller, CollectionId: 1, Offerer: offerer,
		AssetIds: []domain.AssetId{1, 2, 3},
	})
	s.Equal(domain.ErrNoActiveOffer, err)
	s.True(s.balance(offerer).Equal(decimal.NewFromInt(90)))
}

func (s *offerSuite) TestAcceptSweepsAuctionOfPreviousOwner() {
	newOwner := domain.Address("0xdd05")
	s.deposit(offerer, "30")
	o, err := s.im.PlaceCollectionOffer(s.ctx, offer.PlacePayload{
		Offerer: offerer, CollectionId: 1, NftCount: 1,
		Amount: decimal.NewFromInt(30), Duration: 24 * time.Hour,
	})
	s.Require().NoError(err)

	l, err := s.listing.CreateListing(s.ctx, listing.CreatePayload{
		Seller: seller, AssetId: 1, CollectionId: 1,
		Price: decimal.NewFromInt(100), Type: listing.TypeBoth,
		StartingPrice: decimal.NewFromInt(10), ReservePrice: decimal.NewFromInt(20),
		Duration: 24 * time.Hour,
	})
	s.Require().NoError(err)

	// the asset changes hands off-market; the old listing and its bidless
	// auction are now stale and must still be swept on acceptance
	s.registry.Mint(s.ctx, 1, newOwner)

	res, err := s.im.AcceptCollectionOfferAndDelist(s.ctx, offer.AcceptPayload{
		Seller: newOwner, CollectionId: 1, Offerer: offerer,
		AssetIds: []domain.AssetId{1},
	})
	s.Require().NoError(err)
	s.Equal(offer.StatusAccepted, res.Offer.Status)

	owner, err := s.registry.OwnerOf(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(offerer.ToLower(), owner)

	a, err := s.auction.GetAuction(s.ctx, l.AuctionId)
	s.Require().NoError(err)
	s.True(a.Ended)

	listed, err := s.listing.IsNFTListed(s.ctx, 1)
	s.Require().NoError(err)
	s.False(listed)

	// proceeds of 30 split 0.75 fee / 1.5 royalty / 27.75 to the new owner
	s.True(s.balance(newOwner).Equal(decimal.RequireFromString("27.75")))
	s.True(s.balance(domain.EscrowAccount("offer", int64(o.OfferId))).IsZero())
}

func (s *offerSuite) TestReplaceSurfacesFailedExpiryRefund() {
	s.deposit(offerer, "50")
	o := s.placeOffer(2, "50")

	// the escrow is drained out-of-band, so the lazy-expiry refund of the
	// old offer cannot be honored and the replacement must not go through
	esc := domain.EscrowAccount("offer", int64(o.OfferId))
	s.Require().NoError(s.ledger.Transfer(s.ctx, esc, creator, decimal.NewFromInt(50)))
	s.deposit(offerer, "30")
	s.clock.advance(25 * time.Hour)

	_, err := s.im.PlaceCollectionOffer(s.ctx, offer.PlacePayload{
		Offerer: offerer, CollectionId: 1, NftCount: 2,
		Amount: decimal.NewFromInt(20), Duration: 24 * time.Hour,
	})
	s.Equal(domain.ErrInsufficientFunds, err)

	// nothing was escrowed for the rejected replacement
	s.True(s.balance(offerer).Equal(decimal.NewFromInt(30)))

	// the old offer was not silently superseded; reads keep surfacing the
	// stuck refund instead of flipping it to withdrawn
	_, err = s.im.GetOfferById(s.ctx, o.OfferId)
	s.Equal(domain.ErrInsufficientFunds, err)
}
