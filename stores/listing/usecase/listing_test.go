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
	asset_repository "github.com/mintleaf/goapi/stores/asset/repository"
	auction_repository "github.com/mintleaf/goapi/stores/auction/repository"
	auction_usecase "github.com/mintleaf/goapi/stores/auction/usecase"
	collection_repository "github.com/mintleaf/goapi/stores/collection/repository"
	ledger_repository "github.com/mintleaf/goapi/stores/ledger/repository"
	listing_repository "github.com/mintleaf/goapi/stores/listing/repository"
	"github.com/mintleaf/goapi/stores/listing/usecase"
	settlement_usecase "github.com/mintleaf/goapi/stores/settlement/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	seller       = domain.Address("0xaa01")
	buyer        = domain.Address("0xbb02")
	bidder       = domain.Address("0xb1da")
	creator      = domain.Address("0xcc03")
	feeRecipient = domain.Address("0xfe04")
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

type listingSuite struct {
	suite.Suite

	ctx      bCtx.Ctx
	clock    *fakeClock
	registry *asset_repository.Registry
	ledger   ledger.Ledger
	auction  auction.Usecase
	im       listing.Usecase
}

func (s *listingSuite) SetupTest() {
	s.ctx = bCtx.Background()
	s.clock = &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	s.registry = asset_repository.New()
	s.ledger = ledger_repository.New()

	colls := collection_repository.New()
	s.Require().NoError(colls.Register(s.ctx, collection.Collection{
		CollectionId: 1,
		Creator:      creator,
		RoyaltyBps:   500,
		MintedSupply: 100,
	}))
	s.registry.Mint(s.ctx, 1, seller)

	gate := txn.NewGate()
	listingRepo := listing_repository.New()
	settlement := settlement_usecase.New(&settlement_usecase.SettlementUseCaseCfg{
		AssetRegistry:  s.registry,
		Ledger:         s.ledger,
		CollectionRepo: colls,
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
	s.im = usecase.New(&usecase.ListingUseCaseCfg{
		ListingRepo:   listingRepo,
		AuctionUC:     s.auction,
		AssetRegistry: s.registry,
		SettlementUC:  settlement,
		Clock:         s.clock,
		Gate:          gate,
		MaxPageSize:   50,
	})
}

func TestListingSuite(t *testing.T) {
	suite.Run(t, new(listingSuite))
}

func (s *listingSuite) createListing(t listing.Type) *listing.Listing {
	l, err := s.im.CreateListing(s.ctx, listing.CreatePayload{
		Seller:        seller,
		AssetId:       1,
		CollectionId:  1,
		Price:         decimal.NewFromInt(100),
		Type:          t,
		StartingPrice: decimal.NewFromInt(10),
		ReservePrice:  decimal.NewFromInt(20),
		Duration:      24 * time.Hour,
	})
	s.Require().NoError(err)
	return l
}

func (s *listingSuite) balance(acc domain.Address) decimal.Decimal {
	b, err := s.ledger.BalanceOf(s.ctx, acc)
	s.Require().NoError(err)
	return b
}

func (s *listingSuite) TestCreateListingValidation() {
	_, err := s.im.CreateListing(s.ctx, listing.CreatePayload{
		Seller: seller, AssetId: 1, CollectionId: 1,
		Price: decimal.NewFromInt(100), Type: "bogus",
	})
	s.Equal(domain.ErrInvalidListingType, err)

	_, err = s.im.CreateListing(s.ctx, listing.CreatePayload{
		Seller: seller, AssetId: 1, CollectionId: 1,
		Price: decimal.Zero, Type: listing.TypeSale,
	})
	s.Equal(domain.ErrInvalidPrice, err)

	_, err = s.im.CreateListing(s.ctx, listing.CreatePayload{
		Seller: buyer, AssetId: 1, CollectionId: 1,
		Price: decimal.NewFromInt(100), Type: listing.TypeSale,
	})
	s.Equal(domain.ErrNotOwner, err)
}

func (s *listingSuite) TestNoDoubleListing() {
	s.createListing(listing.TypeSale)

	_, err := s.im.CreateListing(s.ctx, listing.CreatePayload{
		Seller: seller, AssetId: 1, CollectionId: 1,
		Price: decimal.NewFromInt(50), Type: listing.TypeSale,
	})
	s.Equal(domain.ErrAlreadyListed, err)
}

func (s *listingSuite) TestCreateAuctionListingOpensAuction() {
	l := s.createListing(listing.TypeBoth)
	s.NotZero(l.AuctionId)

	a, err := s.auction.GetAuction(s.ctx, l.AuctionId)
	s.Require().NoError(err)
	s.True(a.Active)
	s.Equal(seller.ToLower(), a.Seller.ToLower())
}

func (s *listingSuite) TestCancelListing() {
	l := s.createListing(listing.TypeSale)

	s.Equal(domain.ErrNotSeller, s.im.CancelListing(s.ctx, l.ListingId, buyer))
	s.Require().NoError(s.im.CancelListing(s.ctx, l.ListingId, seller))
	s.Equal(domain.ErrListingNotActive, s.im.CancelListing(s.ctx, l.ListingId, seller))

	listed, err := s.im.IsNFTListed(s.ctx, 1)
	s.Require().NoError(err)
	s.False(listed)
}

func (s *listingSuite) TestCancelListingWithBidsRefused() {
	l := s.createListing(listing.TypeBoth)
	s.Require().NoError(s.ledger.Deposit(s.ctx, bidder, decimal.NewFromInt(100)))
	s.Require().NoError(s.auction.PlaceBid(s.ctx, l.AuctionId, decimal.NewFromInt(10), bidder))

	s.Equal(domain.ErrOnAuctionWithBids, s.im.CancelListing(s.ctx, l.ListingId, seller))
}

func (s *listingSuite) TestCancelListingCancelsBidlessAuction() {
	l := s.createListing(listing.TypeBoth)
	s.Require().NoError(s.im.CancelListing(s.ctx, l.ListingId, seller))

	a, err := s.auction.GetAuction(s.ctx, l.AuctionId)
	s.Require().NoError(err)
	s.True(a.Ended)
}

func (s *listingSuite) TestUpdateListingPrice() {
	l := s.createListing(listing.TypeSale)

	s.Equal(domain.ErrNotSeller, s.im.UpdateListingPrice(s.ctx, l.ListingId, decimal.NewFromInt(80), buyer))
	s.Equal(domain.ErrInvalidPrice, s.im.UpdateListingPrice(s.ctx, l.ListingId, decimal.Zero, seller))
	s.Require().NoError(s.im.UpdateListingPrice(s.ctx, l.ListingId, decimal.NewFromInt(80), seller))

	d, err := s.im.GetListingDetails(s.ctx, l.ListingId)
	s.Require().NoError(err)
	s.True(d.Price.Equal(decimal.NewFromInt(80)))
}

func (s *listingSuite) TestBuyNow() {
	l := s.createListing(listing.TypeSale)
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.NewFromInt(120)))

	_, err := s.im.BuyNow(s.ctx, l.ListingId, decimal.NewFromInt(90), buyer)
	s.Equal(domain.ErrInsufficientPayment, err)

	res, err := s.im.BuyNow(s.ctx, l.ListingId, decimal.NewFromInt(120), buyer)
	s.Require().NoError(err)
	s.True(res.ExcessRefund.Equal(decimal.NewFromInt(20)))

	owner, err := s.registry.OwnerOf(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(buyer.ToLower(), owner)
	s.True(s.balance(buyer).Equal(decimal.NewFromInt(20)))

	listed, err := s.im.IsNFTListed(s.ctx, 1)
	s.Require().NoError(err)
	s.False(listed)
}

func (s *listingSuite) TestBuyNowAuctionOnlyRefused() {
	l := s.createListing(listing.TypeAuction)
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.NewFromInt(200)))

	_, err := s.im.BuyNow(s.ctx, l.ListingId, decimal.NewFromInt(100), buyer)
	s.Equal(domain.ErrNFTOnAuction, err)
}

func (s *listingSuite) TestBuyNowWithStandingBidRefused() {
	l := s.createListing(listing.TypeBoth)
	s.Require().NoError(s.ledger.Deposit(s.ctx, bidder, decimal.NewFromInt(100)))
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.NewFromInt(200)))
	s.Require().NoError(s.auction.PlaceBid(s.ctx, l.AuctionId, decimal.NewFromInt(10), bidder))

	_, err := s.im.BuyNow(s.ctx, l.ListingId, decimal.NewFromInt(100), buyer)
	s.Equal(domain.ErrNFTOnAuction, err)
}

func (s *listingSuite) TestBuyNowCancelsBidlessAuction() {
	l := s.createListing(listing.TypeBoth)
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.NewFromInt(200)))

	_, err := s.im.BuyNow(s.ctx, l.ListingId, decimal.NewFromInt(100), buyer)
	s.Require().NoError(err)

	a, err := s.auction.GetAuction(s.ctx, l.AuctionId)
	s.Require().NoError(err)
	s.True(a.Ended)
}

func (s *listingSuite) TestBuyNowFailedSettlementKeepsAuction() {
	l := s.createListing(listing.TypeBoth)

	// the buyer never deposited, so settlement fails on the first leg
	_, err := s.im.BuyNow(s.ctx, l.ListingId, decimal.NewFromInt(100), buyer)
	s.Equal(domain.ErrFeeTransferFailed, err)

	a, err := s.auction.GetAuction(s.ctx, l.AuctionId)
	s.Require().NoError(err)
	s.False(a.Ended)
	s.True(a.Active)

	got, err := s.im.GetListingDetails(s.ctx, l.ListingId)
	s.Require().NoError(err)
	s.True(got.IsActive)

	owner, err := s.registry.OwnerOf(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(seller.ToLower(), owner)
	s.True(s.balance(seller).IsZero())
}

func (s *listingSuite) TestQueriesAndPageSize() {
	s.registry.Mint(s.ctx, 2, seller)
	s.createListing(listing.TypeSale)
	_, err := s.im.CreateListing(s.ctx, listing.CreatePayload{
		Seller: seller, AssetId: 2, CollectionId: 1,
		Price: decimal.NewFromInt(50), Type: listing.TypeSale,
	})
	s.Require().NoError(err)

	_, err = s.im.GetActiveListings(s.ctx, 0, 51)
	s.Equal(domain.ErrInvalidPageSize, err)

	res, err := s.im.GetActiveListings(s.ctx, 0, 10)
	s.Require().NoError(err)
	s.Len(res.Items, 2)
	s.Equal(2, res.Count)

	byColl, err := s.im.GetCollectionListings(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(byColl, 2)

	bySeller, err := s.im.GetCreatorListings(s.ctx, seller)
	s.Require().NoError(err)
	s.Len(bySeller, 2)
}

func (s *listingSuite) TestGetFilteredListings() {
	s.registry.Mint(s.ctx, 2, seller)
	s.createListing(listing.TypeSale)
	_, err := s.im.CreateListing(s.ctx, listing.CreatePayload{
		Seller: seller, AssetId: 2, CollectionId: 1,
		Price: decimal.NewFromInt(50), Type: listing.TypeSale,
	})
	s.Require().NoError(err)

	res, err := s.im.GetFilteredListings(s.ctx, listing.FilterParams{
		SortOrder: listing.SortOrderPriceLowToHigh,
	})
	s.Require().NoError(err)
	s.Require().Len(res.Items, 2)
	s.True(res.Items[0].Price.LessThan(res.Items[1].Price))

	gte := decimal.NewFromInt(60)
	res, err = s.im.GetFilteredListings(s.ctx, listing.FilterParams{PriceGTE: &gte})
	s.Require().NoError(err)
	s.Len(res.Items, 1)
	s.Equal(1, res.Count)

	_, err = s.im.GetFilteredListings(s.ctx, listing.FilterParams{SortOrder: "bogus"})
	s.Equal(domain.ErrInvalidSortOrder, err)
}
