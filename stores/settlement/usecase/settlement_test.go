package usecase_test

import (
	"testing"
	"time"

	bCtx "github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/collection"
	"github.com/mintleaf/goapi/domain/ledger"
	"github.com/mintleaf/goapi/domain/settlement"
	asset_repository "github.com/mintleaf/goapi/stores/asset/repository"
	collection_repository "github.com/mintleaf/goapi/stores/collection/repository"
	ledger_repository "github.com/mintleaf/goapi/stores/ledger/repository"
	"github.com/mintleaf/goapi/stores/settlement/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	seller       = domain.Address("0xaa01")
	buyer        = domain.Address("0xbb02")
	creator      = domain.Address("0xcc03")
	feeRecipient = domain.Address("0xfe04")
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

type settlementSuite struct {
	suite.Suite

	ctx      bCtx.Ctx
	clock    *fakeClock
	registry *asset_repository.Registry
	ledger   ledger.Ledger
	colls    collection.Repo
	im       settlement.Usecase
}

func (s *settlementSuite) SetupTest() {
	s.ctx = bCtx.Background()
	s.clock = &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	s.registry = asset_repository.New()
	s.ledger = ledger_repository.New()
	s.colls = collection_repository.New()

	s.Require().NoError(s.colls.Register(s.ctx, collection.Collection{
		CollectionId: 1,
		Name:         "test",
		Creator:      creator,
		RoyaltyBps:   500,
		MintedSupply: 100,
	}))
	s.registry.Mint(s.ctx, 1, seller)

	s.im = usecase.New(&usecase.SettlementUseCaseCfg{
		AssetRegistry:  s.registry,
		Ledger:         s.ledger,
		CollectionRepo: s.colls,
		Clock:          s.clock,
		PlatformFeeBps: 250,
		FeeRecipient:   feeRecipient,
	})
}

func TestSettlementSuite(t *testing.T) {
	suite.Run(t, new(settlementSuite))
}

func (s *settlementSuite) params(gross, payment string) settlement.SettleParams {
	return settlement.SettleParams{
		AssetId:      1,
		CollectionId: 1,
		Seller:       seller,
		Buyer:        buyer,
		GrossAmount:  decimal.RequireFromString(gross),
		Payment:      decimal.RequireFromString(payment),
		PayFrom:      buyer,
		Kind:         settlement.SaleKindDirect,
	}
}

func (s *settlementSuite) balance(acc domain.Address) decimal.Decimal {
	b, err := s.ledger.BalanceOf(s.ctx, acc)
	s.Require().NoError(err)
	return b
}

func (s *settlementSuite) TestSettleSplitsFunds() {
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.RequireFromString("110")))

	res, err := s.im.Settle(s.ctx, s.params("100", "110"))
	s.Require().NoError(err)

	s.True(res.PlatformFee.Equal(decimal.RequireFromString("2.5")))
	s.True(res.RoyaltyFee.Equal(decimal.RequireFromString("5")))
	s.True(res.SellerProceeds.Equal(decimal.RequireFromString("92.5")))
	s.True(res.ExcessRefund.Equal(decimal.RequireFromString("10")))

	// the split conserves the payment
	sum := res.PlatformFee.Add(res.RoyaltyFee).Add(res.SellerProceeds).Add(res.ExcessRefund)
	s.True(sum.Equal(decimal.RequireFromString("110")))

	s.True(s.balance(feeRecipient).Equal(decimal.RequireFromString("2.5")))
	s.True(s.balance(creator).Equal(decimal.RequireFromString("5")))
	s.True(s.balance(seller).Equal(decimal.RequireFromString("92.5")))
	s.True(s.balance(buyer).Equal(decimal.RequireFromString("10")))

	owner, err := s.registry.OwnerOf(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(buyer.ToLower(), owner)
}

func (s *settlementSuite) TestSettleRejectsPaymentBelowGross() {
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.RequireFromString("99")))

	_, err := s.im.Settle(s.ctx, s.params("100", "99"))
	s.Equal(domain.ErrInsufficientPayment, err)
}

func (s *settlementSuite) TestFeeLegFailureIsTyped() {
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.RequireFromString("1")))

	_, err := s.im.Settle(s.ctx, s.params("100", "100"))
	s.Equal(domain.ErrFeeTransferFailed, err)

	// nothing moved
	s.True(s.balance(buyer).Equal(decimal.RequireFromString("1")))
	owner, _ := s.registry.OwnerOf(s.ctx, 1)
	s.Equal(seller.ToLower(), owner)
}

func (s *settlementSuite) TestSellerLegFailureIsTyped() {
	// covers fee and royalty but not seller proceeds
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.RequireFromString("50")))

	_, err := s.im.Settle(s.ctx, s.params("100", "100"))
	s.Equal(domain.ErrSellerPaymentFailed, err)
	s.True(s.balance(buyer).Equal(decimal.RequireFromString("50")))
}

func (s *settlementSuite) TestExcessRefundFailureIsTyped() {
	// escrow holds exactly the gross amount, excess has no funding
	esc := domain.EscrowAccount("auction", 7)
	s.Require().NoError(s.ledger.Deposit(s.ctx, esc, decimal.RequireFromString("100")))

	p := s.params("100", "110")
	p.PayFrom = esc
	_, err := s.im.Settle(s.ctx, p)
	s.Equal(domain.ErrExcessRefundFailed, err)
	s.True(s.balance(esc).Equal(decimal.RequireFromString("100")))
}

func (s *settlementSuite) TestSellerNoLongerOwnsNFT() {
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.RequireFromString("100")))
	s.registry.Mint(s.ctx, 1, "0xother")

	_, err := s.im.Settle(s.ctx, s.params("100", "100"))
	s.Equal(domain.ErrSellerNoLongerOwnsNFT, err)
	s.True(s.balance(buyer).Equal(decimal.RequireFromString("100")))
}

func (s *settlementSuite) TestBatchIsAllOrNothing() {
	s.registry.Mint(s.ctx, 2, "0xother")
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.RequireFromString("200")))

	good := s.params("100", "100")
	bad := s.params("100", "100")
	bad.AssetId = 2

	_, err := s.im.SettleBatch(s.ctx, []settlement.SettleParams{good, bad})
	s.Equal(domain.ErrSellerNoLongerOwnsNFT, err)

	// the valid sale in the batch did not apply either
	s.True(s.balance(buyer).Equal(decimal.RequireFromString("200")))
	s.True(s.balance(seller).Equal(decimal.Zero))
	owner, _ := s.registry.OwnerOf(s.ctx, 1)
	s.Equal(seller.ToLower(), owner)
}

func (s *settlementSuite) TestItemsSold() {
	s.registry.Mint(s.ctx, 2, seller)
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.RequireFromString("300")))

	_, err := s.im.Settle(s.ctx, s.params("100", "100"))
	s.Require().NoError(err)

	p := s.params("100", "100")
	p.AssetId = 2
	_, err = s.im.Settle(s.ctx, p)
	s.Require().NoError(err)

	n, err := s.im.ItemsSold(s.ctx, seller)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	n, err = s.im.ItemsSold(s.ctx, buyer)
	s.Require().NoError(err)
	s.Equal(int64(0), n)
}

func (s *settlementSuite) TestZeroRoyaltyCollection() {
	s.Require().NoError(s.colls.Register(s.ctx, collection.Collection{
		CollectionId: 2,
		Creator:      creator,
		RoyaltyBps:   0,
	}))
	s.registry.Mint(s.ctx, 3, seller)
	s.Require().NoError(s.ledger.Deposit(s.ctx, buyer, decimal.RequireFromString("100")))

	p := s.params("100", "100")
	p.AssetId = 3
	p.CollectionId = 2
	res, err := s.im.Settle(s.ctx, p)
	s.Require().NoError(err)

	s.True(res.RoyaltyFee.IsZero())
	s.True(res.ExcessRefund.IsZero())
	s.True(s.balance(creator).IsZero())
	s.True(s.balance(seller).Equal(decimal.RequireFromString("97.5")))
}
