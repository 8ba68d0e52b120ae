package repository_test

import (
	"testing"

	bCtx "github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/ledger"
	"github.com/mintleaf/goapi/stores/ledger/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	alice = domain.Address("0xaa01")
	bob   = domain.Address("0xbb02")
	carol = domain.Address("0xcc03")
)

type ledgerSuite struct {
	suite.Suite

	ctx bCtx.Ctx
	im  ledger.Ledger
}

func (s *ledgerSuite) SetupTest() {
	s.ctx = bCtx.Background()
	s.im = repository.New()
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(ledgerSuite))
}

func (s *ledgerSuite) balance(acc domain.Address) decimal.Decimal {
	b, err := s.im.BalanceOf(s.ctx, acc)
	s.Require().NoError(err)
	return b
}

func (s *ledgerSuite) TestDepositAndTransfer() {
	s.Require().NoError(s.im.Deposit(s.ctx, alice, decimal.NewFromInt(100)))
	s.Require().NoError(s.im.Transfer(s.ctx, alice, bob, decimal.NewFromInt(30)))

	s.True(s.balance(alice).Equal(decimal.NewFromInt(70)))
	s.True(s.balance(bob).Equal(decimal.NewFromInt(30)))
}

func (s *ledgerSuite) TestBalancesAreCaseInsensitive() {
	s.Require().NoError(s.im.Deposit(s.ctx, domain.Address("0xAA01"), decimal.NewFromInt(5)))
	s.True(s.balance(alice).Equal(decimal.NewFromInt(5)))
}

func (s *ledgerSuite) TestTransferWithoutFunds() {
	s.Require().NoError(s.im.Deposit(s.ctx, alice, decimal.NewFromInt(10)))

	err := s.im.Transfer(s.ctx, alice, bob, decimal.NewFromInt(11))
	s.Equal(domain.ErrInsufficientFunds, err)
	s.True(s.balance(alice).Equal(decimal.NewFromInt(10)))
	s.True(s.balance(bob).IsZero())
}

func (s *ledgerSuite) TestNegativeAmountsRejected() {
	s.Equal(domain.ErrBadParamInput, s.im.Deposit(s.ctx, alice, decimal.NewFromInt(-1)))
	s.Equal(domain.ErrBadParamInput, s.im.Transfer(s.ctx, alice, bob, decimal.NewFromInt(-1)))
}

func (s *ledgerSuite) TestBatchIsAtomic() {
	s.Require().NoError(s.im.Deposit(s.ctx, alice, decimal.NewFromInt(100)))

	// the second entry overdraws, so the first must not apply either
	err := s.im.ApplyBatch(s.ctx, []ledger.Entry{
		{From: alice, To: bob, Amount: decimal.NewFromInt(60)},
		{From: alice, To: carol, Amount: decimal.NewFromInt(60)},
	})
	s.Equal(domain.ErrInsufficientFunds, err)
	s.True(s.balance(alice).Equal(decimal.NewFromInt(100)))
	s.True(s.balance(bob).IsZero())
	s.True(s.balance(carol).IsZero())
}

func (s *ledgerSuite) TestBatchSeesEarlierEntries() {
	s.Require().NoError(s.im.Deposit(s.ctx, alice, decimal.NewFromInt(10)))

	// bob can spend funds received earlier in the same batch
	s.Require().NoError(s.im.ApplyBatch(s.ctx, []ledger.Entry{
		{From: alice, To: bob, Amount: decimal.NewFromInt(10)},
		{From: bob, To: carol, Amount: decimal.NewFromInt(10)},
	}))
	s.True(s.balance(alice).IsZero())
	s.True(s.balance(bob).IsZero())
	s.True(s.balance(carol).Equal(decimal.NewFromInt(10)))
}
