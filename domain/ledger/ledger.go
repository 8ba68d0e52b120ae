package ledger

import (
	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/shopspring/decimal"
)

// Entry is one fund movement inside a batch.
type Entry struct {
	From   domain.Address
	To     domain.Address
	Amount decimal.Decimal
}

// Ledger tracks fungible balances per account, including the engine-owned
// escrow accounts. ApplyBatch is the engine's rollback primitive: it
// validates every debit against the would-be balances before applying
// anything, so a failing batch leaves the ledger untouched.
type Ledger interface {
	BalanceOf(c ctx.Ctx, account domain.Address) (decimal.Decimal, error)
	Deposit(c ctx.Ctx, account domain.Address, amount decimal.Decimal) error
	// Transfer fails with domain.ErrInsufficientFunds when from cannot
	// cover amount.
	Transfer(c ctx.Ctx, from, to domain.Address, amount decimal.Decimal) error
	// ApplyBatch applies the entries in order, all-or-nothing.
	ApplyBatch(c ctx.Ctx, entries []Entry) error
}
