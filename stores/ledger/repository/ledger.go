package repository

import (
	"sync"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/ledger"
	"github.com/shopspring/decimal"
)

type impl struct {
	mu       sync.RWMutex
	balances map[domain.Address]decimal.Decimal
}

func New() ledger.Ledger {
	return &impl{balances: map[domain.Address]decimal.Decimal{}}
}

func (im *impl) BalanceOf(c ctx.Ctx, account domain.Address) (decimal.Decimal, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.balances[account.ToLower()], nil
}

func (im *impl) Deposit(c ctx.Ctx, account domain.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return domain.ErrBadParamInput
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	acc := account.ToLower()
	im.balances[acc] = im.balances[acc].Add(amount)
	return nil
}

func (im *impl) Transfer(c ctx.Ctx, from, to domain.Address, amount decimal.Decimal) error {
	return im.ApplyBatch(c, []ledger.Entry{{From: from, To: to, Amount: amount}})
}

// ApplyBatch validates every debit against the running balances before
// touching the map, so a failing batch leaves the ledger unchanged.
func (im *impl) ApplyBatch(c ctx.Ctx, entries []ledger.Entry) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	staged := map[domain.Address]decimal.Decimal{}
	balance := func(acc domain.Address) decimal.Decimal {
		if v, ok := staged[acc]; ok {
			return v
		}
		return im.balances[acc]
	}

	for _, e := range entries {
		if e.Amount.IsNegative() {
			return domain.ErrBadParamInput
		}
		from, to := e.From.ToLower(), e.To.ToLower()
		next := balance(from).Sub(e.Amount)
		if next.IsNegative() {
			c.WithFields(map[string]interface{}{
				"from":   from,
				"amount": e.Amount,
			}).Warn("ledger batch rejected")
			return domain.ErrInsufficientFunds
		}
		staged[from] = next
		staged[to] = balance(to).Add(e.Amount)
	}

	for acc, v := range staged {
		im.balances[acc] = v
	}
	return nil
}
