package usecase

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/asset"
	"github.com/mintleaf/goapi/domain/collection"
	"github.com/mintleaf/goapi/domain/ledger"
	"github.com/mintleaf/goapi/domain/settlement"
	"github.com/shopspring/decimal"
	"github.com/viney-shih/goroutines"
)

const feeDenominator = 10000

type SettlementUseCaseCfg struct {
	AssetRegistry  asset.Registry
	Ledger         ledger.Ledger
	CollectionRepo collection.Repo
	SaleRecordRepo settlement.SaleRecordRepo
	Clock          domain.Clock
	PlatformFeeBps int64
	FeeRecipient   domain.Address
}

type impl struct {
	assetRegistry  asset.Registry
	ledger         ledger.Ledger
	collectionRepo collection.Repo
	saleRecordRepo settlement.SaleRecordRepo
	clock          domain.Clock
	platformFeeBps int64
	feeRecipient   domain.Address

	workerPool *goroutines.Pool

	mu        sync.RWMutex
	itemsSold map[domain.Address]int64
}

func New(cfg *SettlementUseCaseCfg) settlement.Usecase {
	return &impl{
		assetRegistry:  cfg.AssetRegistry,
		ledger:         cfg.Ledger,
		collectionRepo: cfg.CollectionRepo,
		saleRecordRepo: cfg.SaleRecordRepo,
		clock:          cfg.Clock,
		platformFeeBps: cfg.PlatformFeeBps,
		feeRecipient:   cfg.FeeRecipient,
		workerPool:     goroutines.NewPool(16),
		itemsSold:      map[domain.Address]int64{},
	}
}

func (im *impl) Settle(c ctx.Ctx, params settlement.SettleParams) (*settlement.Result, error) {
	res, err := im.SettleBatch(c, []settlement.SettleParams{params})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// SettleBatch disburses platform fee, royalty, seller proceeds and any
// excess refund for every sale in the batch, atomically with the asset
// transfers. Ownership is re-read here, never trusted from listing time.
// Any failing leg rolls the whole batch back.
func (im *impl) SettleBatch(c ctx.Ctx, params []settlement.SettleParams) ([]*settlement.Result, error) {
	if len(params) == 0 {
		return nil, domain.ErrBadParamInput
	}

	results := make([]*settlement.Result, 0, len(params))
	entries := []ledger.Entry{}
	legErrs := []error{}

	for i := range params {
		p := &params[i]
		if !p.GrossAmount.IsPositive() {
			return nil, domain.ErrInvalidPrice
		}
		if p.Payment.LessThan(p.GrossAmount) {
			return nil, domain.ErrInsufficientPayment
		}

		owner, err := im.assetRegistry.OwnerOf(c, p.AssetId)
		if err != nil {
			c.WithField("err", err).Error("assetRegistry.OwnerOf failed")
			return nil, err
		}
		if !owner.Equals(p.Seller) {
			return nil, domain.ErrSellerNoLongerOwnsNFT
		}

		coll, err := im.collectionRepo.FindOne(c, p.CollectionId)
		if err != nil {
			c.WithField("err", err).Error("collectionRepo.FindOne failed")
			return nil, err
		}

		res := computeResult(p.GrossAmount, p.Payment, im.platformFeeBps, coll.RoyaltyBps)
		results = append(results, res)

		saleEntries, saleLegErrs := im.stageEntries(p, coll.Creator, res)
		entries = append(entries, saleEntries...)
		legErrs = append(legErrs, saleLegErrs...)
	}

	if err := im.checkFunds(c, entries, legErrs); err != nil {
		return nil, err
	}

	if err := im.ledger.ApplyBatch(c, entries); err != nil {
		c.WithField("err", err).Error("ledger.ApplyBatch failed")
		return nil, domain.ErrFeeTransferFailed
	}

	if err := im.transferAssets(c, params); err != nil {
		// undo the fund movement, settlement is all-or-nothing
		if rbErr := im.ledger.ApplyBatch(c, reverse(entries)); rbErr != nil {
			c.WithField("err", rbErr).Error("settlement rollback failed")
		}
		return nil, err
	}

	im.mu.Lock()
	for i := range params {
		im.itemsSold[params[i].Seller.ToLower()]++
	}
	im.mu.Unlock()

	for i := range params {
		im.emitSaleRecord(c, &params[i], results[i])
	}

	return results, nil
}

func (im *impl) ItemsSold(c ctx.Ctx, seller domain.Address) (int64, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.itemsSold[seller.ToLower()], nil
}

func computeResult(gross, payment decimal.Decimal, platformBps, royaltyBps int64) *settlement.Result {
	den := decimal.NewFromInt(feeDenominator)
	platformFee := gross.Mul(decimal.NewFromInt(platformBps)).Div(den).Truncate(18)
	royaltyFee := gross.Mul(decimal.NewFromInt(royaltyBps)).Div(den).Truncate(18)
	return &settlement.Result{
		PlatformFee:    platformFee,
		RoyaltyFee:     royaltyFee,
		SellerProceeds: gross.Sub(platformFee).Sub(royaltyFee),
		ExcessRefund:   payment.Sub(gross),
	}
}

// stageEntries builds the disbursement of one sale in order: platform fee,
// royalty, seller proceeds, excess refund. legErrs maps each entry to the
// typed failure it signals when the payer cannot cover it.
func (im *impl) stageEntries(p *settlement.SettleParams, creator domain.Address, res *settlement.Result) ([]ledger.Entry, []error) {
	entries := []ledger.Entry{}
	legErrs := []error{}

	if res.PlatformFee.IsPositive() {
		entries = append(entries, ledger.Entry{From: p.PayFrom, To: im.feeRecipient, Amount: res.PlatformFee})
		legErrs = append(legErrs, domain.ErrFeeTransferFailed)
	}
	if res.RoyaltyFee.IsPositive() {
		entries = append(entries, ledger.Entry{From: p.PayFrom, To: creator, Amount: res.RoyaltyFee})
		legErrs = append(legErrs, domain.ErrFeeTransferFailed)
	}
	entries = append(entries, ledger.Entry{From: p.PayFrom, To: p.Seller, Amount: res.SellerProceeds})
	legErrs = append(legErrs, domain.ErrSellerPaymentFailed)

	if res.ExcessRefund.IsPositive() {
		entries = append(entries, ledger.Entry{From: p.PayFrom, To: p.Buyer, Amount: res.ExcessRefund})
		legErrs = append(legErrs, domain.ErrExcessRefundFailed)
	}

	return entries, legErrs
}

// checkFunds identifies the first leg a payer cannot cover, before any
// mutation happens, so the typed failure names the failing transfer.
func (im *impl) checkFunds(c ctx.Ctx, entries []ledger.Entry, legErrs []error) error {
	balances := map[domain.Address]decimal.Decimal{}
	for i, e := range entries {
		from := e.From.ToLower()
		balance, ok := balances[from]
		if !ok {
			var err error
			balance, err = im.ledger.BalanceOf(c, from)
			if err != nil {
				return err
			}
		}
		balance = balance.Sub(e.Amount)
		if balance.IsNegative() {
			return legErrs[i]
		}
		balances[from] = balance

		to := e.To.ToLower()
		if cur, ok := balances[to]; ok {
			balances[to] = cur.Add(e.Amount)
		}
	}
	return nil
}

func (im *impl) transferAssets(c ctx.Ctx, params []settlement.SettleParams) error {
	for i := range params {
		p := &params[i]
		if err := im.assetRegistry.Transfer(c, p.AssetId, p.Seller, p.Buyer); err != nil {
			for j := i - 1; j >= 0; j-- {
				q := &params[j]
				if rbErr := im.assetRegistry.Transfer(c, q.AssetId, q.Buyer, q.Seller); rbErr != nil {
					c.WithField("err", rbErr).Error("asset transfer rollback failed")
				}
			}
			if err == domain.ErrNotTokenOwner {
				return domain.ErrSellerNoLongerOwnsNFT
			}
			c.WithField("err", err).Error("assetRegistry.Transfer failed")
			return err
		}
	}
	return nil
}

func reverse(entries []ledger.Entry) []ledger.Entry {
	res := make([]ledger.Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		res = append(res, ledger.Entry{From: e.To, To: e.From, Amount: e.Amount})
	}
	return res
}

// emitSaleRecord writes sale history through the worker pool so indexing
// I/O never runs inside the transaction boundary.
func (im *impl) emitSaleRecord(c ctx.Ctx, p *settlement.SettleParams, res *settlement.Result) {
	if im.saleRecordRepo == nil {
		return
	}

	record := settlement.SaleRecord{
		Id:           uuid.NewString(),
		AssetId:      p.AssetId,
		CollectionId: p.CollectionId,
		Seller:       p.Seller.ToLower(),
		Buyer:        p.Buyer.ToLower(),
		Price:        p.GrossAmount,
		PlatformFee:  res.PlatformFee,
		RoyaltyFee:   res.RoyaltyFee,
		Kind:         p.Kind,
		SoldAt:       im.clock.Now(),
	}

	im.workerPool.Schedule(func() {
		if err := im.saleRecordRepo.Insert(c, record); err != nil {
			c.WithField("err", err).Error("saleRecordRepo.Insert failed")
		}
	})
}
