package repository

import (
	"sync"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/collection"
	"github.com/shopspring/decimal"
)

type impl struct {
	mu          sync.RWMutex
	collections map[domain.CollectionId]collection.Collection
}

func New() collection.Repo {
	return &impl{collections: map[domain.CollectionId]collection.Collection{}}
}

func (im *impl) FindOne(c ctx.Ctx, id domain.CollectionId) (*collection.Collection, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	value, ok := im.collections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &value, nil
}

func (im *impl) Register(c ctx.Ctx, value collection.Collection) error {
	if value.RoyaltyBps < 0 || value.RoyaltyBps > collection.MaxRoyaltyBps {
		return domain.ErrBadParamInput
	}
	if value.MintedSupply < 0 {
		return domain.ErrBadParamInput
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	value.Creator = value.Creator.ToLower()
	im.collections[value.CollectionId] = value
	return nil
}

func (im *impl) UpdateFloorPrice(c ctx.Ctx, id domain.CollectionId, price decimal.Decimal) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	value, ok := im.collections[id]
	if !ok {
		return domain.ErrNotFound
	}
	value.FloorPrice = price
	im.collections[id] = value
	return nil
}
