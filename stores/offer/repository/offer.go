package repository

import (
	"sort"
	"sync"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/offer"
)

type pairKey struct {
	collectionId domain.CollectionId
	offerer      domain.Address
}

// impl is the offer arena. Offers are never deleted; status transitions are
// recorded in place and the active index tracks the at-most-one active offer
// per (offerer, collection) pair.
type impl struct {
	mu     sync.RWMutex
	nextId domain.OfferId
	offers map[domain.OfferId]offer.CollectionOffer
	active map[pairKey]domain.OfferId
}

func New() offer.Repo {
	return &impl{
		nextId: 1,
		offers: map[domain.OfferId]offer.CollectionOffer{},
		active: map[pairKey]domain.OfferId{},
	}
}

func (im *impl) Create(c ctx.Ctx, value *offer.CollectionOffer) (domain.OfferId, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	key := pairKey{value.CollectionId, value.Offerer.ToLower()}
	if _, ok := im.active[key]; ok {
		return 0, domain.ErrOfferAlreadyActive
	}

	value.OfferId = im.nextId
	im.nextId++
	value.Offerer = value.Offerer.ToLower()
	value.Status = offer.StatusActive

	im.offers[value.OfferId] = *value
	im.active[key] = value.OfferId
	return value.OfferId, nil
}

func (im *impl) FindOne(c ctx.Ctx, id domain.OfferId) (*offer.CollectionOffer, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	value, ok := im.offers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &value, nil
}

func (im *impl) FindActive(c ctx.Ctx, collectionId domain.CollectionId, offerer domain.Address) (*offer.CollectionOffer, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	id, ok := im.active[pairKey{collectionId, offerer.ToLower()}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	value := im.offers[id]
	return &value, nil
}

func (im *impl) FindByOfferer(c ctx.Ctx, offerer domain.Address) ([]*offer.CollectionOffer, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	res := []*offer.CollectionOffer{}
	for id := range im.offers {
		value := im.offers[id]
		if value.Offerer.Equals(offerer) {
			res = append(res, &value)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].OfferId < res[j].OfferId
	})
	return res, nil
}

func (im *impl) Update(c ctx.Ctx, id domain.OfferId, patch offer.Patchable) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	value, ok := im.offers[id]
	if !ok {
		return domain.ErrNotFound
	}

	if patch.Status != nil && value.Status != *patch.Status {
		key := pairKey{value.CollectionId, value.Offerer}
		if value.Status == offer.StatusActive {
			delete(im.active, key)
		}
		value.Status = *patch.Status
		if value.Status == offer.StatusActive {
			im.active[key] = id
		}
	}

	im.offers[id] = value
	return nil
}
