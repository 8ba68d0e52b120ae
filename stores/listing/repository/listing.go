package repository

import (
	"sort"
	"sync"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/listing"
)

// impl is the listing arena: records addressed by monotonically assigned id,
// never deleted, deactivations recorded in place.
type impl struct {
	mu       sync.RWMutex
	nextId   domain.ListingId
	listings map[domain.ListingId]listing.Listing
	// active listing per asset, at most one
	activeByAsset map[domain.AssetId]domain.ListingId
}

func New() listing.Repo {
	return &impl{
		nextId:        1,
		listings:      map[domain.ListingId]listing.Listing{},
		activeByAsset: map[domain.AssetId]domain.ListingId{},
	}
}

func (im *impl) Create(c ctx.Ctx, value *listing.Listing) (domain.ListingId, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if _, ok := im.activeByAsset[value.AssetId]; ok {
		return 0, domain.ErrAlreadyListed
	}

	value.ListingId = im.nextId
	im.nextId++
	value.Seller = value.Seller.ToLower()
	value.IsActive = true

	im.listings[value.ListingId] = *value
	im.activeByAsset[value.AssetId] = value.ListingId
	return value.ListingId, nil
}

func (im *impl) FindOne(c ctx.Ctx, id domain.ListingId) (*listing.Listing, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	value, ok := im.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &value, nil
}

func (im *impl) FindActiveByAsset(c ctx.Ctx, assetId domain.AssetId) (*listing.Listing, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	id, ok := im.activeByAsset[assetId]
	if !ok {
		return nil, domain.ErrNotFound
	}
	value := im.listings[id]
	return &value, nil
}

func (im *impl) FindAll(c ctx.Ctx, optFns ...listing.FindAllOptions) ([]*listing.Listing, error) {
	opts, err := listing.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("listing.GetFindAllOptions failed")
		return nil, err
	}

	im.mu.RLock()
	matched := []*listing.Listing{}
	for id := range im.listings {
		value := im.listings[id]
		if opts.Matches(&value) {
			matched = append(matched, &value)
		}
	}
	im.mu.RUnlock()

	sortBy := "listingId"
	sortDir := domain.SortDir(domain.SortDirAsc)
	if opts.SortBy != nil && opts.SortDir != nil {
		sortBy = *opts.SortBy
		sortDir = *opts.SortDir
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if sortBy == "price" && !matched[i].Price.Equal(matched[j].Price) {
			if sortDir == domain.SortDirDesc {
				return matched[i].Price.GreaterThan(matched[j].Price)
			}
			return matched[i].Price.LessThan(matched[j].Price)
		}
		if sortDir == domain.SortDirDesc && sortBy != "price" {
			return matched[i].ListingId > matched[j].ListingId
		}
		return matched[i].ListingId < matched[j].ListingId
	})

	return paginate(matched, opts.Offset, opts.Limit), nil
}

func (im *impl) Count(c ctx.Ctx, optFns ...listing.FindAllOptions) (int, error) {
	opts, err := listing.GetFindAllOptions(optFns...)
	if err != nil {
		return 0, err
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	count := 0
	for id := range im.listings {
		value := im.listings[id]
		if opts.Matches(&value) {
			count++
		}
	}
	return count, nil
}

func (im *impl) Update(c ctx.Ctx, id domain.ListingId, patch listing.Patchable) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	value, ok := im.listings[id]
	if !ok {
		return domain.ErrNotFound
	}

	if patch.Price != nil {
		value.Price = *patch.Price
	}
	if patch.Type != nil {
		value.Type = *patch.Type
	}
	if patch.UpdatedAt != nil {
		value.UpdatedAt = *patch.UpdatedAt
	}
	if patch.IsActive != nil && value.IsActive != *patch.IsActive {
		value.IsActive = *patch.IsActive
		if value.IsActive {
			im.activeByAsset[value.AssetId] = id
		} else {
			delete(im.activeByAsset, value.AssetId)
		}
	}

	im.listings[id] = value
	return nil
}

func paginate(items []*listing.Listing, offset, limit *int32) []*listing.Listing {
	from := 0
	if offset != nil {
		from = int(*offset)
	}
	if from >= len(items) {
		return []*listing.Listing{}
	}
	to := len(items)
	if limit != nil && *limit > 0 && from+int(*limit) < to {
		to = from + int(*limit)
	}
	return items[from:to]
}
