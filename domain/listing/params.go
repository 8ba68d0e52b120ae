package listing

import (
	"github.com/mintleaf/goapi/domain"
	"github.com/shopspring/decimal"
)

type SortOrder string

const (
	SortOrderNone           SortOrder = ""
	SortOrderPriceHighToLow SortOrder = "price_high_to_low"
	SortOrderPriceLowToHigh SortOrder = "price_low_to_high"
)

// ParseSortOrder maps a sort order onto the field and direction understood
// by the repo. Unknown values yield domain.ErrInvalidSortOrder.
func ParseSortOrder(value SortOrder) (string, domain.SortDir, error) {
	switch value {
	case SortOrderNone:
		return "listingId", domain.SortDirAsc, nil
	case SortOrderPriceHighToLow:
		return "price", domain.SortDirDesc, nil
	case SortOrderPriceLowToHigh:
		return "price", domain.SortDirAsc, nil
	}
	return "", 0, domain.ErrInvalidSortOrder
}

type FilterParams struct {
	Type         *Type                `query:"type"`
	CollectionId *domain.CollectionId `query:"collectionId"`
	PriceGTE     *decimal.Decimal     `query:"priceGTE"`
	PriceLTE     *decimal.Decimal     `query:"priceLTE"`
	SortOrder    SortOrder            `query:"sortOrder"`
	Offset       int32                `query:"offset"`
	Limit        int32                `query:"limit"`
}

type findAllOptions struct {
	Seller       *domain.Address
	CollectionId *domain.CollectionId
	AssetId      *domain.AssetId
	Type         *Type
	IsActive     *bool
	PriceGTE     *decimal.Decimal
	PriceLTE     *decimal.Decimal
	SortBy       *string
	SortDir      *domain.SortDir
	Offset       *int32
	Limit        *int32
}

// Matches reports whether a listing satisfies every set filter.
func (o *findAllOptions) Matches(l *Listing) bool {
	if o.Seller != nil && !l.Seller.Equals(*o.Seller) {
		return false
	}
	if o.CollectionId != nil && l.CollectionId != *o.CollectionId {
		return false
	}
	if o.AssetId != nil && l.AssetId != *o.AssetId {
		return false
	}
	if o.Type != nil && l.Type != *o.Type {
		return false
	}
	if o.IsActive != nil && l.IsActive != *o.IsActive {
		return false
	}
	if o.PriceGTE != nil && l.Price.LessThan(*o.PriceGTE) {
		return false
	}
	if o.PriceLTE != nil && l.Price.GreaterThan(*o.PriceLTE) {
		return false
	}
	return true
}

type FindAllOptions func(*findAllOptions) error

func GetFindAllOptions(opts ...FindAllOptions) (findAllOptions, error) {
	res := findAllOptions{}

	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}

	return res, nil
}

func WithSeller(seller domain.Address) FindAllOptions {
	return func(options *findAllOptions) error {
		options.Seller = seller.ToLowerPtr()
		return nil
	}
}

func WithCollection(id domain.CollectionId) FindAllOptions {
	return func(options *findAllOptions) error {
		options.CollectionId = &id
		return nil
	}
}

func WithAsset(id domain.AssetId) FindAllOptions {
	return func(options *findAllOptions) error {
		options.AssetId = &id
		return nil
	}
}

func WithType(t Type) FindAllOptions {
	return func(options *findAllOptions) error {
		options.Type = &t
		return nil
	}
}

func WithIsActive(active bool) FindAllOptions {
	return func(options *findAllOptions) error {
		options.IsActive = &active
		return nil
	}
}

func WithPriceGTE(price decimal.Decimal) FindAllOptions {
	return func(options *findAllOptions) error {
		options.PriceGTE = &price
		return nil
	}
}

func WithPriceLTE(price decimal.Decimal) FindAllOptions {
	return func(options *findAllOptions) error {
		options.PriceLTE = &price
		return nil
	}
}

func WithSort(sortBy string, sortDir domain.SortDir) FindAllOptions {
	return func(options *findAllOptions) error {
		options.SortBy = &sortBy
		options.SortDir = &sortDir
		return nil
	}
}

func WithPagination(offset, limit int32) FindAllOptions {
	return func(options *findAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}
