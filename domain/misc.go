package domain

import (
	"fmt"
	"strings"
)

type SortDir int8

const (
	SortDirAsc  = 1
	SortDirDesc = -1
)

type Address string

const EmptyAddress = Address("0x0000000000000000000000000000000000000000")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerPtr() *Address {
	res := a.ToLower()
	return &res
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

// AssetId identifies a non-fungible asset inside the asset registry.
type AssetId int64

// CollectionId identifies a collection registered on the marketplace.
type CollectionId int64

// ListingId, AuctionId and OfferId are assigned monotonically by their
// respective arenas, starting from 1. Zero means unassigned.
type ListingId int64

type AuctionId int64

type OfferId int64

type Table string

const (
	TableSaleRecords Table = "sale_records"
)

// EscrowAccount derives the engine-owned ledger account that holds the funds
// escrowed for one auction or one collection offer.
func EscrowAccount(kind string, id int64) Address {
	return Address(fmt.Sprintf("escrow:%s:%d", kind, id))
}
