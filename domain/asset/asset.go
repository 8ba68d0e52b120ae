package asset

import (
	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
)

// Registry is the authoritative owner-of-record for non-fungible assets.
// The engine consumes it and never caches ownership across operations; every
// state-changing operation re-reads the current owner before acting.
type Registry interface {
	OwnerOf(c ctx.Ctx, assetId domain.AssetId) (domain.Address, error)
	// Transfer fails with domain.ErrNotTokenOwner when from is not the
	// current owner of the asset.
	Transfer(c ctx.Ctx, assetId domain.AssetId, from, to domain.Address) error
	IsApprovedForAll(c ctx.Ctx, owner, operator domain.Address) (bool, error)
}

// Minter seeds ownership directly. Chain-backed registries never implement
// it; the in-process registry exposes it for bootstrap tooling.
type Minter interface {
	Mint(c ctx.Ctx, assetId domain.AssetId, owner domain.Address)
}
