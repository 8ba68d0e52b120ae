package repository

import (
	"sync"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/asset"
)

// Registry is an in-process owner-of-record. Production deployments swap in
// a chain-backed implementation of asset.Registry; the engine only ever
// talks to the interface.
type Registry struct {
	mu        sync.RWMutex
	owners    map[domain.AssetId]domain.Address
	approvals map[domain.Address]map[domain.Address]bool
}

var _ asset.Registry = (*Registry)(nil)

func New() *Registry {
	return &Registry{
		owners:    map[domain.AssetId]domain.Address{},
		approvals: map[domain.Address]map[domain.Address]bool{},
	}
}

// Mint seeds ownership. Used by wiring and tests, not part of the
// asset.Registry surface.
func (r *Registry) Mint(c ctx.Ctx, assetId domain.AssetId, owner domain.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[assetId] = owner.ToLower()
}

func (r *Registry) OwnerOf(c ctx.Ctx, assetId domain.AssetId) (domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.owners[assetId]
	if !ok {
		return "", domain.ErrNotFound
	}
	return owner, nil
}

func (r *Registry) Transfer(c ctx.Ctx, assetId domain.AssetId, from, to domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[assetId]
	if !ok {
		return domain.ErrNotFound
	}
	if !owner.Equals(from) {
		return domain.ErrNotTokenOwner
	}
	r.owners[assetId] = to.ToLower()
	return nil
}

func (r *Registry) SetApprovalForAll(c ctx.Ctx, owner, operator domain.Address, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.approvals[owner.ToLower()]
	if !ok {
		m = map[domain.Address]bool{}
		r.approvals[owner.ToLower()] = m
	}
	m[operator.ToLower()] = approved
}

func (r *Registry) IsApprovedForAll(c ctx.Ctx, owner, operator domain.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.approvals[owner.ToLower()][operator.ToLower()], nil
}
