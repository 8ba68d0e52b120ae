package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	bCtx "github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/base/delivery"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/asset"
	"github.com/mintleaf/goapi/domain/collection"
	"github.com/mintleaf/goapi/domain/ledger"
	authMiddleware "github.com/mintleaf/goapi/stores/auth/delivery/http/middleware"
)

type handler struct {
	collections collection.Repo
	minter      asset.Minter
	ledger      ledger.Ledger
}

// New registers the bootstrap endpoints that seed engine state while no
// chain indexer feeds it. Every route requires an admin address.
func New(e *echo.Echo, collections collection.Repo, minter asset.Minter, ledgerService ledger.Ledger, authMiddleware *authMiddleware.AuthMiddleware) {
	h := &handler{collections, minter, ledgerService}

	g := e.Group("/admin", authMiddleware.Auth(), authMiddleware.IsAdmin())
	g.POST("/collections", h.registerCollection)
	g.POST("/assets", h.mintAsset)
	g.POST("/deposits", h.deposit)
}

func (h *handler) registerCollection(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := collection.Collection{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if p.CollectionId == 0 || p.Creator == "" {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	if err := h.collections.Register(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, p)
}

func (h *handler) mintAsset(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		AssetId domain.AssetId `json:"assetId"`
		Owner   domain.Address `json:"owner"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if p.AssetId == 0 || p.Owner == "" {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	h.minter.Mint(ctx, p.AssetId, p.Owner)
	return delivery.MakeJsonResp(c, http.StatusCreated, p)
}

func (h *handler) deposit(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		Account domain.Address  `json:"account"`
		Amount  decimal.Decimal `json:"amount"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if p.Account == "" {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	if err := h.ledger.Deposit(ctx, p.Account, p.Amount); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func errStatus(err error) int {
	switch err {
	case domain.ErrBadParamInput:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
