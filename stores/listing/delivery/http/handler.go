package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	bCtx "github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/base/delivery"
	"github.com/mintleaf/goapi/domain"
	dListing "github.com/mintleaf/goapi/domain/listing"
	authMiddleware "github.com/mintleaf/goapi/stores/auth/delivery/http/middleware"
)

type handler struct {
	listing dListing.Usecase
}

func New(e *echo.Echo, listing dListing.Usecase, authMiddleware *authMiddleware.AuthMiddleware) {
	h := &handler{listing}

	g := e.Group("/listings")
	g.GET("", h.getListings)
	g.GET("/active", h.getActiveListings)
	g.GET("/:id", h.getListing)
	g.GET("/collection/:collectionId", h.getCollectionListings)
	g.GET("/creator/:seller", h.getCreatorListings)
	g.GET("/asset/:assetId/listed", h.isListed)
	g.POST("", h.createListing, authMiddleware.Auth())
	g.DELETE("/:id", h.cancelListing, authMiddleware.Auth())
	g.PATCH("/:id/price", h.updatePrice, authMiddleware.Auth())
	g.POST("/:id/buy", h.buyNow, authMiddleware.Auth())
}

func (h *handler) createListing(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	seller := c.Get("address").(domain.Address)

	p := dListing.CreatePayload{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	p.Seller = seller

	res, err := h.listing.CreateListing(ctx, p)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *handler) cancelListing(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	caller := c.Get("address").(domain.Address)

	id, err := parseListingId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	if err := h.listing.CancelListing(ctx, id, caller); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) updatePrice(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	caller := c.Get("address").(domain.Address)

	id, err := parseListingId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	p := struct {
		Price decimal.Decimal `json:"price"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	if err := h.listing.UpdateListingPrice(ctx, id, p.Price, caller); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) buyNow(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	buyer := c.Get("address").(domain.Address)

	id, err := parseListingId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	p := struct {
		Payment decimal.Decimal `json:"payment"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.listing.BuyNow(ctx, id, p.Payment, buyer)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getListing(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	id, err := parseListingId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.listing.GetListingDetails(ctx, id)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getListings(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := dListing.FilterParams{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.listing.GetFilteredListings(ctx, p)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getActiveListings(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	var p struct {
		Offset int32 `query:"offset"`
		Limit  int32 `query:"limit"`
	}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.listing.GetActiveListings(ctx, p.Offset, p.Limit)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getCollectionListings(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	collectionId, err := strconv.ParseInt(c.Param("collectionId"), 10, 64)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.listing.GetCollectionListings(ctx, domain.CollectionId(collectionId))
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getCreatorListings(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	res, err := h.listing.GetCreatorListings(ctx, domain.Address(c.Param("seller")))
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) isListed(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	assetId, err := strconv.ParseInt(c.Param("assetId"), 10, 64)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	listed, err := h.listing.IsNFTListed(ctx, domain.AssetId(assetId))
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, listed)
}

func parseListingId(value string) (domain.ListingId, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return domain.ListingId(id), nil
}

func errStatus(err error) int {
	switch err {
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrNotOwner, domain.ErrNotSeller, domain.ErrUnauthorized:
		return http.StatusForbidden
	case domain.ErrInvalidPrice, domain.ErrInvalidListingType,
		domain.ErrInvalidAuctionParameters, domain.ErrInvalidPageSize,
		domain.ErrInvalidSortOrder, domain.ErrBadParamInput:
		return http.StatusBadRequest
	case domain.ErrAlreadyListed, domain.ErrListingNotActive,
		domain.ErrOnAuctionWithBids, domain.ErrNFTOnAuction,
		domain.ErrSellerNoLongerOwnsNFT:
		return http.StatusConflict
	case domain.ErrInsufficientPayment, domain.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}
