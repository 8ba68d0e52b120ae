package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	bCtx "github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/base/delivery"
	"github.com/mintleaf/goapi/domain"
	dOffer "github.com/mintleaf/goapi/domain/offer"
	authMiddleware "github.com/mintleaf/goapi/stores/auth/delivery/http/middleware"
)

type handler struct {
	offer dOffer.Usecase
}

func New(e *echo.Echo, offer dOffer.Usecase, authMiddleware *authMiddleware.AuthMiddleware) {
	h := &handler{offer}

	g := e.Group("/offers")
	g.GET("/:id", h.getOffer)
	g.GET("/offerer/:offerer", h.getUserOffers)
	g.POST("", h.placeOffer, authMiddleware.Auth())
	g.DELETE("/collection/:collectionId", h.withdrawOffer, authMiddleware.Auth())
	g.POST("/accept", h.acceptOffer, authMiddleware.Auth())
}

func (h *handler) placeOffer(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	offerer := c.Get("address").(domain.Address)

	p := dOffer.PlacePayload{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	p.Offerer = offerer

	res, err := h.offer.PlaceCollectionOffer(ctx, p)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *handler) withdrawOffer(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	offerer := c.Get("address").(domain.Address)

	collectionId, err := strconv.ParseInt(c.Param("collectionId"), 10, 64)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	if err := h.offer.WithdrawCollectionOffer(ctx, domain.CollectionId(collectionId), offerer); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) acceptOffer(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	seller := c.Get("address").(domain.Address)

	p := dOffer.AcceptPayload{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	p.Seller = seller

	res, err := h.offer.AcceptCollectionOfferAndDelist(ctx, p)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getOffer(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.offer.GetOfferById(ctx, domain.OfferId(id))
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getUserOffers(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	res, err := h.offer.GetUserCollectionOffers(ctx, domain.Address(c.Param("offerer")))
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func errStatus(err error) int {
	switch err {
	case domain.ErrNotFound, domain.ErrNoActiveOffer:
		return http.StatusNotFound
	case domain.ErrUnauthorized:
		return http.StatusForbidden
	case domain.ErrInvalidPrice, domain.ErrInvalidNFTCount,
		domain.ErrInvalidOfferDuration, domain.ErrBadParamInput:
		return http.StatusBadRequest
	case domain.ErrOfferBelowFloorPrice, domain.ErrOfferAlreadyActive,
		domain.ErrNotTokenOwner, domain.ErrNFTOnAuction:
		return http.StatusConflict
	case domain.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}
