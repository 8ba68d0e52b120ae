package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	bCtx "github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/base/delivery"
	"github.com/mintleaf/goapi/domain"
	dAuction "github.com/mintleaf/goapi/domain/auction"
	authMiddleware "github.com/mintleaf/goapi/stores/auth/delivery/http/middleware"
)

type handler struct {
	auction dAuction.Usecase
}

func New(e *echo.Echo, auction dAuction.Usecase, authMiddleware *authMiddleware.AuthMiddleware) {
	h := &handler{auction}

	g := e.Group("/auctions")
	g.GET("/:id", h.getAuction)
	g.GET("/:id/bids", h.getBids)
	g.GET("/:id/can-end", h.canEnd)
	g.POST("/:id/bids", h.placeBid, authMiddleware.Auth())
	g.POST("/:id/end", h.endAuction, authMiddleware.Auth())
	g.DELETE("/:id", h.cancelAuction, authMiddleware.Auth())
	g.PATCH("/:id/extend", h.extendAuction, authMiddleware.Auth())
	g.PATCH("/:id/reserve", h.updateReservePrice, authMiddleware.Auth())
	g.DELETE("/:id/bids", h.withdrawBid, authMiddleware.Auth())
}

func (h *handler) getAuction(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	id, err := parseAuctionId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.auction.GetAuction(ctx, id)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getBids(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	id, err := parseAuctionId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.auction.GetBids(ctx, id)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) canEnd(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	id, err := parseAuctionId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.auction.CanEndAuction(ctx, id)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) placeBid(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	bidder := c.Get("address").(domain.Address)

	id, err := parseAuctionId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	p := struct {
		Amount decimal.Decimal `json:"amount"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	if err := h.auction.PlaceBid(ctx, id, p.Amount, bidder); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) endAuction(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	id, err := parseAuctionId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.auction.EndAuction(ctx, id)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) cancelAuction(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	caller := c.Get("address").(domain.Address)

	id, err := parseAuctionId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	if err := h.auction.CancelAuction(ctx, id, caller); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) extendAuction(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	caller := c.Get("address").(domain.Address)

	id, err := parseAuctionId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	p := struct {
		ExtraDuration time.Duration `json:"extraDuration"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	if err := h.auction.ExtendAuction(ctx, id, p.ExtraDuration, caller); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) updateReservePrice(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	caller := c.Get("address").(domain.Address)

	id, err := parseAuctionId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	p := struct {
		ReservePrice decimal.Decimal `json:"reservePrice"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	if err := h.auction.UpdateReservePrice(ctx, id, p.ReservePrice, caller); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) withdrawBid(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)
	bidder := c.Get("address").(domain.Address)

	id, err := parseAuctionId(c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	if err := h.auction.WithdrawBid(ctx, id, bidder); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func parseAuctionId(value string) (domain.AuctionId, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return domain.AuctionId(id), nil
}

func errStatus(err error) int {
	switch err {
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrNotSeller, domain.ErrUnauthorized:
		return http.StatusForbidden
	case domain.ErrInvalidPrice, domain.ErrInvalidAuctionParameters,
		domain.ErrExceedsMaxDuration, domain.ErrBadParamInput:
		return http.StatusBadRequest
	case domain.ErrAuctionNotActive, domain.ErrAuctionStillRunning,
		domain.ErrAuctionEnded, domain.ErrHasBids, domain.ErrBidTooLow,
		domain.ErrBelowStartingPrice, domain.ErrHighestBidderCannotWithdraw:
		return http.StatusConflict
	case domain.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}
