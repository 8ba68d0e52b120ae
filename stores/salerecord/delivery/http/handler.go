package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	bCtx "github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/base/delivery"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/settlement"
	"github.com/mintleaf/goapi/middleware"
)

const defaultLimit = 20

type handler struct {
	records    settlement.SaleRecordRepo
	settlement settlement.Usecase
}

func New(e *echo.Echo, records settlement.SaleRecordRepo, settlementUC settlement.Usecase) {
	h := &handler{records, settlementUC}

	g := e.Group("/sales")
	g.GET("/collection/:collectionId", h.getCollectionSales, middleware.CacheHttp(30*time.Second))
	g.GET("/seller/:seller/count", h.getItemsSold)
	g.GET("/:id", h.getSale)
}

func (h *handler) getSale(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	res, err := h.records.FindById(ctx, c.Param("id"))
	if err == domain.ErrNotFound {
		return delivery.MakeJsonResp(c, http.StatusNotFound, err)
	} else if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getCollectionSales(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	collectionId, err := strconv.ParseInt(c.Param("collectionId"), 10, 64)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	offset := int32(0)
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
		}
		offset = int32(n)
	}
	limit := int32(defaultLimit)
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 1 {
			return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
		}
		limit = int32(n)
	}

	items, err := h.records.FindByCollection(ctx, domain.CollectionId(collectionId), offset, limit)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	count, err := h.records.CountByCollection(ctx, domain.CollectionId(collectionId))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, settlement.SaleSearchResult{
		Items: items,
		Count: count,
	})
}

func (h *handler) getItemsSold(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	count, err := h.settlement.ItemsSold(ctx, domain.Address(c.Param("seller")))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, count)
}
