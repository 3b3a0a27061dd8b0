package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_mine")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "list_orders_error", err)
	}

	page, size := pageParams(c)
	res, err := h.Svc.ListMine(ctx, userID, page, size)
	if err != nil {
		return failed(l, "list_orders_error", err)
	}
	return respond(c, http.StatusOK, "orders fetched", res)
}

func (h *OrderHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "get_order_error", err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return failed(l, "get_order_error", err)
	}

	order, err := h.Svc.Get(ctx, id, userID, isAdmin(c))
	if err != nil {
		return failed(l, "get_order_error", err)
	}
	return respond(c, http.StatusOK, "order fetched", order)
}

func (h *OrderHTTP) ListAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_admin")

	page, size := pageParams(c)
	res, err := h.Svc.ListAdmin(ctx, c.QueryParam("status"), page, size)
	if err != nil {
		return failed(l, "list_orders_error", err)
	}
	return respond(c, http.StatusOK, "orders fetched", res)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := paramID(c, "id")
	if err != nil {
		return failed(l, "update_order_status_error", err)
	}

	var req transport.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_order_status_error", "invalid body", err)
	}

	order, err := h.Svc.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return failed(l, "update_order_status_error", err)
	}
	return respond(c, http.StatusOK, "order status updated", order)
}
