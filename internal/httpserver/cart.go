package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "get_cart_error", err)
	}

	v, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		return failed(l, "get_cart_error", err)
	}
	return respond(c, http.StatusOK, "cart fetched", v)
}

func (h *CartHTTP) UpsertItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.upsert_item")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "upsert_item_error", err)
	}
	productID, err := paramID(c, "productId")
	if err != nil {
		return failed(l, "upsert_item_error", err)
	}

	var req transport.UpsertCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "upsert_item_error", "invalid body", err)
	}

	v, err := h.Svc.UpsertItem(ctx, userID, productID, req.Quantity)
	if err != nil {
		return failed(l, "upsert_item_error", err)
	}

	l.Info("cart_item_upserted", "product_id", productID, "quantity", req.Quantity)
	return respond(c, http.StatusOK, "cart updated", v)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "remove_item_error", err)
	}
	productID, err := paramID(c, "productId")
	if err != nil {
		return failed(l, "remove_item_error", err)
	}

	v, err := h.Svc.RemoveItem(ctx, userID, productID)
	if err != nil {
		return failed(l, "remove_item_error", err)
	}
	return respond(c, http.StatusOK, "item removed from cart", v)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "clear_cart_error", err)
	}

	v, err := h.Svc.ClearCart(ctx, userID)
	if err != nil {
		return failed(l, "clear_cart_error", err)
	}
	return respond(c, http.StatusOK, "cart cleared", v)
}

// ProvisionCart is the admin path to create a user's cart when the
// registration event was missed.
func (h *CartHTTP) ProvisionCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.provision")

	userID, err := paramID(c, "id")
	if err != nil {
		return failed(l, "provision_cart_error", err)
	}

	created, err := h.Svc.ProvisionCart(ctx, userID)
	if err != nil {
		return failed(l, "provision_cart_error", err)
	}

	status, msg := http.StatusOK, "cart already exists"
	if created {
		status, msg = http.StatusCreated, "cart created"
	}
	return respond(c, status, msg, transport.ProvisionCartResponse{UserID: userID, Created: created})
}
