package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CouponHTTP struct {
	Svc *service.CouponService
}

func (h *CouponHTTP) Apply(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.apply")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "apply_coupon_error", err)
	}

	var req transport.ApplyCouponRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "apply_coupon_error", "invalid body", err)
	}

	v, err := h.Svc.Apply(ctx, userID, req.Code)
	if err != nil {
		return failed(l, "apply_coupon_error", err)
	}

	l.Info("coupon_applied", "code", v.Coupon.CouponCode)
	return respond(c, http.StatusOK, "coupon applied", v)
}

func (h *CouponHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.remove")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "remove_coupon_error", err)
	}

	v, err := h.Svc.Remove(ctx, userID)
	if err != nil {
		return failed(l, "remove_coupon_error", err)
	}
	return respond(c, http.StatusOK, "coupon removed", v)
}

func (h *CouponHTTP) ListAvailable(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.list_available")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "list_available_coupons_error", err)
	}

	page, size := pageParams(c)
	res, err := h.Svc.ListAvailable(ctx, userID, page, size)
	if err != nil {
		return failed(l, "list_available_coupons_error", err)
	}
	return respond(c, http.StatusOK, "available coupons fetched", res)
}

func (h *CouponHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.create")

	ownerID, err := GetID(c)
	if err != nil {
		return failed(l, "create_coupon_error", err)
	}

	var req transport.CreateCouponRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_coupon_error", "invalid body", err)
	}

	in := service.CouponInput{
		Name:             req.Name,
		Code:             req.Code,
		Type:             models.CouponType(req.Type),
		DiscountValue:    req.DiscountValue,
		MinimumCartValue: req.MinimumCartValue,
		ExpiryDate:       req.ExpiryDate,
		IsActive:         req.IsActive,
	}
	if req.StartDate != nil {
		in.StartDate = *req.StartDate
	}

	coupon, err := h.Svc.Create(ctx, ownerID, in)
	if err != nil {
		return failed(l, "create_coupon_error", err)
	}

	l.Info("coupon_created", "coupon_id", coupon.ID, "code", coupon.CouponCode)
	return respond(c, http.StatusCreated, "coupon created", coupon)
}

func (h *CouponHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.list")

	page, size := pageParams(c)
	res, err := h.Svc.List(ctx, page, size)
	if err != nil {
		return failed(l, "list_coupons_error", err)
	}
	return respond(c, http.StatusOK, "coupons fetched", res)
}

func (h *CouponHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.get")

	id, err := paramID(c, "id")
	if err != nil {
		return failed(l, "get_coupon_error", err)
	}

	coupon, err := h.Svc.Get(ctx, id)
	if err != nil {
		return failed(l, "get_coupon_error", err)
	}
	return respond(c, http.StatusOK, "coupon fetched", coupon)
}

func (h *CouponHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.update")

	id, err := paramID(c, "id")
	if err != nil {
		return failed(l, "update_coupon_error", err)
	}

	var req transport.PatchCouponRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_coupon_error", "invalid body", err)
	}

	patch := service.CouponPatch{
		Name:             req.Name,
		Code:             req.Code,
		DiscountValue:    req.DiscountValue,
		MinimumCartValue: req.MinimumCartValue,
		StartDate:        req.StartDate,
		ExpiryDate:       req.ExpiryDate,
		IsActive:         req.IsActive,
	}
	if req.Type != nil {
		t := models.CouponType(*req.Type)
		patch.Type = &t
	}

	coupon, err := h.Svc.Update(ctx, id, patch)
	if err != nil {
		return failed(l, "update_coupon_error", err)
	}
	return respond(c, http.StatusOK, "coupon updated", coupon)
}

func (h *CouponHTTP) SetStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.set_status")

	id, err := paramID(c, "id")
	if err != nil {
		return failed(l, "set_coupon_status_error", err)
	}

	var req transport.CouponStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_coupon_status_error", "invalid body", err)
	}
	if req.IsActive == nil {
		return badRequest(l, "set_coupon_status_error", "is_active is required", nil)
	}

	coupon, err := h.Svc.SetActive(ctx, id, *req.IsActive)
	if err != nil {
		return failed(l, "set_coupon_status_error", err)
	}
	return respond(c, http.StatusOK, "coupon status updated", coupon)
}

func (h *CouponHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.delete")

	id, err := paramID(c, "id")
	if err != nil {
		return failed(l, "delete_coupon_error", err)
	}

	if err := h.Svc.Delete(ctx, id); err != nil {
		return failed(l, "delete_coupon_error", err)
	}
	return respond(c, http.StatusOK, "coupon deleted", map[string]any{"id": id})
}
