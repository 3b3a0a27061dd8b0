package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CheckoutHTTP struct {
	Svc *service.CheckoutService
}

func (h *CheckoutHTTP) CreateRazorpay(c echo.Context) error {
	return h.initiate(c, models.ProviderRazorpay)
}

func (h *CheckoutHTTP) CreatePaypal(c echo.Context) error {
	return h.initiate(c, models.ProviderPaypal)
}

func (h *CheckoutHTTP) initiate(c echo.Context, provider models.PaymentProvider) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.initiate", "provider", provider)

	cust, err := customer(c)
	if err != nil {
		return failed(l, "checkout_initiate_error", err)
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "checkout_initiate_error", "invalid body", err)
	}

	res, err := h.Svc.Initiate(ctx, cust, req.AddressID, provider)
	if err != nil {
		return failed(l, "checkout_initiate_error", err)
	}

	l.Info("checkout_initiated", "order_id", res.Order.ID, "payment_id", res.Session.ID)
	return respond(c, http.StatusCreated, "payment session created", transport.CheckoutResponse{
		OrderID:    res.Order.ID,
		Provider:   string(provider),
		PaymentID:  res.Session.ID,
		Amount:     res.Session.Amount,
		Currency:   res.Session.Currency,
		ApproveURL: res.Session.ApproveURL,
		KeyID:      res.Session.KeyID,
	})
}

func (h *CheckoutHTTP) VerifyRazorpay(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.verify_razorpay")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "verify_payment_error", err)
	}

	var req transport.VerifyRazorpayRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "verify_payment_error", "invalid body", err)
	}

	order, err := h.Svc.VerifyRazorpay(ctx, userID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		return failed(l, "verify_payment_error", err)
	}
	return respond(c, http.StatusOK, "payment verified", order)
}

func (h *CheckoutHTTP) VerifyPaypal(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.verify_paypal")

	userID, err := GetID(c)
	if err != nil {
		return failed(l, "verify_payment_error", err)
	}

	var req transport.VerifyPaypalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "verify_payment_error", "invalid body", err)
	}

	order, err := h.Svc.VerifyPaypal(ctx, userID, req.OrderID)
	if err != nil {
		return failed(l, "verify_payment_error", err)
	}
	return respond(c, http.StatusOK, "payment captured", order)
}
