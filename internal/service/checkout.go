package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/telemetry"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const notifyTimeout = 10 * time.Second

type RazorpayGateway interface {
	payment.SessionCreator
	VerifySignature(orderID, paymentID, signature string) bool
}

type PaypalGateway interface {
	payment.SessionCreator
	Capture(ctx context.Context, orderID string) (*payment.Capture, error)
}

type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

type Customer struct {
	ID    uuid.UUID
	Email string
}

type Checkout struct {
	Order   *models.Order    `json:"order"`
	Session *payment.Session `json:"session"`
}

// CheckoutService turns a cart into a provisional order, opens a payment
// session for it and fulfils it once the provider confirms payment.
type CheckoutService struct {
	Repo     *repo.GormRepo
	Carts    *CartService
	Razorpay RazorpayGateway
	Paypal   PaypalGateway
	Events   EventPublisher
	Notifier Notifier
	Index    ProductIndexer
	Metrics  *telemetry.CheckoutMetrics
	Now      func() time.Time
}

func (s *CheckoutService) now() time.Time { return nowOrDefault(s.Now) }

func (s *CheckoutService) gateway(p models.PaymentProvider) (payment.SessionCreator, error) {
	switch p {
	case models.ProviderRazorpay:
		if s.Razorpay != nil {
			return s.Razorpay, nil
		}
	case models.ProviderPaypal:
		if s.Paypal != nil {
			return s.Paypal, nil
		}
	}
	return nil, newError(ErrValidation, "unsupported payment provider %q", p)
}

// Initiate snapshots the cart into an unpaid order. The order is written
// only after the provider accepted the session.
func (s *CheckoutService) Initiate(ctx context.Context, customer Customer, addressID uuid.UUID, provider models.PaymentProvider) (res *Checkout, err error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout.initiate", attribute.String("payment.provider", string(provider)))
	defer func() { telemetry.EndSpan(span, err) }()

	gw, err := s.gateway(provider)
	if err != nil {
		return nil, err
	}

	address, err := s.Repo.GetAddress(ctx, addressID, customer.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "address not found")
	}
	if err != nil {
		return nil, err
	}

	cart, err := s.Carts.cartByOwner(ctx, customer.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(ErrValidation, "cart is empty")
	}
	if err != nil {
		return nil, err
	}
	v, _, err := s.Carts.price(ctx, cart)
	if err != nil {
		return nil, err
	}
	if len(v.Items) == 0 {
		return nil, newError(ErrValidation, "cart is empty")
	}
	for i := range v.Items {
		if err := checkStock(&v.Items[i].Product, v.Items[i].Quantity); err != nil {
			return nil, err
		}
	}

	session, err := gw.CreateSession(ctx, payment.SessionRequest{
		Amount:   v.DiscountedTotal,
		Currency: payment.CurrencyINR,
		Receipt:  "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20],
	})
	if err != nil {
		s.Metrics.Failure(ctx, string(provider), "session")
		logging.FromContext(ctx).Error("payment_session_failed", "provider", provider, "error", err)
		return nil, providerError(err, "failed to create payment session")
	}

	order := &models.Order{
		CustomerID:           customer.ID,
		CustomerEmail:        customer.Email,
		Address:              address.Snapshot(),
		OrderPrice:           v.CartTotal,
		DiscountedOrderPrice: v.DiscountedTotal,
		PaymentProvider:      provider,
		PaymentID:            session.ID,
		PaymentState:         models.PaymentSessionCreated,
		Status:               models.StatusPending,
	}
	if v.Coupon != nil {
		id := v.Coupon.ID
		order.CouponID = &id
	}
	for _, line := range v.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.Price,
		})
	}

	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.Metrics.SessionCreated(ctx, string(provider), v.DiscountedTotal.InexactFloat64())
	logging.FromContext(ctx).Info("payment_session_created", "provider", provider, "order_id", order.ID, "payment_id", session.ID)

	return &Checkout{Order: order, Session: session}, nil
}

func providerError(err error, fallback string) error {
	var perr *payment.ProviderError
	if errors.As(err, &perr) && perr.Reason != "" {
		return newError(ErrPaymentProvider, "%s", perr.Reason)
	}
	return newError(ErrPaymentProvider, "%s", fallback)
}

func (s *CheckoutService) ownedOrder(ctx context.Context, customerID uuid.UUID, paymentID string, provider models.PaymentProvider) (*models.Order, error) {
	order, err := s.Repo.GetOrderByPaymentID(ctx, paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID || order.PaymentProvider != provider {
		return nil, newError(ErrNotFound, "order not found")
	}
	return order, nil
}

// VerifyRazorpay checks the callback signature and fulfils the order. A bad
// signature changes nothing.
func (s *CheckoutService) VerifyRazorpay(ctx context.Context, customerID uuid.UUID, razorpayOrderID, razorpayPaymentID, signature string) (res *models.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout.verify_razorpay")
	defer func() { telemetry.EndSpan(span, err) }()

	if s.Razorpay == nil {
		return nil, newError(ErrValidation, "unsupported payment provider %q", models.ProviderRazorpay)
	}
	if razorpayOrderID == "" || razorpayPaymentID == "" || signature == "" {
		return nil, newError(ErrValidation, "order id, payment id and signature are required")
	}

	order, err := s.ownedOrder(ctx, customerID, razorpayOrderID, models.ProviderRazorpay)
	if err != nil {
		return nil, err
	}

	if !s.Razorpay.VerifySignature(razorpayOrderID, razorpayPaymentID, signature) {
		s.Metrics.Failure(ctx, string(models.ProviderRazorpay), "signature")
		logging.FromContext(ctx).Warn("payment_signature_mismatch", "order_id", order.ID, "payment_id", razorpayOrderID)
		return nil, newError(ErrInvalidSignature, "payment signature verification failed")
	}
	if order.IsPaymentDone {
		return order, nil
	}

	if err := s.Repo.SetPaymentState(ctx, order.PaymentID, models.PaymentVerified); err != nil {
		return nil, err
	}
	s.Metrics.PaymentVerified(ctx, string(models.ProviderRazorpay))

	return s.fulfill(ctx, order.PaymentID)
}

// VerifyPaypal captures the approved PayPal order and fulfils it when the
// capture completed.
func (s *CheckoutService) VerifyPaypal(ctx context.Context, customerID uuid.UUID, paypalOrderID string) (res *models.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout.verify_paypal")
	defer func() { telemetry.EndSpan(span, err) }()

	if s.Paypal == nil {
		return nil, newError(ErrValidation, "unsupported payment provider %q", models.ProviderPaypal)
	}
	if paypalOrderID == "" {
		return nil, newError(ErrValidation, "order id is required")
	}

	order, err := s.ownedOrder(ctx, customerID, paypalOrderID, models.ProviderPaypal)
	if err != nil {
		return nil, err
	}
	if order.IsPaymentDone {
		return order, nil
	}

	capture, err := s.Paypal.Capture(ctx, paypalOrderID)
	if err != nil {
		s.Metrics.Failure(ctx, string(models.ProviderPaypal), "capture")
		logging.FromContext(ctx).Error("payment_capture_failed", "order_id", order.ID, "error", err)
		return nil, providerError(err, "failed to capture payment")
	}
	if capture.Status != payment.StatusCompleted {
		s.Metrics.Failure(ctx, string(models.ProviderPaypal), "capture")
		if err := s.Repo.SetPaymentState(ctx, order.PaymentID, models.PaymentFailed); err != nil {
			return nil, err
		}
		return nil, newError(ErrPaymentProvider, "payment was not completed, status %s", capture.Status)
	}

	if err := s.Repo.SetPaymentState(ctx, order.PaymentID, models.PaymentVerified); err != nil {
		return nil, err
	}
	s.Metrics.PaymentVerified(ctx, string(models.ProviderPaypal))

	return s.fulfill(ctx, order.PaymentID)
}

// fulfill runs the paid-order side effects at most once per payment id.
func (s *CheckoutService) fulfill(ctx context.Context, paymentID string) (*models.Order, error) {
	l := logging.FromContext(ctx)

	order, fulfilled, err := s.Repo.FulfillOrder(ctx, paymentID, s.now())
	if errors.Is(err, repo.ErrStockConflict) {
		l.Error("fulfillment_stock_conflict", "payment_id", paymentID)
		return nil, newError(ErrInsufficientStock, "some products in the order are no longer in stock")
	}
	if err != nil {
		return nil, err
	}
	if !fulfilled {
		return order, nil
	}

	provider := string(order.PaymentProvider)
	s.Metrics.OrderFulfilled(ctx, provider)
	l.Info("order_fulfilled", "order_id", order.ID, "payment_id", paymentID, "provider", provider)

	publish(ctx, s.Events, topicOrderEvents, order.CustomerID.String(), map[string]any{
		"type":       "order_paid",
		"orderID":    order.ID,
		"userID":     order.CustomerID,
		"provider":   provider,
		"amount":     order.DiscountedOrderPrice,
		"itemsCount": len(order.Items),
	})

	products := s.orderedProducts(ctx, order)
	s.reindex(ctx, products)
	s.sendConfirmation(ctx, order, products)
	return order, nil
}

// orderedProducts loads the post-fulfillment product rows. A failure only
// degrades the follow-up steps.
func (s *CheckoutService) orderedProducts(ctx context.Context, order *models.Order) map[uuid.UUID]models.Product {
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, it := range order.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		logging.FromContext(ctx).Warn("ordered_products_load_failed", "order_id", order.ID, "error", err)
		return nil
	}
	return products
}

// reindex pushes the decremented stock to the search index, best effort.
func (s *CheckoutService) reindex(ctx context.Context, products map[uuid.UUID]models.Product) {
	if s.Index == nil {
		return
	}
	for id, p := range products {
		if err := s.Index.IndexProduct(ctx, &p); err != nil {
			logging.FromContext(ctx).Warn("product_index_failed", "product_id", id, "error", err)
		}
	}
}

func (s *CheckoutService) sendConfirmation(ctx context.Context, order *models.Order, products map[uuid.UUID]models.Product) {
	if s.Notifier == nil {
		return
	}
	l := logging.FromContext(ctx)

	names := make(map[uuid.UUID]string, len(products))
	for id, p := range products {
		names[id] = p.Name
	}

	msg, err := notify.OrderConfirmation(order, names)
	if err != nil {
		l.Error("order_confirmation_render_failed", "order_id", order.ID, "error", err)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.Notifier.Send(sendCtx, msg); err != nil {
		l.Error("order_confirmation_failed", "order_id", order.ID, "to", order.CustomerEmail, "error", err)
	}
}
