package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

const testRazorpaySecret = "rzp_secret"

type publishedEvent struct {
	topic string
	key   string
	event map[string]any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, _ := event.(map[string]any)
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: m})
	return nil
}

func (p *recordingPublisher) types(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, fmt.Sprint(e.event["type"]))
		}
	}
	return out
}

type fakeRazorpay struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
	err      error
}

func (f *fakeRazorpay) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Session{
		ID:       fmt.Sprintf("order_rzp_%d", len(f.requests)),
		Amount:   req.Amount,
		Currency: req.Currency,
		KeyID:    "rzp_test_key",
	}, nil
}

func (f *fakeRazorpay) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.Signature(testRazorpaySecret, orderID, paymentID) == signature
}

func (f *fakeRazorpay) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakePaypal struct {
	mu       sync.Mutex
	sessions int
	status   string
	err      error
	captured []string
}

func (f *fakePaypal) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	return &payment.Session{
		ID:         fmt.Sprintf("PAYPAL-%d", f.sessions),
		Amount:     req.Amount,
		Currency:   payment.CurrencyUSD,
		ApproveURL: "https://paypal.test/approve",
	}, nil
}

func (f *fakePaypal) Capture(_ context.Context, orderID string) (*payment.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captured = append(f.captured, orderID)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Capture{ID: orderID, Status: f.status}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

type fixture struct {
	db       *gorm.DB
	repo     *repo.GormRepo
	events   *recordingPublisher
	razorpay *fakeRazorpay
	paypal   *fakePaypal
	mail     *fakeNotifier
	carts    *CartService
	coupons  *CouponService
	checkout *CheckoutService
	orders   *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.InitTestDB(t)
	r := repo.New(db)
	events := &recordingPublisher{}
	f := &fixture{
		db:       db,
		repo:     r,
		events:   events,
		razorpay: &fakeRazorpay{},
		paypal:   &fakePaypal{status: payment.StatusCompleted},
		mail:     &fakeNotifier{},
	}
	f.carts = &CartService{Repo: r, Events: events}
	f.coupons = &CouponService{Repo: r, Carts: f.carts, Events: events}
	f.checkout = &CheckoutService{
		Repo:     r,
		Carts:    f.carts,
		Razorpay: f.razorpay,
		Paypal:   f.paypal,
		Events:   events,
		Notifier: f.mail,
	}
	f.orders = &OrderService{Repo: r, Events: events}
	return f
}

// newCustomer provisions a cart and an address for a fresh user.
func (f *fixture) newCustomer(t *testing.T) (Customer, models.Address) {
	t.Helper()
	c := Customer{ID: uuid.New(), Email: "buyer@example.com"}
	_, err := f.carts.ProvisionCart(context.Background(), c.ID)
	require.NoError(t, err)
	return c, testutil.SeedAddress(t, f.db, c.ID)
}

func (f *fixture) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	p, err := f.repo.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func requireAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got)
}

func requireKind(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	require.ErrorIs(t, err, kind)
	if msg != "" {
		require.EqualError(t, err, msg)
	}
}
