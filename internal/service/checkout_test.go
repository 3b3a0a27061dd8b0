package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func TestInitiate_EmptyCartNeverReachesProvider(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c, addr := f.newCustomer(t)

	_, err := f.checkout.Initiate(context.Background(), c, addr.ID, models.ProviderRazorpay)
	requireKind(t, err, ErrValidation, "cart is empty")
	require.Zero(t, f.razorpay.calls())

	stranger := Customer{ID: uuid.New()}
	strangerAddr := testutil.SeedAddress(t, f.db, stranger.ID)
	_, err = f.checkout.Initiate(context.Background(), stranger, strangerAddr.ID, models.ProviderRazorpay)
	requireKind(t, err, ErrValidation, "cart is empty")
	require.Zero(t, f.razorpay.calls())
}

func TestInitiate_Rejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	c, addr := f.newCustomer(t)
	p := testutil.SeedProduct(t, f.db, "phone", 500, 3)
	_, err := f.carts.UpsertItem(ctx, c.ID, p.ID, 2)
	require.NoError(t, err)

	_, err = f.checkout.Initiate(ctx, c, uuid.New(), models.ProviderRazorpay)
	requireKind(t, err, ErrNotFound, "address not found")

	other := testutil.SeedAddress(t, f.db, uuid.New())
	_, err = f.checkout.Initiate(ctx, c, other.ID, models.ProviderRazorpay)
	requireKind(t, err, ErrNotFound, "address not found")

	_, err = f.checkout.Initiate(ctx, c, addr.ID, "STRIPE")
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", p.ID).Update("stock", 1).Error)
	_, err = f.checkout.Initiate(ctx, c, addr.ID, models.ProviderRazorpay)
	requireKind(t, err, ErrInsufficientStock, "only 1 products are remaining, but you are adding 2")

	require.Zero(t, f.razorpay.calls())
}

func TestInitiate_ProviderErrorCreatesNoOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	c, addr := f.newCustomer(t)
	p := testutil.SeedProduct(t, f.db, "phone", 500, 3)
	_, err := f.carts.UpsertItem(ctx, c.ID, p.ID, 1)
	require.NoError(t, err)

	f.razorpay.err = &payment.ProviderError{Provider: "razorpay", StatusCode: 400, Reason: "Authentication failed"}
	_, err = f.checkout.Initiate(ctx, c, addr.ID, models.ProviderRazorpay)
	requireKind(t, err, ErrPaymentProvider, "Authentication failed")

	f.razorpay.err = errors.New("dial tcp: timeout")
	_, err = f.checkout.Initiate(ctx, c, addr.ID, models.ProviderRazorpay)
	requireKind(t, err, ErrPaymentProvider, "failed to create payment session")

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestInitiate_SnapshotsCart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	c, addr := f.newCustomer(t)
	p := testutil.SeedProduct(t, f.db, "headphones", 100, 5)
	coupon := testutil.SeedCoupon(t, f.db, "SOUND50", 50, 150)

	_, err := f.carts.UpsertItem(ctx, c.ID, p.ID, 2)
	require.NoError(t, err)
	_, err = f.coupons.Apply(ctx, c.ID, "sound50")
	require.NoError(t, err)

	res, err := f.checkout.Initiate(ctx, c, addr.ID, models.ProviderRazorpay)
	require.NoError(t, err)
	require.Equal(t, "order_rzp_1", res.Session.ID)
	requireAmount(t, 150, f.razorpay.requests[0].Amount)
	require.Equal(t, payment.CurrencyINR, f.razorpay.requests[0].Currency)

	o, err := f.repo.GetOrderByPaymentID(ctx, res.Session.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, o.CustomerID)
	require.Equal(t, "buyer@example.com", o.CustomerEmail)
	require.Equal(t, addr.AddressLine1, o.Address.AddressLine1)
	requireAmount(t, 200, o.OrderPrice)
	requireAmount(t, 150, o.DiscountedOrderPrice)
	require.NotNil(t, o.CouponID)
	require.Equal(t, coupon.ID, *o.CouponID)
	require.False(t, o.IsPaymentDone)
	require.Equal(t, models.PaymentSessionCreated, o.PaymentState)
	require.Equal(t, models.StatusPending, o.Status)
	require.Len(t, o.Items, 1)
	require.Equal(t, 2, o.Items[0].Quantity)
	requireAmount(t, 100, o.Items[0].UnitPrice)

	require.Equal(t, 5, f.stock(t, p.ID))
	v, err := f.carts.GetCart(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
}

func initiated(t *testing.T, f *fixture, provider models.PaymentProvider) (Customer, models.Product, *Checkout) {
	t.Helper()
	ctx := context.Background()
	c, addr := f.newCustomer(t)
	p := testutil.SeedProduct(t, f.db, "camera", 100, 5)
	_, err := f.carts.UpsertItem(ctx, c.ID, p.ID, 2)
	require.NoError(t, err)
	res, err := f.checkout.Initiate(ctx, c, addr.ID, provider)
	require.NoError(t, err)
	return c, p, res
}

func TestVerifyRazorpay_SignatureMismatchChangesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	c, p, res := initiated(t, f, models.ProviderRazorpay)

	_, err := f.checkout.VerifyRazorpay(ctx, c.ID, res.Session.ID, "pay_1", "deadbeef")
	require.ErrorIs(t, err, ErrInvalidSignature)

	o, err := f.repo.GetOrderByPaymentID(ctx, res.Session.ID)
	require.NoError(t, err)
	require.False(t, o.IsPaymentDone)
	require.Equal(t, models.PaymentSessionCreated, o.PaymentState)
	require.Equal(t, 5, f.stock(t, p.ID))

	v, err := f.carts.GetCart(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	require.Empty(t, f.events.types(topicOrderEvents))
	require.Empty(t, f.mail.sent)
}

func TestVerifyRazorpay_FulfilsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	c, p, res := initiated(t, f, models.ProviderRazorpay)
	sig := payment.Signature(testRazorpaySecret, res.Session.ID, "pay_1")

	o, err := f.checkout.VerifyRazorpay(ctx, c.ID, res.Session.ID, "pay_1", sig)
	require.NoError(t, err)
	require.True(t, o.IsPaymentDone)
	require.Equal(t, models.PaymentFulfilled, o.PaymentState)
	require.NotNil(t, o.FulfilledAt)
	require.Equal(t, 3, f.stock(t, p.ID))

	v, err := f.carts.GetCart(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, v.Items)
	require.Nil(t, v.Coupon)

	require.Equal(t, []string{"order_paid"}, f.events.types(topicOrderEvents))
	require.Len(t, f.mail.sent, 1)
	require.Equal(t, "buyer@example.com", f.mail.sent[0].To)
	require.Contains(t, f.mail.sent[0].Text, "camera")

	again, err := f.checkout.VerifyRazorpay(ctx, c.ID, res.Session.ID, "pay_1", sig)
	require.NoError(t, err)
	require.Equal(t, o.ID, again.ID)
	require.Equal(t, 3, f.stock(t, p.ID))
	require.Len(t, f.events.types(topicOrderEvents), 1)
	require.Len(t, f.mail.sent, 1)
}

func TestFulfillment_ReindexesStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ix := &fakeIndex{stock: map[uuid.UUID]int{}, err: errors.New("es down")}
	f.checkout.Index = ix
	ctx := context.Background()
	c, p, res := initiated(t, f, models.ProviderRazorpay)
	sig := payment.Signature(testRazorpaySecret, res.Session.ID, "pay_1")

	_, err := f.checkout.VerifyRazorpay(ctx, c.ID, res.Session.ID, "pay_1", sig)
	require.NoError(t, err, "index failures do not fail fulfillment")
	require.Equal(t, map[uuid.UUID]int{p.ID: 3}, ix.stock)

	_, err = f.checkout.VerifyRazorpay(ctx, c.ID, res.Session.ID, "pay_1", sig)
	require.NoError(t, err)
	require.Len(t, ix.indexed, 1)
}

func TestVerifyRazorpay_OtherCustomer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, _, res := initiated(t, f, models.ProviderRazorpay)
	sig := payment.Signature(testRazorpaySecret, res.Session.ID, "pay_1")

	_, err := f.checkout.VerifyRazorpay(context.Background(), uuid.New(), res.Session.ID, "pay_1", sig)
	requireKind(t, err, ErrNotFound, "order not found")

	_, err = f.checkout.VerifyRazorpay(context.Background(), uuid.New(), "order_missing", "pay_1", sig)
	requireKind(t, err, ErrNotFound, "order not found")
}

func TestVerifyRazorpay_StockConflictRollsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	c, p, res := initiated(t, f, models.ProviderRazorpay)
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", p.ID).Update("stock", 1).Error)
	sig := payment.Signature(testRazorpaySecret, res.Session.ID, "pay_1")

	_, err := f.checkout.VerifyRazorpay(ctx, c.ID, res.Session.ID, "pay_1", sig)
	require.ErrorIs(t, err, ErrInsufficientStock)

	o, err := f.repo.GetOrderByPaymentID(ctx, res.Session.ID)
	require.NoError(t, err)
	require.False(t, o.IsPaymentDone)
	require.Equal(t, 1, f.stock(t, p.ID))

	v, err := f.carts.GetCart(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
}

func TestVerifyRazorpay_MailFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.mail.err = errors.New("smtp: connection refused")
	c, _, res := initiated(t, f, models.ProviderRazorpay)
	sig := payment.Signature(testRazorpaySecret, res.Session.ID, "pay_1")

	o, err := f.checkout.VerifyRazorpay(context.Background(), c.ID, res.Session.ID, "pay_1", sig)
	require.NoError(t, err)
	require.True(t, o.IsPaymentDone)
}

func TestVerifyPaypal(t *testing.T) {
	t.Parallel()

	t.Run("completed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		c, p, res := initiated(t, f, models.ProviderPaypal)

		o, err := f.checkout.VerifyPaypal(context.Background(), c.ID, res.Session.ID)
		require.NoError(t, err)
		require.True(t, o.IsPaymentDone)
		require.Equal(t, 3, f.stock(t, p.ID))
		require.Equal(t, []string{res.Session.ID}, f.paypal.captured)
	})

	t.Run("not completed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.paypal.status = "PAYER_ACTION_REQUIRED"
		c, p, res := initiated(t, f, models.ProviderPaypal)

		_, err := f.checkout.VerifyPaypal(context.Background(), c.ID, res.Session.ID)
		require.ErrorIs(t, err, ErrPaymentProvider)

		o, err := f.repo.GetOrderByPaymentID(context.Background(), res.Session.ID)
		require.NoError(t, err)
		require.False(t, o.IsPaymentDone)
		require.Equal(t, models.PaymentFailed, o.PaymentState)
		require.Equal(t, 5, f.stock(t, p.ID))
	})

	t.Run("capture error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.paypal.err = &payment.ProviderError{Provider: "paypal", StatusCode: 422, Reason: "Payer has not yet approved the Order for payment."}
		c, _, res := initiated(t, f, models.ProviderPaypal)

		_, err := f.checkout.VerifyPaypal(context.Background(), c.ID, res.Session.ID)
		requireKind(t, err, ErrPaymentProvider, "Payer has not yet approved the Order for payment.")
	})

	t.Run("razorpay order", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		c, _, res := initiated(t, f, models.ProviderRazorpay)

		_, err := f.checkout.VerifyPaypal(context.Background(), c.ID, res.Session.ID)
		require.ErrorIs(t, err, ErrNotFound)
		require.Empty(t, f.paypal.captured)
	})
}

// A full pass: 2 x 100 with a 50 off / 150 minimum coupon, then one unit
// less, which drops the coupon.
func TestCheckout_EndToEnd(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	c, addr := f.newCustomer(t)
	p := testutil.SeedProduct(t, f.db, "speaker", 100, 10)
	testutil.SeedCoupon(t, f.db, "SOUND50", 50, 150)

	_, err := f.carts.UpsertItem(ctx, c.ID, p.ID, 2)
	require.NoError(t, err)
	v, err := f.coupons.Apply(ctx, c.ID, "SOUND50")
	require.NoError(t, err)
	requireAmount(t, 150, v.DiscountedTotal)

	v, err = f.carts.UpsertItem(ctx, c.ID, p.ID, 1)
	require.NoError(t, err)
	require.Nil(t, v.Coupon)
	requireAmount(t, 100, v.DiscountedTotal)

	res, err := f.checkout.Initiate(ctx, c, addr.ID, models.ProviderRazorpay)
	require.NoError(t, err)
	requireAmount(t, 100, res.Order.DiscountedOrderPrice)
	require.Nil(t, res.Order.CouponID)

	sig := payment.Signature(testRazorpaySecret, res.Session.ID, "pay_e2e")
	o, err := f.checkout.VerifyRazorpay(ctx, c.ID, res.Session.ID, "pay_e2e", sig)
	require.NoError(t, err)
	require.True(t, o.IsPaymentDone)
	require.Equal(t, 9, f.stock(t, p.ID))
}
