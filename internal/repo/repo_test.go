package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func TestCreateCart_Idempotent(t *testing.T) {
	t.Parallel()
	r := New(testutil.InitTestDB(t))
	ctx := context.Background()
	owner := uuid.New()

	first, created, err := r.CreateCart(ctx, owner)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := r.CreateCart(ctx, owner)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
}

func TestUpsertCartItem_ReplacesAndClearsCoupon(t *testing.T) {
	t.Parallel()
	db := testutil.InitTestDB(t)
	r := New(db)
	ctx := context.Background()

	p := testutil.SeedProduct(t, db, "pen", 10, 10)
	cart := testutil.SeedCart(t, db, uuid.New())
	coupon := testutil.SeedCoupon(t, db, "PEN5", 5, 10)

	replaced, err := r.UpsertCartItem(ctx, cart.ID, p.ID, 3)
	require.NoError(t, err)
	require.False(t, replaced)
	require.NoError(t, r.SetCartCoupon(ctx, cart.ID, &coupon.ID))

	replaced, err = r.UpsertCartItem(ctx, cart.ID, p.ID, 5)
	require.NoError(t, err)
	require.True(t, replaced)

	got, err := r.GetCartByOwner(ctx, cart.OwnerID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, 5, got.Items[0].Quantity)
	require.Nil(t, got.CouponID)
}

func TestRemoveCartItem_Missing(t *testing.T) {
	t.Parallel()
	db := testutil.InitTestDB(t)
	r := New(db)
	cart := testutil.SeedCart(t, db, uuid.New())

	err := r.RemoveCartItem(context.Background(), cart.ID, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func seedOrder(t *testing.T, db *gorm.DB, customer uuid.UUID, paymentID string, lines map[uuid.UUID]int) models.Order {
	t.Helper()
	o := models.Order{
		CustomerID:           customer,
		Address:              models.ShippingAddress{AddressLine1: "a", City: "c", State: "s", Country: "IN", Pincode: "1"},
		OrderPrice:           decimal.NewFromInt(100),
		DiscountedOrderPrice: decimal.NewFromInt(100),
		PaymentProvider:      models.ProviderRazorpay,
		PaymentID:            paymentID,
		PaymentState:         models.PaymentSessionCreated,
		Status:               models.StatusPending,
	}
	for pid, q := range lines {
		o.Items = append(o.Items, models.OrderItem{ProductID: pid, Quantity: q, UnitPrice: decimal.NewFromInt(10)})
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}

func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.Where("id = ?", id).First(&p).Error)
	return p.Stock
}

func TestFulfillOrder(t *testing.T) {
	t.Parallel()
	db := testutil.InitTestDB(t)
	r := New(db)
	ctx := context.Background()

	customer := uuid.New()
	a := testutil.SeedProduct(t, db, "a", 10, 5)
	b := testutil.SeedProduct(t, db, "b", 20, 2)
	cart := testutil.SeedCart(t, db, customer)
	testutil.SeedCartItem(t, db, cart.ID, a.ID, 1)
	seedOrder(t, db, customer, "pay_1", map[uuid.UUID]int{a.ID: 3, b.ID: 2})

	order, fulfilled, err := r.FulfillOrder(ctx, "pay_1", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, fulfilled)
	require.True(t, order.IsPaymentDone)
	require.Equal(t, models.PaymentFulfilled, order.PaymentState)
	require.NotNil(t, order.FulfilledAt)

	require.Equal(t, 2, stockOf(t, db, a.ID))
	require.Equal(t, 0, stockOf(t, db, b.ID))

	got, err := r.GetCartByOwner(ctx, customer)
	require.NoError(t, err)
	require.Empty(t, got.Items)

	// second verification of the same payment is a no-op
	again, fulfilled, err := r.FulfillOrder(ctx, "pay_1", time.Now().UTC())
	require.NoError(t, err)
	require.False(t, fulfilled)
	require.Equal(t, order.ID, again.ID)
	require.Equal(t, 2, stockOf(t, db, a.ID))
}

func TestFulfillOrder_StockConflictRollsBack(t *testing.T) {
	t.Parallel()
	db := testutil.InitTestDB(t)
	r := New(db)
	ctx := context.Background()

	customer := uuid.New()
	a := testutil.SeedProduct(t, db, "a", 10, 5)
	b := testutil.SeedProduct(t, db, "b", 20, 1)
	cart := testutil.SeedCart(t, db, customer)
	testutil.SeedCartItem(t, db, cart.ID, a.ID, 1)
	seedOrder(t, db, customer, "pay_2", map[uuid.UUID]int{a.ID: 1, b.ID: 2})

	_, _, err := r.FulfillOrder(ctx, "pay_2", time.Now().UTC())
	require.True(t, errors.Is(err, ErrStockConflict))

	require.Equal(t, 5, stockOf(t, db, a.ID))
	require.Equal(t, 1, stockOf(t, db, b.ID))

	o, err := r.GetOrderByPaymentID(ctx, "pay_2")
	require.NoError(t, err)
	require.False(t, o.IsPaymentDone)

	got, err := r.GetCartByOwner(ctx, customer)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
}

func TestFulfillOrder_UnknownPayment(t *testing.T) {
	t.Parallel()
	r := New(testutil.InitTestDB(t))
	_, _, err := r.FulfillOrder(context.Background(), "nope", time.Now())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListOrders_FilterByStatus(t *testing.T) {
	t.Parallel()
	db := testutil.InitTestDB(t)
	r := New(db)
	ctx := context.Background()

	customer := uuid.New()
	seedOrder(t, db, customer, "p1", nil)
	o2 := seedOrder(t, db, customer, "p2", nil)
	require.NoError(t, db.Model(&o2).Update("status", models.StatusCancelled).Error)

	total, orders, err := r.ListOrders(ctx, models.StatusCancelled, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "p2", orders[0].PaymentID)

	total, _, err = r.ListOrdersByCustomer(ctx, customer, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}
