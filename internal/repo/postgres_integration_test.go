//go:build integration

package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/migrations"
	storedb "github.com/Skotchmaster/storefront/pkg/db"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("storefront"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, storedb.RunMigrations(connStr, migrations.FS))

	db, err := storedb.Open(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedPending(t *testing.T, db *gorm.DB, customer uuid.UUID, paymentID string, items ...models.OrderItem) {
	t.Helper()
	o := models.Order{
		CustomerID:      customer,
		Address:         models.ShippingAddress{AddressLine1: "1 Main St", City: "Pune", State: "MH", Country: "IN", Pincode: "411001"},
		PaymentProvider: models.ProviderRazorpay,
		PaymentID:       paymentID,
		PaymentState:    models.PaymentSessionCreated,
		Status:          models.StatusPending,
		Items:           items,
	}
	require.NoError(t, db.Create(&o).Error)
}

func TestPostgres_FulfillOrder(t *testing.T) {
	db := setupPostgres(t)
	r := repo.New(db)
	ctx := context.Background()

	customer := uuid.New()
	lamp := testutil.SeedProduct(t, db, "lamp", 40, 3)
	cart := testutil.SeedCart(t, db, customer)
	testutil.SeedCartItem(t, db, cart.ID, lamp.ID, 2)
	seedPending(t, db, customer, "order_pg_1", models.OrderItem{ProductID: lamp.ID, Quantity: 2, UnitPrice: lamp.Price})

	order, fulfilled, err := r.FulfillOrder(ctx, "order_pg_1", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, fulfilled)
	require.True(t, order.IsPaymentDone)

	got, err := r.GetProduct(ctx, lamp.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Stock)

	c, err := r.GetCartByOwner(ctx, customer)
	require.NoError(t, err)
	require.Empty(t, c.Items)
}

func TestPostgres_FulfillOrder_StockConflict(t *testing.T) {
	db := setupPostgres(t)
	r := repo.New(db)
	ctx := context.Background()

	customer := uuid.New()
	a := testutil.SeedProduct(t, db, "a", 10, 5)
	b := testutil.SeedProduct(t, db, "b", 10, 1)
	seedPending(t, db, customer, "order_pg_2",
		models.OrderItem{ProductID: a.ID, Quantity: 2, UnitPrice: a.Price},
		models.OrderItem{ProductID: b.ID, Quantity: 2, UnitPrice: b.Price},
	)

	_, _, err := r.FulfillOrder(ctx, "order_pg_2", time.Now().UTC())
	require.ErrorIs(t, err, repo.ErrStockConflict)

	got, err := r.GetProduct(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 5, got.Stock)

	o, err := r.GetOrderByPaymentID(ctx, "order_pg_2")
	require.NoError(t, err)
	require.False(t, o.IsPaymentDone)
}
