package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

func TestOrderUpdateStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, _, delivered := initiated(t, f, models.ProviderRazorpay)
	_, _, cancelled := initiated(t, f, models.ProviderRazorpay)

	_, err := f.orders.UpdateStatus(ctx, delivered.Order.ID, "SHIPPED")
	requireKind(t, err, ErrValidation, `unknown order status "SHIPPED"`)

	_, err = f.orders.UpdateStatus(ctx, uuid.New(), "DELIVERED")
	requireKind(t, err, ErrNotFound, "order not found")

	o, err := f.orders.UpdateStatus(ctx, delivered.Order.ID, "DELIVERED")
	require.NoError(t, err)
	require.Equal(t, models.StatusDelivered, o.Status)
	require.Len(t, o.Items, 1)

	_, err = f.orders.UpdateStatus(ctx, delivered.Order.ID, "CANCELLED")
	requireKind(t, err, ErrAlreadyDelivered, "order is already delivered")

	_, err = f.orders.UpdateStatus(ctx, cancelled.Order.ID, "CANCELLED")
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, cancelled.Order.ID, "PENDING")
	requireKind(t, err, ErrValidation, "order is cancelled")

	require.Equal(t, []string{"order_status_updated", "order_status_updated"}, f.events.types(topicOrderEvents))
}

func TestOrderGet_OnlyOwnerOrAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	c, _, res := initiated(t, f, models.ProviderRazorpay)

	o, err := f.orders.Get(ctx, res.Order.ID, c.ID, false)
	require.NoError(t, err)
	require.Equal(t, res.Order.ID, o.ID)

	_, err = f.orders.Get(ctx, res.Order.ID, uuid.New(), false)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.orders.Get(ctx, res.Order.ID, uuid.New(), true)
	require.NoError(t, err)

	_, err = f.orders.Get(ctx, uuid.New(), c.ID, true)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrderLists(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	c, _, first := initiated(t, f, models.ProviderRazorpay)
	initiated(t, f, models.ProviderPaypal)

	_, err := f.orders.UpdateStatus(ctx, first.Order.ID, "DELIVERED")
	require.NoError(t, err)

	mine, err := f.orders.ListMine(ctx, c.ID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, mine.Total)
	require.Equal(t, first.Order.ID, mine.Items[0].ID)

	all, err := f.orders.ListAdmin(ctx, "", 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, all.Total)
	require.Equal(t, 1, all.Page)
	require.Equal(t, 20, all.Size)

	pending, err := f.orders.ListAdmin(ctx, "PENDING", 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, pending.Total)

	lower, err := f.orders.ListAdmin(ctx, " pending", 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, lower.Total)

	unknown, err := f.orders.ListAdmin(ctx, "LOST", 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, unknown.Total, "unknown filters are ignored")
}
