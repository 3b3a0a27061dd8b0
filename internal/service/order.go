package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

// UpdateStatus moves an order to status. DELIVERED and CANCELLED are final.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	st, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, newError(ErrValidation, "unknown order status %q", status)
	}

	order, err := s.Repo.UpdateOrderStatus(ctx, id, func(o *models.Order) error {
		switch o.Status {
		case models.StatusDelivered:
			return newError(ErrAlreadyDelivered, "order is already delivered")
		case models.StatusCancelled:
			return newError(ErrValidation, "order is cancelled")
		}
		return nil
	}, st)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_status_updated", "order_id", order.ID, "status", order.Status)
	publish(ctx, s.Events, topicOrderEvents, order.CustomerID.String(), map[string]any{
		"type":    "order_status_updated",
		"orderID": order.ID,
		"userID":  order.CustomerID,
		"status":  order.Status,
	})
	return order, nil
}

// Get returns the order to its owner or to an admin. Anyone else gets
// not found.
func (s *OrderService) Get(ctx context.Context, id, requesterID uuid.UUID, isAdmin bool) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.CustomerID != requesterID {
		return nil, newError(ErrNotFound, "order not found")
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, customerID uuid.UUID, page, size int) (*Page[models.Order], error) {
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.ListOrdersByCustomer(ctx, customerID, offset, limit)
	if err != nil {
		return nil, err
	}
	return &Page[models.Order]{Items: items, Total: total, Page: page, Size: size}, nil
}

// ListAdmin lists every order. status filters case-insensitively; an unknown
// status is ignored and the list is unfiltered.
func (s *OrderService) ListAdmin(ctx context.Context, status string, page, size int) (*Page[models.Order], error) {
	st, ok := models.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !ok && status != "" {
		logging.FromContext(ctx).Debug("order_status_filter_ignored", "status", status)
	}
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.ListOrders(ctx, st, offset, limit)
	if err != nil {
		return nil, err
	}
	return &Page[models.Order]{Items: items, Total: total, Page: page, Size: size}, nil
}
