package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	return orderByPaymentID(r.DB.WithContext(ctx), paymentID)
}

func (r *GormRepo) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)
	return listOrders(q, offset, limit)
}

func (r *GormRepo) ListOrders(ctx context.Context, status models.OrderStatus, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return listOrders(q, offset, limit)
}

func listOrders(q *gorm.DB, offset, limit int) (int64, []models.Order, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	var orders []models.Order
	if err := q.Session(&gorm.Session{}).Preload("Items").Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// UpdateOrderStatus locks the order and hands the current row to check before
// writing. check may veto the change by returning an error.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, check func(*models.Order) error, status models.OrderStatus) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		if err := check(&order); err != nil {
			return err
		}
		if err := tx.Model(&order).Update("status", status).Error; err != nil {
			return err
		}
		return tx.Preload("Items").Where("id = ?", id).First(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SetPaymentState moves an unpaid order to state. It is a no-op once the
// payment is done.
func (r *GormRepo) SetPaymentState(ctx context.Context, paymentID string, state models.PaymentState) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("payment_id = ? AND is_payment_done = ?", paymentID, false).
		Update("payment_state", state).Error
}

// FulfillOrder marks the order paid, decrements stock and resets the
// customer's cart in one transaction. The paid flag is flipped with a
// compare-and-set, so a repeated call returns the order with fulfilled=false
// and changes nothing. ErrStockConflict rolls everything back.
func (r *GormRepo) FulfillOrder(ctx context.Context, paymentID string, now time.Time) (order *models.Order, fulfilled bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := orderByPaymentID(tx, paymentID)
		if err != nil {
			return err
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND is_payment_done = ?", o.ID, false).
			Updates(map[string]any{
				"is_payment_done": true,
				"payment_state":   models.PaymentFulfilled,
				"fulfilled_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			order = o
			return nil
		}

		if err := decrementStock(tx, o.Items, now); err != nil {
			return err
		}

		var cart models.Cart
		switch err := tx.Where("owner_id = ?", o.CustomerID).First(&cart).Error; {
		case err == nil:
			if err := clearCart(tx, cart.ID); err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		order, err = orderByPaymentID(tx, paymentID)
		fulfilled = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return order, fulfilled, nil
}

// decrementStock issues a single conditional UPDATE over every ordered
// product. A product missing or short on stock leaves its row untouched and
// the affected count short.
func decrementStock(tx *gorm.DB, items []models.OrderItem, now time.Time) error {
	if len(items) == 0 {
		return nil
	}

	qty := make(map[uuid.UUID]int, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if _, ok := qty[it.ProductID]; !ok {
			order = append(order, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
	}

	var caseSQL strings.Builder
	caseSQL.WriteString("CASE id")
	caseVars := make([]any, 0, 2*len(order))
	for _, id := range order {
		caseSQL.WriteString(" WHEN ? THEN CAST(? AS INTEGER)")
		caseVars = append(caseVars, id.String(), qty[id])
	}
	caseSQL.WriteString(" END")

	sql := "UPDATE products SET stock = stock - " + caseSQL.String() +
		", updated_at = ? WHERE id IN ? AND stock >= " + caseSQL.String()

	vars := make([]any, 0, 2*len(caseVars)+2)
	vars = append(vars, caseVars...)
	vars = append(vars, now, uuidStrings(order))
	vars = append(vars, caseVars...)

	res := tx.Exec(sql, vars...)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(order)) {
		return ErrStockConflict
	}
	return nil
}

func orderByPaymentID(db *gorm.DB, paymentID string) (*models.Order, error) {
	var o models.Order
	if err := db.Preload("Items").Where("payment_id = ?", paymentID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}
