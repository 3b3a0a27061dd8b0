package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type CartLine struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// CartView is the priced cart. Nothing in it is stored; every read
// recomputes it from live product prices and the attached coupon.
type CartView struct {
	ID              uuid.UUID       `json:"id"`
	Items           []CartLine      `json:"items"`
	CartTotal       decimal.Decimal `json:"cart_total"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
	Coupon          *models.Coupon  `json:"coupon"`
}

func emptyView() *CartView {
	return &CartView{Items: []CartLine{}, CartTotal: decimal.Zero, DiscountedTotal: decimal.Zero}
}

// Discount applies c to total. A coupon that is unusable at now or whose
// minimum is not met leaves the total unchanged and is reported as nil. The
// result never drops below zero.
func Discount(total decimal.Decimal, c *models.Coupon, now time.Time) (decimal.Decimal, *models.Coupon) {
	if c == nil || !c.UsableAt(now) || total.LessThan(c.MinimumCartValue) {
		return total, nil
	}
	discounted := total.Sub(c.DiscountValue)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	return discounted, c
}

type CartService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Now    func() time.Time
}

func (s *CartService) now() time.Time { return nowOrDefault(s.Now) }

func (s *CartService) cartByOwner(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.GetCartByOwner(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "cart does not exist")
	}
	return cart, err
}

// price joins cart lines with current products. Lines whose product was
// deleted are left out of both the items and the total.
func (s *CartService) price(ctx context.Context, cart *models.Cart) (*CartView, *models.Coupon, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	v := emptyView()
	v.ID = cart.ID
	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		v.Items = append(v.Items, CartLine{Product: p, Quantity: it.Quantity})
		v.CartTotal = v.CartTotal.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	var attached *models.Coupon
	if cart.CouponID != nil {
		c, err := s.Repo.GetCoupon(ctx, *cart.CouponID)
		switch {
		case err == nil:
			attached = c
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, nil, err
		}
	}

	v.DiscountedTotal, v.Coupon = Discount(v.CartTotal, attached, s.now())
	return v, attached, nil
}

func (s *CartService) view(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.cartByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	v, _, err := s.price(ctx, cart)
	return v, err
}

// GetCart returns the priced cart. A user without a cart gets an empty view.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	v, err := s.view(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return emptyView(), nil
	}
	return v, err
}

// UpsertItem sets the absolute quantity of productID in the cart.
func (s *CartService) UpsertItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartView, error) {
	if productID == uuid.Nil {
		return nil, newError(ErrValidation, "product id is required")
	}
	if quantity < 1 {
		return nil, newError(ErrValidation, "quantity must be at least 1")
	}

	product, err := s.Repo.GetProduct(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "product not found")
	}
	if err != nil {
		return nil, err
	}
	if err := checkStock(product, quantity); err != nil {
		return nil, err
	}

	cart, err := s.cartByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	replaced, err := s.Repo.UpsertCartItem(ctx, cart.ID, productID, quantity)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, topicCartEvents, userID.String(), map[string]any{
		"type":          "cart_item_upserted",
		"userID":        userID,
		"productID":     productID,
		"quantity":      quantity,
		"couponCleared": replaced && cart.CouponID != nil,
	})

	return s.view(ctx, userID)
}

func checkStock(p *models.Product, quantity int) error {
	if p.Stock <= 0 {
		return newError(ErrInsufficientStock, "product is out of stock")
	}
	if quantity > p.Stock {
		return newError(ErrInsufficientStock, "only %d products are remaining, but you are adding %d", p.Stock, quantity)
	}
	return nil
}

// RemoveItem drops the line for productID. A coupon whose minimum is no
// longer met afterwards is detached.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartView, error) {
	cart, err := s.cartByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.RemoveCartItem(ctx, cart.ID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "product is not in the cart")
		}
		return nil, err
	}

	cart, err = s.cartByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	v, attached, err := s.price(ctx, cart)
	if err != nil {
		return nil, err
	}

	detached := false
	if attached != nil && v.CartTotal.LessThan(attached.MinimumCartValue) {
		if err := s.Repo.SetCartCoupon(ctx, cart.ID, nil); err != nil {
			return nil, err
		}
		v.Coupon = nil
		v.DiscountedTotal = v.CartTotal
		detached = true
	}

	publish(ctx, s.Events, topicCartEvents, userID.String(), map[string]any{
		"type":           "cart_item_removed",
		"userID":         userID,
		"productID":      productID,
		"couponDetached": detached,
	})
	return v, nil
}

// ClearCart removes every line and the coupon.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.cartByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.ClearCart(ctx, cart.ID); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, topicCartEvents, userID.String(), map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})

	v := emptyView()
	v.ID = cart.ID
	return v, nil
}

// ProvisionCart creates the user's cart. It is safe to call more than once;
// created is false when the cart already existed.
func (s *CartService) ProvisionCart(ctx context.Context, userID uuid.UUID) (created bool, err error) {
	if userID == uuid.Nil {
		return false, newError(ErrValidation, "user id is required")
	}
	cart, created, err := s.Repo.CreateCart(ctx, userID)
	if err != nil {
		return false, err
	}
	if created {
		publish(ctx, s.Events, topicCartEvents, userID.String(), map[string]any{
			"type":   "cart_provisioned",
			"userID": userID,
			"cartID": cart.ID,
		})
	}
	return created, nil
}
