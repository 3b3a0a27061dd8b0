package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
)

type CouponInput struct {
	Name             string
	Code             string
	Type             models.CouponType
	DiscountValue    decimal.Decimal
	MinimumCartValue decimal.Decimal
	StartDate        time.Time
	ExpiryDate       time.Time
	IsActive         *bool
}

type CouponPatch struct {
	Name             *string
	Code             *string
	Type             *models.CouponType
	DiscountValue    *decimal.Decimal
	MinimumCartValue *decimal.Decimal
	StartDate        *time.Time
	ExpiryDate       *time.Time
	IsActive         *bool
}

type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

type CouponService struct {
	Repo   *repo.GormRepo
	Carts  *CartService
	Events EventPublisher
	Now    func() time.Time
}

func (s *CouponService) now() time.Time { return nowOrDefault(s.Now) }

// Apply attaches the coupon with the given code to the user's cart. Only the
// reference is stored; the discount is recomputed on every read.
func (s *CouponService) Apply(ctx context.Context, userID uuid.UUID, code string) (*CartView, error) {
	norm := models.NormalizeCode(code)
	if norm == "" {
		return nil, newError(ErrValidation, "coupon code is required")
	}

	coupon, err := s.Repo.GetCouponByCode(ctx, norm)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrInvalidCoupon, "invalid coupon code")
	}
	if err != nil {
		return nil, err
	}
	if !coupon.UsableAt(s.now()) {
		return nil, newError(ErrInvalidCoupon, "invalid coupon code")
	}

	cart, err := s.Carts.cartByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.CouponID = nil
	v, _, err := s.Carts.price(ctx, cart)
	if err != nil {
		return nil, err
	}

	if v.CartTotal.LessThan(coupon.MinimumCartValue) {
		shortfall := coupon.MinimumCartValue.Sub(v.CartTotal)
		return nil, newError(ErrBelowMinimum, "add items worth %s or more to apply this coupon", shortfall.StringFixed(2))
	}

	if err := s.Repo.SetCartCoupon(ctx, cart.ID, &coupon.ID); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, topicCartEvents, userID.String(), map[string]any{
		"type":     "coupon_applied",
		"userID":   userID,
		"couponID": coupon.ID,
		"code":     coupon.CouponCode,
	})

	v.DiscountedTotal, v.Coupon = Discount(v.CartTotal, coupon, s.now())
	return v, nil
}

// Remove detaches whatever coupon the cart holds.
func (s *CouponService) Remove(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.Carts.cartByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SetCartCoupon(ctx, cart.ID, nil); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, topicCartEvents, userID.String(), map[string]any{
		"type":   "coupon_removed",
		"userID": userID,
	})

	cart.CouponID = nil
	v, _, err := s.Carts.price(ctx, cart)
	return v, err
}

func validateCoupon(c *models.Coupon) error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return newError(ErrValidation, "coupon name is required")
	case c.CouponCode == "":
		return newError(ErrValidation, "coupon code is required")
	case c.Type != models.CouponFlat:
		return newError(ErrValidation, "unsupported coupon type %q", c.Type)
	case !c.DiscountValue.IsPositive():
		return newError(ErrValidation, "discount value must be greater than 0")
	case c.MinimumCartValue.LessThan(c.DiscountValue):
		return newError(ErrValidation, "minimum cart value must be greater than or equal to the discount value")
	case c.ExpiryDate.IsZero():
		return newError(ErrValidation, "expiry date is required")
	case !c.ExpiryDate.After(c.StartDate):
		return newError(ErrValidation, "expiry date must be after start date")
	}
	return nil
}

func (s *CouponService) ensureCodeFree(ctx context.Context, code string, self uuid.UUID) error {
	taken, err := s.Repo.CouponCodeTaken(ctx, code, self)
	if err != nil {
		return err
	}
	if taken {
		return newError(ErrValidation, "coupon code %s already exists", code)
	}
	return nil
}

// codeConflict covers a concurrent writer taking the code after ensureCodeFree.
func codeConflict(err error, code string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return newError(ErrValidation, "coupon code %s already exists", code)
	}
	return err
}

func (s *CouponService) Create(ctx context.Context, ownerID uuid.UUID, in CouponInput) (*models.Coupon, error) {
	c := &models.Coupon{
		Name:             strings.TrimSpace(in.Name),
		CouponCode:       models.NormalizeCode(in.Code),
		Type:             in.Type,
		DiscountValue:    in.DiscountValue,
		MinimumCartValue: in.MinimumCartValue,
		StartDate:        in.StartDate.UTC(),
		ExpiryDate:       in.ExpiryDate.UTC(),
		IsActive:         true,
		OwnerID:          ownerID,
	}
	if c.Type == "" {
		c.Type = models.CouponFlat
	}
	if in.StartDate.IsZero() {
		c.StartDate = s.now()
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}

	if err := validateCoupon(c); err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, c.CouponCode, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateCoupon(ctx, c); err != nil {
		return nil, codeConflict(err, c.CouponCode)
	}
	return c, nil
}

// Update merges patch into the stored coupon and re-checks every rule
// against the merged values.
func (s *CouponService) Update(ctx context.Context, id uuid.UUID, patch CouponPatch) (*models.Coupon, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Code != nil {
		c.CouponCode = models.NormalizeCode(*patch.Code)
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.DiscountValue != nil {
		c.DiscountValue = *patch.DiscountValue
	}
	if patch.MinimumCartValue != nil {
		c.MinimumCartValue = *patch.MinimumCartValue
	}
	if patch.StartDate != nil {
		c.StartDate = patch.StartDate.UTC()
	}
	if patch.ExpiryDate != nil {
		c.ExpiryDate = patch.ExpiryDate.UTC()
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}

	if err := validateCoupon(c); err != nil {
		return nil, err
	}
	if patch.Code != nil {
		if err := s.ensureCodeFree(ctx, c.CouponCode, c.ID); err != nil {
			return nil, err
		}
	}
	if err := s.Repo.SaveCoupon(ctx, c); err != nil {
		return nil, codeConflict(err, c.CouponCode)
	}
	return c, nil
}

func (s *CouponService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Coupon, error) {
	c, err := s.Repo.SetCouponActive(ctx, id, active)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "coupon not found")
	}
	return c, err
}

func (s *CouponService) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	c, err := s.Repo.GetCoupon(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "coupon not found")
	}
	return c, err
}

func (s *CouponService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.Repo.DeleteCoupon(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(ErrNotFound, "coupon not found")
	}
	return err
}

func (s *CouponService) List(ctx context.Context, page, size int) (*Page[models.Coupon], error) {
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.ListCoupons(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return &Page[models.Coupon]{Items: items, Total: total, Page: page, Size: size}, nil
}

// ListAvailable returns the coupons the user could apply to the cart as it
// is now.
func (s *CouponService) ListAvailable(ctx context.Context, userID uuid.UUID, page, size int) (*Page[models.Coupon], error) {
	page, size = util.Normalize(page, size)

	v, err := s.Carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	active, err := s.Repo.ListActiveCoupons(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	usable := make([]models.Coupon, 0, len(active))
	for _, c := range active {
		if c.UsableAt(now) && c.MinimumCartValue.LessThanOrEqual(v.CartTotal) {
			usable = append(usable, c)
		}
	}

	offset, _ := util.Calculate(page, size)
	end := min(offset+size, len(usable))
	items := []models.Coupon{}
	if offset < len(usable) {
		items = usable[offset:end]
	}
	return &Page[models.Coupon]{Items: items, Total: int64(len(usable)), Page: page, Size: size}, nil
}
