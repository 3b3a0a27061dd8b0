package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) GetCartByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).Preload("Items").Where("owner_id = ?", ownerID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateCart inserts the owner's cart unless it already exists. created
// reports whether this call made it.
func (r *GormRepo) CreateCart(ctx context.Context, ownerID uuid.UUID) (*models.Cart, bool, error) {
	cart := models.Cart{OwnerID: ownerID}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "owner_id"}}, DoNothing: true}).
		Create(&cart)
	if res.Error != nil {
		return nil, false, res.Error
	}
	existing, err := r.GetCartByOwner(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	return existing, res.RowsAffected > 0, nil
}

// UpsertCartItem sets the absolute quantity of a line. Rewriting an existing
// line also detaches the coupon; replaced reports that case.
func (r *GormRepo) UpsertCartItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (replaced bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			Update("quantity", quantity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			replaced = true
			return setCartCoupon(tx, cartID, nil)
		}
		return tx.Create(&models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}).Error
	})
	return replaced, err
}

func (r *GormRepo) RemoveCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	res := r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return clearCart(tx, cartID)
	})
}

func (r *GormRepo) SetCartCoupon(ctx context.Context, cartID uuid.UUID, couponID *uuid.UUID) error {
	return setCartCoupon(r.DB.WithContext(ctx), cartID, couponID)
}

func clearCart(tx *gorm.DB, cartID uuid.UUID) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return setCartCoupon(tx, cartID, nil)
}

func setCartCoupon(tx *gorm.DB, cartID uuid.UUID, couponID *uuid.UUID) error {
	return tx.Model(&models.Cart{}).Where("id = ?", cartID).Update("coupon_id", couponID).Error
}
