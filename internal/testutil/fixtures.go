package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func SeedProduct(t *testing.T, db *gorm.DB, name string, price int64, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Description: name + " description", Price: decimal.NewFromInt(price), Stock: stock}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedCart(t *testing.T, db *gorm.DB, ownerID uuid.UUID) models.Cart {
	t.Helper()
	c := models.Cart{OwnerID: ownerID}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return c
}

func SeedCartItem(t *testing.T, db *gorm.DB, cartID, productID uuid.UUID, qty int) {
	t.Helper()
	if err := db.Create(&models.CartItem{CartID: cartID, ProductID: productID, Quantity: qty}).Error; err != nil {
		t.Fatalf("seed cart item: %v", err)
	}
}

// SeedCoupon creates an active FLAT coupon valid from an hour ago for a day.
func SeedCoupon(t *testing.T, db *gorm.DB, code string, discount, minimum int64) models.Coupon {
	t.Helper()
	now := time.Now().UTC()
	c := models.Coupon{
		Name:             code,
		CouponCode:       models.NormalizeCode(code),
		Type:             models.CouponFlat,
		DiscountValue:    decimal.NewFromInt(discount),
		MinimumCartValue: decimal.NewFromInt(minimum),
		StartDate:        now.Add(-time.Hour),
		ExpiryDate:       now.Add(24 * time.Hour),
		IsActive:         true,
		OwnerID:          uuid.New(),
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return c
}

func SeedAddress(t *testing.T, db *gorm.DB, ownerID uuid.UUID) models.Address {
	t.Helper()
	a := models.Address{
		OwnerID:      ownerID,
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "KA",
		Country:      "IN",
		Pincode:      "560001",
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}
	return a
}
