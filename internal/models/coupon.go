package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CouponType string

const (
	CouponFlat CouponType = "FLAT"
)

type Coupon struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"          json:"id"`
	Name             string          `gorm:"not null"                      json:"name"`
	CouponCode       string          `gorm:"uniqueIndex;not null"          json:"coupon_code"`
	Type             CouponType      `gorm:"not null;default:'FLAT'"       json:"type"`
	DiscountValue    decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"discount_value"`
	MinimumCartValue decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"minimum_cart_value"`
	StartDate        time.Time       `gorm:"not null"                      json:"start_date"`
	ExpiryDate       time.Time       `gorm:"not null"                      json:"expiry_date"`
	IsActive         bool            `gorm:"not null"                      json:"is_active"`
	OwnerID          uuid.UUID       `gorm:"type:uuid;not null"            json:"owner_id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Coupon) TableName() string {
	return "coupons"
}

// NormalizeCode is the canonical stored form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// UsableAt reports whether the coupon is active and now falls in [StartDate, ExpiryDate).
func (c *Coupon) UsableAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	return !now.Before(c.StartDate) && now.Before(c.ExpiryDate)
}
