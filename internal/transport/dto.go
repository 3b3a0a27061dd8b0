package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UpsertCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

type CreateCouponRequest struct {
	Name             string          `json:"name"`
	Code             string          `json:"coupon_code"`
	Type             string          `json:"type"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	MinimumCartValue decimal.Decimal `json:"minimum_cart_value"`
	StartDate        *time.Time      `json:"start_date"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	IsActive         *bool           `json:"is_active"`
}

type PatchCouponRequest struct {
	Name             *string          `json:"name"`
	Code             *string          `json:"coupon_code"`
	Type             *string          `json:"type"`
	DiscountValue    *decimal.Decimal `json:"discount_value"`
	MinimumCartValue *decimal.Decimal `json:"minimum_cart_value"`
	StartDate        *time.Time       `json:"start_date"`
	ExpiryDate       *time.Time       `json:"expiry_date"`
	IsActive         *bool            `json:"is_active"`
}

type CouponStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

type CheckoutRequest struct {
	AddressID uuid.UUID `json:"address_id"`
}

type CheckoutResponse struct {
	OrderID    uuid.UUID       `json:"order_id"`
	Provider   string          `json:"provider"`
	PaymentID  string          `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	ApproveURL string          `json:"approve_url,omitempty"`
	KeyID      string          `json:"key_id,omitempty"`
}

type VerifyRazorpayRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type VerifyPaypalRequest struct {
	OrderID string `json:"order_id"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

type ProvisionCartResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Created bool      `json:"created"`
}
