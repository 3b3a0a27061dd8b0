package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentProvider string

const (
	ProviderRazorpay PaymentProvider = "RAZORPAY"
	ProviderPaypal   PaymentProvider = "PAYPAL"
)

type PaymentState string

const (
	PaymentSessionCreated PaymentState = "SESSION_CREATED"
	PaymentVerified       PaymentState = "VERIFIED"
	PaymentFulfilled      PaymentState = "FULFILLED"
	PaymentFailed         PaymentState = "FAILED"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusDelivered OrderStatus = "DELIVERED"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case StatusPending, StatusCancelled, StatusDelivered:
		return st, true
	}
	return "", false
}

type ShippingAddress struct {
	AddressLine1 string `gorm:"not null" json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	City         string `gorm:"not null" json:"city"`
	State        string `gorm:"not null" json:"state"`
	Country      string `gorm:"not null" json:"country"`
	Pincode      string `gorm:"not null" json:"pincode"`
}

type Order struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"                 json:"id"`
	CustomerID           uuid.UUID       `gorm:"type:uuid;index;not null"             json:"customer_id"`
	CustomerEmail        string          `json:"customer_email"`
	Address              ShippingAddress `gorm:"embedded;embeddedPrefix:address_"     json:"address"`
	Items                []OrderItem     `gorm:"foreignKey:OrderID"                   json:"items"`
	OrderPrice           decimal.Decimal `gorm:"type:numeric(12,2);not null"          json:"order_price"`
	DiscountedOrderPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"          json:"discounted_order_price"`
	CouponID             *uuid.UUID      `gorm:"type:uuid"                            json:"coupon_id,omitempty"`
	PaymentProvider      PaymentProvider `gorm:"not null"                             json:"payment_provider"`
	PaymentID            string          `gorm:"uniqueIndex;not null"                 json:"payment_id"`
	IsPaymentDone        bool            `gorm:"not null;default:false"               json:"is_payment_done"`
	PaymentState         PaymentState    `gorm:"not null"                             json:"payment_state"`
	FulfilledAt          *time.Time      `json:"fulfilled_at,omitempty"`
	Status               OrderStatus     `gorm:"index;not null"                       json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"        json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null"    json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"          json:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity>0"   json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (Order) TableName() string {
	return "orders"
}

func (OrderItem) TableName() string {
	return "order_items"
}

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{&Product{}, &Cart{}, &CartItem{}, &Coupon{}, &Address{}, &Order{}, &OrderItem{}}
}
