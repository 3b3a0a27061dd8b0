package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"               json:"id"`
	Name        string          `gorm:"not null"                           json:"name"`
	Description string          `gorm:"not null;default:''"                json:"description"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index"                    json:"category_id,omitempty"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"        json:"price"`
	Stock       int             `gorm:"not null;default:0"                 json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Product) TableName() string {
	return "products"
}
