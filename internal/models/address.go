package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address records are maintained elsewhere; checkout only reads them.
type Address struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"   json:"id"`
	OwnerID      uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`
	AddressLine1 string    `gorm:"not null"               json:"address_line_1"`
	AddressLine2 string    `json:"address_line_2"`
	City         string    `gorm:"not null"               json:"city"`
	State        string    `gorm:"not null"               json:"state"`
	Country      string    `gorm:"not null"               json:"country"`
	Pincode      string    `gorm:"not null"               json:"pincode"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (Address) TableName() string {
	return "addresses"
}

func (a Address) Snapshot() ShippingAddress {
	return ShippingAddress{
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		Country:      a.Country,
		Pincode:      a.Pincode,
	}
}
