package repo

import (
	"errors"

	"gorm.io/gorm"
)

// ErrStockConflict is returned when a conditional stock decrement does not
// cover every ordered product.
var ErrStockConflict = errors.New("stock conflict")

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}
