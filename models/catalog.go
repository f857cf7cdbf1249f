package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogService is a reusable entry in the shop's service price list
// (e.g. "Hem pants", per item, 1500 cents).
type CatalogService struct {
	Id             string `json:"id" gorm:"primaryKey"`
	Name           string `json:"name" gorm:"not null"`
	Description    string `json:"description"`
	Unit           string `json:"unit" gorm:"not null;default:'item'"`
	UnitPriceCents int64  `json:"unit_price_cents" gorm:"not null"`
	Active         bool   `json:"-"`
}

func (cs *CatalogService) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	cs.Id = uuid.NewString()
	return
}
