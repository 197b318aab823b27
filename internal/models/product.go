package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductUnit string

const (
	UnitPiece  ProductUnit = "cai"
	UnitBox    ProductUnit = "hop"
	UnitBottle ProductUnit = "chai"
	UnitTube   ProductUnit = "tuyp"
	UnitPack   ProductUnit = "goi"
	UnitKg     ProductUnit = "kg"
	UnitGram   ProductUnit = "g"
	UnitMl     ProductUnit = "ml"
)

// UnitLabels is the display name of every accepted unit.
var UnitLabels = map[ProductUnit]string{
	UnitPiece:  "Cái",
	UnitBox:    "Hộp",
	UnitBottle: "Chai",
	UnitTube:   "Tuýp",
	UnitPack:   "Gói",
	UnitKg:     "Kg",
	UnitGram:   "G",
	UnitMl:     "Ml",
}

func (u ProductUnit) Valid() bool {
	_, ok := UnitLabels[u]
	return ok
}

type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name         string          `gorm:"size:200;not null;index" json:"name"`
	CategoryID   uint            `gorm:"index;not null" json:"category_id"`
	Category     Category        `json:"-"`
	ImagePath    string          `gorm:"size:255" json:"image_path"`
	Unit         ProductUnit     `gorm:"size:10;not null;default:cai" json:"unit"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"selling_price"`
	Description  string          `gorm:"type:text" json:"description"`
	IsActive     bool            `gorm:"not null;default:true;index" json:"is_active"`
	Batches      []Batch         `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
