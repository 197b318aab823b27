package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ImportOrder: phiếu nhập kho
type ImportOrder struct {
	ID          uint         `gorm:"primaryKey"`
	Code        string       `gorm:"size:50;uniqueIndex;not null"`
	ImportDate  time.Time    `gorm:"index;not null"`
	Supplier    string       `gorm:"size:200"`
	Notes       string       `gorm:"type:text"`
	CreatedByID uint         `gorm:"index;not null"`
	CreatedBy   User         `gorm:"foreignKey:CreatedByID"`
	Items       []ImportItem `gorm:"foreignKey:ImportOrderID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ImportItem: chi tiết phiếu nhập, one batch per item
type ImportItem struct {
	ID            uint            `gorm:"primaryKey"`
	ImportOrderID uint            `gorm:"index;not null"`
	ProductID     uint            `gorm:"index;not null"`
	Product       Product
	BatchID       uint            `gorm:"index"`
	BatchCode     string          `gorm:"size:100;not null"`
	Quantity      int             `gorm:"not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ExpiryDate    time.Time       `gorm:"not null"`
	CreatedAt     time.Time
}

func (i ImportItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (o ImportOrder) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.TotalPrice())
	}
	return total
}
