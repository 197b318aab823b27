package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExportOrder: phiếu xuất kho
type ExportOrder struct {
	ID          uint         `gorm:"primaryKey"`
	Code        string       `gorm:"size:50;uniqueIndex;not null"`
	ExportDate  time.Time    `gorm:"index;not null"`
	Customer    string       `gorm:"size:200"`
	Notes       string       `gorm:"type:text"`
	CreatedByID uint         `gorm:"index;not null"`
	CreatedBy   User         `gorm:"foreignKey:CreatedByID"`
	Items       []ExportItem `gorm:"foreignKey:ExportOrderID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ExportItem struct {
	ID            uint            `gorm:"primaryKey"`
	ExportOrderID uint            `gorm:"index;not null"`
	BatchID       uint            `gorm:"index;not null"`
	Batch         Batch
	Quantity      int             `gorm:"not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt     time.Time
}

func (i ExportItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (o ExportOrder) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.TotalPrice())
	}
	return total
}
