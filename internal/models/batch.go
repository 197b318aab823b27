package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch: one lot of a product, created by every import line.
type Batch struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	ProductID         uint            `gorm:"index;not null" json:"product_id"`
	Product           Product         `json:"-"`
	BatchCode         string          `gorm:"size:100;uniqueIndex;not null" json:"batch_code"`
	ImportDate        time.Time       `gorm:"index;not null" json:"import_date"`
	ExpiryDate        time.Time       `gorm:"index;not null" json:"expiry_date"`
	ImportPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"import_price"`
	ImportQuantity    int             `gorm:"not null" json:"import_quantity"`
	RemainingQuantity int             `gorm:"not null" json:"remaining_quantity"`
	IsActive          bool            `gorm:"not null;default:true;index" json:"is_active"`
	CreatedByID       uint            `gorm:"index" json:"created_by_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsExpired compares calendar days; a batch expiring today is still sellable.
func (b Batch) IsExpired(today time.Time) bool {
	return dateOnly(b.ExpiryDate).Before(dateOnly(today))
}

// IsExpiringWithin reports whether the expiry date falls on or before today+days.
func (b Batch) IsExpiringWithin(today time.Time, days int) bool {
	return !dateOnly(b.ExpiryDate).After(dateOnly(today).AddDate(0, 0, days))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
