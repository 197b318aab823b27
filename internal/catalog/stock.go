package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"khomypham-backend/internal/config"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/stocklevel"
	"khomypham-backend/internal/vnformat"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const ProductCodePrefix = "SP"

type BatchResponse struct {
	ID                uint                `json:"id"`
	ProductID         uint                `json:"product_id"`
	ProductName       string              `json:"product_name,omitempty"`
	BatchCode         string              `json:"batch_code"`
	ImportDate        string              `json:"import_date"`
	ExpiryDate        string              `json:"expiry_date"`
	ImportPrice       decimal.Decimal     `json:"import_price"`
	ImportQuantity    int                 `json:"import_quantity"`
	RemainingQuantity int                 `json:"remaining_quantity"`
	IsActive          bool                `json:"is_active"`
	IsExpired         bool                `json:"is_expired"`
	IsExpiringSoon    bool                `json:"is_expiring_soon"`
	IsLowStock        bool                `json:"is_low_stock"`
	Severity          stocklevel.Severity `json:"severity"`
	ExpiryDisplay     string              `json:"expiry_display"`
}

// ToBatchResponse adds the flags derived from today's date and the stock threshold.
func ToBatchResponse(b models.Batch, cfg *config.Config, today time.Time) BatchResponse {
	severity := stocklevel.Classify(b.RemainingQuantity, cfg.LowStockThreshold)
	return BatchResponse{
		ID:                b.ID,
		ProductID:         b.ProductID,
		ProductName:       b.Product.Name,
		BatchCode:         b.BatchCode,
		ImportDate:        b.ImportDate.In(cfg.Location).Format("2006-01-02"),
		ExpiryDate:        b.ExpiryDate.UTC().Format("2006-01-02"),
		ImportPrice:       b.ImportPrice,
		ImportQuantity:    b.ImportQuantity,
		RemainingQuantity: b.RemainingQuantity,
		IsActive:          b.IsActive,
		IsExpired:         b.IsExpired(today),
		IsExpiringSoon:    b.IsExpiringWithin(today, cfg.ExpiryWarningDays),
		IsLowStock:        severity != stocklevel.Normal,
		Severity:          severity,
		ExpiryDisplay:     vnformat.Date(b.ExpiryDate.UTC()),
	}
}

// StockTotals sums remaining quantity of active batches per product.
// Products without batches are absent from the map.
func StockTotals(db *gorm.DB, productIDs []uint) (map[uint]int, error) {
	totals := make(map[uint]int, len(productIDs))
	if len(productIDs) == 0 {
		return totals, nil
	}

	type row struct {
		ProductID uint
		Total     int
	}
	var rows []row
	err := db.Model(&models.Batch{}).
		Select("product_id, COALESCE(SUM(remaining_quantity), 0) AS total").
		Where("is_active = ? AND product_id IN ?", true, productIDs).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		totals[r.ProductID] = r.Total
	}
	return totals, nil
}

// NextProductCode returns SP followed by the next free five-digit number.
func NextProductCode(db *gorm.DB) (string, error) {
	var codes []string
	if err := db.Model(&models.Product{}).
		Where("code LIKE ?", ProductCodePrefix+"%").
		Pluck("code", &codes).Error; err != nil {
		return "", err
	}

	max := 0
	for _, code := range codes {
		n, err := strconv.Atoi(strings.TrimPrefix(code, ProductCodePrefix))
		if err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%05d", ProductCodePrefix, max+1), nil
}

// Today is the shop's current calendar date. Dates without a time of day
// (expiry dates) are stored as midnight UTC, so Today uses the same form.
func Today(cfg *config.Config) time.Time {
	now := time.Now().In(cfg.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate reads a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}
