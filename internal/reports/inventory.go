package reports

import (
	"time"

	"khomypham-backend/internal/catalog"
	"khomypham-backend/internal/config"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/stocklevel"
	"khomypham-backend/internal/textfilter"

	"gorm.io/gorm"
)

// LowStockTotal is the product total at or below which the inventory report
// lists a product as running out.
const LowStockTotal = 1

type BatchStatus string

const (
	StatusExpired  BatchStatus = "expired"
	StatusExpiring BatchStatus = "expiring"
	StatusLow      BatchStatus = "low"
	StatusNormal   BatchStatus = "normal"
)

func (s BatchStatus) Label() string {
	switch s {
	case StatusExpired:
		return "Hết hạn"
	case StatusExpiring:
		return "Sắp hết hạn"
	case StatusLow:
		return "Sắp hết hàng"
	default:
		return "Bình thường"
	}
}

// StatusOf checks expiry before quantity: an expired batch is reported as
// expired however much of it is left.
func StatusOf(b models.Batch, today time.Time, expiringDays int) BatchStatus {
	switch {
	case b.IsExpired(today):
		return StatusExpired
	case b.IsExpiringWithin(today, expiringDays-1):
		return StatusExpiring
	case b.RemainingQuantity <= LowStockTotal:
		return StatusLow
	default:
		return StatusNormal
	}
}

type ProductSummary struct {
	ID         uint   `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	TotalStock int    `json:"total_stock"`
}

type InventoryRow struct {
	No           int                 `json:"no"`
	ProductID    uint                `json:"product_id"`
	ProductCode  string              `json:"product_code"`
	ProductName  string              `json:"product_name"`
	CategoryName string              `json:"category_name"`
	Unit         string              `json:"unit"`
	TotalStock   int                 `json:"total_stock"`
	BatchCode    string              `json:"batch_code"`
	ImportDate   time.Time           `json:"import_date"`
	ExpiryDate   time.Time           `json:"expiry_date"`
	Remaining    int                 `json:"remaining_quantity"`
	Status       BatchStatus         `json:"status"`
	StatusLabel  string              `json:"status_label"`
	Severity     stocklevel.Severity `json:"severity"`
}

type InventoryReport struct {
	GeneratedOn      time.Time        `json:"generated_on"`
	ExpiringBefore   time.Time        `json:"expiring_before"`
	TotalProducts    int              `json:"total_products"`
	LowStockProducts []ProductSummary `json:"low_stock_products"`
	ExpiringProducts []ProductSummary `json:"expiring_products"`
	Rows             []InventoryRow   `json:"rows"`
}

// BuildInventoryReport lists every batch with stock left, grouped by product
// in name order and by import date within a product.
func BuildInventoryReport(db *gorm.DB, cfg *config.Config, today time.Time) (InventoryReport, error) {
	report := InventoryReport{
		GeneratedOn:      today,
		ExpiringBefore:   today.AddDate(0, 0, cfg.ReportExpiryDays),
		LowStockProducts: []ProductSummary{},
		ExpiringProducts: []ProductSummary{},
		Rows:             []InventoryRow{},
	}

	var products []models.Product
	if err := db.Preload("Category").Where("is_active = ?", true).Order("name asc, id asc").Find(&products).Error; err != nil {
		return report, err
	}
	report.TotalProducts = len(products)
	if len(products) == 0 {
		return report, nil
	}

	ids := make([]uint, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	totals, err := catalog.StockTotals(db, ids)
	if err != nil {
		return report, err
	}

	var batches []models.Batch
	if err := db.Where("product_id IN ? AND is_active = ? AND remaining_quantity > 0", ids, true).
		Order("import_date asc, id asc").
		Find(&batches).Error; err != nil {
		return report, err
	}
	byProduct := map[uint][]models.Batch{}
	for _, b := range batches {
		byProduct[b.ProductID] = append(byProduct[b.ProductID], b)
	}

	for _, p := range products {
		summary := ProductSummary{
			ID:         p.ID,
			Code:       p.Code,
			Name:       p.Name,
			Category:   p.Category.Name,
			TotalStock: totals[p.ID],
		}
		if summary.TotalStock <= LowStockTotal {
			report.LowStockProducts = append(report.LowStockProducts, summary)
		}

		expiring := false
		for _, b := range byProduct[p.ID] {
			if b.IsExpiringWithin(today, cfg.ReportExpiryDays) {
				expiring = true
			}
			status := StatusOf(b, today, cfg.ReportExpiryDays)
			report.Rows = append(report.Rows, InventoryRow{
				No:           len(report.Rows) + 1,
				ProductID:    p.ID,
				ProductCode:  p.Code,
				ProductName:  p.Name,
				CategoryName: p.Category.Name,
				Unit:         models.UnitLabels[p.Unit],
				TotalStock:   summary.TotalStock,
				BatchCode:    b.BatchCode,
				ImportDate:   b.ImportDate,
				ExpiryDate:   b.ExpiryDate.UTC(),
				Remaining:    b.RemainingQuantity,
				Status:       status,
				StatusLabel:  status.Label(),
				Severity:     stocklevel.Classify(b.RemainingQuantity, cfg.LowStockThreshold),
			})
		}
		if expiring {
			report.ExpiringProducts = append(report.ExpiringProducts, summary)
		}
	}
	return report, nil
}

// Filter keeps the rows whose product, category or batch matches term and
// renumbers them. Summary lists are left alone.
func (r InventoryReport) Filter(term string) InventoryReport {
	if term == "" {
		return r
	}
	rows := textfilter.Filter(r.Rows, term, func(row InventoryRow) string {
		return row.ProductCode + " " + row.ProductName + " " + row.CategoryName + " " + row.BatchCode
	})
	out := make([]InventoryRow, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].No = i + 1
	}
	r.Rows = out
	return r
}

// StatusCounts tallies rows per status, used by the report header.
func (r InventoryReport) StatusCounts() map[BatchStatus]int {
	counts := map[BatchStatus]int{}
	for _, row := range r.Rows {
		counts[row.Status]++
	}
	return counts
}
