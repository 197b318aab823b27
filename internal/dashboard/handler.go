package dashboard

import (
	"fmt"
	"sort"
	"time"

	"khomypham-backend/internal/catalog"
	"khomypham-backend/internal/config"
	"khomypham-backend/internal/database"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/vnformat"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	alertProducts   = 3
	alertBatches    = 3
	rankedProducts  = 5
	defaultDays     = 7
	maxMovementDays = 90
)

type ProductAlert struct {
	ProductID   uint                    `json:"product_id"`
	ProductCode string                  `json:"product_code"`
	ProductName string                  `json:"product_name"`
	TotalStock  int                     `json:"total_stock"`
	Batches     []catalog.BatchResponse `json:"batches"`
}

type ChartPoint struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type MovementChart struct {
	Labels  []string `json:"labels"`
	Imports []int    `json:"imports"`
	Exports []int    `json:"exports"`
}

type DashboardResponse struct {
	TotalProducts    int            `json:"total_products"`
	TotalStock       int            `json:"total_stock"`
	ExpiringProducts []ProductAlert `json:"expiring_products"`
	LowStockProducts []ProductAlert `json:"low_stock_products"`
	CategoryStock    []ChartPoint   `json:"category_stock"`
	LowestStock      []ChartPoint   `json:"lowest_stock"`
	TopExported      []ChartPoint   `json:"top_exported"`
	Movement         MovementChart  `json:"movement"`
}

// GET /api/dashboard?days=7
func DashboardHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days := defaultDays
		if raw := c.Query("days"); raw != "" {
			if _, err := fmt.Sscan(raw, &days); err != nil || days <= 0 || days > maxMovementDays {
				return fiber.NewError(fiber.StatusBadRequest, "days không hợp lệ (1-90)")
			}
		}

		res, err := Build(database.DB, cfg, time.Now(), days)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lấy được dữ liệu tổng quan")
		}
		return c.JSON(res)
	}
}

// Build gathers every dashboard block as of now.
func Build(db *gorm.DB, cfg *config.Config, now time.Time, days int) (DashboardResponse, error) {
	local := now.In(cfg.Location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	res := DashboardResponse{
		ExpiringProducts: []ProductAlert{},
		LowStockProducts: []ProductAlert{},
		CategoryStock:    []ChartPoint{},
		LowestStock:      []ChartPoint{},
		TopExported:      []ChartPoint{},
	}

	var products []models.Product
	if err := db.Where("is_active = ?", true).Order("name asc, id asc").Find(&products).Error; err != nil {
		return res, err
	}
	res.TotalProducts = len(products)

	ids := make([]uint, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	var batches []models.Batch
	if len(ids) > 0 {
		if err := db.Where("product_id IN ? AND is_active = ?", ids, true).
			Order("expiry_date asc, id asc").
			Find(&batches).Error; err != nil {
			return res, err
		}
	}

	totals := map[uint]int{}
	byProduct := map[uint][]models.Batch{}
	for _, b := range batches {
		totals[b.ProductID] += b.RemainingQuantity
		byProduct[b.ProductID] = append(byProduct[b.ProductID], b)
		res.TotalStock += b.RemainingQuantity
	}

	for _, p := range products {
		var expiring, low []catalog.BatchResponse
		for _, b := range byProduct[p.ID] {
			if b.IsExpiringWithin(today, cfg.ExpiryWarningDays) && len(expiring) < alertBatches {
				expiring = append(expiring, catalog.ToBatchResponse(b, cfg, today))
			}
			if b.RemainingQuantity <= cfg.LowStockThreshold && len(low) < alertBatches {
				low = append(low, catalog.ToBatchResponse(b, cfg, today))
			}
		}
		if len(expiring) > 0 && len(res.ExpiringProducts) < alertProducts {
			res.ExpiringProducts = append(res.ExpiringProducts, toAlert(p, totals[p.ID], expiring))
		}
		if len(low) > 0 && len(res.LowStockProducts) < alertProducts {
			res.LowStockProducts = append(res.LowStockProducts, toAlert(p, totals[p.ID], low))
		}
	}

	var categories []models.Category
	if err := db.Order("name asc").Find(&categories).Error; err != nil {
		return res, err
	}
	perCategory := map[uint]int{}
	for _, p := range products {
		perCategory[p.CategoryID] += totals[p.ID]
	}
	for _, cat := range categories {
		res.CategoryStock = append(res.CategoryStock, ChartPoint{Label: cat.Name, Value: perCategory[cat.ID]})
	}

	ranked := make([]ChartPoint, 0, len(products))
	for _, p := range products {
		ranked = append(ranked, ChartPoint{Label: p.Name, Value: totals[p.ID]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Value < ranked[j].Value })
	if len(ranked) > rankedProducts {
		ranked = ranked[:rankedProducts]
	}
	res.LowestStock = ranked

	top, err := topExported(db)
	if err != nil {
		return res, err
	}
	res.TopExported = top

	movement, err := movementChart(db, cfg.Location, local, days)
	if err != nil {
		return res, err
	}
	res.Movement = movement
	return res, nil
}

func toAlert(p models.Product, total int, batches []catalog.BatchResponse) ProductAlert {
	return ProductAlert{
		ProductID:   p.ID,
		ProductCode: p.Code,
		ProductName: p.Name,
		TotalStock:  total,
		Batches:     batches,
	}
}

func topExported(db *gorm.DB) ([]ChartPoint, error) {
	type row struct {
		Name  string
		Total int
	}
	var rows []row
	if err := db.Table("export_items").
		Select("products.name AS name, SUM(export_items.quantity) AS total").
		Joins("JOIN batches ON batches.id = export_items.batch_id").
		Joins("JOIN products ON products.id = batches.product_id").
		Group("products.name").
		Order("total desc, products.name asc").
		Limit(rankedProducts).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	points := make([]ChartPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, ChartPoint{Label: r.Name, Value: r.Total})
	}
	return points, nil
}

// movementChart sums imported and exported units per local calendar day,
// oldest day first and ending today.
func movementChart(db *gorm.DB, loc *time.Location, now time.Time, days int) (MovementChart, error) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -days)

	chart := MovementChart{
		Labels:  make([]string, days),
		Imports: make([]int, days),
		Exports: make([]int, days),
	}
	index := map[string]int{}
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		chart.Labels[i] = day.Format(vnformat.DayLabelLayout)
		index[day.Format("2006-01-02")] = i
	}

	var imports []models.ImportOrder
	if err := db.Preload("Items").
		Where("import_date >= ? AND import_date < ?", start, end).
		Find(&imports).Error; err != nil {
		return chart, err
	}
	for _, o := range imports {
		if i, ok := index[o.ImportDate.In(loc).Format("2006-01-02")]; ok {
			for _, it := range o.Items {
				chart.Imports[i] += it.Quantity
			}
		}
	}

	var exports []models.ExportOrder
	if err := db.Preload("Items").
		Where("export_date >= ? AND export_date < ?", start, end).
		Find(&exports).Error; err != nil {
		return chart, err
	}
	for _, o := range exports {
		if i, ok := index[o.ExportDate.In(loc).Format("2006-01-02")]; ok {
			for _, it := range o.Items {
				chart.Exports[i] += it.Quantity
			}
		}
	}
	return chart, nil
}
