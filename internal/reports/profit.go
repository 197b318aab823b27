package reports

import (
	"sort"

	"khomypham-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const topProfitProducts = 5

var hundred = decimal.NewFromInt(100)

type ProfitRow struct {
	No             int             `json:"no"`
	ProductID      uint            `json:"product_id"`
	ProductCode    string          `json:"product_code"`
	ProductName    string          `json:"product_name"`
	CategoryName   string          `json:"category_name"`
	Quantity       int             `json:"quantity"`
	AvgImportPrice decimal.Decimal `json:"avg_import_price"`
	AvgExportPrice decimal.Decimal `json:"avg_export_price"`
	ProfitPerUnit  decimal.Decimal `json:"profit_per_unit"`
	TotalProfit    decimal.Decimal `json:"total_profit"`
	Margin         decimal.Decimal `json:"margin"`
}

type ChartSeries struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

type ProfitReport struct {
	Range            DateRange       `json:"range"`
	Rows             []ProfitRow     `json:"rows"`
	TotalImportValue decimal.Decimal `json:"total_import_value"`
	TotalExportValue decimal.Decimal `json:"total_export_value"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	Margin           decimal.Decimal `json:"margin"`
	TopProducts      ChartSeries     `json:"top_products"`
}

type productSales struct {
	product      models.Product
	quantity     int
	exportValue  decimal.Decimal
	importPrices []decimal.Decimal
}

// BuildProfitReport works per exported product. The average import price is
// the plain mean of the import prices of the batches behind each export
// line, and the cost of goods is that average times the quantity sold.
func BuildProfitReport(db *gorm.DB, r DateRange) (ProfitReport, error) {
	report := ProfitReport{
		Range:            r,
		Rows:             []ProfitRow{},
		TotalImportValue: decimal.Zero,
		TotalExportValue: decimal.Zero,
		TopProducts:      ChartSeries{Labels: []string{}, Values: []decimal.Decimal{}},
	}

	var exports []models.ExportOrder
	if err := r.apply(db.Preload("Items.Batch.Product.Category"), "export_date").
		Order("export_date asc, id asc").
		Find(&exports).Error; err != nil {
		return report, err
	}

	sales := map[uint]*productSales{}
	var order []uint
	for _, o := range exports {
		for _, it := range o.Items {
			p := it.Batch.Product
			s, ok := sales[p.ID]
			if !ok {
				s = &productSales{product: p, exportValue: decimal.Zero}
				sales[p.ID] = s
				order = append(order, p.ID)
			}
			s.quantity += it.Quantity
			s.exportValue = s.exportValue.Add(it.TotalPrice())
			s.importPrices = append(s.importPrices, it.Batch.ImportPrice)
		}
	}

	for _, id := range order {
		s := sales[id]
		if s.quantity <= 0 {
			continue
		}
		qty := decimal.NewFromInt(int64(s.quantity))
		avgExport := s.exportValue.Div(qty)
		avgImport := mean(s.importPrices)
		perUnit := avgExport.Sub(avgImport)

		report.Rows = append(report.Rows, ProfitRow{
			ProductID:      s.product.ID,
			ProductCode:    s.product.Code,
			ProductName:    s.product.Name,
			CategoryName:   s.product.Category.Name,
			Quantity:       s.quantity,
			AvgImportPrice: avgImport.Round(2),
			AvgExportPrice: avgExport.Round(2),
			ProfitPerUnit:  perUnit.Round(2),
			TotalProfit:    perUnit.Mul(qty).Round(2),
			Margin:         margin(perUnit, avgImport),
		})
		report.TotalExportValue = report.TotalExportValue.Add(s.exportValue)
		report.TotalImportValue = report.TotalImportValue.Add(avgImport.Mul(qty))
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].TotalProfit.GreaterThan(report.Rows[j].TotalProfit)
	})
	for i := range report.Rows {
		report.Rows[i].No = i + 1
		if i < topProfitProducts {
			report.TopProducts.Labels = append(report.TopProducts.Labels, report.Rows[i].ProductName)
			report.TopProducts.Values = append(report.TopProducts.Values, report.Rows[i].TotalProfit)
		}
	}

	report.TotalImportValue = report.TotalImportValue.Round(2)
	report.TotalProfit = report.TotalExportValue.Sub(report.TotalImportValue)
	report.Margin = margin(report.TotalProfit, report.TotalImportValue)
	return report, nil
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...).Div(decimal.NewFromInt(int64(len(values))))
}

// margin is profit over cost in percent with one decimal; zero when there is no cost.
func margin(profit, cost decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(cost).Mul(hundred).Round(1)
}
