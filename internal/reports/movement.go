package reports

import (
	"errors"
	"time"

	"khomypham-backend/internal/catalog"
	"khomypham-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidRange = errors.New("ngày bắt đầu phải trước ngày kết thúc")

// DateRange bounds order dates. Both ends are calendar days in the shop's
// timezone and the end day is included in full.
type DateRange struct {
	Start string `json:"start_date,omitempty"`
	End   string `json:"end_date,omitempty"`

	from  time.Time
	until time.Time
}

// ParseDateRange accepts empty strings for an open end.
func ParseDateRange(start, end string, loc *time.Location) (DateRange, error) {
	r := DateRange{Start: start, End: end}
	if start != "" {
		d, err := catalog.ParseDate(start)
		if err != nil {
			return r, err
		}
		r.from = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	}
	if end != "" {
		d, err := catalog.ParseDate(end)
		if err != nil {
			return r, err
		}
		r.until = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	}
	if !r.from.IsZero() && !r.until.IsZero() && !r.from.Before(r.until) {
		return r, ErrInvalidRange
	}
	return r, nil
}

func (r DateRange) apply(q *gorm.DB, column string) *gorm.DB {
	if !r.from.IsZero() {
		q = q.Where(column+" >= ?", r.from)
	}
	if !r.until.IsZero() {
		q = q.Where(column+" < ?", r.until)
	}
	return q
}

type OrderRow struct {
	No          int             `json:"no"`
	ID          uint            `json:"id"`
	Code        string          `json:"code"`
	Date        time.Time       `json:"date"`
	Partner     string          `json:"partner"`
	CreatedBy   string          `json:"created_by"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       string          `json:"notes"`
}

type ImportExportReport struct {
	Range            DateRange       `json:"range"`
	Imports          []OrderRow      `json:"imports"`
	Exports          []OrderRow      `json:"exports"`
	TotalImportValue decimal.Decimal `json:"total_import_value"`
	TotalExportValue decimal.Decimal `json:"total_export_value"`
	Profit           decimal.Decimal `json:"profit"`
}

// BuildImportExportReport lists orders newest first with their totals.
func BuildImportExportReport(db *gorm.DB, r DateRange) (ImportExportReport, error) {
	report := ImportExportReport{
		Range:            r,
		Imports:          []OrderRow{},
		Exports:          []OrderRow{},
		TotalImportValue: decimal.Zero,
		TotalExportValue: decimal.Zero,
	}

	var imports []models.ImportOrder
	if err := r.apply(db.Preload("Items").Preload("CreatedBy"), "import_date").
		Order("import_date desc, id desc").
		Find(&imports).Error; err != nil {
		return report, err
	}
	for _, o := range imports {
		total := o.TotalAmount()
		report.TotalImportValue = report.TotalImportValue.Add(total)
		report.Imports = append(report.Imports, OrderRow{
			No:          len(report.Imports) + 1,
			ID:          o.ID,
			Code:        o.Code,
			Date:        o.ImportDate,
			Partner:     o.Supplier,
			CreatedBy:   o.CreatedBy.Name,
			ItemCount:   len(o.Items),
			TotalAmount: total,
			Notes:       o.Notes,
		})
	}

	var exports []models.ExportOrder
	if err := r.apply(db.Preload("Items").Preload("CreatedBy"), "export_date").
		Order("export_date desc, id desc").
		Find(&exports).Error; err != nil {
		return report, err
	}
	for _, o := range exports {
		total := o.TotalAmount()
		report.TotalExportValue = report.TotalExportValue.Add(total)
		report.Exports = append(report.Exports, OrderRow{
			No:          len(report.Exports) + 1,
			ID:          o.ID,
			Code:        o.Code,
			Date:        o.ExportDate,
			Partner:     o.Customer,
			CreatedBy:   o.CreatedBy.Name,
			ItemCount:   len(o.Items),
			TotalAmount: total,
			Notes:       o.Notes,
		})
	}

	report.Profit = report.TotalExportValue.Sub(report.TotalImportValue)
	return report, nil
}
