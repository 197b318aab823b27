package reports

import (
	"errors"

	"khomypham-backend/internal/catalog"
	"khomypham-backend/internal/config"
	"khomypham-backend/internal/database"
	"khomypham-backend/internal/logging"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func rangeFromQuery(c *fiber.Ctx, cfg *config.Config) (DateRange, error) {
	r, err := ParseDateRange(c.Query("start_date"), c.Query("end_date"), cfg.Location)
	if errors.Is(err, ErrInvalidRange) {
		return r, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		return r, fiber.NewError(fiber.StatusBadRequest, "Ngày không hợp lệ (YYYY-MM-DD)")
	}
	return r, nil
}

func sendWorkbook(c *fiber.Ctx, name string, data []byte) error {
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(data)
}

// GET /api/reports/inventory?q=
func InventoryReportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := BuildInventoryReport(database.DB, cfg, catalog.Today(cfg))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lập được báo cáo tồn kho")
		}
		report = report.Filter(c.Query("q"))
		return c.JSON(fiber.Map{
			"report":        report,
			"status_counts": report.StatusCounts(),
		})
	}
}

// GET /api/reports/import-export?start_date=&end_date=
func ImportExportReportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFromQuery(c, cfg)
		if err != nil {
			return err
		}
		report, err := BuildImportExportReport(database.DB, r)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lập được báo cáo nhập xuất")
		}
		return c.JSON(report)
	}
}

// GET /api/reports/profit?start_date=&end_date=
func ProfitReportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFromQuery(c, cfg)
		if err != nil {
			return err
		}
		report, err := BuildProfitReport(database.DB, r)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lập được báo cáo lợi nhuận")
		}
		return c.JSON(report)
	}
}

// GET /api/reports/inventory/excel
func ExportInventoryExcelHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		today := catalog.Today(cfg)
		report, err := BuildInventoryReport(database.DB, cfg, today)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lập được báo cáo tồn kho")
		}
		data, err := InventoryWorkbook(report)
		if err != nil {
			logging.L.Error("inventory workbook failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Không tạo được file Excel")
		}
		return sendWorkbook(c, InventoryFileName(today), data)
	}
}

// GET /api/reports/import-export/excel?start_date=&end_date=
func ExportImportExportExcelHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFromQuery(c, cfg)
		if err != nil {
			return err
		}
		report, err := BuildImportExportReport(database.DB, r)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lập được báo cáo nhập xuất")
		}
		data, err := ImportExportWorkbook(report, cfg.Location)
		if err != nil {
			logging.L.Error("import/export workbook failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Không tạo được file Excel")
		}
		return sendWorkbook(c, ImportExportFileName(catalog.Today(cfg)), data)
	}
}

// GET /api/reports/profit/excel?start_date=&end_date=
func ExportProfitExcelHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFromQuery(c, cfg)
		if err != nil {
			return err
		}
		report, err := BuildProfitReport(database.DB, r)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lập được báo cáo lợi nhuận")
		}
		data, err := ProfitWorkbook(report)
		if err != nil {
			logging.L.Error("profit workbook failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Không tạo được file Excel")
		}
		return sendWorkbook(c, ProfitFileName(catalog.Today(cfg)), data)
	}
}
