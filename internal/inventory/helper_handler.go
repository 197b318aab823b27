package inventory

import (
	"khomypham-backend/internal/batchcode"
	"khomypham-backend/internal/rowtotal"
	"khomypham-backend/internal/stocklevel"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type StockLevelResponse struct {
	Stock     int                 `json:"stock"`
	Threshold int                 `json:"threshold"`
	Severity  stocklevel.Severity `json:"severity"`
	Label     string              `json:"label"`
	Class     string              `json:"class"`
	Icon      string              `json:"icon"`
}

type RowTotalRequest struct {
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

type RowTotalResponse struct {
	Total     decimal.Decimal `json:"total"`
	Formatted string          `json:"formatted"`
}

// GET /api/batch-codes/new
func NewBatchCodeHandler(gen *batchcode.Generator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"batch_code": gen.Next(),
		})
	}
}

// GET /api/stock-level?stock=5&threshold=10
// Tham số giữ dạng chuỗi thô như trên form; giá trị hỏng không báo lỗi
func StockLevelHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reading := stocklevel.ParseReading(c.Query("stock"), c.Query("threshold"))
		severity := reading.Severity()
		indicator := severity.Indicator()
		return c.JSON(StockLevelResponse{
			Stock:     reading.Stock,
			Threshold: reading.Threshold,
			Severity:  severity,
			Label:     severity.Label(),
			Class:     indicator.Class,
			Icon:      indicator.Icon,
		})
	}
}

// POST /api/row-total
func RowTotalHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RowTotalRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dữ liệu gửi lên không hợp lệ")
		}
		total := rowtotal.Compute(body.Quantity, body.Price)
		return c.JSON(RowTotalResponse{
			Total:     total,
			Formatted: rowtotal.Format(total),
		})
	}
}
