package inventory

import (
	"khomypham-backend/internal/catalog"
	"khomypham-backend/internal/config"
	"khomypham-backend/internal/database"
	"khomypham-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/batches?product_id=3&available=true
// Lô còn hàng xếp theo hạn sử dụng, lô hết hạn sớm nhất đứng đầu
func ListBatchesHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Preload("Product").Where("is_active = ?", true)
		if productID := c.QueryInt("product_id"); productID > 0 {
			dbq = dbq.Where("product_id = ?", productID)
		}
		if c.QueryBool("available") {
			dbq = dbq.Where("remaining_quantity > 0")
		}

		var batches []models.Batch
		if err := dbq.Order("expiry_date asc, id asc").Find(&batches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lấy được danh sách lô hàng")
		}

		today := catalog.Today(cfg)
		res := make([]catalog.BatchResponse, 0, len(batches))
		for _, b := range batches {
			res = append(res, catalog.ToBatchResponse(b, cfg, today))
		}
		return c.JSON(res)
	}
}
