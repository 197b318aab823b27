package inventory

import (
	"errors"
	"fmt"
	"time"

	"khomypham-backend/internal/audit"
	"khomypham-backend/internal/auth"
	"khomypham-backend/internal/config"
	"khomypham-backend/internal/database"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/pagination"
	"khomypham-backend/internal/validation"
	"khomypham-backend/internal/vnformat"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInsufficientStock is returned when a line asks for more than a batch holds.
var ErrInsufficientStock = errors.New("số lượng xuất vượt quá số lượng còn lại")

type ExportItemRequest struct {
	BatchID  uint `json:"batch_id" validate:"required"`
	Quantity int  `json:"quantity" validate:"required,min=1"`
	// nil means the product's selling price
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type CreateExportRequest struct {
	ExportDate string              `json:"export_date"`
	Customer   string              `json:"customer" validate:"max=200"`
	Notes      string              `json:"notes"`
	Items      []ExportItemRequest `json:"items" validate:"dive"`
}

type AddExportItemsRequest struct {
	Items []ExportItemRequest `json:"items" validate:"required,min=1,dive"`
}

type ExportItemResponse struct {
	ID          uint            `json:"id"`
	BatchID     uint            `json:"batch_id"`
	BatchCode   string          `json:"batch_code"`
	ProductID   uint            `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type ExportOrderResponse struct {
	ID           uint                 `json:"id"`
	Code         string               `json:"code"`
	ExportDate   string               `json:"export_date"`
	Customer     string               `json:"customer"`
	Notes        string               `json:"notes"`
	CreatedBy    string               `json:"created_by"`
	ItemCount    int                  `json:"item_count"`
	TotalAmount  decimal.Decimal      `json:"total_amount"`
	TotalDisplay string               `json:"total_display"`
	Items        []ExportItemResponse `json:"items,omitempty"`
}

func toExportOrderResponse(o models.ExportOrder, cfg *config.Config, withItems bool) ExportOrderResponse {
	total := o.TotalAmount()
	res := ExportOrderResponse{
		ID:           o.ID,
		Code:         o.Code,
		ExportDate:   o.ExportDate.In(cfg.Location).Format("2006-01-02 15:04"),
		Customer:     o.Customer,
		Notes:        o.Notes,
		CreatedBy:    o.CreatedBy.Name,
		ItemCount:    len(o.Items),
		TotalAmount:  total,
		TotalDisplay: vnformat.Currency(total),
	}
	if withItems {
		res.Items = make([]ExportItemResponse, 0, len(o.Items))
		for _, it := range o.Items {
			p := it.Batch.Product
			res.Items = append(res.Items, ExportItemResponse{
				ID:          it.ID,
				BatchID:     it.BatchID,
				BatchCode:   it.Batch.BatchCode,
				ProductID:   p.ID,
				ProductCode: p.Code,
				ProductName: p.Name,
				Unit:        models.UnitLabels[p.Unit],
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				TotalPrice:  it.TotalPrice(),
			})
		}
	}
	return res
}

// addExportLines stores the lines and takes their quantity out of each batch.
// The decrement is guarded in SQL so two concurrent exports cannot push a
// batch below zero.
func addExportLines(tx *gorm.DB, order *models.ExportOrder, items []ExportItemRequest) error {
	for i, it := range items {
		var batch models.Batch
		if err := tx.Preload("Product").First(&batch, "id = ? AND is_active = ?", it.BatchID, true).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Dòng %d: lô hàng không tồn tại", i+1))
		}

		price := batch.Product.SellingPrice
		if it.UnitPrice != nil {
			if it.UnitPrice.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Dòng %d: đơn giá không được âm", i+1))
			}
			price = *it.UnitPrice
		}

		res := tx.Model(&models.Batch{}).
			Where("id = ? AND remaining_quantity >= ?", batch.ID, it.Quantity).
			Update("remaining_quantity", gorm.Expr("remaining_quantity - ?", it.Quantity))
		if res.Error != nil {
			return fmt.Errorf("không cập nhật được lô %s: %w", batch.BatchCode, res.Error)
		}
		if res.RowsAffected == 0 {
			var remaining int
			if err := tx.Model(&models.Batch{}).Where("id = ?", batch.ID).Select("remaining_quantity").Scan(&remaining).Error; err != nil {
				return fmt.Errorf("không đọc được tồn kho lô %s: %w", batch.BatchCode, err)
			}
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("Dòng %d (%s): %v (còn %d)", i+1, batch.BatchCode, ErrInsufficientStock, remaining))
		}

		item := models.ExportItem{
			ExportOrderID: order.ID,
			BatchID:       batch.ID,
			Quantity:      it.Quantity,
			UnitPrice:     price,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("không tạo được dòng xuất: %w", err)
		}
	}
	return nil
}

func loadExportOrder(id interface{}) (models.ExportOrder, error) {
	var o models.ExportOrder
	err := database.DB.
		Preload("CreatedBy").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Batch.Product").
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return o, fiber.NewError(fiber.StatusNotFound, "Không tìm thấy phiếu xuất")
		}
		return o, fiber.NewError(fiber.StatusInternalServerError, "Không đọc được phiếu xuất")
	}
	return o, nil
}

// GET /api/exports?page=1
func ListExportsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var total int64
		if err := database.DB.Model(&models.ExportOrder{}).Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không đếm được phiếu xuất")
		}
		page := pagination.New(pagination.PageFromQuery(c), OrdersPerPage, int(total))

		var orders []models.ExportOrder
		if err := database.DB.
			Preload("CreatedBy").
			Preload("Items").
			Order("export_date desc, id desc").
			Offset(page.Offset()).
			Limit(page.PageSize).
			Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lấy được danh sách phiếu xuất")
		}

		items := make([]ExportOrderResponse, 0, len(orders))
		for _, o := range orders {
			items = append(items, toExportOrderResponse(o, cfg, false))
		}
		return c.JSON(pagination.ListResponse[ExportOrderResponse]{Items: items, Pagination: page})
	}
}

// GET /api/exports/:id
func GetExportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := loadExportOrder(c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(toExportOrderResponse(o, cfg, true))
	}
}

// POST /api/exports
func CreateExportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateExportRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		now := time.Now().In(cfg.Location)
		exportTime, err := orderTime(body.ExportDate, now)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var order models.ExportOrder
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			code, err := nextOrderCode(tx, &models.ExportOrder{}, ExportCodePrefix, now)
			if err != nil {
				return err
			}
			order = models.ExportOrder{
				Code:        code,
				ExportDate:  exportTime,
				Customer:    body.Customer,
				Notes:       body.Notes,
				CreatedByID: actor.ID,
			}
			if err := tx.Create(&order).Error; err != nil {
				return fmt.Errorf("không tạo được phiếu xuất: %w", err)
			}
			return addExportLines(tx, &order, body.Items)
		})
		if err != nil {
			return err
		}

		o, err := loadExportOrder(order.ID)
		if err != nil {
			return err
		}
		audit.Record(audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  models.EntityExportOrder,
			EntityID:    o.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Tạo phiếu xuất %s (%d dòng)", o.Code, len(o.Items)),
			After:       toExportOrderResponse(o, cfg, true),
		})
		return c.Status(fiber.StatusCreated).JSON(toExportOrderResponse(o, cfg, true))
	}
}

// POST /api/exports/:id/items
func AddExportItemsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		existing, err := loadExportOrder(c.Params("id"))
		if err != nil {
			return err
		}

		var body AddExportItemsRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			return addExportLines(tx, &existing, body.Items)
		})
		if err != nil {
			return err
		}

		o, err := loadExportOrder(existing.ID)
		if err != nil {
			return err
		}
		audit.Record(audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  models.EntityExportOrder,
			EntityID:    o.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Thêm %d dòng vào phiếu xuất %s", len(body.Items), o.Code),
			Before:      toExportOrderResponse(existing, cfg, true),
			After:       toExportOrderResponse(o, cfg, true),
		})
		return c.JSON(toExportOrderResponse(o, cfg, true))
	}
}
