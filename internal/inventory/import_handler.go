package inventory

import (
	"errors"
	"fmt"
	"time"

	"khomypham-backend/internal/audit"
	"khomypham-backend/internal/auth"
	"khomypham-backend/internal/catalog"
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

const OrdersPerPage = 20

type ImportItemRequest struct {
	ProductID  uint            `json:"product_id" validate:"required"`
	BatchCode  string          `json:"batch_code" validate:"max=100"`
	Quantity   int             `json:"quantity" validate:"required,min=1"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	ExpiryDate string          `json:"expiry_date"`
}

type CreateImportRequest struct {
	ImportDate string              `json:"import_date"`
	Supplier   string              `json:"supplier" validate:"max=200"`
	Notes      string              `json:"notes"`
	Items      []ImportItemRequest `json:"items" validate:"dive"`
}

type AddImportItemsRequest struct {
	Items []ImportItemRequest `json:"items" validate:"required,min=1,dive"`
}

type ImportItemResponse struct {
	ID          uint            `json:"id"`
	ProductID   uint            `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	BatchID     uint            `json:"batch_id"`
	BatchCode   string          `json:"batch_code"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ExpiryDate  string          `json:"expiry_date"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type ImportOrderResponse struct {
	ID           uint                 `json:"id"`
	Code         string               `json:"code"`
	ImportDate   string               `json:"import_date"`
	Supplier     string               `json:"supplier"`
	Notes        string               `json:"notes"`
	CreatedBy    string               `json:"created_by"`
	ItemCount    int                  `json:"item_count"`
	TotalAmount  decimal.Decimal      `json:"total_amount"`
	TotalDisplay string               `json:"total_display"`
	Items        []ImportItemResponse `json:"items,omitempty"`
}

// importLine is a validated request line with its product loaded.
type importLine struct {
	Product   models.Product
	BatchCode string
	Quantity  int
	UnitPrice decimal.Decimal
	Expiry    time.Time
}

func toImportOrderResponse(o models.ImportOrder, cfg *config.Config, withItems bool) ImportOrderResponse {
	total := o.TotalAmount()
	res := ImportOrderResponse{
		ID:           o.ID,
		Code:         o.Code,
		ImportDate:   o.ImportDate.In(cfg.Location).Format("2006-01-02 15:04"),
		Supplier:     o.Supplier,
		Notes:        o.Notes,
		CreatedBy:    o.CreatedBy.Name,
		ItemCount:    len(o.Items),
		TotalAmount:  total,
		TotalDisplay: vnformat.Currency(total),
	}
	if withItems {
		res.Items = make([]ImportItemResponse, 0, len(o.Items))
		for _, it := range o.Items {
			res.Items = append(res.Items, ImportItemResponse{
				ID:          it.ID,
				ProductID:   it.ProductID,
				ProductCode: it.Product.Code,
				ProductName: it.Product.Name,
				Unit:        models.UnitLabels[it.Product.Unit],
				BatchID:     it.BatchID,
				BatchCode:   it.BatchCode,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				ExpiryDate:  it.ExpiryDate.UTC().Format("2006-01-02"),
				TotalPrice:  it.TotalPrice(),
			})
		}
	}
	return res
}

// resolveImportLines loads the products and fills defaulted expiry dates.
func resolveImportLines(tx *gorm.DB, items []ImportItemRequest, today time.Time) ([]importLine, error) {
	lines := make([]importLine, 0, len(items))
	for i, it := range items {
		if it.UnitPrice.IsNegative() {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Dòng %d: đơn giá không được âm", i+1))
		}
		expiry, err := expiryDate(it.ExpiryDate, today)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Dòng %d: %v", i+1, err))
		}

		var p models.Product
		if err := tx.First(&p, "id = ? AND is_active = ?", it.ProductID, true).Error; err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Dòng %d: sản phẩm không tồn tại", i+1))
		}

		lines = append(lines, importLine{
			Product:   p,
			BatchCode: it.BatchCode,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Expiry:    expiry,
		})
	}
	return lines, nil
}

// addImportLines stores one item and one new batch per line.
func addImportLines(tx *gorm.DB, order *models.ImportOrder, lines []importLine, userID uint) error {
	codes := newBatchCodeAllocator(tx)
	for _, line := range lines {
		code, err := codes.Allocate(line.BatchCode, order.ImportDate)
		if err != nil {
			return fmt.Errorf("không cấp được mã lô: %w", err)
		}

		batch := models.Batch{
			ProductID:         line.Product.ID,
			BatchCode:         code,
			ImportDate:        order.ImportDate,
			ExpiryDate:        line.Expiry,
			ImportPrice:       line.UnitPrice,
			ImportQuantity:    line.Quantity,
			RemainingQuantity: line.Quantity,
			IsActive:          true,
			CreatedByID:       userID,
		}
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("không tạo được lô %s: %w", code, err)
		}

		item := models.ImportItem{
			ImportOrderID: order.ID,
			ProductID:     line.Product.ID,
			BatchID:       batch.ID,
			BatchCode:     code,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			ExpiryDate:    line.Expiry,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("không tạo được dòng nhập: %w", err)
		}
	}
	return nil
}

func loadImportOrder(id interface{}) (models.ImportOrder, error) {
	var o models.ImportOrder
	err := database.DB.
		Preload("CreatedBy").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return o, fiber.NewError(fiber.StatusNotFound, "Không tìm thấy phiếu nhập")
		}
		return o, fiber.NewError(fiber.StatusInternalServerError, "Không đọc được phiếu nhập")
	}
	return o, nil
}

// GET /api/imports?page=1
func ListImportsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var total int64
		if err := database.DB.Model(&models.ImportOrder{}).Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không đếm được phiếu nhập")
		}
		page := pagination.New(pagination.PageFromQuery(c), OrdersPerPage, int(total))

		var orders []models.ImportOrder
		if err := database.DB.
			Preload("CreatedBy").
			Preload("Items").
			Order("import_date desc, id desc").
			Offset(page.Offset()).
			Limit(page.PageSize).
			Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lấy được danh sách phiếu nhập")
		}

		items := make([]ImportOrderResponse, 0, len(orders))
		for _, o := range orders {
			items = append(items, toImportOrderResponse(o, cfg, false))
		}
		return c.JSON(pagination.ListResponse[ImportOrderResponse]{Items: items, Pagination: page})
	}
}

// GET /api/imports/:id
func GetImportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := loadImportOrder(c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(toImportOrderResponse(o, cfg, true))
	}
}

// POST /api/imports
func CreateImportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateImportRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		now := time.Now().In(cfg.Location)
		importTime, err := orderTime(body.ImportDate, now)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var order models.ImportOrder
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			lines, err := resolveImportLines(tx, body.Items, catalog.Today(cfg))
			if err != nil {
				return err
			}

			code, err := nextOrderCode(tx, &models.ImportOrder{}, ImportCodePrefix, now)
			if err != nil {
				return err
			}
			order = models.ImportOrder{
				Code:        code,
				ImportDate:  importTime,
				Supplier:    body.Supplier,
				Notes:       body.Notes,
				CreatedByID: actor.ID,
			}
			if err := tx.Create(&order).Error; err != nil {
				return fmt.Errorf("không tạo được phiếu nhập: %w", err)
			}
			return addImportLines(tx, &order, lines, actor.ID)
		})
		if err != nil {
			return err
		}

		o, err := loadImportOrder(order.ID)
		if err != nil {
			return err
		}
		audit.Record(audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  models.EntityImportOrder,
			EntityID:    o.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Tạo phiếu nhập %s (%d dòng)", o.Code, len(o.Items)),
			After:       toImportOrderResponse(o, cfg, true),
		})
		return c.Status(fiber.StatusCreated).JSON(toImportOrderResponse(o, cfg, true))
	}
}

// POST /api/imports/:id/items
func AddImportItemsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		existing, err := loadImportOrder(c.Params("id"))
		if err != nil {
			return err
		}

		var body AddImportItemsRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			lines, err := resolveImportLines(tx, body.Items, catalog.Today(cfg))
			if err != nil {
				return err
			}
			return addImportLines(tx, &existing, lines, actor.ID)
		})
		if err != nil {
			return err
		}

		o, err := loadImportOrder(existing.ID)
		if err != nil {
			return err
		}
		audit.Record(audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  models.EntityImportOrder,
			EntityID:    o.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Thêm %d dòng vào phiếu nhập %s", len(body.Items), o.Code),
			Before:      toImportOrderResponse(existing, cfg, true),
			After:       toImportOrderResponse(o, cfg, true),
		})
		return c.JSON(toImportOrderResponse(o, cfg, true))
	}
}
