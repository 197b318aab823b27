package catalog

import (
	"errors"
	"fmt"
	"strings"

	"khomypham-backend/internal/audit"
	"khomypham-backend/internal/auth"
	"khomypham-backend/internal/config"
	"khomypham-backend/internal/database"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/pagination"
	"khomypham-backend/internal/stocklevel"
	"khomypham-backend/internal/textfilter"
	"khomypham-backend/internal/validation"
	"khomypham-backend/internal/vnformat"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const ProductsPerPage = 12

type ProductResponse struct {
	ID                  uint                `json:"id"`
	Code                string              `json:"code"`
	Name                string              `json:"name"`
	CategoryID          uint                `json:"category_id"`
	CategoryName        string              `json:"category_name"`
	Unit                models.ProductUnit  `json:"unit"`
	UnitLabel           string              `json:"unit_label"`
	SellingPrice        decimal.Decimal     `json:"selling_price"`
	SellingPriceDisplay string              `json:"selling_price_display"`
	Description         string              `json:"description"`
	ImagePath           string              `json:"image_path"`
	IsActive            bool                `json:"is_active"`
	TotalStock          int                 `json:"total_stock"`
	Severity            stocklevel.Severity `json:"severity"`
	CreatedAt           string              `json:"created_at"`
}

type ProductDetailResponse struct {
	ProductResponse
	Batches []BatchResponse `json:"batches"`
}

type CreateProductRequest struct {
	Code         string             `json:"code" validate:"max=50"`
	Name         string             `json:"name" validate:"required,max=200"`
	CategoryID   uint               `json:"category_id" validate:"required"`
	Unit         models.ProductUnit `json:"unit" validate:"omitempty,oneof=cai hop chai tuyp goi kg g ml"`
	SellingPrice decimal.Decimal    `json:"selling_price"`
	Description  string             `json:"description"`
}

type UpdateProductRequest struct {
	Code         *string             `json:"code" validate:"omitempty,max=50"`
	Name         *string             `json:"name" validate:"omitempty,max=200"`
	CategoryID   *uint               `json:"category_id"`
	Unit         *models.ProductUnit `json:"unit" validate:"omitempty,oneof=cai hop chai tuyp goi kg g ml"`
	SellingPrice *decimal.Decimal    `json:"selling_price"`
	Description  *string             `json:"description"`
	IsActive     *bool               `json:"is_active"`
}

type ProductInfoResponse struct {
	ID           uint               `json:"id"`
	Code         string             `json:"code"`
	Name         string             `json:"name"`
	SellingPrice decimal.Decimal    `json:"selling_price"`
	Unit         models.ProductUnit `json:"unit"`
	UnitLabel    string             `json:"unit_label"`
	CategoryName string             `json:"category_name"`
}

func toProductResponse(p models.Product, totalStock int, cfg *config.Config) ProductResponse {
	return ProductResponse{
		ID:                  p.ID,
		Code:                p.Code,
		Name:                p.Name,
		CategoryID:          p.CategoryID,
		CategoryName:        p.Category.Name,
		Unit:                p.Unit,
		UnitLabel:           models.UnitLabels[p.Unit],
		SellingPrice:        p.SellingPrice,
		SellingPriceDisplay: vnformat.Currency(p.SellingPrice),
		Description:         p.Description,
		ImagePath:           p.ImagePath,
		IsActive:            p.IsActive,
		TotalStock:          totalStock,
		Severity:            stocklevel.Classify(totalStock, cfg.LowStockThreshold),
		CreatedAt:           p.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// productSearchText is what ?search= is matched against.
func productSearchText(p models.Product) string {
	return p.Name + " " + p.Code + " " + p.Category.Name
}

// GET /api/products?search=son&category=2&page=1
func ListProductsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Preload("Category").Where("is_active = ?", true)
		if categoryID := c.QueryInt("category"); categoryID > 0 {
			dbq = dbq.Where("category_id = ?", categoryID)
		}

		var products []models.Product
		if err := dbq.Order("name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lấy được danh sách sản phẩm")
		}

		// accent-insensitive, so it runs in Go rather than as SQL LIKE
		products = textfilter.Filter(products, c.Query("search"), productSearchText)

		page := pagination.New(pagination.PageFromQuery(c), ProductsPerPage, len(products))
		products = pagination.Slice(products, page)

		ids := make([]uint, 0, len(products))
		for _, p := range products {
			ids = append(ids, p.ID)
		}
		totals, err := StockTotals(database.DB, ids)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không tính được tồn kho")
		}

		items := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			items = append(items, toProductResponse(p, totals[p.ID], cfg))
		}
		return c.JSON(pagination.ListResponse[ProductResponse]{Items: items, Pagination: page})
	}
}

// GET /api/products/:id
func GetProductHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := findProduct(c.Params("id"))
		if err != nil {
			return err
		}

		var batches []models.Batch
		if err := database.DB.
			Where("product_id = ? AND is_active = ?", p.ID, true).
			Order("expiry_date asc").
			Find(&batches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lấy được lô hàng")
		}

		today := Today(cfg)
		total := 0
		batchRes := make([]BatchResponse, 0, len(batches))
		for _, b := range batches {
			total += b.RemainingQuantity
			b.Product = p
			batchRes = append(batchRes, ToBatchResponse(b, cfg, today))
		}

		return c.JSON(ProductDetailResponse{
			ProductResponse: toProductResponse(p, total, cfg),
			Batches:         batchRes,
		})
	}
}

// GET /api/products/:id/info
// Dùng khi chọn sản phẩm trên form nhập/xuất
func ProductInfoHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := findProduct(c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(ProductInfoResponse{
			ID:           p.ID,
			Code:         p.Code,
			Name:         p.Name,
			SellingPrice: p.SellingPrice,
			Unit:         p.Unit,
			UnitLabel:    models.UnitLabels[p.Unit],
			CategoryName: p.Category.Name,
		})
	}
}

// POST /api/admin/products
func CreateProductHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Tên sản phẩm là bắt buộc")
		}
		if body.SellingPrice.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Giá bán không được âm")
		}
		if err := ensureCategory(body.CategoryID); err != nil {
			return err
		}

		unit := body.Unit
		if unit == "" {
			unit = models.UnitPiece
		}

		code := strings.TrimSpace(body.Code)
		if code == "" {
			code, err = NextProductCode(database.DB)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Không sinh được mã sản phẩm")
			}
		} else if err := checkProductCode(code, 0); err != nil {
			return err
		}

		p := models.Product{
			Code:         code,
			Name:         name,
			CategoryID:   body.CategoryID,
			Unit:         unit,
			SellingPrice: body.SellingPrice,
			Description:  strings.TrimSpace(body.Description),
			IsActive:     true,
		}
		if err := database.DB.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không tạo được sản phẩm")
		}

		audit.Record(audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  models.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Tạo sản phẩm %s - %s", p.Code, p.Name),
			After:       p,
		})

		database.DB.Preload("Category").First(&p, p.ID)
		return c.Status(fiber.StatusCreated).JSON(toProductResponse(p, 0, cfg))
	}
}

// PUT /api/admin/products/:id
func UpdateProductHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := findProduct(c.Params("id"))
		if err != nil {
			return err
		}

		var body UpdateProductRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		before := p
		updates := map[string]interface{}{}

		if body.Code != nil {
			code := strings.TrimSpace(*body.Code)
			if code == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Mã sản phẩm không được để trống")
			}
			if err := checkProductCode(code, p.ID); err != nil {
				return err
			}
			updates["code"] = code
		}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Tên sản phẩm không được để trống")
			}
			updates["name"] = name
		}
		if body.CategoryID != nil {
			if err := ensureCategory(*body.CategoryID); err != nil {
				return err
			}
			updates["category_id"] = *body.CategoryID
		}
		if body.Unit != nil {
			updates["unit"] = *body.Unit
		}
		if body.SellingPrice != nil {
			if body.SellingPrice.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "Giá bán không được âm")
			}
			updates["selling_price"] = *body.SellingPrice
		}
		if body.Description != nil {
			updates["description"] = strings.TrimSpace(*body.Description)
		}
		if body.IsActive != nil {
			updates["is_active"] = *body.IsActive
		}

		if len(updates) > 0 {
			if err := database.DB.Model(&models.Product{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Không cập nhật được sản phẩm")
			}
		}

		updated, err := findProduct(fmt.Sprint(p.ID))
		if err != nil {
			return err
		}

		audit.Record(audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  models.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Sửa sản phẩm %s - %s", updated.Code, updated.Name),
			Before:      before,
			After:       updated,
		})

		totals, err := StockTotals(database.DB, []uint{p.ID})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không tính được tồn kho")
		}
		return c.JSON(toProductResponse(updated, totals[p.ID], cfg))
	}
}

// DELETE /api/admin/products/:id
// Chỉ ẩn sản phẩm; lô hàng và phiếu cũ vẫn giữ tham chiếu
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := findProduct(c.Params("id"))
		if err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		if err := database.DB.Model(&models.Product{}).Where("id = ?", p.ID).Update("is_active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không xóa được sản phẩm")
		}

		audit.Record(audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  models.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Xóa sản phẩm %s - %s", p.Code, p.Name),
			Before:      p,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/admin/products/:id/image (multipart, field "image")
func UploadProductImageHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := findProduct(c.Params("id"))
		if err != nil {
			return err
		}

		fh, err := c.FormFile("image")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Chưa chọn ảnh")
		}

		fileName, err := SaveProductImage(fh, p.Code, cfg.ProductImagePath, cfg.MaxUploadBytes)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := database.DB.Model(&models.Product{}).Where("id = ?", p.ID).Update("image_path", fileName).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lưu được ảnh sản phẩm")
		}

		return c.JSON(fiber.Map{
			"image_path": fileName,
		})
	}
}

func findProduct(id string) (models.Product, error) {
	var p models.Product
	if err := database.DB.Preload("Category").First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, fiber.NewError(fiber.StatusNotFound, "Không tìm thấy sản phẩm")
		}
		return p, fiber.NewError(fiber.StatusInternalServerError, "Không đọc được sản phẩm")
	}
	return p, nil
}

func ensureCategory(id uint) error {
	var count int64
	if err := database.DB.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Không đọc được danh mục")
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Danh mục không tồn tại")
	}
	return nil
}

func checkProductCode(code string, exceptID uint) error {
	var count int64
	if err := database.DB.Model(&models.Product{}).
		Where("code = ? AND id <> ?", code, exceptID).
		Count(&count).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Không kiểm tra được mã sản phẩm")
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusConflict, "Mã sản phẩm đã tồn tại")
	}
	return nil
}
