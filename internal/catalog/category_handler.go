package catalog

import (
	"errors"
	"fmt"
	"strings"

	"khomypham-backend/internal/audit"
	"khomypham-backend/internal/auth"
	"khomypham-backend/internal/database"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoryResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProductCount int64  `json:"product_count"`
	CreatedAt    string `json:"created_at"`
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

func toCategoryResponse(cat models.Category, productCount int64) CategoryResponse {
	return CategoryResponse{
		ID:           cat.ID,
		Name:         cat.Name,
		Description:  cat.Description,
		ProductCount: productCount,
		CreatedAt:    cat.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var categories []models.Category
		if err := database.DB.Order("name asc").Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lấy được danh sách danh mục")
		}

		type countRow struct {
			CategoryID uint
			Total      int64
		}
		var rows []countRow
		if err := database.DB.Model(&models.Product{}).
			Select("category_id, COUNT(*) AS total").
			Where("is_active = ?", true).
			Group("category_id").
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không đếm được sản phẩm")
		}
		counts := make(map[uint]int64, len(rows))
		for _, r := range rows {
			counts[r.CategoryID] = r.Total
		}

		res := make([]CategoryResponse, 0, len(categories))
		for _, cat := range categories {
			res = append(res, toCategoryResponse(cat, counts[cat.ID]))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Tên danh mục là bắt buộc")
		}
		if err := checkCategoryName(name, 0); err != nil {
			return err
		}

		cat := models.Category{
			Name:        name,
			Description: strings.TrimSpace(body.Description),
		}
		if err := database.DB.Create(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không tạo được danh mục")
		}

		audit.Record(audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  models.EntityCategory,
			EntityID:    cat.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Tạo danh mục %s", cat.Name),
			After:       cat,
		})

		return c.Status(fiber.StatusCreated).JSON(toCategoryResponse(cat, 0))
	}
}

// PUT /api/admin/categories/:id
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var cat models.Category
		if err := database.DB.First(&cat, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Không tìm thấy danh mục")
		}

		var body CategoryRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Tên danh mục không được để trống")
		}
		if err := checkCategoryName(name, cat.ID); err != nil {
			return err
		}

		before := cat
		cat.Name = name
		cat.Description = strings.TrimSpace(body.Description)
		if err := database.DB.Save(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không cập nhật được danh mục")
		}

		audit.Record(audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  models.EntityCategory,
			EntityID:    cat.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Sửa danh mục %s", cat.Name),
			Before:      before,
			After:       cat,
		})

		var count int64
		if err := database.DB.Model(&models.Product{}).
			Where("category_id = ? AND is_active = ?", cat.ID, true).
			Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không đếm được sản phẩm")
		}
		return c.JSON(toCategoryResponse(cat, count))
	}
}

// DELETE /api/admin/categories/:id
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var cat models.Category
		if err := database.DB.First(&cat, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Không tìm thấy danh mục")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Không đọc được danh mục")
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		// inactive products still point at the category
		var count int64
		if err := database.DB.Model(&models.Product{}).Where("category_id = ?", cat.ID).Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không đếm được sản phẩm")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Danh mục đang có sản phẩm, không thể xóa")
		}

		if err := database.DB.Delete(&models.Category{}, "id = ?", cat.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không xóa được danh mục")
		}

		audit.Record(audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  models.EntityCategory,
			EntityID:    cat.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Xóa danh mục %s", cat.Name),
			Before:      cat,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// checkCategoryName returns 409 when another category already uses name.
func checkCategoryName(name string, exceptID uint) error {
	var count int64
	if err := database.DB.Model(&models.Category{}).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&count).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Không kiểm tra được tên danh mục")
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusConflict, "Tên danh mục đã tồn tại")
	}
	return nil
}
