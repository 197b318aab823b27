package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"khomypham-backend/internal/database"
	"khomypham-backend/internal/logging"
	"khomypham-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAlreadyUndone = errors.New("thao tác này đã được hoàn tác")
	ErrNotUndoable   = errors.New("loại thao tác này không thể hoàn tác")
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func toJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func WriteLog(opts LogOptions) error {
	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("không ghi được nhật ký: %w", err)
	}
	return nil
}

// Record writes a log entry and only logs a failure; the business operation
// it describes has already been committed.
func Record(opts LogOptions) {
	if err := WriteLog(opts); err != nil {
		logging.L.Warn("audit log write failed",
			zap.Error(err),
			zap.String("entity_type", opts.EntityType),
			zap.Uint("entity_id", opts.EntityID))
	}
}

// UndoLog reverts the change described by a log entry and records the undo.
func UndoLog(logID uint, userID uint, userName string) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var entry models.AuditLog
		if err := tx.First(&entry, "id = ?", logID).Error; err != nil {
			return fmt.Errorf("không tìm thấy nhật ký: %w", err)
		}
		if entry.IsUndone {
			return ErrAlreadyUndone
		}

		if err := revert(tx, entry); err != nil {
			return err
		}

		now := time.Now()
		entry.IsUndone = true
		entry.UndoneBy = &userID
		entry.UndoneAt = &now
		if err := tx.Save(&entry).Error; err != nil {
			return fmt.Errorf("không cập nhật được nhật ký: %w", err)
		}

		undo := models.AuditLog{
			UserID:      userID,
			UserName:    userName,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      models.AuditActionUndo,
			Description: fmt.Sprintf("Hoàn tác: %s", entry.Description),
			BeforeData:  entry.AfterData,
			AfterData:   entry.BeforeData,
			Undone:      true,
		}
		if err := tx.Create(&undo).Error; err != nil {
			return fmt.Errorf("không ghi được nhật ký hoàn tác: %w", err)
		}
		return nil
	})
}

func revert(tx *gorm.DB, entry models.AuditLog) error {
	switch entry.EntityType {
	case models.EntityProduct:
		return revertProduct(tx, entry)
	case models.EntityCategory:
		return revertCategory(tx, entry)
	default:
		return ErrNotUndoable
	}
}

func revertProduct(tx *gorm.DB, entry models.AuditLog) error {
	switch entry.Action {
	case models.AuditActionCreate, models.AuditActionDelete:
		// products are only ever deactivated, so undo flips the flag
		active := entry.Action == models.AuditActionDelete
		return tx.Model(&models.Product{}).Where("id = ?", entry.EntityID).
			Update("is_active", active).Error

	case models.AuditActionUpdate:
		var p models.Product
		if err := json.Unmarshal([]byte(entry.BeforeData), &p); err != nil {
			return fmt.Errorf("dữ liệu cũ không hợp lệ: %w", err)
		}
		return tx.Model(&models.Product{}).Where("id = ?", entry.EntityID).Updates(map[string]interface{}{
			"code":          p.Code,
			"name":          p.Name,
			"category_id":   p.CategoryID,
			"unit":          p.Unit,
			"selling_price": p.SellingPrice,
			"description":   p.Description,
			"image_path":    p.ImagePath,
			"is_active":     p.IsActive,
		}).Error

	default:
		return ErrNotUndoable
	}
}

func revertCategory(tx *gorm.DB, entry models.AuditLog) error {
	switch entry.Action {
	case models.AuditActionCreate:
		var count int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", entry.EntityID).Count(&count).Error; err != nil {
			return fmt.Errorf("không đếm được sản phẩm của danh mục: %w", err)
		}
		if count > 0 {
			return errors.New("danh mục đã có sản phẩm, không thể hoàn tác")
		}
		return tx.Delete(&models.Category{}, "id = ?", entry.EntityID).Error

	case models.AuditActionUpdate:
		var cat models.Category
		if err := json.Unmarshal([]byte(entry.BeforeData), &cat); err != nil {
			return fmt.Errorf("dữ liệu cũ không hợp lệ: %w", err)
		}
		return tx.Model(&models.Category{}).Where("id = ?", entry.EntityID).Updates(map[string]interface{}{
			"name":        cat.Name,
			"description": cat.Description,
		}).Error

	case models.AuditActionDelete:
		var cat models.Category
		if err := json.Unmarshal([]byte(entry.BeforeData), &cat); err != nil {
			return fmt.Errorf("dữ liệu cũ không hợp lệ: %w", err)
		}
		cat.ID = 0
		return tx.Create(&cat).Error

	default:
		return ErrNotUndoable
	}
}
