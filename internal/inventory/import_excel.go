package inventory

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"khomypham-backend/internal/audit"
	"khomypham-backend/internal/auth"
	"khomypham-backend/internal/catalog"
	"khomypham-backend/internal/config"
	"khomypham-backend/internal/database"
	"khomypham-backend/internal/logging"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/textfilter"
	"khomypham-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Column headers of an import sheet.
const (
	ColProductName  = "Tên SP"
	ColCategory     = "Danh mục"
	ColQuantity     = "Số lượng"
	ColImportPrice  = "Giá nhập"
	ColSellingPrice = "Giá bán"
	ColUnit         = "Đơn vị"
	ColExpiryDate   = "Hạn sử dụng"
	ColDescription  = "Mô tả"
)

var RequiredColumns = []string{ColProductName, ColCategory, ColQuantity, ColImportPrice, ColSellingPrice, ColUnit}

// ExcelRow is one data row of an uploaded sheet after parsing.
type ExcelRow struct {
	Row          int                `json:"row"` // sheet row number, header is row 1
	ProductName  string             `json:"product_name"`
	CategoryName string             `json:"category_name"`
	Quantity     int                `json:"quantity"`
	ImportPrice  decimal.Decimal    `json:"import_price"`
	SellingPrice decimal.Decimal    `json:"selling_price"`
	Unit         models.ProductUnit `json:"unit"`
	ExpiryDate   string             `json:"expiry_date"`
	Description  string             `json:"description"`
	Valid        bool               `json:"valid"`
	Errors       []string           `json:"errors,omitempty"`
}

type ExcelPreviewResponse struct {
	Rows              []ExcelRow `json:"rows"`
	ValidCount        int        `json:"valid_count"`
	MissingCategories []string   `json:"missing_categories"`
}

type ExcelConfirmRow struct {
	ProductName  string             `json:"product_name" validate:"required,max=200"`
	CategoryName string             `json:"category_name" validate:"required,max=100"`
	Quantity     int                `json:"quantity" validate:"required,min=1"`
	ImportPrice  decimal.Decimal    `json:"import_price"`
	SellingPrice decimal.Decimal    `json:"selling_price"`
	Unit         models.ProductUnit `json:"unit" validate:"omitempty,oneof=cai hop chai tuyp goi kg g ml"`
	ExpiryDate   string             `json:"expiry_date"`
	Description  string             `json:"description"`
}

type ConfirmExcelImportRequest struct {
	Supplier string            `json:"supplier" validate:"max=200"`
	Notes    string            `json:"notes"`
	Rows     []ExcelConfirmRow `json:"rows" validate:"required,min=1,dive"`
}

// ParseImportSheet reads the first sheet of an .xlsx workbook. A missing
// required column or an empty sheet is an error; problems inside a row only
// mark that row invalid.
func ParseImportSheet(r io.Reader) ([]ExcelRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("không đọc được file Excel: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("file Excel không có sheet nào")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("không đọc được sheet: %v", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("file Excel trống")
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("thiếu các cột bắt buộc: %s", strings.Join(missing, ", "))
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []ExcelRow
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		out = append(out, parseExcelRow(i+1, func(name string) string { return cell(row, name) }))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("file Excel không có dữ liệu")
	}
	return out, nil
}

func parseExcelRow(rowNum int, cell func(string) string) ExcelRow {
	r := ExcelRow{
		Row:          rowNum,
		ProductName:  cell(ColProductName),
		CategoryName: cell(ColCategory),
		Description:  cell(ColDescription),
	}
	fail := func(msg string) { r.Errors = append(r.Errors, msg) }

	if r.ProductName == "" {
		fail("Thiếu tên sản phẩm")
	}
	if r.CategoryName == "" {
		fail("Thiếu danh mục")
	}

	if q, err := strconv.ParseFloat(cell(ColQuantity), 64); err != nil || q < 1 || q != float64(int(q)) {
		fail("Số lượng phải là số nguyên dương")
	} else {
		r.Quantity = int(q)
	}

	var err error
	if r.ImportPrice, err = parseExcelMoney(cell(ColImportPrice)); err != nil {
		fail("Giá nhập không hợp lệ")
	}
	if r.SellingPrice, err = parseExcelMoney(cell(ColSellingPrice)); err != nil {
		fail("Giá bán không hợp lệ")
	}

	if unit, ok := parseUnit(cell(ColUnit)); ok {
		r.Unit = unit
	} else {
		fail(fmt.Sprintf("Đơn vị %q không hợp lệ", cell(ColUnit)))
	}

	if raw := cell(ColExpiryDate); raw != "" {
		if d, ok := parseExcelDate(raw); ok {
			r.ExpiryDate = d.Format("2006-01-02")
		} else {
			fail("Hạn sử dụng không hợp lệ")
		}
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseExcelMoney(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price")
	}
	return d, nil
}

// parseUnit accepts the stored code ("chai") or the display label ("Chai", "Tuýp").
// An empty cell means the default unit.
func parseUnit(raw string) (models.ProductUnit, bool) {
	if raw == "" {
		return models.UnitPiece, true
	}
	folded := textfilter.Fold(raw)
	for unit, label := range models.UnitLabels {
		if folded == string(unit) || folded == textfilter.Fold(label) {
			return unit, true
		}
	}
	return "", false
}

// parseExcelDate accepts a date serial number (raw cell value) or a typed date.
func parseExcelDate(raw string) (time.Time, bool) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2/1/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// POST /api/imports/excel/preview (multipart, field "file")
func PreviewExcelImportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Chưa chọn file Excel")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Chỉ chấp nhận file Excel .xlsx")
		}
		if fh.Size > cfg.MaxUploadBytes {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("File quá lớn. Kích thước tối đa là %dMB", cfg.MaxUploadBytes/(1024*1024)))
		}

		file, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không mở được file")
		}
		defer file.Close()

		rows, err := ParseImportSheet(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		missing, err := missingCategories(database.DB, rowCategories(rows))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không kiểm tra được danh mục")
		}
		missingSet := make(map[string]bool, len(missing))
		for _, name := range missing {
			missingSet[name] = true
		}

		valid := 0
		for i := range rows {
			if missingSet[rows[i].CategoryName] {
				rows[i].Errors = append(rows[i].Errors, "Danh mục chưa tồn tại")
				rows[i].Valid = false
			}
			if rows[i].Valid {
				valid++
			}
		}

		logging.L.Info("excel import previewed",
			zap.String("file", fh.Filename),
			zap.Int("rows", len(rows)),
			zap.Int("valid", valid))

		return c.JSON(ExcelPreviewResponse{
			Rows:              rows,
			ValidCount:        valid,
			MissingCategories: missing,
		})
	}
}

// POST /api/imports/excel/confirm
// Nhận lại các dòng người dùng đã chọn từ bước xem trước
func ConfirmExcelImportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ConfirmExcelImportRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		now := time.Now().In(cfg.Location)
		today := catalog.Today(cfg)

		var order models.ImportOrder
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			names := make([]string, 0, len(body.Rows))
			for _, r := range body.Rows {
				names = append(names, strings.TrimSpace(r.CategoryName))
			}
			missing, err := missingCategories(tx, names)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fiber.NewError(fiber.StatusBadRequest,
					"Danh mục chưa tồn tại: "+strings.Join(missing, ", "))
			}

			lines := make([]importLine, 0, len(body.Rows))
			for i, r := range body.Rows {
				if r.ImportPrice.IsNegative() || r.SellingPrice.IsNegative() {
					return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Dòng %d: giá không được âm", i+1))
				}
				expiry, err := expiryDate(r.ExpiryDate, today)
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Dòng %d: %v", i+1, err))
				}
				product, err := findOrCreateProduct(tx, r)
				if err != nil {
					return err
				}
				lines = append(lines, importLine{
					Product:   product,
					Quantity:  r.Quantity,
					UnitPrice: r.ImportPrice,
					Expiry:    expiry,
				})
			}

			code, err := nextOrderCode(tx, &models.ImportOrder{}, ImportCodePrefix, now)
			if err != nil {
				return err
			}
			order = models.ImportOrder{
				Code:        code,
				ImportDate:  now,
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
			Description: fmt.Sprintf("Nhập Excel phiếu %s (%d dòng)", o.Code, len(o.Items)),
			After:       toImportOrderResponse(o, cfg, true),
		})
		return c.Status(fiber.StatusCreated).JSON(toImportOrderResponse(o, cfg, true))
	}
}

// findOrCreateProduct matches an active product by name within the row's
// category. An existing product takes the sheet's selling price.
func findOrCreateProduct(tx *gorm.DB, r ExcelConfirmRow) (models.Product, error) {
	var cat models.Category
	if err := tx.First(&cat, "name = ?", strings.TrimSpace(r.CategoryName)).Error; err != nil {
		return models.Product{}, fmt.Errorf("không đọc được danh mục %s: %w", r.CategoryName, err)
	}

	name := strings.TrimSpace(r.ProductName)
	var p models.Product
	err := tx.Where("name = ? AND category_id = ? AND is_active = ?", name, cat.ID, true).First(&p).Error
	if err == nil {
		if err := tx.Model(&p).Update("selling_price", r.SellingPrice).Error; err != nil {
			return p, fmt.Errorf("không cập nhật được giá bán: %w", err)
		}
		return p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return p, err
	}

	code, err := catalog.NextProductCode(tx)
	if err != nil {
		return p, fmt.Errorf("không sinh được mã sản phẩm: %w", err)
	}
	unit := r.Unit
	if unit == "" {
		unit = models.UnitPiece
	}
	p = models.Product{
		Code:         code,
		Name:         name,
		CategoryID:   cat.ID,
		Unit:         unit,
		SellingPrice: r.SellingPrice,
		Description:  strings.TrimSpace(r.Description),
		IsActive:     true,
	}
	if err := tx.Create(&p).Error; err != nil {
		return p, fmt.Errorf("không tạo được sản phẩm %s: %w", name, err)
	}
	return p, nil
}

func rowCategories(rows []ExcelRow) []string {
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.CategoryName != "" {
			names = append(names, r.CategoryName)
		}
	}
	return names
}

// missingCategories returns the distinct names with no matching category, sorted.
func missingCategories(db *gorm.DB, names []string) ([]string, error) {
	wanted := map[string]bool{}
	for _, n := range names {
		wanted[n] = true
	}
	if len(wanted) == 0 {
		return []string{}, nil
	}
	list := make([]string, 0, len(wanted))
	for n := range wanted {
		list = append(list, n)
	}

	var existing []string
	if err := db.Model(&models.Category{}).Where("name IN ?", list).Pluck("name", &existing).Error; err != nil {
		return nil, err
	}
	for _, n := range existing {
		delete(wanted, n)
	}

	missing := make([]string, 0, len(wanted))
	for n := range wanted {
		missing = append(missing, n)
	}
	sort.Strings(missing)
	return missing, nil
}
