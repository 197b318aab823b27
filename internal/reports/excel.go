package reports

import (
	"bytes"
	"fmt"
	"time"
	"unicode/utf8"

	"khomypham-backend/internal/vnformat"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetInventory = "Báo cáo tồn kho"
	SheetImports   = "Phiếu nhập kho"
	SheetExports   = "Phiếu xuất kho"
	SheetSummary   = "Tổng hợp"
	SheetProfit    = "Báo cáo lợi nhuận"

	headerColor   = "366092"
	maxColumnWide = 50
)

var (
	inventoryHeaders = []string{"STT", "Mã SP", "Tên sản phẩm", "Danh mục", "Đơn vị", "Tổng tồn kho", "Lô hàng", "Hạn sử dụng", "Số lượng còn", "Trạng thái"}
	orderHeaders     = []string{"STT", "Mã phiếu", "Ngày nhập", "Nhà cung cấp", "Người tạo", "Tổng giá trị", "Ghi chú"}
	profitHeaders    = []string{"STT", "Sản phẩm", "Danh mục", "Số lượng xuất", "Giá nhập TB", "Giá xuất TB", "Lợi nhuận/SP", "Tổng lợi nhuận", "Tỷ lệ LN (%)"}
)

func InventoryFileName(day time.Time) string {
	return "bao_cao_ton_kho_" + day.Format("20060102") + ".xlsx"
}

func ImportExportFileName(day time.Time) string {
	return "bao_cao_nhap_xuat_" + day.Format("20060102") + ".xlsx"
}

func ProfitFileName(day time.Time) string {
	return "bao_cao_loi_nhuan_" + day.Format("20060102") + ".xlsx"
}

// workbook wraps an excelize file with the report styles and remembers the
// widest value written in every column of every sheet.
type workbook struct {
	f      *excelize.File
	title  int
	header int
	bold   int
	widths map[string]map[int]int
}

func newWorkbook(firstSheet string) (*workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", firstSheet); err != nil {
		return nil, err
	}
	wb := &workbook{f: f, widths: map[string]map[int]int{}}

	var err error
	if wb.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return nil, err
	}
	if wb.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return nil, err
	}
	if wb.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, err
	}
	return wb, nil
}

func (wb *workbook) addSheet(name string) error {
	_, err := wb.f.NewSheet(name)
	return err
}

// setTitle merges row 1 over the given number of columns.
func (wb *workbook) setTitle(sheet, text string, columns int) error {
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	if err := wb.f.MergeCell(sheet, "A1", last); err != nil {
		return err
	}
	if err := wb.f.SetCellValue(sheet, "A1", text); err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, "A1", "A1", wb.title)
}

func (wb *workbook) setRow(sheet string, row int, values []interface{}, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := wb.f.SetSheetRow(sheet, first, &values); err != nil {
		return err
	}
	cols := wb.widths[sheet]
	if cols == nil {
		cols = map[int]int{}
		wb.widths[sheet] = cols
	}
	for i, v := range values {
		if n := utf8.RuneCountInString(fmt.Sprint(v)); n > cols[i+1] {
			cols[i+1] = n
		}
	}
	if style == 0 || len(values) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, first, last, style)
}

func (wb *workbook) setHeader(sheet string, row int, headers []string) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	return wb.setRow(sheet, row, values, wb.header)
}

func (wb *workbook) boldCell(sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := wb.f.SetCellValue(sheet, cell, value); err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, cell, cell, wb.bold)
}

// fitColumns sizes each column to its widest value plus 2, capped at 50.
// Titles merged across row 1 are not counted.
func (wb *workbook) fitColumns() error {
	for sheet, cols := range wb.widths {
		for col, n := range cols {
			name, err := excelize.ColumnNumberToName(col)
			if err != nil {
				return err
			}
			width := n + 2
			if width > maxColumnWide {
				width = maxColumnWide
			}
			if err := wb.f.SetColWidth(sheet, name, name, float64(width)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (wb *workbook) bytes() ([]byte, error) {
	defer wb.f.Close()
	if err := wb.fitColumns(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := wb.f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// InventoryWorkbook renders the inventory report on one sheet, data from row 4.
func InventoryWorkbook(report InventoryReport) ([]byte, error) {
	wb, err := newWorkbook(SheetInventory)
	if err != nil {
		return nil, err
	}
	if err := wb.setTitle(SheetInventory, "BÁO CÁO TỒN KHO CHI TIẾT", len(inventoryHeaders)); err != nil {
		return nil, err
	}
	if err := wb.setHeader(SheetInventory, 3, inventoryHeaders); err != nil {
		return nil, err
	}
	for i, r := range report.Rows {
		values := []interface{}{
			i + 1,
			r.ProductCode,
			r.ProductName,
			r.CategoryName,
			r.Unit,
			r.TotalStock,
			r.BatchCode,
			vnformat.Date(r.ExpiryDate),
			r.Remaining,
			r.StatusLabel,
		}
		if err := wb.setRow(SheetInventory, 4+i, values, 0); err != nil {
			return nil, err
		}
	}
	return wb.bytes()
}

// ImportExportWorkbook writes imports, exports and a summary on three sheets.
func ImportExportWorkbook(report ImportExportReport, loc *time.Location) ([]byte, error) {
	wb, err := newWorkbook(SheetImports)
	if err != nil {
		return nil, err
	}
	if err := wb.addSheet(SheetExports); err != nil {
		return nil, err
	}
	if err := wb.addSheet(SheetSummary); err != nil {
		return nil, err
	}

	orderSheets := []struct {
		name  string
		title string
		rows  []OrderRow
	}{
		{SheetImports, "BÁO CÁO PHIẾU NHẬP KHO", report.Imports},
		{SheetExports, "BÁO CÁO PHIẾU XUẤT KHO", report.Exports},
	}
	for _, s := range orderSheets {
		if err := wb.setTitle(s.name, s.title, len(orderHeaders)); err != nil {
			return nil, err
		}
		if err := wb.setHeader(s.name, 3, orderHeaders); err != nil {
			return nil, err
		}
		for i, o := range s.rows {
			values := []interface{}{
				i + 1,
				o.Code,
				vnformat.DateTime(o.Date.In(loc)),
				dash(o.Partner),
				o.CreatedBy,
				money(o.TotalAmount),
				dash(o.Notes),
			}
			if err := wb.setRow(s.name, 4+i, values, 0); err != nil {
				return nil, err
			}
		}
	}

	if err := wb.setTitle(SheetSummary, "TỔNG HỢP NHẬP/XUẤT KHO", 4); err != nil {
		return nil, err
	}
	stats := [][2]interface{}{
		{"Chỉ tiêu", "Giá trị"},
		{"Tổng phiếu nhập", len(report.Imports)},
		{"Tổng phiếu xuất", len(report.Exports)},
		{"Tổng giá trị nhập", money(report.TotalImportValue)},
		{"Tổng giá trị xuất", money(report.TotalExportValue)},
		{"Lợi nhuận", money(report.Profit)},
	}
	for i, s := range stats {
		if err := wb.setRow(SheetSummary, 3+i, []interface{}{s[0], s[1]}, 0); err != nil {
			return nil, err
		}
		if err := wb.boldCell(SheetSummary, 1, 3+i, s[0]); err != nil {
			return nil, err
		}
	}
	return wb.bytes()
}

// ProfitWorkbook puts the overview on rows 3-8 and the per-product table
// under a caption on row 9, closed by a total row.
func ProfitWorkbook(report ProfitReport) ([]byte, error) {
	wb, err := newWorkbook(SheetProfit)
	if err != nil {
		return nil, err
	}
	if err := wb.setTitle(SheetProfit, "BÁO CÁO LỢI NHUẬN", len(profitHeaders)); err != nil {
		return nil, err
	}
	if err := wb.boldCell(SheetProfit, 1, 3, "TỔNG QUAN"); err != nil {
		return nil, err
	}
	stats := [][2]interface{}{
		{"Chỉ tiêu", "Giá trị"},
		{"Tổng giá trị nhập", money(report.TotalImportValue)},
		{"Tổng giá trị xuất", money(report.TotalExportValue)},
		{"Tổng lợi nhuận", money(report.TotalProfit)},
		{"Tỷ lệ lợi nhuận", report.Margin.StringFixed(1) + "%"},
	}
	for i, s := range stats {
		if err := wb.setRow(SheetProfit, 4+i, []interface{}{s[0], s[1]}, 0); err != nil {
			return nil, err
		}
		if err := wb.boldCell(SheetProfit, 1, 4+i, s[0]); err != nil {
			return nil, err
		}
	}

	if err := wb.boldCell(SheetProfit, 1, 9, "CHI TIẾT LỢI NHUẬN THEO SẢN PHẨM"); err != nil {
		return nil, err
	}
	if err := wb.setHeader(SheetProfit, 10, profitHeaders); err != nil {
		return nil, err
	}
	row := 11
	for i, r := range report.Rows {
		values := []interface{}{
			i + 1,
			r.ProductName,
			r.CategoryName,
			r.Quantity,
			money(r.AvgImportPrice),
			money(r.AvgExportPrice),
			money(r.ProfitPerUnit),
			money(r.TotalProfit),
			r.Margin.StringFixed(1),
		}
		if err := wb.setRow(SheetProfit, row, values, 0); err != nil {
			return nil, err
		}
		row++
	}
	if err := wb.boldCell(SheetProfit, 1, row, "TỔNG CỘNG"); err != nil {
		return nil, err
	}
	if err := wb.boldCell(SheetProfit, 8, row, money(report.TotalProfit)); err != nil {
		return nil, err
	}
	if err := wb.boldCell(SheetProfit, 9, row, report.Margin.StringFixed(1)); err != nil {
		return nil, err
	}
	return wb.bytes()
}
