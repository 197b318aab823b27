package inventory_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"khomypham-backend/internal/batchcode"
	"khomypham-backend/internal/inventory"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/pagination"
	"khomypham-backend/internal/stocklevel"
	"khomypham-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedGenerator() *batchcode.Generator {
	return &batchcode.Generator{
		Now:      func() time.Time { return time.Date(2024, 3, 7, 9, 5, 0, 0, time.UTC) },
		Location: time.UTC,
	}
}

func setupInventory(t *testing.T) *testutil.TestEnv {
	env := testutil.NewEnv(t)
	api := env.API
	api.Get("/batches", inventory.ListBatchesHandler(env.Cfg))
	api.Get("/imports", inventory.ListImportsHandler(env.Cfg))
	api.Post("/imports", inventory.CreateImportHandler(env.Cfg))
	api.Post("/imports/excel/preview", inventory.PreviewExcelImportHandler(env.Cfg))
	api.Post("/imports/excel/confirm", inventory.ConfirmExcelImportHandler(env.Cfg))
	api.Get("/imports/:id", inventory.GetImportHandler(env.Cfg))
	api.Post("/imports/:id/items", inventory.AddImportItemsHandler(env.Cfg))
	api.Get("/exports", inventory.ListExportsHandler(env.Cfg))
	api.Post("/exports", inventory.CreateExportHandler(env.Cfg))
	api.Get("/exports/:id", inventory.GetExportHandler(env.Cfg))
	api.Post("/exports/:id/items", inventory.AddExportItemsHandler(env.Cfg))
	api.Get("/batch-codes/new", inventory.NewBatchCodeHandler(fixedGenerator()))
	api.Get("/stock-level", inventory.StockLevelHandler())
	api.Post("/row-total", inventory.RowTotalHandler())
	return env
}

func TestCreateImportCreatesOneBatchPerItem(t *testing.T) {
	env := setupInventory(t)
	cat := env.SeedCategory("Son môi")
	red := env.SeedProduct("SP00001", "Son đỏ", cat.ID, "150000")
	pink := env.SeedProduct("SP00002", "Son hồng", cat.ID, "160000")

	resp, body := env.Do("POST", "/api/imports", fiber.Map{
		"supplier": "Nhà phân phối A",
		"items": []fiber.Map{
			{"product_id": red.ID, "batch_code": "LOT-A", "quantity": 10, "unit_price": "80000", "expiry_date": "2027-01-31"},
			{"product_id": pink.ID, "quantity": 5, "unit_price": 90000},
			{"product_id": pink.ID, "quantity": 2, "unit_price": 90000},
		},
	}, env.StaffToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var order inventory.ImportOrderResponse
	env.DecodeJSON(body, &order)
	assert.True(t, strings.HasPrefix(order.Code, inventory.ImportCodePrefix))
	assert.Equal(t, 3, order.ItemCount)
	assert.Equal(t, "1430000", order.TotalAmount.String())
	assert.Equal(t, "1.430.000 ₫", order.TotalDisplay)
	assert.Equal(t, env.Staff.Name, order.CreatedBy)

	require.Len(t, order.Items, 3)
	assert.Equal(t, "LOT-A", order.Items[0].BatchCode)
	assert.Equal(t, "2027-01-31", order.Items[0].ExpiryDate)
	generated := order.Items[1].BatchCode
	assert.True(t, strings.HasPrefix(generated, batchcode.Prefix))
	assert.Equal(t, generated+"-2", order.Items[2].BatchCode)

	// empty expiry defaults to one year from today
	wantExpiry := time.Now().AddDate(0, 0, inventory.DefaultShelfLifeDays).Format("2006-01-02")
	assert.Equal(t, wantExpiry, order.Items[1].ExpiryDate)

	var batches []models.Batch
	require.NoError(t, env.DB.Order("id").Find(&batches).Error)
	require.Len(t, batches, 3)
	assert.Equal(t, 10, batches[0].RemainingQuantity)
	assert.Equal(t, 10, batches[0].ImportQuantity)
	assert.Equal(t, env.Staff.ID, batches[0].CreatedByID)

	// a reused code in a later import gets a suffix
	resp, body = env.Do("POST", "/api/imports", fiber.Map{
		"items": []fiber.Map{{"product_id": red.ID, "batch_code": "LOT-A", "quantity": 1, "unit_price": 1}},
	}, env.StaffToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	env.DecodeJSON(body, &order)
	assert.Equal(t, "LOT-A-2", order.Items[0].BatchCode)
	assert.NotEqual(t, "", order.Code)

	var logs int64
	env.DB.Model(&models.AuditLog{}).Where("entity_type = ?", models.EntityImportOrder).Count(&logs)
	assert.Equal(t, int64(2), logs)
}

func TestCreateImportRollsBackOnBadLine(t *testing.T) {
	env := setupInventory(t)
	cat := env.SeedCategory("Son môi")
	red := env.SeedProduct("SP00001", "Son đỏ", cat.ID, "150000")

	resp, _ := env.Do("POST", "/api/imports", fiber.Map{
		"items": []fiber.Map{
			{"product_id": red.ID, "quantity": 3, "unit_price": 1000},
			{"product_id": 999, "quantity": 3, "unit_price": 1000},
		},
	}, env.StaffToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var orders, batches int64
	env.DB.Model(&models.ImportOrder{}).Count(&orders)
	env.DB.Model(&models.Batch{}).Count(&batches)
	assert.Zero(t, orders)
	assert.Zero(t, batches)

	resp, body := env.Do("POST", "/api/imports", fiber.Map{
		"items": []fiber.Map{{"product_id": red.ID, "quantity": 0}},
	}, env.StaffToken)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var out struct {
		Fields map[string]string `json:"fields"`
	}
	env.DecodeJSON(body, &out)
	assert.Contains(t, out.Fields, "items[0].quantity")

	resp, _ = env.Do("POST", "/api/imports", fiber.Map{
		"items": []fiber.Map{{"product_id": red.ID, "quantity": 1, "expiry_date": "31/12/2027"}},
	}, env.StaffToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddImportItemsAndList(t *testing.T) {
	env := setupInventory(t)
	cat := env.SeedCategory("Kem dưỡng")
	p := env.SeedProduct("SP00001", "Kem ban đêm", cat.ID, "300000")

	resp, body := env.Do("POST", "/api/imports", fiber.Map{"import_date": "2024-03-07", "notes": "Chờ hàng"}, env.AdminToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var order inventory.ImportOrderResponse
	env.DecodeJSON(body, &order)
	assert.Equal(t, 0, order.ItemCount)
	assert.True(t, strings.HasPrefix(order.ImportDate, "2024-03-07"))

	resp, body = env.Do("POST", fmt.Sprintf("/api/imports/%d/items", order.ID), fiber.Map{
		"items": []fiber.Map{{"product_id": p.ID, "quantity": 6, "unit_price": "150000"}},
	}, env.AdminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	env.DecodeJSON(body, &order)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "900000", order.TotalAmount.String())

	var batch models.Batch
	require.NoError(t, env.DB.First(&batch, order.Items[0].BatchID).Error)
	assert.Equal(t, 2024, batch.ImportDate.Year())

	resp, _ = env.Do("POST", fmt.Sprintf("/api/imports/%d/items", order.ID), fiber.Map{"items": []fiber.Map{}}, env.AdminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.Do("GET", "/api/imports/999", nil, env.AdminToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.Do("GET", "/api/imports", nil, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page pagination.ListResponse[inventory.ImportOrderResponse]
	env.DecodeJSON(body, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Items[0].ItemCount)
	assert.Empty(t, page.Items[0].Items)
}

func TestListImportsPaginates(t *testing.T) {
	env := setupInventory(t)
	for i := 0; i < inventory.OrdersPerPage+3; i++ {
		resp, body := env.Do("POST", "/api/imports", fiber.Map{}, env.StaffToken)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := env.Do("GET", "/api/imports?page=2", nil, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page pagination.ListResponse[inventory.ImportOrderResponse]
	env.DecodeJSON(body, &page)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	// every order in the same minute still gets its own code
	var codes []string
	env.DB.Model(&models.ImportOrder{}).Pluck("code", &codes)
	seen := map[string]bool{}
	for _, c := range codes {
		assert.False(t, seen[c], c)
		seen[c] = true
	}
}

func TestExportDecrementsRemainingQuantity(t *testing.T) {
	env := setupInventory(t)
	cat := env.SeedCategory("Son môi")
	p := env.SeedProduct("SP00001", "Son đỏ", cat.ID, "150000")
	batch := env.SeedBatch(p.ID, "LOT-1", 10, "80000", time.Now().AddDate(1, 0, 0))

	resp, body := env.Do("POST", "/api/exports", fiber.Map{
		"customer": "Chị Lan",
		"items":    []fiber.Map{{"batch_id": batch.ID, "quantity": 4}},
	}, env.StaffToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var order inventory.ExportOrderResponse
	env.DecodeJSON(body, &order)
	assert.True(t, strings.HasPrefix(order.Code, inventory.ExportCodePrefix))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "150000", order.Items[0].UnitPrice.String())
	assert.Equal(t, "LOT-1", order.Items[0].BatchCode)
	assert.Equal(t, "600000", order.TotalAmount.String())

	var reloaded models.Batch
	require.NoError(t, env.DB.First(&reloaded, batch.ID).Error)
	assert.Equal(t, 6, reloaded.RemainingQuantity)

	// more than what is left: nothing changes
	resp, body = env.Do("POST", "/api/exports", fiber.Map{
		"items": []fiber.Map{{"batch_id": batch.ID, "quantity": 7}},
	}, env.StaffToken)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "còn 6")

	var exports int64
	env.DB.Model(&models.ExportOrder{}).Count(&exports)
	assert.Equal(t, int64(1), exports)

	// two lines on one batch are checked against the running remainder
	resp, _ = env.Do("POST", fmt.Sprintf("/api/exports/%d/items", order.ID), fiber.Map{
		"items": []fiber.Map{
			{"batch_id": batch.ID, "quantity": 4, "unit_price": "140000"},
			{"batch_id": batch.ID, "quantity": 4, "unit_price": "140000"},
		},
	}, env.StaffToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, env.DB.First(&reloaded, batch.ID).Error)
	assert.Equal(t, 6, reloaded.RemainingQuantity)

	resp, body = env.Do("POST", fmt.Sprintf("/api/exports/%d/items", order.ID), fiber.Map{
		"items": []fiber.Map{{"batch_id": batch.ID, "quantity": 6, "unit_price": "140000"}},
	}, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	env.DecodeJSON(body, &order)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "1440000", order.TotalAmount.String())

	require.NoError(t, env.DB.First(&reloaded, batch.ID).Error)
	assert.Equal(t, 0, reloaded.RemainingQuantity)

	resp, body = env.Do("GET", fmt.Sprintf("/api/exports/%d", order.ID), nil, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env.DecodeJSON(body, &order)
	assert.Equal(t, "Son đỏ", order.Items[1].ProductName)

	resp, body = env.Do("GET", "/api/exports", nil, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page pagination.ListResponse[inventory.ExportOrderResponse]
	env.DecodeJSON(body, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Chị Lan", page.Items[0].Customer)
}

func TestExportShortStockLookupFailureRollsBack(t *testing.T) {
	env := setupInventory(t)
	cat := env.SeedCategory("Son môi")
	p := env.SeedProduct("SP00001", "Son đỏ", cat.ID, "150000")
	batch := env.SeedBatch(p.ID, "LOT-1", 3, "80000", time.Now().AddDate(1, 0, 0))
	env.FailScans("batches")

	resp, body := env.Do("POST", "/api/exports", fiber.Map{
		"items": []fiber.Map{{"batch_id": batch.ID, "quantity": 5}},
	}, env.StaffToken)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode, string(body))
	assert.NotContains(t, string(body), "còn 0")

	var exports int64
	require.NoError(t, env.DB.Model(&models.ExportOrder{}).Count(&exports).Error)
	assert.Equal(t, int64(0), exports)
}

func TestExportRejectsUnknownBatchAndNegativePrice(t *testing.T) {
	env := setupInventory(t)
	cat := env.SeedCategory("Son môi")
	p := env.SeedProduct("SP00001", "Son đỏ", cat.ID, "150000")
	batch := env.SeedBatch(p.ID, "LOT-1", 10, "80000", time.Now().AddDate(1, 0, 0))

	resp, _ := env.Do("POST", "/api/exports", fiber.Map{
		"items": []fiber.Map{{"batch_id": 999, "quantity": 1}},
	}, env.StaffToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.Do("POST", "/api/exports", fiber.Map{
		"items": []fiber.Map{{"batch_id": batch.ID, "quantity": 1, "unit_price": "-5"}},
	}, env.StaffToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var reloaded models.Batch
	require.NoError(t, env.DB.First(&reloaded, batch.ID).Error)
	assert.Equal(t, 10, reloaded.RemainingQuantity)
}

func TestListBatchesOrdersByExpiry(t *testing.T) {
	env := setupInventory(t)
	cat := env.SeedCategory("Son môi")
	p := env.SeedProduct("SP00001", "Son đỏ", cat.ID, "150000")
	other := env.SeedProduct("SP00002", "Son hồng", cat.ID, "150000")
	now := time.Now()
	env.SeedBatch(p.ID, "LOT-LATE", 5, "1000", now.AddDate(0, 6, 0))
	env.SeedBatch(p.ID, "LOT-EARLY", 5, "1000", now.AddDate(0, 1, 0))
	empty := env.SeedBatch(p.ID, "LOT-EMPTY", 5, "1000", now.AddDate(0, 2, 0))
	require.NoError(t, env.DB.Model(&empty).Update("remaining_quantity", 0).Error)
	env.SeedBatch(other.ID, "LOT-OTHER", 5, "1000", now)

	resp, body := env.Do("GET", fmt.Sprintf("/api/batches?product_id=%d&available=true", p.ID), nil, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var batches []struct {
		BatchCode   string `json:"batch_code"`
		ProductName string `json:"product_name"`
	}
	env.DecodeJSON(body, &batches)
	require.Len(t, batches, 2)
	assert.Equal(t, "LOT-EARLY", batches[0].BatchCode)
	assert.Equal(t, "LOT-LATE", batches[1].BatchCode)
	assert.Equal(t, "Son đỏ", batches[0].ProductName)
}

func TestHelperEndpoints(t *testing.T) {
	env := setupInventory(t)

	resp, body := env.Do("GET", "/api/batch-codes/new", nil, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"batch_code":"LOT202403070905"}`, string(body))

	tests := []struct {
		query     string
		severity  stocklevel.Severity
		threshold int
		class     string
	}{
		{"stock=0", stocklevel.OutOfStock, 10, "text-danger"},
		{"stock=5", stocklevel.Low, 10, "text-warning"},
		{"stock=5&threshold=3", stocklevel.Normal, 3, "text-success"},
		{"stock=abc&threshold=xyz", stocklevel.OutOfStock, 10, "text-danger"},
		{"stock=-4", stocklevel.OutOfStock, 10, "text-danger"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, body := env.Do("GET", "/api/stock-level?"+tt.query, nil, env.StaffToken)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var out inventory.StockLevelResponse
			env.DecodeJSON(body, &out)
			assert.Equal(t, tt.severity, out.Severity)
			assert.Equal(t, tt.threshold, out.Threshold)
			assert.Equal(t, tt.class, out.Class)
		})
	}

	resp, body = env.Do("POST", "/api/row-total", fiber.Map{"quantity": "3", "price": "12.5"}, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var total inventory.RowTotalResponse
	env.DecodeJSON(body, &total)
	assert.Equal(t, "37.50", total.Formatted)
	assert.True(t, decimal.RequireFromString("37.5").Equal(total.Total))

	resp, body = env.Do("POST", "/api/row-total", fiber.Map{"quantity": "", "price": "abc"}, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env.DecodeJSON(body, &total)
	assert.Equal(t, "0.00", total.Formatted)
}
