package audit_test

import (
	"fmt"
	"net/http"
	"testing"

	"khomypham-backend/internal/audit"
	"khomypham-backend/internal/auth"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAudit(t *testing.T) *testutil.TestEnv {
	env := testutil.NewEnv(t)
	env.API.Get("/audit-logs", audit.ListAuditLogsHandler())
	env.API.Post("/admin/audit-logs/:id/undo", auth.RequireRole(models.RoleAdmin), audit.UndoAuditLogHandler())
	return env
}

func lastLog(t *testing.T, env *testutil.TestEnv) models.AuditLog {
	var entry models.AuditLog
	require.NoError(t, env.DB.Order("id DESC").First(&entry).Error)
	return entry
}

func TestUndoProductUpdateRestoresFields(t *testing.T) {
	env := setupAudit(t)
	cat := env.SeedCategory("Son môi")
	p := env.SeedProduct("SP00001", "Son đỏ", cat.ID, "150000")

	before := p
	require.NoError(t, env.DB.Model(&p).Updates(map[string]interface{}{
		"name":          "Son hồng",
		"selling_price": decimal.RequireFromString("180000"),
	}).Error)
	require.NoError(t, audit.WriteLog(audit.LogOptions{
		UserID: env.Admin.ID, UserName: env.Admin.Name,
		EntityType: models.EntityProduct, EntityID: p.ID,
		Action: models.AuditActionUpdate, Description: "Sửa sản phẩm",
		Before: before, After: p,
	}))
	entry := lastLog(t, env)

	resp, body := env.Do("POST", fmt.Sprintf("/api/admin/audit-logs/%d/undo", entry.ID), nil, env.AdminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var reloaded models.Product
	require.NoError(t, env.DB.First(&reloaded, p.ID).Error)
	assert.Equal(t, "Son đỏ", reloaded.Name)
	assert.True(t, decimal.RequireFromString("150000").Equal(reloaded.SellingPrice))

	undo := lastLog(t, env)
	assert.Equal(t, models.AuditActionUndo, undo.Action)
	assert.True(t, undo.Undone)

	resp, _ = env.Do("POST", fmt.Sprintf("/api/admin/audit-logs/%d/undo", entry.ID), nil, env.AdminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUndoProductDeleteReactivates(t *testing.T) {
	env := setupAudit(t)
	cat := env.SeedCategory("Kem dưỡng")
	p := env.SeedProduct("SP00002", "Kem ban đêm", cat.ID, "250000")
	require.NoError(t, env.DB.Model(&p).Update("is_active", false).Error)

	audit.Record(audit.LogOptions{
		UserID: env.Admin.ID, UserName: env.Admin.Name,
		EntityType: models.EntityProduct, EntityID: p.ID,
		Action: models.AuditActionDelete, Before: p,
	})
	entry := lastLog(t, env)

	resp, body := env.Do("POST", fmt.Sprintf("/api/admin/audit-logs/%d/undo", entry.ID), nil, env.AdminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var reloaded models.Product
	require.NoError(t, env.DB.First(&reloaded, p.ID).Error)
	assert.True(t, reloaded.IsActive)
}

func TestUndoRejectsImportsAndStaff(t *testing.T) {
	env := setupAudit(t)
	audit.Record(audit.LogOptions{
		UserID: env.Staff.ID, UserName: env.Staff.Name,
		EntityType: models.EntityImportOrder, EntityID: 1,
		Action: models.AuditActionCreate, Description: "Tạo phiếu nhập",
	})
	entry := lastLog(t, env)
	path := fmt.Sprintf("/api/admin/audit-logs/%d/undo", entry.ID)

	resp, _ := env.Do("POST", path, nil, env.StaffToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := env.Do("POST", path, nil, env.AdminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), audit.ErrNotUndoable.Error())

	resp, _ = env.Do("POST", "/api/admin/audit-logs/9999/undo", nil, env.AdminToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUndoCategoryDeleteRecreates(t *testing.T) {
	env := setupAudit(t)
	cat := env.SeedCategory("Nước hoa")
	require.NoError(t, env.DB.Delete(&models.Category{}, cat.ID).Error)
	audit.Record(audit.LogOptions{
		UserID: env.Admin.ID, UserName: env.Admin.Name,
		EntityType: models.EntityCategory, EntityID: cat.ID,
		Action: models.AuditActionDelete, Before: cat,
	})
	entry := lastLog(t, env)

	resp, body := env.Do("POST", fmt.Sprintf("/api/admin/audit-logs/%d/undo", entry.ID), nil, env.AdminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var count int64
	env.DB.Model(&models.Category{}).Where("name = ?", "Nước hoa").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUndoCategoryCreateStopsWhenProductCountFails(t *testing.T) {
	env := setupAudit(t)
	cat := env.SeedCategory("Nước hoa")
	audit.Record(audit.LogOptions{
		UserID: env.Admin.ID, UserName: env.Admin.Name,
		EntityType: models.EntityCategory, EntityID: cat.ID,
		Action: models.AuditActionCreate, After: cat,
	})
	entry := lastLog(t, env)
	env.FailCounts("products")

	resp, body := env.Do("POST", fmt.Sprintf("/api/admin/audit-logs/%d/undo", entry.ID), nil, env.AdminToken)
	assert.NotEqual(t, http.StatusOK, resp.StatusCode, string(body))

	var kept models.Category
	require.NoError(t, env.DB.First(&kept, cat.ID).Error)
	var reloaded models.AuditLog
	require.NoError(t, env.DB.First(&reloaded, entry.ID).Error)
	assert.False(t, reloaded.IsUndone)
}

func TestListAuditLogsFilters(t *testing.T) {
	env := setupAudit(t)
	for i, et := range []string{models.EntityProduct, models.EntityCategory, models.EntityProduct} {
		audit.Record(audit.LogOptions{
			UserID: env.Admin.ID, UserName: env.Admin.Name,
			EntityType: et, EntityID: uint(i + 1),
			Action: models.AuditActionCreate,
		})
	}

	resp, body := env.Do("GET", "/api/audit-logs?entity_type=product", nil, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var logs []audit.AuditLogResponse
	env.DecodeJSON(body, &logs)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, models.EntityProduct, l.EntityType)
	}

	resp, body = env.Do("GET", "/api/audit-logs?entity_type=product&entity_id=3", nil, env.StaffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env.DecodeJSON(body, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, uint(3), logs[0].EntityID)
}
