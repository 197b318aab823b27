package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"khomypham-backend/internal/auth"
	"khomypham-backend/internal/config"
	"khomypham-backend/internal/database"
	"khomypham-backend/internal/httperr"
	"khomypham-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "test-secret-key-0123456789abcdef0123"

// TestEnv holds the resources of one handler test.
type TestEnv struct {
	T          *testing.T
	DB         *gorm.DB
	Cfg        *config.Config
	App        *fiber.App
	API        fiber.Router // /api, requires a token
	Admin      models.User
	AdminToken string
	Staff      models.User
	StaffToken string
}

// SetupTestDB opens a private in-memory SQLite database, migrates it and
// installs it as database.DB for the duration of the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		sqlDB.Close()
	})
	return db
}

// NewEnv builds a database, an app with the production error handler and
// an admin and a staff user with valid tokens.
func NewEnv(t *testing.T) *TestEnv {
	t.Helper()
	db := SetupTestDB(t)

	cfg := config.Default()
	cfg.JWTSecret = JWTSecret
	cfg.ProductImagePath = t.TempDir()

	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler})
	api := app.Group("/api", auth.JWTMiddleware(cfg))

	env := &TestEnv{T: t, DB: db, Cfg: cfg, App: app, API: api}
	env.Admin, env.AdminToken = env.CreateUser("Quản trị", "admin@kho.vn", models.RoleAdmin)
	env.Staff, env.StaffToken = env.CreateUser("Nhân viên", "staff@kho.vn", models.RoleStaff)
	return env
}

// CreateUser inserts a user with password "password123" and returns it with a token.
func (e *TestEnv) CreateUser(name, email string, role models.UserRole) (models.User, string) {
	e.T.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(e.T, err)

	u := models.User{Name: name, Email: email, PasswordHash: string(hash), Role: role}
	require.NoError(e.T, e.DB.Create(&u).Error)

	token, err := auth.GenerateToken(JWTSecret, &u)
	require.NoError(e.T, err)
	return u, token
}

// Do sends a JSON request and returns the response with its body read.
func (e *TestEnv) Do(method, path string, body any, token string) (*http.Response, []byte) {
	e.T.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.Send(req)
}

// Send runs a prepared request through the app.
func (e *TestEnv) Send(req *http.Request) (*http.Response, []byte) {
	e.T.Helper()
	resp, err := e.App.Test(req, -1)
	require.NoError(e.T, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.T, err)
	resp.Body.Close()
	return resp, data
}

// DecodeJSON unmarshals data into v, failing the test on error.
func (e *TestEnv) DecodeJSON(data []byte, v any) {
	e.T.Helper()
	require.NoError(e.T, json.Unmarshal(data, v), string(data))
}

// SeedCategory inserts a category.
func (e *TestEnv) SeedCategory(name string) models.Category {
	e.T.Helper()
	c := models.Category{Name: name}
	require.NoError(e.T, e.DB.Create(&c).Error)
	return c
}

// SeedProduct inserts an active product in the given category.
func (e *TestEnv) SeedProduct(code, name string, categoryID uint, sellingPrice string) models.Product {
	e.T.Helper()
	p := models.Product{
		Code:         code,
		Name:         name,
		CategoryID:   categoryID,
		Unit:         models.UnitPiece,
		SellingPrice: decimal.RequireFromString(sellingPrice),
		IsActive:     true,
	}
	require.NoError(e.T, e.DB.Create(&p).Error)
	return p
}

// SeedBatch inserts an active batch with remaining == imported quantity.
func (e *TestEnv) SeedBatch(productID uint, code string, quantity int, importPrice string, expiry time.Time) models.Batch {
	e.T.Helper()
	b := models.Batch{
		ProductID:         productID,
		BatchCode:         code,
		ImportDate:        time.Now(),
		ExpiryDate:        expiry,
		ImportPrice:       decimal.RequireFromString(importPrice),
		ImportQuantity:    quantity,
		RemainingQuantity: quantity,
		IsActive:          true,
		CreatedByID:       e.Admin.ID,
	}
	require.NoError(e.T, e.DB.Create(&b).Error)
	return b
}

// FailCounts makes every COUNT against table return an error, as a database
// outage at that step would.
func (e *TestEnv) FailCounts(table string) {
	e.T.Helper()
	err := e.DB.Callback().Query().Before("gorm:query").Register("testutil:fail_count_"+table, func(db *gorm.DB) {
		if _, isCount := db.Statement.Dest.(*int64); isCount && db.Statement.Table == table {
			db.AddError(fmt.Errorf("count on %s failed", table))
		}
	})
	require.NoError(e.T, err)
}

// FailScans makes every raw row scan (Scan, Row, Rows) against table return an error.
func (e *TestEnv) FailScans(table string) {
	e.T.Helper()
	err := e.DB.Callback().Row().Before("gorm:row").Register("testutil:fail_scan_"+table, func(db *gorm.DB) {
		if db.Statement.Table == table {
			db.AddError(fmt.Errorf("scan on %s failed", table))
		}
	})
	require.NoError(e.T, err)
}
