package main

import (
	"log"
	"strings"

	"khomypham-backend/internal/audit"
	"khomypham-backend/internal/auth"
	"khomypham-backend/internal/batchcode"
	"khomypham-backend/internal/catalog"
	"khomypham-backend/internal/config"
	"khomypham-backend/internal/dashboard"
	"khomypham-backend/internal/database"
	"khomypham-backend/internal/httperr"
	"khomypham-backend/internal/inventory"
	"khomypham-backend/internal/logging"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/reports"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger khởi tạo lỗi: %v", err)
	}
	defer logger.Sync()

	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		BodyLimit:    int(cfg.MaxUploadBytes) + 1024*1024,
	})

	// CORS origins: danh sách phân cách bởi dấu phẩy
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(corsOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: "Content-Disposition, X-Request-ID",
	}))
	app.Use(logging.RequestID())
	app.Use(logging.Requests(logger, auth.CtxUserIDKey))

	app.Static("/media/products", cfg.ProductImagePath)

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Danh mục & sản phẩm (đọc)
	protected.Get("/categories", catalog.ListCategoriesHandler())
	protected.Get("/products", catalog.ListProductsHandler(cfg))
	protected.Get("/products/:id", catalog.GetProductHandler(cfg))
	protected.Get("/products/:id/info", catalog.ProductInfoHandler())

	// Lô hàng
	protected.Get("/batches", inventory.ListBatchesHandler(cfg))

	// Phiếu nhập
	protected.Get("/imports", inventory.ListImportsHandler(cfg))
	protected.Post("/imports", inventory.CreateImportHandler(cfg))
	protected.Post("/imports/excel/preview", inventory.PreviewExcelImportHandler(cfg))
	protected.Post("/imports/excel/confirm", inventory.ConfirmExcelImportHandler(cfg))
	protected.Get("/imports/:id", inventory.GetImportHandler(cfg))
	protected.Post("/imports/:id/items", inventory.AddImportItemsHandler(cfg))

	// Phiếu xuất
	protected.Get("/exports", inventory.ListExportsHandler(cfg))
	protected.Post("/exports", inventory.CreateExportHandler(cfg))
	protected.Get("/exports/:id", inventory.GetExportHandler(cfg))
	protected.Post("/exports/:id/items", inventory.AddExportItemsHandler(cfg))

	// Tiện ích cho form
	protected.Get("/batch-codes/new", inventory.NewBatchCodeHandler(batchcode.NewGenerator(cfg.Location)))
	protected.Get("/stock-level", inventory.StockLevelHandler())
	protected.Post("/row-total", inventory.RowTotalHandler())

	// Tổng quan & báo cáo
	protected.Get("/dashboard", dashboard.DashboardHandler(cfg))
	protected.Get("/reports/inventory", reports.InventoryReportHandler(cfg))
	protected.Get("/reports/inventory/excel", reports.ExportInventoryExcelHandler(cfg))
	protected.Get("/reports/import-export", reports.ImportExportReportHandler(cfg))
	protected.Get("/reports/import-export/excel", reports.ExportImportExportExcelHandler(cfg))
	protected.Get("/reports/profit", reports.ProfitReportHandler(cfg))
	protected.Get("/reports/profit/excel", reports.ExportProfitExcelHandler(cfg))

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/users", auth.CreateUserHandler())
	adminRoutes.Get("/users", auth.ListUsersHandler())

	adminRoutes.Post("/categories", catalog.CreateCategoryHandler())
	adminRoutes.Put("/categories/:id", catalog.UpdateCategoryHandler())
	adminRoutes.Delete("/categories/:id", catalog.DeleteCategoryHandler())

	adminRoutes.Post("/products", catalog.CreateProductHandler(cfg))
	adminRoutes.Put("/products/:id", catalog.UpdateProductHandler(cfg))
	adminRoutes.Delete("/products/:id", catalog.DeleteProductHandler())
	adminRoutes.Post("/products/:id/image", catalog.UploadProductImageHandler(cfg))

	adminRoutes.Post("/audit-logs/:id/undo", audit.UndoAuditLogHandler())

	logger.Info("Server đang chạy", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Fatal("Server dừng", zap.Error(err))
	}
}
