package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort          string
	DatabaseDSN       string
	JWTSecret         string
	CORSOrigins       string
	ProductImagePath  string // Thư mục lưu ảnh sản phẩm
	LogLevel          string
	LogFormat         string
	LowStockThreshold int
	ExpiryWarningDays int // "sắp hết hạn" trên dashboard
	ReportExpiryDays  int // "sắp hết hạn" trong báo cáo tồn kho
	MaxUploadBytes    int64
	Location          *time.Location
}

const defaultDSN = "host=localhost user=postgres password=postgres dbname=khomypham port=5432 sslmode=disable"

func Load() *Config {
	// .env là tùy chọn, biến môi trường thật luôn được ưu tiên
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] .env không đọc được: %v", err)
	}

	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:       getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		CORSOrigins:       getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		ProductImagePath:  getEnv("PRODUCT_IMAGE_PATH", "./product-images"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		LowStockThreshold: getEnvInt("LOW_STOCK_THRESHOLD", 10),
		ExpiryWarningDays: getEnvInt("EXPIRY_WARNING_DAYS", 30),
		ReportExpiryDays:  getEnvInt("REPORT_EXPIRY_DAYS", 270),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 5)) * 1024 * 1024,
		Location:          loadLocation(getEnv("TIMEZONE", "Asia/Ho_Chi_Minh")),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET chưa được cấu hình!")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET phải có ít nhất 32 ký tự!")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN đang dùng giá trị mặc định, hãy cấu hình cho production.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS đang dùng giá trị mặc định.")
	}

	return cfg
}

// Default returns the settings used when nothing is configured; tests build on it.
func Default() *Config {
	return &Config{
		HTTPPort:          "8080",
		DatabaseDSN:       defaultDSN,
		CORSOrigins:       "http://localhost:5173",
		ProductImagePath:  "./product-images",
		LogLevel:          "info",
		LogFormat:         "console",
		LowStockThreshold: 10,
		ExpiryWarningDays: 30,
		ReportExpiryDays:  270,
		MaxUploadBytes:    5 * 1024 * 1024,
		Location:          time.Local,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("[WARN] %s=%q không hợp lệ, dùng mặc định %d", key, v, def)
		return def
	}
	return n
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[WARN] TIMEZONE=%q không hợp lệ, dùng giờ hệ thống", name)
		return time.Local
	}
	return loc
}
