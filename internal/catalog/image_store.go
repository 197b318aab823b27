package catalog

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// SaveProductImage copies an uploaded image into dir and returns the stored
// file name. The name is derived from the product code so uploads never
// overwrite each other.
func SaveProductImage(fh *multipart.FileHeader, productCode, dir string, maxBytes int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedImageExts[ext] {
		return "", fmt.Errorf("chỉ chấp nhận ảnh jpg, png, webp hoặc gif")
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", fmt.Errorf("ảnh vượt quá %d MB", maxBytes/(1024*1024))
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("không mở được tệp: %v", err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("không tạo được thư mục: %v", err)
	}

	fileName := fmt.Sprintf("%s_%d%s", productCode, time.Now().UnixNano(), ext)
	dst, err := os.Create(filepath.Join(dir, fileName))
	if err != nil {
		return "", fmt.Errorf("không tạo được tệp: %v", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("không ghi được ảnh: %v", err)
	}
	return fileName, nil
}
