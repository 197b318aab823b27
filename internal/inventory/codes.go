package inventory

import (
	"fmt"
	"strings"
	"time"

	"khomypham-backend/internal/batchcode"
	"khomypham-backend/internal/models"

	"gorm.io/gorm"
)

const (
	ImportCodePrefix = "PN"
	ExportCodePrefix = "PX"
)

// nextOrderCode numbers an order after the current minute, e.g. PN202403070905.
// A second order in the same minute gets a -2, -3 ... suffix.
func nextOrderCode(tx *gorm.DB, model interface{}, prefix string, now time.Time) (string, error) {
	base := prefix + batchcode.Digits(batchcode.FromTime(now))
	return firstFreeCode(base, func(code string) (bool, error) {
		var count int64
		err := tx.Model(model).Where("code = ?", code).Count(&count).Error
		return count > 0, err
	})
}

// batchCodeAllocator hands out unique lot codes within one transaction.
// Codes reserved earlier in the same request count as taken even before
// their rows are flushed.
type batchCodeAllocator struct {
	tx       *gorm.DB
	reserved map[string]bool
}

func newBatchCodeAllocator(tx *gorm.DB) *batchCodeAllocator {
	return &batchCodeAllocator{tx: tx, reserved: map[string]bool{}}
}

// Allocate returns requested when it is free, otherwise requested-N.
// An empty request falls back to the generated code for the import time.
func (a *batchCodeAllocator) Allocate(requested string, importTime time.Time) (string, error) {
	base := strings.TrimSpace(requested)
	if base == "" {
		base = batchcode.Format(batchcode.FromTime(importTime))
	}
	code, err := firstFreeCode(base, func(code string) (bool, error) {
		if a.reserved[code] {
			return true, nil
		}
		var count int64
		err := a.tx.Model(&models.Batch{}).Where("batch_code = ?", code).Count(&count).Error
		return count > 0, err
	})
	if err != nil {
		return "", err
	}
	a.reserved[code] = true
	return code, nil
}

func firstFreeCode(base string, taken func(string) (bool, error)) (string, error) {
	code := base
	for n := 2; ; n++ {
		used, err := taken(code)
		if err != nil {
			return "", err
		}
		if !used {
			return code, nil
		}
		code = fmt.Sprintf("%s-%d", base, n)
	}
}
