package catalog

import (
	"testing"
	"time"

	"khomypham-backend/internal/config"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/stocklevel"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToBatchResponseFlags(t *testing.T) {
	cfg := config.Default()
	today := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiry    time.Time
		remaining int
		expired   bool
		expiring  bool
		severity  stocklevel.Severity
	}{
		{"yesterday", today.AddDate(0, 0, -1), 20, true, true, stocklevel.Normal},
		{"today", today, 20, false, true, stocklevel.Normal},
		{"edge of window", today.AddDate(0, 0, 30), 10, false, true, stocklevel.Low},
		{"far", today.AddDate(0, 0, 31), 0, false, false, stocklevel.OutOfStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := models.Batch{
				BatchCode:         "LOT1",
				ExpiryDate:        tt.expiry,
				ImportPrice:       decimal.NewFromInt(1000),
				RemainingQuantity: tt.remaining,
			}
			res := ToBatchResponse(b, cfg, today)
			assert.Equal(t, tt.expired, res.IsExpired)
			assert.Equal(t, tt.expiring, res.IsExpiringSoon)
			assert.Equal(t, tt.severity, res.Severity)
			assert.Equal(t, tt.severity != stocklevel.Normal, res.IsLowStock)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-12-31 ")
	assert.NoError(t, err)
	assert.Equal(t, "31/12/2025", d.Format("02/01/2006"))

	_, err = ParseDate("31/12/2025")
	assert.Error(t, err)
}
