package vnformat

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	assert.Equal(t, "1.234.567 ₫", Currency(decimal.NewFromInt(1234567)))
	assert.Equal(t, "0 ₫", Currency(decimal.Zero))
	assert.Equal(t, "150.001 ₫", Currency(decimal.RequireFromString("150000.5")))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "12.000", Number(12000))
	assert.Equal(t, "7", Number(7))
}

func TestDate(t *testing.T) {
	tm := time.Date(2024, time.March, 7, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "07/03/2024", Date(tm))
	assert.Equal(t, "07/03/2024 09:05", DateTime(tm))
}
