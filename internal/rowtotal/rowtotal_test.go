package rowtotal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		price    string
		want     string
	}{
		{"integers", "3", "25000", "75000.00"},
		{"decimal price", "2", "19.99", "39.98"},
		{"empty quantity", "", "10", "0.00"},
		{"garbage price", "4", "abc", "0.00"},
		{"leading number with suffix", "5 chai", "1.5đ", "7.50"},
		{"whitespace", " 2 ", " 3.25 ", "6.50"},
		{"exponent", "1e2", "2", "200.00"},
		{"negative quantity", "-1", "10", "-10.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(Compute(tt.quantity, tt.price)))
		})
	}
}

func TestSum(t *testing.T) {
	lines := []Line{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("150000")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("99000.50")},
	}
	assert.Equal(t, "399000.50", Format(Sum(lines)))
	assert.True(t, Sum(nil).IsZero())
}
