package rowtotal

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseLenient reads the leading number of s. Input without a leading number is 0.
func ParseLenient(s string) decimal.Decimal {
	m := numberPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Compute returns quantity * price for one line of an import or export form.
func Compute(quantityRaw, priceRaw string) decimal.Decimal {
	return ParseLenient(quantityRaw).Mul(ParseLenient(priceRaw))
}

// Format renders a total with two decimals, the way the total field shows it.
func Format(total decimal.Decimal) string {
	return total.StringFixed(2)
}

// Line is a typed row used by order totals.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Sum adds up the totals of all lines.
func Sum(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}
