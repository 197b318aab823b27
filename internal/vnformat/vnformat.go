package vnformat

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DateLayout     = "02/01/2006"
	DateTimeLayout = "02/01/2006 15:04"
	DayLabelLayout = "02/01"
)

var printer = message.NewPrinter(language.Vietnamese)

// Currency formats an amount in whole dong with Vietnamese digit grouping: 1.234.567 ₫
func Currency(amount decimal.Decimal) string {
	return printer.Sprintf("%d", amount.Round(0).IntPart()) + " ₫"
}

// Number formats an integer quantity with Vietnamese digit grouping.
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

func Date(t time.Time) string {
	return t.Format(DateLayout)
}

func DateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}
