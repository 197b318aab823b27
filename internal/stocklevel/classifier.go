package stocklevel

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// DefaultThreshold is used whenever a reading carries no usable threshold.
const DefaultThreshold = 10

type Severity string

const (
	OutOfStock Severity = "out_of_stock"
	Low        Severity = "low"
	Normal     Severity = "normal"
)

// Reading is one stock figure together with the level at which it counts as low.
type Reading struct {
	Stock     int `json:"stock"`
	Threshold int `json:"threshold"`
}

// Classify maps a stock level to a severity. Rules are checked in order:
// stock <= 0 is out of stock, stock <= threshold is low, anything else is normal.
func Classify(stock, threshold int) Severity {
	switch {
	case stock <= 0:
		return OutOfStock
	case stock <= threshold:
		return Low
	default:
		return Normal
	}
}

// ClassifyStock classifies with DefaultThreshold.
func ClassifyStock(stock int) Severity {
	return Classify(stock, DefaultThreshold)
}

func (r Reading) Severity() Severity {
	return Classify(r.Stock, r.Threshold)
}

// ParseReading normalizes raw attribute values. An unparseable stock becomes 0,
// a missing, unparseable or negative threshold becomes DefaultThreshold.
func ParseReading(stockRaw, thresholdRaw string) Reading {
	stock, ok := parseLeadingInt(stockRaw)
	if !ok {
		stock = 0
	}
	// An explicit "0" is a real threshold and is kept: only stock <= 0 then
	// counts as anything but normal.
	threshold, ok := parseLeadingInt(thresholdRaw)
	if !ok || threshold < 0 {
		threshold = DefaultThreshold
	}
	return Reading{Stock: stock, Threshold: threshold}
}

// parseLeadingInt reads an optionally signed run of digits at the start of s,
// ignoring surrounding whitespace and anything after the digits ("12.5" -> 12).
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		// too many digits still means a very large figure
		if s[0] == '-' {
			return math.MinInt, true
		}
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}
