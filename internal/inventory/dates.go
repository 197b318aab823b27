package inventory

import (
	"fmt"
	"strings"
	"time"
)

// DefaultShelfLifeDays is the expiry assumed when an import line leaves it empty.
const DefaultShelfLifeDays = 365

// orderTime reads the date of an order. Empty means now; a bare date keeps
// the current time of day so orders entered the same day stay in order.
func orderTime(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, now.Location()); err == nil {
			return t, nil
		}
	}
	d, err := time.ParseInLocation("2006-01-02", raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("ngày không hợp lệ: %q", raw)
	}
	h, m, s := now.Clock()
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, s, 0, now.Location()), nil
}

// expiryDate reads a YYYY-MM-DD expiry; empty means today + DefaultShelfLifeDays.
func expiryDate(raw string, today time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today.AddDate(0, 0, DefaultShelfLifeDays), nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("hạn sử dụng không hợp lệ: %q", raw)
	}
	return d, nil
}
