package stocklevel

// Indicator is the visual treatment the admin UI applies to a stock figure.
type Indicator struct {
	Class string `json:"class"`
	Icon  string `json:"icon,omitempty"`
}

// Classes lists every class an indicator may set, so callers can clear
// the previous one before applying a new one.
var Classes = []string{"text-success", "text-warning", "text-danger"}

func (s Severity) Indicator() Indicator {
	switch s {
	case OutOfStock:
		return Indicator{Class: "text-danger", Icon: "fas fa-exclamation-triangle"}
	case Low:
		return Indicator{Class: "text-warning", Icon: "fas fa-exclamation-circle"}
	default:
		return Indicator{Class: "text-success"}
	}
}

// IconHTML is the markup appended after the stock figure, empty for normal stock.
func (i Indicator) IconHTML() string {
	if i.Icon == "" {
		return ""
	}
	return ` <i class="` + i.Icon + `"></i>`
}

// Label is the Vietnamese status text used in reports.
func (s Severity) Label() string {
	switch s {
	case OutOfStock:
		return "Hết hàng"
	case Low:
		return "Sắp hết hàng"
	default:
		return "Bình thường"
	}
}
