// Package presenter binds the stock, batch-code, row-total and search helpers
// to page elements supplied by the host. Nothing here looks elements up by
// itself; the host hands over the references once through Init.
package presenter

import (
	"time"

	"khomypham-backend/internal/batchcode"
	"khomypham-backend/internal/rowtotal"
	"khomypham-backend/internal/stocklevel"
	"khomypham-backend/internal/textfilter"
)

// Element is the subset of a rendered node the bindings touch.
type Element interface {
	Attr(name string) string
	Value() string
	SetValue(v string)
	Text() string
	AddClass(classes ...string)
	RemoveClass(classes ...string)
	// SetIcon replaces the icon markup shown after the element's content;
	// an empty string removes it.
	SetIcon(html string)
	SetVisible(visible bool)
}

// Row is one editable line of an order form. Price and Total may be nil.
type Row struct {
	Quantity Element
	Price    Element
	Total    Element
}

// Page collects the element references a view exposes.
type Page struct {
	StockLevels    []Element
	Rows           []Row
	BatchCodeInput Element
	TableRows      []Element
	DateInputs     []Element
}

// Bindings holds the handlers the host calls from its event loop.
type Bindings struct {
	page      Page
	batchCode *batchcode.Generator
	now       func() time.Time
}

// Init runs the one-off work for a freshly rendered page: stock indicators are
// applied and empty date inputs get today's date. The returned Bindings serve
// the later user events.
func Init(page Page, gen *batchcode.Generator) *Bindings {
	if gen == nil {
		gen = batchcode.NewGenerator(nil)
	}
	b := &Bindings{page: page, batchCode: gen, now: gen.Now}

	b.RefreshStockLevels()
	b.fillEmptyDates()
	return b
}

// RefreshStockLevels reapplies the indicator on every stock element.
func (b *Bindings) RefreshStockLevels() {
	for _, el := range b.page.StockLevels {
		ApplyStockIndicator(el)
	}
}

// ApplyStockIndicator reads data-stock and data-threshold from el and styles it.
func ApplyStockIndicator(el Element) stocklevel.Severity {
	reading := stocklevel.ParseReading(el.Attr("data-stock"), el.Attr("data-threshold"))
	sev := reading.Severity()
	ind := sev.Indicator()

	el.RemoveClass(stocklevel.Classes...)
	el.AddClass(ind.Class)
	el.SetIcon(ind.IconHTML())
	return sev
}

// OnRowInput recomputes the total of the i-th row after its quantity or price changed.
func (b *Bindings) OnRowInput(i int) {
	if i < 0 || i >= len(b.page.Rows) {
		return
	}
	ApplyRowTotal(b.page.Rows[i])
}

// ApplyRowTotal writes quantity * price into the row's total field.
func ApplyRowTotal(r Row) {
	if r.Quantity == nil || r.Total == nil {
		return
	}
	price := ""
	if r.Price != nil {
		price = r.Price.Value()
	}
	r.Total.SetValue(rowtotal.Format(rowtotal.Compute(r.Quantity.Value(), price)))
}

// OnGenerateBatchCode fills the batch code input and returns the code.
func (b *Bindings) OnGenerateBatchCode() string {
	code := b.batchCode.Next()
	if b.page.BatchCodeInput != nil {
		b.page.BatchCodeInput.SetValue(code)
	}
	return code
}

// OnSearch hides the table rows whose text does not contain term and
// returns how many stay visible.
func (b *Bindings) OnSearch(term string) int {
	visible := 0
	for _, row := range b.page.TableRows {
		ok := textfilter.Matches(row.Text(), term)
		row.SetVisible(ok)
		if ok {
			visible++
		}
	}
	return visible
}

func (b *Bindings) fillEmptyDates() {
	today := b.now().In(b.batchCode.Location).Format("2006-01-02")
	for _, el := range b.page.DateInputs {
		if el.Value() == "" {
			el.SetValue(today)
		}
	}
}
