package presenter

import (
	"testing"
	"time"

	"khomypham-backend/internal/batchcode"
	"khomypham-backend/internal/stocklevel"

	"github.com/stretchr/testify/assert"
)

type fakeElement struct {
	attrs   map[string]string
	value   string
	text    string
	classes map[string]bool
	html    string
	icon    string
	hidden  bool
}

func newFake() *fakeElement {
	return &fakeElement{attrs: map[string]string{}, classes: map[string]bool{}}
}

func (f *fakeElement) Attr(name string) string { return f.attrs[name] }
func (f *fakeElement) Value() string           { return f.value }
func (f *fakeElement) SetValue(v string)       { f.value = v }
func (f *fakeElement) Text() string            { return f.text }
func (f *fakeElement) SetIcon(html string)     { f.icon = html }
func (f *fakeElement) SetVisible(v bool)       { f.hidden = !v }

func (f *fakeElement) AddClass(classes ...string) {
	for _, c := range classes {
		f.classes[c] = true
	}
}

func (f *fakeElement) RemoveClass(classes ...string) {
	for _, c := range classes {
		delete(f.classes, c)
	}
}

// rendered is the element's markup as the browser would show it.
func (f *fakeElement) rendered() string { return f.html + f.icon }

func stockElement(stock, threshold string) *fakeElement {
	el := newFake()
	el.attrs["data-stock"] = stock
	if threshold != "" {
		el.attrs["data-threshold"] = threshold
	}
	el.html = stock
	return el
}

func fixedGenerator() *batchcode.Generator {
	g := batchcode.NewGenerator(time.UTC)
	g.Now = func() time.Time { return time.Date(2024, time.March, 7, 9, 5, 0, 0, time.UTC) }
	return g
}

func TestApplyStockIndicator(t *testing.T) {
	out := stockElement("0", "")
	out.AddClass("text-success")
	assert.Equal(t, stocklevel.OutOfStock, ApplyStockIndicator(out))
	assert.True(t, out.classes["text-danger"])
	assert.False(t, out.classes["text-success"])
	assert.Equal(t, `0 <i class="fas fa-exclamation-triangle"></i>`, out.rendered())

	low := stockElement("4", "5")
	assert.Equal(t, stocklevel.Low, ApplyStockIndicator(low))
	assert.True(t, low.classes["text-warning"])
	assert.Equal(t, `4 <i class="fas fa-exclamation-circle"></i>`, low.rendered())

	normal := stockElement("40", "")
	assert.Equal(t, stocklevel.Normal, ApplyStockIndicator(normal))
	assert.True(t, normal.classes["text-success"])
	assert.Equal(t, "40", normal.rendered())
}

func TestRefreshStockLevelsKeepsOneIcon(t *testing.T) {
	stock := stockElement("3", "")
	b := Init(Page{StockLevels: []Element{stock}}, fixedGenerator())

	b.RefreshStockLevels()
	b.RefreshStockLevels()
	assert.Equal(t, `3 <i class="fas fa-exclamation-circle"></i>`, stock.rendered())

	stock.attrs["data-stock"] = "50"
	b.RefreshStockLevels()
	assert.Equal(t, map[string]bool{"text-success": true}, stock.classes)
	assert.Equal(t, "3", stock.rendered())

	stock.attrs["data-stock"] = "0"
	b.RefreshStockLevels()
	assert.Equal(t, map[string]bool{"text-danger": true}, stock.classes)
	assert.Equal(t, `3 <i class="fas fa-exclamation-triangle"></i>`, stock.rendered())
}

func TestInitAppliesIndicatorsAndDates(t *testing.T) {
	stock := stockElement("3", "")
	emptyDate := newFake()
	setDate := newFake()
	setDate.value = "2023-12-31"

	Init(Page{
		StockLevels: []Element{stock},
		DateInputs:  []Element{emptyDate, setDate},
	}, fixedGenerator())

	assert.True(t, stock.classes["text-warning"])
	assert.Equal(t, "2024-03-07", emptyDate.value)
	assert.Equal(t, "2023-12-31", setDate.value)
}

func TestOnRowInput(t *testing.T) {
	qty, price, total := newFake(), newFake(), newFake()
	qty.value = "3"
	price.value = "12.5"

	b := Init(Page{Rows: []Row{{Quantity: qty, Price: price, Total: total}}}, fixedGenerator())
	b.OnRowInput(0)
	assert.Equal(t, "37.50", total.value)

	qty.value = ""
	b.OnRowInput(0)
	assert.Equal(t, "0.00", total.value)

	b.OnRowInput(5)
	assert.Equal(t, "0.00", total.value)
}

func TestApplyRowTotalWithoutPrice(t *testing.T) {
	qty, total := newFake(), newFake()
	qty.value = "2"
	ApplyRowTotal(Row{Quantity: qty, Total: total})
	assert.Equal(t, "0.00", total.value)

	assert.NotPanics(t, func() { ApplyRowTotal(Row{Quantity: qty}) })
}

func TestOnGenerateBatchCode(t *testing.T) {
	input := newFake()
	b := Init(Page{BatchCodeInput: input}, fixedGenerator())

	assert.Equal(t, "LOT202403070905", b.OnGenerateBatchCode())
	assert.Equal(t, "LOT202403070905", input.value)
}

func TestOnSearch(t *testing.T) {
	r1, r2, r3 := newFake(), newFake(), newFake()
	r1.text = "SP00001 Son môi đỏ"
	r2.text = "SP00002 Kem dưỡng da"
	r3.text = "SP00003 Son dưỡng"

	b := Init(Page{TableRows: []Element{r1, r2, r3}}, fixedGenerator())

	assert.Equal(t, 2, b.OnSearch("son"))
	assert.False(t, r1.hidden)
	assert.True(t, r2.hidden)
	assert.False(t, r3.hidden)

	assert.Equal(t, 3, b.OnSearch(""))
	assert.False(t, r2.hidden)
}
