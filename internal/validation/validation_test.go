package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemReq struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

type orderReq struct {
	Supplier string    `json:"supplier" validate:"max=10"`
	Email    string    `json:"email" validate:"required,email"`
	Date     string    `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Items    []itemReq `json:"items" validate:"required,min=1,dive"`
}

func TestStructValid(t *testing.T) {
	err := Struct(orderReq{Email: "a@b.vn", Date: "2024-03-07", Items: []itemReq{{Quantity: 1}}})
	assert.NoError(t, err)
}

func TestStructReportsJSONFieldPaths(t *testing.T) {
	err := Struct(orderReq{
		Supplier: "a very long supplier name",
		Date:     "07/03/2024",
		Items:    []itemReq{{Quantity: 0}},
	})
	require.Error(t, err)

	fe, ok := err.(*FieldError)
	require.True(t, ok)
	assert.Equal(t, "Trường này là bắt buộc", fe.Fields["email"])
	assert.Equal(t, "Giá trị tối đa là 10", fe.Fields["supplier"])
	assert.Equal(t, "Định dạng ngày phải là 2006-01-02", fe.Fields["date"])
	assert.Equal(t, "Phải lớn hơn 0", fe.Fields["items[0].quantity"])
}
