package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldError is returned for a request body that fails its validate tags.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	return "Dữ liệu không hợp lệ"
}

// Struct validates obj and returns a *FieldError listing every failing field.
func Struct(obj any) error {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Dữ liệu không hợp lệ: %v", err))
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return &FieldError{Fields: fields}
}

// ParseBody parses the request body into obj and validates it.
func ParseBody(c *fiber.Ctx, obj any) error {
	if err := c.BodyParser(obj); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Dữ liệu gửi lên không hợp lệ")
	}
	return Struct(obj)
}

// fieldPath drops the top-level struct name: "CreateImportRequest.items[0].quantity" -> "items[0].quantity"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Trường này là bắt buộc"
	case "min":
		return fmt.Sprintf("Giá trị tối thiểu là %s", fe.Param())
	case "max":
		return fmt.Sprintf("Giá trị tối đa là %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Phải lớn hơn %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Phải lớn hơn hoặc bằng %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Phải là một trong: %s", fe.Param())
	case "email":
		return "Email không hợp lệ"
	case "datetime":
		return fmt.Sprintf("Định dạng ngày phải là %s", fe.Param())
	case "dive":
		return "Danh sách không hợp lệ"
	default:
		return "Giá trị không hợp lệ"
	}
}
