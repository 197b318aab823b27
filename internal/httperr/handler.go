package httperr

import (
	"errors"

	"khomypham-backend/internal/logging"
	"khomypham-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler renders every error returned by a route as {"error": message}.
// Validation failures also carry a "fields" map.
func Handler(c *fiber.Ctx, err error) error {
	var fieldErr *validation.FieldError
	if errors.As(err, &fieldErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  fieldErr.Error(),
			"fields": fieldErr.Fields,
		})
	}

	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}

	logging.L.Error("Unexpected error", zap.Error(err), zap.String("path", c.Path()))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Lỗi máy chủ không mong muốn",
	})
}
