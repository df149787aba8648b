package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// formatValidationErrors turns validator errors into a field->message map.
func formatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			errs[e.Field()] = "failed on " + e.Tag()
		}
	}
	return errs
}

// paramID parses a numeric path parameter.
func paramID(c *fiber.Ctx, name string) (int64, error) {
	return strconv.ParseInt(c.Params(name), 10, 64)
}
