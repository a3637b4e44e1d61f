package helper

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"schoolkit_backend/internals/helpers/errs"
)

// ✅ Success Response without custom code (default 200)
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return SuccessWithCode(c, fiber.StatusOK, message, data)
}

// ✅ Success Response with custom code (e.g. 201 for created)
func SuccessWithCode(c *fiber.Ctx, code int, message string, data interface{}) error {
	return c.Status(code).JSON(fiber.Map{
		"code":    code,
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

// Success envelope carrying the workflow warning map alongside the data.
func SuccessWithWarnings(c *fiber.Ctx, code int, message string, data interface{}, warnings errs.Warnings) error {
	body := fiber.Map{
		"code":    code,
		"status":  "success",
		"message": message,
		"data":    data,
	}
	if !warnings.Empty() {
		body["warnings"] = warnings
	}
	return c.Status(code).JSON(body)
}

// ✅ Plain error response
func Error(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"code":    code,
		"status":  "error",
		"message": message,
	})
}

func ErrorWithDetails(c *fiber.Ctx, code int, message string, errors interface{}) error {
	return c.Status(code).JSON(fiber.Map{
		"code":    code,
		"status":  "error",
		"message": message,
		"errors":  errors,
	})
}

// FromAppError maps a workflow error (usually *errs.AppError) onto the JSON
// envelope. *fiber.Error passes through, anything else becomes a 500.
func FromAppError(c *fiber.Ctx, err error) error {
	if ae, ok := errs.As(err); ok {
		return c.Status(errs.HTTPStatus(err)).JSON(fiber.Map{
			"code":    errs.HTTPStatus(err),
			"status":  "error",
			"error":   ae.Code,
			"message": ae.Message,
		})
	}
	if fe, ok := err.(*fiber.Error); ok {
		return Error(c, fe.Code, fe.Message)
	}
	return Error(c, fiber.StatusInternalServerError, err.Error())
}

// ✅ validator.v10 errors
func ValidationError(c *fiber.Ctx, err error) error {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return Error(c, fiber.StatusBadRequest, "Invalid input")
	}

	errorsMap := make(map[string]string)
	for _, fieldErr := range ve {
		errorsMap[fieldErr.Field()] = fieldErr.Tag()
	}

	return ErrorWithDetails(c, fiber.StatusBadRequest, "Validation failed", errorsMap)
}
