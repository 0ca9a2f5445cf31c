package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// APIError is a structured error response.
type APIError struct {
	Status    int          `json:"status"`
	Code      string       `json:"code"`    // bad_request, not_found, timeout, internal_error, ...
	Message   string       `json:"message"` // Human-readable message
	Details   []FieldError `json:"details,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errValidation returns a 400 error listing every invalid field.
func errValidation(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errBadRequest(c, err.Error())
	}

	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{Field: fieldPath(fe), Message: validationMessage(fe)})
	}
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(fiber.StatusBadRequest).JSON(APIError{
		Status:    fiber.StatusBadRequest,
		Code:      "validation_failed",
		Message:   "request validation failed",
		Details:   details,
		RequestID: reqID,
	})
}

// errOutOfBounds returns a 422 error naming the endpoints outside the service area.
func errOutOfBounds(c *fiber.Ctx, details []FieldError) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(fiber.StatusUnprocessableEntity).JSON(APIError{
		Status:    fiber.StatusUnprocessableEntity,
		Code:      "out_of_bounds",
		Message:   "coordinates outside the service area",
		Details:   details,
		RequestID: reqID,
	})
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errTimeout returns a 504 error when resolution was cut short by the request deadline.
func errTimeout(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusGatewayTimeout, "timeout", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}
