// Package common holds the response envelope, problem details and request
// binding shared by every handler package.
package common

import (
	"errors"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title    string `json:"title"`              // Short, human-readable summary
	Status   int    `json:"status"`             // HTTP status code
	Detail   string `json:"detail,omitempty"`   // Human-readable explanation
	Instance string `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	Errors   any    `json:"errors,omitempty"`   // Optional: additional error details
}

// MIMEProblemJSON is the media type of problem responses.
const MIMEProblemJSON = "application/problem+json"

var validate = validator.New()

// ProblemDetailsJSON writes an RFC 9457 problem response. The optional args
// are a detail string and an explicit status code, in any order. Without a
// status the code is derived from err; without a detail the error text is used.
func ProblemDetailsJSON(
	c *fiber.Ctx,
	title string,
	err error,
	args ...any,
) error {
	status := 0
	detail := ""
	for _, a := range args {
		switch v := a.(type) {
		case int:
			status = v
		case string:
			detail = v
		}
	}
	if status == 0 {
		status = ErrorToStatusCode(err)
	}

	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.OriginalURL(),
	}
	if err != nil {
		if pd.Detail == "" {
			pd.Detail = err.Error()
		}
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			pd.Errors = verr.Errors
		}
	}
	return c.Status(status).JSON(pd, MIMEProblemJSON)
}

// SuccessResponseJSON writes the standard success envelope.
func SuccessResponseJSON(
	c *fiber.Ctx,
	status int,
	message string,
	data any,
) error {
	return c.Status(status).JSON(Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// ErrorToStatusCode maps domain errors to appropriate HTTP status codes.
func ErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return fiber.StatusInternalServerError
	// Checked first: an unknown token subject is both unauthorized and not found.
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrAlreadyExists):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrPersistence):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// BindAndValidate parses the request body and validates it using go-playground/validator.
// Returns a pointer to the struct (populated), or writes an error response and returns nil.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid request body", err, fiber.StatusBadRequest)
	}
	if err := validate.Struct(input); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			verr := &domain.ValidationError{}
			for _, fe := range ves {
				verr.Add(fe.Field(), failedRule(fe))
			}
			return nil, ProblemDetailsJSON(c, "Validation failed", verr, fiber.StatusBadRequest)
		}
		return nil, ProblemDetailsJSON(c, "Validation failed", err, fiber.StatusBadRequest)
	}
	return &input, nil
}

func failedRule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return "failed " + fe.Tag()
	}
	return "failed " + fe.Tag() + "=" + fe.Param()
}
