package presenters

import (
	"Pantry-Pipeline-Backend/domain"

	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Status    bool   `json:"status"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

func SuccessResponse(c *fiber.Ctx, data any, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *fiber.Ctx, statusCode int, message string, err error) error {
	res := Response{
		Status:  false,
		Message: message,
	}
	if err != nil {
		res.Error = err.Error()
		res.ErrorKind = domain.KindOf(err)
	}
	return c.Status(statusCode).JSON(res)
}

// DomainErrorResponse derives the HTTP status from the sentinel error itself.
func DomainErrorResponse(c *fiber.Ctx, message string, err error) error {
	return ErrorResponse(c, domain.StatusOf(err), message, err)
}
