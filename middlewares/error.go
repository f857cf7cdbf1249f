package middlewares

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"atelier-backend/ledger"
)

var errLog *zap.SugaredLogger

// SetErrorLogger wires the shared logger into the error handler.
func SetErrorLogger(l *zap.SugaredLogger) {
	errLog = l
}

// ErrorHandler centralizes error responses and keeps messages sanitized.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// 1) Fiber errors (use their status code + message)
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	// 2) Request-body validation errors (422 + per-field info)
	if ve, ok := err.(validator.ValidationErrors); ok {
		out := make(map[string]string, len(ve))
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "validation failed",
			"errors":  out,
		})
	}

	// 3) Ledger engine taxonomy
	var lve *ledger.ValidationError
	switch {
	case errors.As(err, &lve):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "validation failed",
			"errors":  map[string]string{lve.Field: lve.Reason},
		})
	case errors.Is(err, ledger.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "not found"})
	case errors.Is(err, ledger.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "conflicting concurrent update, please retry"})
	case errors.Is(err, ledger.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ledger.ErrStorage):
		if errLog != nil {
			errLog.Errorw("storage error", "path", c.Path(), "error", err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "storage failure, changes were rolled back"})
	}

	// 4) Unknown errors (500)
	if errLog != nil {
		errLog.Errorw("internal error", "path", c.Path(), "error", err)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}
