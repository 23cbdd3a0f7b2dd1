// Package respond renders the JSON envelope shared by every endpoint:
// {"success": bool, "message": string, "data": payload}.
package respond

import "github.com/gofiber/fiber/v2"

func JSON(c *fiber.Ctx, status int, success bool, message string, data any) error {
	if data == nil {
		data = fiber.Map{}
	}
	return c.Status(status).JSON(fiber.Map{
		"success": success,
		"message": message,
		"data":    data,
	})
}

func OK(c *fiber.Ctx, message string, data any) error {
	return JSON(c, fiber.StatusOK, true, message, data)
}

func Created(c *fiber.Ctx, message string, data any) error {
	return JSON(c, fiber.StatusCreated, true, message, data)
}

func Fail(c *fiber.Ctx, status int, message string, data any) error {
	return JSON(c, status, false, message, data)
}

// RequestID returns the id assigned by the request-id middleware, or "" when
// the middleware is not installed (tests).
func RequestID(c *fiber.Ctx) string {
	if v, ok := c.Locals("request_id").(string); ok {
		return v
	}
	return ""
}
